// Waitlist-tui runs the elite waitlist application in a terminal.
//
// It walks the visitor through the qualification questions, posts the
// answers to the waitlist list endpoint and shows the enrollment countdown,
// which survives restarts via a file in the state directory.
//
// Usage:
//
//	waitlist-tui [flags]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wolfman30/elite-waitlist/internal/bridge"
	appconfig "github.com/wolfman30/elite-waitlist/internal/config"
	"github.com/wolfman30/elite-waitlist/internal/countdown"
	"github.com/wolfman30/elite-waitlist/internal/funnel"
	"github.com/wolfman30/elite-waitlist/internal/tui"
	"github.com/wolfman30/elite-waitlist/pkg/logging"
)

var (
	endpoint       string
	stateDir       string
	definitionPath string
	logFile        string
	gracePeriod    time.Duration
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	cmd := &cobra.Command{
		Use:   "waitlist-tui",
		Short: "Apply for the elite waitlist from a terminal",
		Long: `Runs the four-step waitlist application with the enrollment countdown.

Answers are posted once, after the last step, to the configured list
endpoint. The countdown is stored in the state directory.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.Flags().StringVar(&endpoint, "endpoint", cfg.WaitlistEndpoint, "Waitlist form endpoint")
	cmd.Flags().StringVar(&stateDir, "state-dir", defaultStateDir(cfg), "Directory holding the countdown state")
	cmd.Flags().StringVar(&definitionPath, "definition", cfg.WaitlistDefinitionPath, "YAML funnel definition (defaults to the built-in one)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of discarding them")
	cmd.Flags().DurationVar(&gracePeriod, "grace-period", cfg.WaitlistGracePeriod, "How long a dispatched submission may stay open")
	return cmd
}

func runTUI(cmd *cobra.Command, _ []string) error {
	logger, closeLog, err := openLogger(logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	def, err := loadDefinition(definitionPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	if gracePeriod <= 0 {
		gracePeriod = bridge.DefaultGracePeriod
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock, err := countdown.NewClock(ctx, countdown.NewFileStore(stateDir), countdown.Options{Logger: logger})
	if err != nil {
		return err
	}

	formBridge, err := bridge.New(bridge.Config{Endpoint: endpoint, GracePeriod: gracePeriod}, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), gracePeriod)
		defer cancel()
		_ = formBridge.Wait(closeCtx)
		_ = formBridge.Close(closeCtx)
	}()

	model, err := tui.NewModel(ctx, tui.Options{
		Definition: def,
		Submitter:  formBridge,
		Clock:      clock,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func defaultStateDir(cfg *appconfig.Config) string {
	if cfg.CountdownDir != "" {
		return cfg.CountdownDir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "elite-waitlist")
	}
	return ".elite-waitlist"
}

func openLogger(path string) (*logging.Logger, func(), error) {
	if path == "" {
		return logging.NewWithWriter("info", io.Discard), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return logging.NewWithWriter(os.Getenv("LOG_LEVEL"), f), func() { _ = f.Close() }, nil
}

func loadDefinition(path string) (*funnel.Definition, error) {
	if path == "" {
		return funnel.DefaultDefinition()
	}
	return funnel.LoadDefinition(path)
}

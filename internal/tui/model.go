// Package tui renders the waitlist wizard and the enrollment countdown in a
// terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wolfman30/elite-waitlist/internal/countdown"
	"github.com/wolfman30/elite-waitlist/internal/funnel"
	"github.com/wolfman30/elite-waitlist/internal/wizard"
	"github.com/wolfman30/elite-waitlist/pkg/logging"
)

type tickMsg time.Time

type advancedMsg struct {
	state wizard.State
	err   error
}

// Model implements tea.Model for the waitlist wizard.
type Model struct {
	ctx    context.Context
	def    *funnel.Definition
	wz     *wizard.Wizard
	clock  *countdown.Clock
	tick   time.Duration
	logger *logging.Logger

	input   textinput.Model
	area    textarea.Model
	spinner spinner.Model

	hint      string
	remaining time.Duration
	width     int

	// submitting is set while the final Advance runs in a command; keys are
	// dropped until its result arrives.
	submitting bool
}

// Options configures a Model.
type Options struct {
	Definition *funnel.Definition
	Submitter  wizard.Submitter
	Clock      *countdown.Clock
	Tick       time.Duration
	Logger     *logging.Logger
}

// NewModel mounts a wizard at its first step.
func NewModel(ctx context.Context, opts Options) (Model, error) {
	if opts.Clock == nil {
		return Model{}, errors.New("tui: countdown clock required")
	}
	wz, err := wizard.New(opts.Definition, opts.Submitter)
	if err != nil {
		return Model{}, err
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	input := textinput.New()
	input.CharLimit = 256
	input.Width = contentWidth - 6

	area := textarea.New()
	area.ShowLineNumbers = false
	area.SetWidth(contentWidth - 6)
	area.SetHeight(4)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	m := Model{
		ctx:       ctx,
		def:       opts.Definition,
		wz:        wz,
		clock:     opts.Clock,
		tick:      opts.Tick,
		logger:    opts.Logger.Component("tui"),
		input:     input,
		area:      area,
		spinner:   s,
		remaining: opts.Clock.Remaining(),
		width:     contentWidth,
	}
	m.loadStep()
	return m, nil
}

// Wizard exposes the underlying wizard.
func (m Model) Wizard() *wizard.Wizard {
	return m.wz
}

// Init starts the countdown tick and the cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.scheduleTick(), textinput.Blink)
}

// Update processes messages and key events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		remaining, err := m.clock.Tick(m.ctx)
		if err != nil {
			m.logger.Warn("countdown not persisted", "error", err)
		}
		m.remaining = remaining
		return m, m.scheduleTick()

	case advancedMsg:
		return m.handleAdvanced(msg)

	case spinner.TickMsg:
		if m.wz.State().Phase != wizard.PhaseSubmitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateEditor(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.wz.State()

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	if st.Phase == wizard.PhaseSuccess {
		switch msg.String() {
		case "q", "enter", "esc":
			return m, tea.Quit
		}
		return m, nil
	}
	if m.submitting || st.Phase == wizard.PhaseSubmitting {
		return m, nil
	}

	switch msg.String() {
	case "ctrl+s":
		return m.advance()
	case "enter":
		if m.currentKind() != funnel.KindLongText {
			return m.advance()
		}
	case "esc":
		if _, err := m.wz.Back(); err == nil {
			m.hint = ""
			m.loadStep()
		}
		return m, nil
	}

	return m.updateEditor(msg)
}

// updateEditor forwards msg to the active widget and stores what was typed.
func (m Model) updateEditor(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	step := m.wz.CurrentStep()
	if step.Kind == funnel.KindLongText {
		m.area, cmd = m.area.Update(msg)
		_ = m.wz.SetAnswer(step.Key, m.area.Value())
	} else {
		m.input, cmd = m.input.Update(msg)
		_ = m.wz.SetAnswer(step.Key, m.input.Value())
	}
	if _, ok := msg.(tea.KeyMsg); ok {
		m.hint = ""
	}
	return m, cmd
}

func (m Model) advance() (tea.Model, tea.Cmd) {
	if !m.wz.CanAdvance() {
		m.hint = hintFor(m.currentKind())
		return m, nil
	}
	m.hint = ""
	st := m.wz.State()
	if st.StepIndex < st.StepCount-1 {
		next, err := m.wz.Advance(m.ctx)
		return m.handleAdvanced(advancedMsg{state: next, err: err})
	}

	// The last step submits, which may block on the transport.
	m.submitting = true
	wz, ctx := m.wz, m.ctx
	submit := func() tea.Msg {
		next, err := wz.Advance(ctx)
		return advancedMsg{state: next, err: err}
	}
	return m, tea.Batch(submit, m.spinner.Tick)
}

func (m Model) handleAdvanced(msg advancedMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	switch {
	case errors.Is(msg.err, wizard.ErrIncomplete):
		m.hint = hintFor(m.currentKind())
		return m, nil
	case msg.err != nil:
		m.logger.Debug("advance rejected", "error", msg.err)
		return m, nil
	}

	switch msg.state.Phase {
	case wizard.PhaseIdle:
		m.loadStep()
	case wizard.PhaseSuccess:
		m.input.Blur()
		m.area.Blur()
	case wizard.PhaseFailed:
		m.logger.Warn("submission failed", "reason", msg.state.FailureReason)
	}
	return m, nil
}

// loadStep points the editor at the current step and restores its answer.
func (m *Model) loadStep() {
	step := m.wz.CurrentStep()
	value := m.wz.Answer(step.Key)
	if step.Kind == funnel.KindLongText {
		m.input.Blur()
		m.area.Placeholder = step.Placeholder
		m.area.SetValue(value)
		m.area.Focus()
		return
	}
	m.area.Blur()
	m.input.Placeholder = step.Placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m Model) currentKind() funnel.InputKind {
	return m.wz.CurrentStep().Kind
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func hintFor(kind funnel.InputKind) string {
	switch kind {
	case funnel.KindNumeric:
		return "Enter a number of zero or more."
	case funnel.KindEmail:
		return "Enter a valid email address."
	default:
		return "This field is required."
	}
}

// View renders the countdown header, the current step and the action button.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(AppName))
	b.WriteString("  ")
	b.WriteString(HelpStyle.Render("Enrollment closes in "))
	b.WriteString(CountdownStyle.Render(countdown.Format(m.remaining)))
	b.WriteString("\n\n")

	st := m.wz.State()
	if st.Phase == wizard.PhaseSuccess {
		body := SuccessStyle.Render(m.def.Confirmation.Title) + "\n\n" + m.def.Confirmation.Message
		b.WriteString(BoxStyle.Render(body))
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("enter/q quit"))
		return b.String()
	}

	b.WriteString(renderProgress(st))
	b.WriteString("\n")

	step := m.wz.CurrentStep()
	b.WriteString(PromptStyle.Render(step.Prompt))
	b.WriteString("\n")
	if step.Kind == funnel.KindLongText {
		b.WriteString(m.area.View())
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n\n")

	if m.hint != "" {
		b.WriteString(ErrorStyle.Render(m.hint))
		b.WriteString("\n")
	}
	if st.Phase == wizard.PhaseFailed {
		b.WriteString(ErrorStyle.Render(m.def.RetryMessage))
		b.WriteString("\n")
	}

	b.WriteString(m.renderButton(st))
	b.WriteString("\n\n")
	b.WriteString(HelpStyle.Render(helpLine(step.Kind)))
	return b.String()
}

func (m Model) renderButton(st wizard.State) string {
	label := wizard.ActionLabel(st)
	if st.Phase == wizard.PhaseSubmitting {
		return DisabledButtonStyle.Render(m.spinner.View() + " " + label)
	}
	if !m.wz.CanAdvance() {
		return DisabledButtonStyle.Render(label)
	}
	return ButtonStyle.Render(label)
}

func renderProgress(st wizard.State) string {
	filled := int(st.Progress() * progressWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressWidth-filled)
	return fmt.Sprintf("%s  %s",
		lipgloss.NewStyle().Foreground(PrimaryColor).Render(bar),
		HelpStyle.Render(fmt.Sprintf("Step %d of %d", st.StepIndex+1, st.StepCount)),
	)
}

func helpLine(kind funnel.InputKind) string {
	if kind == funnel.KindLongText {
		return "ctrl+s continue • esc back • ctrl+c quit"
	}
	return "enter continue • esc back • ctrl+c quit"
}

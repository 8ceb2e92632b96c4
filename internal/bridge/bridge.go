// Package bridge relays finished waitlist answers to the third-party list as
// a one-shot form POST.
//
// The receiving list never tells us whether it stored the lead. The bridge
// therefore reports only whether a request was built and handed to the
// transport (Initiated) or could not be built at all (ConstructionError). The
// HTTP status seen by the background dispatcher is logged and counted but
// never reaches the wizard.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/elite-waitlist/internal/funnel"
	"github.com/wolfman30/elite-waitlist/internal/observability/metrics"
	"github.com/wolfman30/elite-waitlist/pkg/logging"
)

var bridgeTracer = otel.Tracer("waitlist/bridge")

// DefaultGracePeriod bounds how long a dispatched request may live before its
// transient resources are released.
const DefaultGracePeriod = 5 * time.Second

var newRequest = http.NewRequestWithContext

// maxDrain caps how much of a response body is read before discarding it.
const maxDrain = 64 << 10

var (
	// ErrClosed is returned when submitting through a closed bridge.
	ErrClosed = errors.New("bridge: closed")

	// ErrInvalidEndpoint is returned for a missing or non-http(s) endpoint.
	ErrInvalidEndpoint = errors.New("bridge: invalid endpoint")
)

// Doer is the subset of *http.Client the bridge needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a FormBridge.
type Config struct {
	Endpoint    string
	GracePeriod time.Duration
	UserAgent   string
	Client      Doer
}

// FormBridge posts answer sets to a fixed endpoint without waiting for the
// response.
type FormBridge struct {
	endpoint  *url.URL
	grace     time.Duration
	userAgent string
	client    Doer
	logger    *logging.Logger
	metrics   *metrics.WaitlistMetrics

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	pending map[string]context.CancelFunc
}

// New validates the endpoint and returns a ready bridge.
func New(cfg Config, logger *logging.Logger, m *metrics.WaitlistMetrics) (*FormBridge, error) {
	endpoint, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}
	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "elite-waitlist/1.0"
	}

	root, cancel := context.WithCancel(context.Background())
	return &FormBridge{
		endpoint:  endpoint,
		grace:     grace,
		userAgent: userAgent,
		client:    client,
		logger:    logger.Component("bridge"),
		metrics:   m,
		root:      root,
		cancel:    cancel,
		pending:   make(map[string]context.CancelFunc),
	}, nil
}

func parseEndpoint(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidEndpoint)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, raw)
	}
	return u, nil
}

// Endpoint returns the fixed destination.
func (b *FormBridge) Endpoint() string {
	return b.endpoint.String()
}

// Submit translates answers through mapping, builds the POST and fires it in
// the background exactly once. The returned outcome never depends on the
// remote response.
func (b *FormBridge) Submit(ctx context.Context, answers funnel.AnswerMap, mapping funnel.FieldMapping) (outcome funnel.Outcome) {
	_, span := bridgeTracer.Start(ctx, "bridge.submit")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			outcome = funnel.ConstructionError(fmt.Sprintf("bridge: construction panicked: %v", r))
		}
		if !outcome.OK() {
			span.SetStatus(codes.Error, outcome.Reason)
			b.logger.Warn("submission not initiated", "reason", outcome.Reason)
		}
		b.metrics.ObserveSubmission(outcome.Kind.String())
	}()

	form, err := mapping.Translate(answers)
	if err != nil {
		return funnel.ConstructionError(err.Error())
	}
	span.SetAttributes(attribute.Int("bridge.field_count", len(form)))

	id := uuid.NewString()
	dispatchCtx, release, err := b.reserve(id, span.SpanContext())
	if err != nil {
		return funnel.ConstructionError(err.Error())
	}

	if err := b.launch(dispatchCtx, id, form, release); err != nil {
		return funnel.ConstructionError(err.Error())
	}

	span.SetAttributes(attribute.String("bridge.submission_id", id))
	b.logger.Info("submission initiated", "submission_id", id, "endpoint_host", b.endpoint.Host)
	return funnel.Initiated(id)
}

// reserve registers a transient dispatch context that is released after the
// grace period or when the bridge closes, whichever comes first. The caller
// owns one count on the wait group.
func (b *FormBridge) reserve(id string, parent trace.SpanContext) (context.Context, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrClosed
	}
	ctx := trace.ContextWithSpanContext(b.root, parent)
	ctx, cancel := context.WithTimeout(ctx, b.grace)
	b.pending[id] = cancel
	b.wg.Add(1)

	var once sync.Once
	release := func() {
		once.Do(func() {
			cancel()
			b.mu.Lock()
			delete(b.pending, id)
			b.mu.Unlock()
		})
	}
	return ctx, release, nil
}

// launch builds the request and hands the reservation to dispatch. Until the
// hand-off, any error or panic undoes the reservation.
func (b *FormBridge) launch(ctx context.Context, id string, form url.Values, release func()) (err error) {
	handedOff := false
	defer func() {
		if handedOff {
			return
		}
		release()
		b.wg.Done()
		if r := recover(); r != nil {
			err = fmt.Errorf("bridge: construction panicked: %v", r)
		}
	}()

	req, err := newRequest(ctx, http.MethodPost, b.endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("bridge: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", b.userAgent)

	handedOff = true
	go b.dispatch(id, req, release)
	return nil
}

func (b *FormBridge) dispatch(id string, req *http.Request, release func()) {
	defer b.wg.Done()
	defer release()
	defer func() {
		if r := recover(); r != nil {
			b.metrics.ObserveDispatch("panic", 0)
			b.logger.Error("dispatch panicked", "submission_id", id, "panic", r)
		}
	}()

	ctx, span := bridgeTracer.Start(req.Context(), "bridge.dispatch")
	defer span.End()
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		status := "transport_error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = "released"
		}
		b.metrics.ObserveDispatch(status, time.Since(start).Seconds())
		b.logger.Debug("dispatch ended without response", "submission_id", id, "status", status, "error", err)
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	_ = resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	b.metrics.ObserveDispatch(statusClass(resp.StatusCode), time.Since(start).Seconds())
	b.logger.Debug("dispatch finished", "submission_id", id, "status_code", resp.StatusCode)
}

// Pending returns how many dispatches still hold transient resources.
func (b *FormBridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Wait blocks until every dispatch has finished on its own or ctx expires.
// Dispatches are never cancelled by Wait.
func (b *FormBridge) Wait(ctx context.Context) error {
	return b.waitDispatches(ctx)
}

// Close refuses new submissions, releases every pending dispatch and waits for
// the dispatch goroutines to exit or ctx to expire.
func (b *FormBridge) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	b.cancel()

	return b.waitDispatches(ctx)
}

func (b *FormBridge) waitDispatches(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

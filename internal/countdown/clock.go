// Package countdown implements the enrollment countdown: a remaining duration
// that only ever decreases, survives restarts through a Store, and is clamped
// at zero.
package countdown

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/elite-waitlist/internal/observability/metrics"
	"github.com/wolfman30/elite-waitlist/pkg/logging"
)

const (
	// DefaultKey is the storage key the landing page has always used.
	DefaultKey = "elite_timer_remaining_ms"

	// DefaultDuration is the countdown length on first run.
	DefaultDuration = 3 * time.Hour
)

// Options configures a Clock.
type Options struct {
	Key     string
	Default time.Duration
	Now     func() time.Time
	Logger  *logging.Logger
	Metrics *metrics.WaitlistMetrics
}

// Clock owns the countdown value. Tick is the only writer of the persisted
// value.
type Clock struct {
	tickMu    sync.Mutex
	mu        sync.Mutex
	store     Store
	key       string
	remaining time.Duration
	last      time.Time
	restored  bool
	now       func() time.Time
	logger    *logging.Logger
	metrics   *metrics.WaitlistMetrics
}

// NewClock loads the persisted value, or starts from the default when none is
// stored or the stored value is not a number. A store error is returned rather
// than silently restarting from the default.
func NewClock(ctx context.Context, store Store, opts Options) (*Clock, error) {
	if store == nil {
		return nil, errors.New("countdown: store required")
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Default <= 0 {
		opts.Default = DefaultDuration
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	raw, ok, err := store.Load(ctx, opts.Key)
	if err != nil {
		return nil, fmt.Errorf("countdown: load %q: %w", opts.Key, err)
	}

	c := &Clock{
		store:     store,
		key:       opts.Key,
		remaining: opts.Default,
		now:       opts.Now,
		logger:    opts.Logger.Component("countdown"),
		metrics:   opts.Metrics,
	}
	if ok {
		if restored, valid := ParseRemaining(raw); valid {
			c.remaining = restored
			c.restored = true
		} else {
			c.logger.Warn("ignoring unreadable countdown value", "key", opts.Key)
		}
	}
	c.last = c.now()
	c.metrics.SetCountdownRemaining(c.remaining.Seconds())
	return c, nil
}

// Restored reports whether the starting value came from the store.
func (c *Clock) Restored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restored
}

// Remaining returns the current value without advancing it.
func (c *Clock) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Tick subtracts the time elapsed since the previous tick, clamps at zero and
// persists the result. On a persistence error the in-memory value still moves
// and the error is returned.
func (c *Clock) Tick(ctx context.Context) (time.Duration, error) {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	c.mu.Lock()
	now := c.now()
	elapsed := now.Sub(c.last).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	c.last = c.last.Add(time.Duration(elapsed) * time.Millisecond)

	next := c.remaining - time.Duration(elapsed)*time.Millisecond
	if next < 0 {
		next = 0
	}
	c.remaining = next
	c.mu.Unlock()

	c.metrics.SetCountdownRemaining(next.Seconds())
	if err := c.store.Save(ctx, c.key, FormatMillis(next)); err != nil {
		c.metrics.ObserveCountdownPersistError()
		return next, fmt.Errorf("countdown: persist: %w", err)
	}
	return next, nil
}

// Run ticks every interval until ctx is cancelled.
func (c *Clock) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("countdown running", "key", c.key, "remaining", Format(c.Remaining()), "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("countdown stopped", "remaining", Format(c.Remaining()))
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.Tick(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("countdown tick not persisted", "error", err)
			}
		}
	}
}

// maxMillis is the largest millisecond count a time.Duration can hold.
const maxMillis = math.MaxInt64 / int64(time.Millisecond)

// ParseRemaining reads a persisted value. Non-numeric input and values too
// large for a time.Duration are reported as invalid; negative numbers clamp
// to zero.
func ParseRemaining(raw string) (time.Duration, bool) {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || ms > maxMillis {
		return 0, false
	}
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond, true
}

// FormatMillis renders d as the persisted base-10 millisecond string.
func FormatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// Format renders d as zero-padded HH:MM:SS, flooring partial seconds.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

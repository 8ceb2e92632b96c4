package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wolfman30/elite-waitlist/internal/funnel"
)

// Phase is the coarse wizard state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseSuccess    Phase = "success"
	PhaseFailed     Phase = "failed"
)

// State is a snapshot of the wizard.
type State struct {
	StepIndex     int    `json:"step_index"`
	StepCount     int    `json:"step_count"`
	Phase         Phase  `json:"phase"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// Progress is the fraction of steps reached, counting the current one.
func (s State) Progress() float64 {
	if s.StepCount == 0 {
		return 0
	}
	return float64(s.StepIndex+1) / float64(s.StepCount)
}

// Submitter relays a finished answer set. Implementations must not block on
// the receiving service's response.
type Submitter interface {
	Submit(ctx context.Context, answers funnel.AnswerMap, mapping funnel.FieldMapping) funnel.Outcome
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, answers funnel.AnswerMap, mapping funnel.FieldMapping) funnel.Outcome

func (f SubmitterFunc) Submit(ctx context.Context, answers funnel.AnswerMap, mapping funnel.FieldMapping) funnel.Outcome {
	return f(ctx, answers, mapping)
}

// Transition records one state change.
type Transition struct {
	From State
	To   State
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithObserver registers a callback invoked after every state change, outside
// the wizard's lock.
func WithObserver(fn func(Transition)) Option {
	return func(w *Wizard) {
		w.observer = fn
	}
}

// Wizard walks a fixed list of steps and hands the answers to a Submitter
// after the last one. It is safe for concurrent use; the Submitting phase is
// the guard against a second submission.
type Wizard struct {
	mu        sync.Mutex
	steps     []funnel.Step
	mapping   funnel.FieldMapping
	store     *FieldStore
	submitter Submitter
	observer  func(Transition)
	state     State
	outcome   *funnel.Outcome
	closed    bool
}

// New mounts a wizard at Idle(0) with empty answers.
func New(def *funnel.Definition, submitter Submitter, opts ...Option) (*Wizard, error) {
	if def == nil {
		return nil, errors.New("wizard: definition required")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if submitter == nil {
		return nil, errors.New("wizard: submitter required")
	}
	steps := make([]funnel.Step, len(def.Steps))
	copy(steps, def.Steps)

	w := &Wizard{
		steps:     steps,
		mapping:   def.Mapping,
		store:     NewFieldStore(steps),
		submitter: submitter,
		state: State{
			StepIndex: 0,
			StepCount: len(steps),
			Phase:     PhaseIdle,
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// State returns the current snapshot.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// CurrentStep returns the step at the current index.
func (w *Wizard) CurrentStep() funnel.Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.steps[w.state.StepIndex]
}

// Steps returns the declared steps in order.
func (w *Wizard) Steps() []funnel.Step {
	out := make([]funnel.Step, len(w.steps))
	copy(out, w.steps)
	return out
}

// Answer returns the stored value for key.
func (w *Wizard) Answer(key string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Get(key)
}

// Answers returns a copy of every stored answer.
func (w *Wizard) Answers() funnel.AnswerMap {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Snapshot()
}

// SetAnswer stores value under key without validating it.
func (w *Wizard) SetAnswer(key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.store.Set(key, value)
}

// CanAdvance reports whether Advance would be accepted right now. Renderers
// use it to enable the next control.
func (w *Wizard) CanAdvance() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	if w.state.Phase != PhaseIdle && w.state.Phase != PhaseFailed {
		return false
	}
	return w.currentAcceptable()
}

// Outcome returns the result of the most recent submission, if any.
func (w *Wizard) Outcome() (funnel.Outcome, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.outcome == nil {
		return funnel.Outcome{}, false
	}
	return *w.outcome, true
}

// Advance moves to the next step, or submits from the last one. An
// unacceptable answer leaves the state untouched and returns ErrIncomplete.
// From Failed, Advance retries the submission.
func (w *Wizard) Advance(ctx context.Context) (State, error) {
	w.mu.Lock()
	if w.closed {
		st := w.state
		w.mu.Unlock()
		return st, ErrClosed
	}
	switch w.state.Phase {
	case PhaseSubmitting:
		st := w.state
		w.mu.Unlock()
		return st, ErrSubmitting
	case PhaseSuccess:
		st := w.state
		w.mu.Unlock()
		return st, ErrFinished
	}

	if !w.currentAcceptable() {
		st := w.state
		key := w.steps[st.StepIndex].Key
		w.mu.Unlock()
		return st, fmt.Errorf("%w: %s", ErrIncomplete, key)
	}

	last := len(w.steps) - 1
	if w.state.Phase == PhaseIdle && w.state.StepIndex < last {
		next := w.state
		next.StepIndex++
		tr := w.setState(next)
		w.mu.Unlock()
		w.notify(tr)
		return next, nil
	}

	submitting := w.state
	submitting.StepIndex = last
	submitting.Phase = PhaseSubmitting
	submitting.FailureReason = ""
	tr := w.setState(submitting)
	answers := w.store.Snapshot()
	w.mu.Unlock()
	w.notify(tr)

	outcome := w.submit(ctx, answers)

	w.mu.Lock()
	w.outcome = &outcome
	final := w.state
	if outcome.OK() {
		final.Phase = PhaseSuccess
	} else {
		final.Phase = PhaseFailed
		final.FailureReason = outcome.Reason
	}
	tr = w.setState(final)
	w.mu.Unlock()
	w.notify(tr)
	return final, nil
}

// Back returns to the previous step. Only allowed from Idle(i) with i > 0.
func (w *Wizard) Back() (State, error) {
	w.mu.Lock()
	if w.closed {
		st := w.state
		w.mu.Unlock()
		return st, ErrClosed
	}
	if w.state.Phase != PhaseIdle {
		st := w.state
		w.mu.Unlock()
		return st, ErrNotIdle
	}
	if w.state.StepIndex == 0 {
		st := w.state
		w.mu.Unlock()
		return st, ErrAtFirstStep
	}
	prev := w.state
	prev.StepIndex--
	tr := w.setState(prev)
	w.mu.Unlock()
	w.notify(tr)
	return prev, nil
}

// Close discards the wizard. An in-flight submission still completes; every
// later call returns ErrClosed.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// Closed reports whether Close was called.
func (w *Wizard) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// currentAcceptable must be called with mu held.
func (w *Wizard) currentAcceptable() bool {
	step := w.steps[w.state.StepIndex]
	return funnel.IsAcceptable(step.Kind, w.store.Get(step.Key))
}

// setState must be called with mu held.
func (w *Wizard) setState(next State) Transition {
	tr := Transition{From: w.state, To: next}
	w.state = next
	return tr
}

func (w *Wizard) notify(tr Transition) {
	if w.observer != nil {
		w.observer(tr)
	}
}

// submit converts a panicking submitter into a construction error so a broken
// transport can never take the process down.
func (w *Wizard) submit(ctx context.Context, answers funnel.AnswerMap) (outcome funnel.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = funnel.ConstructionError(fmt.Sprintf("submission panicked: %v", r))
		}
	}()
	return w.submitter.Submit(ctx, answers, w.mapping)
}

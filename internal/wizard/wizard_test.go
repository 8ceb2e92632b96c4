package wizard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/elite-waitlist/internal/funnel"
)

type recordingSubmitter struct {
	mu      sync.Mutex
	calls   int
	answers []funnel.AnswerMap
	outcome funnel.Outcome
}

func (r *recordingSubmitter) Submit(_ context.Context, answers funnel.AnswerMap, _ funnel.FieldMapping) funnel.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.answers = append(r.answers, answers)
	return r.outcome
}

func (r *recordingSubmitter) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newDefinition(t *testing.T) *funnel.Definition {
	t.Helper()
	def, err := funnel.DefaultDefinition()
	require.NoError(t, err)
	return def
}

func newWizard(t *testing.T, sub Submitter, opts ...Option) *Wizard {
	t.Helper()
	w, err := New(newDefinition(t), sub, opts...)
	require.NoError(t, err)
	return w
}

func TestNewStartsIdleAtFirstStep(t *testing.T) {
	w := newWizard(t, &recordingSubmitter{})
	st := w.State()
	assert.Equal(t, 0, st.StepIndex)
	assert.Equal(t, 4, st.StepCount)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, funnel.AnswerMap{"revenue_goal": "", "hurdle": "", "ad_budget": "", "email": ""}, w.Answers())
	assert.Equal(t, "revenue_goal", w.CurrentStep().Key)
	assert.InDelta(t, 0.25, st.Progress(), 1e-9)
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(nil, &recordingSubmitter{})
	require.Error(t, err)

	_, err = New(newDefinition(t), nil)
	require.Error(t, err)

	_, err = New(&funnel.Definition{}, &recordingSubmitter{})
	require.ErrorIs(t, err, funnel.ErrNoSteps)
}

func TestAdvanceIncrementsByOneUntilSubmitting(t *testing.T) {
	sub := &recordingSubmitter{outcome: funnel.Initiated("sub-1")}
	var phases []Phase
	w := newWizard(t, sub, WithObserver(func(tr Transition) {
		phases = append(phases, tr.To.Phase)
	}))
	ctx := context.Background()

	values := []string{"5000", "no budget", "200", "user@test.com"}
	for i, value := range values {
		require.NoError(t, w.SetAnswer(w.CurrentStep().Key, value))
		st, err := w.Advance(ctx)
		require.NoError(t, err)
		if i < len(values)-1 {
			assert.Equal(t, i+1, st.StepIndex)
			assert.Equal(t, PhaseIdle, st.Phase)
		}
	}

	st := w.State()
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.Equal(t, 3, st.StepIndex)
	assert.Equal(t, 1, sub.Calls())
	assert.Equal(t, funnel.AnswerMap{
		"revenue_goal": "5000",
		"hurdle":       "no budget",
		"ad_budget":    "200",
		"email":        "user@test.com",
	}, sub.answers[0])
	assert.Equal(t, []Phase{PhaseIdle, PhaseIdle, PhaseIdle, PhaseSubmitting, PhaseSuccess}, phases)

	outcome, ok := w.Outcome()
	require.True(t, ok)
	assert.Equal(t, "sub-1", outcome.SubmissionID)
}

func TestAdvanceRejectsUnacceptableValue(t *testing.T) {
	sub := &recordingSubmitter{outcome: funnel.Initiated("x")}
	w := newWizard(t, sub)
	ctx := context.Background()

	for _, value := range []string{"", "   ", "-5", "abc"} {
		require.NoError(t, w.SetAnswer("revenue_goal", value))
		before := w.State()
		assert.False(t, w.CanAdvance())
		st, err := w.Advance(ctx)
		require.ErrorIs(t, err, ErrIncomplete)
		assert.Equal(t, before, st)
		assert.Equal(t, before, w.State())
	}
	assert.Equal(t, 0, sub.Calls())
}

func TestAdvanceRejectsBadEmailOnLastStep(t *testing.T) {
	sub := &recordingSubmitter{outcome: funnel.Initiated("x")}
	w := newWizard(t, sub)
	fillThrough(t, w, 3)

	require.NoError(t, w.SetAnswer("email", "a@b"))
	_, err := w.Advance(context.Background())
	require.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, PhaseIdle, w.State().Phase)
	assert.Equal(t, 0, sub.Calls())
}

func TestFailedSubmissionCanBeRetried(t *testing.T) {
	sub := &recordingSubmitter{outcome: funnel.ConstructionError("no transport")}
	w := newWizard(t, sub)
	fillThrough(t, w, 3)
	require.NoError(t, w.SetAnswer("email", "user@test.com"))

	st, err := w.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Equal(t, "no transport", st.FailureReason)
	assert.Equal(t, 3, st.StepIndex)

	sub.mu.Lock()
	sub.outcome = funnel.Initiated("retry")
	sub.mu.Unlock()

	st, err = w.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.Empty(t, st.FailureReason)
	assert.Equal(t, 2, sub.Calls())
}

func TestSuccessIsTerminal(t *testing.T) {
	sub := &recordingSubmitter{outcome: funnel.Initiated("x")}
	w := newWizard(t, sub)
	fillThrough(t, w, 3)
	require.NoError(t, w.SetAnswer("email", "user@test.com"))
	_, err := w.Advance(context.Background())
	require.NoError(t, err)

	_, err = w.Advance(context.Background())
	require.ErrorIs(t, err, ErrFinished)
	_, err = w.Back()
	require.ErrorIs(t, err, ErrNotIdle)
	assert.Equal(t, 1, sub.Calls())
}

func TestConcurrentAdvanceSubmitsOnce(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	sub := SubmitterFunc(func(context.Context, funnel.AnswerMap, funnel.FieldMapping) funnel.Outcome {
		calls.Add(1)
		close(entered)
		<-release
		return funnel.Initiated("only")
	})
	w := newWizard(t, sub)
	fillThrough(t, w, 3)
	require.NoError(t, w.SetAnswer("email", "user@test.com"))

	done := make(chan State)
	go func() {
		st, _ := w.Advance(context.Background())
		done <- st
	}()

	<-entered
	assert.Equal(t, PhaseSubmitting, w.State().Phase)
	for i := 0; i < 5; i++ {
		_, err := w.Advance(context.Background())
		require.ErrorIs(t, err, ErrSubmitting)
	}
	assert.False(t, w.CanAdvance())

	close(release)
	st := <-done
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPanickingSubmitterBecomesFailed(t *testing.T) {
	sub := SubmitterFunc(func(context.Context, funnel.AnswerMap, funnel.FieldMapping) funnel.Outcome {
		panic("document missing")
	})
	w := newWizard(t, sub)
	fillThrough(t, w, 3)
	require.NoError(t, w.SetAnswer("email", "user@test.com"))

	st, err := w.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.Contains(t, st.FailureReason, "document missing")
}

func TestBackNavigation(t *testing.T) {
	w := newWizard(t, &recordingSubmitter{})

	_, err := w.Back()
	require.ErrorIs(t, err, ErrAtFirstStep)

	fillThrough(t, w, 2)
	st, err := w.Back()
	require.NoError(t, err)
	assert.Equal(t, 1, st.StepIndex)
	assert.Equal(t, "no budget", w.Answer("hurdle"))
}

func TestBackNotAllowedAfterFailure(t *testing.T) {
	w := newWizard(t, &recordingSubmitter{outcome: funnel.ConstructionError("x")})
	fillThrough(t, w, 3)
	require.NoError(t, w.SetAnswer("email", "user@test.com"))
	_, err := w.Advance(context.Background())
	require.NoError(t, err)

	_, err = w.Back()
	require.ErrorIs(t, err, ErrNotIdle)
}

func TestSetAnswerUnknownField(t *testing.T) {
	w := newWizard(t, &recordingSubmitter{})
	err := w.SetAnswer("phone", "555")
	require.ErrorIs(t, err, ErrUnknownField)
	assert.Len(t, w.Answers(), 4)
}

func TestClosedWizardRejectsEverything(t *testing.T) {
	w := newWizard(t, &recordingSubmitter{})
	w.Close()
	assert.True(t, w.Closed())

	require.ErrorIs(t, w.SetAnswer("revenue_goal", "1"), ErrClosed)
	_, err := w.Advance(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	_, err = w.Back()
	require.ErrorIs(t, err, ErrClosed)
	assert.False(t, w.CanAdvance())
}

func TestFieldStoreSetOverwritesWithoutValidation(t *testing.T) {
	store := NewFieldStore([]funnel.Step{{Key: "email", Kind: funnel.KindEmail}})
	assert.Equal(t, "", store.Get("email"))
	require.NoError(t, store.Set("email", "not an email"))
	assert.Equal(t, "not an email", store.Get("email"))
	require.NoError(t, store.Set("email", ""))
	assert.Equal(t, "", store.Get("email"))

	snap := store.Snapshot()
	snap["email"] = "mutated"
	assert.Equal(t, "", store.Get("email"))
}

// fillThrough answers and advances past the first n steps of the default
// definition.
func fillThrough(t *testing.T, w *Wizard, n int) {
	t.Helper()
	values := []string{"5000", "no budget", "200"}
	for i := 0; i < n; i++ {
		require.NoError(t, w.SetAnswer(w.CurrentStep().Key, values[i]))
		_, err := w.Advance(context.Background())
		require.NoError(t, err)
	}
}

func TestActionLabel(t *testing.T) {
	assert.Equal(t, LabelNext, ActionLabel(State{StepIndex: 0, StepCount: 4, Phase: PhaseIdle}))
	assert.Equal(t, LabelComplete, ActionLabel(State{StepIndex: 3, StepCount: 4, Phase: PhaseIdle}))
	assert.Equal(t, LabelComplete, ActionLabel(State{StepIndex: 3, StepCount: 4, Phase: PhaseFailed}))
	assert.Equal(t, LabelProcessing, ActionLabel(State{StepIndex: 3, StepCount: 4, Phase: PhaseSubmitting}))
}

package leads

import (
	"time"

	"github.com/wolfman30/elite-waitlist/internal/funnel"
	"github.com/wolfman30/elite-waitlist/internal/wizard"
)

// Session is one mounted lead-qualification wizard. Answers live only here and
// are discarded with the session.
type Session struct {
	ID        string
	Wizard    *wizard.Wizard
	CreatedAt time.Time
	LastSeen  time.Time
}

// SetAnswerRequest represents the request body for storing an answer
type SetAnswerRequest struct {
	Value string `json:"value"`
}

// StepView describes the step currently shown.
type StepView struct {
	Key         string           `json:"key"`
	Prompt      string           `json:"prompt"`
	Kind        funnel.InputKind `json:"kind"`
	Placeholder string           `json:"placeholder,omitempty"`
}

// SessionView is everything a renderer needs to draw the wizard.
type SessionView struct {
	ID           string               `json:"id"`
	Phase        wizard.Phase         `json:"phase"`
	StepIndex    int                  `json:"step_index"`
	StepCount    int                  `json:"step_count"`
	Progress     float64              `json:"progress"`
	Step         StepView             `json:"step"`
	Value        string               `json:"value"`
	CanAdvance   bool                 `json:"can_advance"`
	ButtonLabel  string               `json:"button_label"`
	Error        string               `json:"error,omitempty"`
	Confirmation *funnel.Confirmation `json:"confirmation,omitempty"`
}

// StepsResponse is the response for listing the funnel definition
type StepsResponse struct {
	Steps        []funnel.Step       `json:"steps"`
	Confirmation funnel.Confirmation `json:"confirmation"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Field   string       `json:"field,omitempty"`
	Session *SessionView `json:"session,omitempty"`
}

// NewSessionView projects the wizard state for rendering.
func NewSessionView(s *Session, def *funnel.Definition) SessionView {
	st := s.Wizard.State()
	step := s.Wizard.CurrentStep()

	view := SessionView{
		ID:          s.ID,
		Phase:       st.Phase,
		StepIndex:   st.StepIndex,
		StepCount:   st.StepCount,
		Progress:    st.Progress(),
		Step:        StepView{Key: step.Key, Prompt: step.Prompt, Kind: step.Kind, Placeholder: step.Placeholder},
		Value:       s.Wizard.Answer(step.Key),
		CanAdvance:  s.Wizard.CanAdvance(),
		ButtonLabel: wizard.ActionLabel(st),
	}

	switch st.Phase {
	case wizard.PhaseFailed:
		view.Error = def.RetryMessage
	case wizard.PhaseSuccess:
		confirmation := def.Confirmation
		view.Confirmation = &confirmation
	}
	return view
}

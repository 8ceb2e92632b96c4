package wizard

import (
	"fmt"

	"github.com/wolfman30/elite-waitlist/internal/funnel"
)

// FieldStore holds the current answer for every declared step. It performs no
// validation: storing a value and being allowed to proceed are separate
// decisions, the latter made by the Wizard.
type FieldStore struct {
	answers funnel.AnswerMap
}

// NewFieldStore seeds an empty answer for each step.
func NewFieldStore(steps []funnel.Step) *FieldStore {
	return &FieldStore{answers: funnel.NewAnswerMap(steps)}
}

// Get returns the stored answer, "" when nothing was entered yet.
func (s *FieldStore) Get(key string) string {
	return s.answers[key]
}

// Set overwrites the answer for key. Keys outside the declared steps are
// refused so the map never grows beyond one entry per step.
func (s *FieldStore) Set(key, value string) error {
	if _, ok := s.answers[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	s.answers[key] = value
	return nil
}

// Snapshot returns a copy safe to hand to another goroutine.
func (s *FieldStore) Snapshot() funnel.AnswerMap {
	return s.answers.Clone()
}

package wizard

import "errors"

var (
	// ErrIncomplete is returned by Advance when the current answer is not
	// acceptable. It is a rejection, not a failure: nothing changed.
	ErrIncomplete = errors.New("wizard: current field is incomplete")

	// ErrSubmitting is returned while a submission is in flight.
	ErrSubmitting = errors.New("wizard: submission already in progress")

	// ErrFinished is returned once the wizard reached Success.
	ErrFinished = errors.New("wizard: already submitted")

	// ErrNotIdle is returned by Back outside the Idle phase.
	ErrNotIdle = errors.New("wizard: navigation only allowed while idle")

	// ErrAtFirstStep is returned by Back on the first step.
	ErrAtFirstStep = errors.New("wizard: already at first step")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("wizard: closed")

	// ErrUnknownField is returned when setting a key that is not a declared step.
	ErrUnknownField = errors.New("wizard: unknown field")
)

package funnel

import "errors"

var (
	// ErrNoSteps is returned when a definition declares no steps.
	ErrNoSteps = errors.New("funnel: definition has no steps")

	// ErrDuplicateStep is returned when two steps share a key.
	ErrDuplicateStep = errors.New("funnel: duplicate step key")

	// ErrInvalidKind is returned for an input kind outside the known set.
	ErrInvalidKind = errors.New("funnel: invalid input kind")

	// ErrUnmappedField is returned when a step key has no outbound field name.
	ErrUnmappedField = errors.New("funnel: step key has no field mapping")

	// ErrDuplicateTarget is returned when two step keys map to one outbound field.
	ErrDuplicateTarget = errors.New("funnel: outbound field mapped twice")
)

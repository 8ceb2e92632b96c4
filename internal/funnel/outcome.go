package funnel

import "fmt"

// OutcomeKind is the only information a submission attempt can report.
// There is no server-confirmed variant: the receiving list is never asked
// whether it stored the lead.
type OutcomeKind int

const (
	// OutcomeInitiated means the request was built and handed to the
	// transport without a synchronous error.
	OutcomeInitiated OutcomeKind = iota
	// OutcomeConstructionError means the request could not be built, so
	// nothing was sent.
	OutcomeConstructionError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeInitiated:
		return "initiated"
	case OutcomeConstructionError:
		return "construction_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of one submission attempt.
type Outcome struct {
	Kind         OutcomeKind
	SubmissionID string
	Reason       string
}

// Initiated builds an initiated outcome.
func Initiated(submissionID string) Outcome {
	return Outcome{Kind: OutcomeInitiated, SubmissionID: submissionID}
}

// ConstructionError builds a failed outcome carrying the reason.
func ConstructionError(reason string) Outcome {
	return Outcome{Kind: OutcomeConstructionError, Reason: reason}
}

// OK reports whether the attempt was initiated.
func (o Outcome) OK() bool {
	return o.Kind == OutcomeInitiated
}

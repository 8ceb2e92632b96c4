package wizard

// Labels for the primary wizard action.
const (
	LabelNext       = "Next Step"
	LabelComplete   = "Complete Application"
	LabelProcessing = "Processing..."
)

// ActionLabel names the primary action for st.
func ActionLabel(st State) string {
	switch {
	case st.Phase == PhaseSubmitting:
		return LabelProcessing
	case st.StepIndex == st.StepCount-1:
		return LabelComplete
	default:
		return LabelNext
	}
}

package hermes

const (
	SubjectSelectionRequest = "slate.request"

	StreamName   = "EQUILIBRIUM_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectSelectionCompleted(selectionID string) string {
	return "slate.selection." + selectionID + ".completed"
}
func SubjectSelectionEmpty(selectionID string) string {
	return "slate.selection." + selectionID + ".empty"
}
func SubjectSelectionPenalized(selectionID string) string {
	return "slate.selection." + selectionID + ".penalized"
}

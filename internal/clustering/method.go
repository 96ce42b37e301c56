package clustering

// MatchMethod is the closed set of ways a product can end up attached to a
// cluster, or be turned away from one. Persisted as the string value.
type MatchMethod string

const (
	MethodHybridMatch    MatchMethod = "HYBRID_MATCH"
	MethodVisualRescue   MatchMethod = "VISUAL_RESCUE"
	MethodTextRescue     MatchMethod = "TEXT_RESCUE"
	MethodNeedsAudit     MatchMethod = "NEEDS_AUDIT"
	MethodRepresentative MatchMethod = "REPRESENTATIVE"
	MethodRejected       MatchMethod = "REJECTED"
)

// Accepted reports whether the method represents a cluster join. NEEDS_AUDIT
// is an accepted match flagged for human review, not a rejection.
func (m MatchMethod) Accepted() bool {
	switch m {
	case MethodHybridMatch, MethodVisualRescue, MethodTextRescue, MethodNeedsAudit, MethodRepresentative:
		return true
	default:
		return false
	}
}

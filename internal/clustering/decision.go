package clustering

// auditThreshold is the gray zone floor: an accepted match scoring below it
// keeps its accept outcome but is relabeled NEEDS_AUDIT for human review.
const auditThreshold = 0.85

// minLogScore bounds what gets written to the decision log: accepted
// candidates always, rejects only when the blended score was an informative
// near-miss.
const minLogScore = 0.5

// textRescueVisualFloor guards TEXT_RESCUE against identically-titled but
// visually unrelated listings.
const textRescueVisualFloor = 0.6

// evaluatePair applies the decision policy to one candidate pair. Precedence:
// hybrid threshold, then visual rescue, then text rescue. Rescue rules test
// their own raw score independently and boost the final score when they fire.
func evaluatePair(p Profile, visualScore, textScore float64) (MatchMethod, float64, bool) {
	finalScore := p.WeightVisual*visualScore + p.WeightText*textScore

	switch {
	case finalScore >= p.ThresholdHybrid:
		return MethodHybridMatch, finalScore, true
	case visualScore >= p.ThresholdVisualRescue:
		if visualScore > finalScore {
			finalScore = visualScore
		}
		return MethodVisualRescue, finalScore, true
	case textScore >= p.ThresholdTextRescue && visualScore > textRescueVisualFloor:
		if textScore > finalScore {
			finalScore = textScore
		}
		return MethodTextRescue, finalScore, true
	default:
		return MethodRejected, finalScore, false
	}
}

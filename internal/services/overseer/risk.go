package overseer

// riskBand maps an adjusted confidence onto the farmer-facing
// reliability language. Bounds mirror the confidence clamp, so every
// evaluation lands in exactly one band.
func riskBand(confidence float64) (label, message string) {
	switch {
	case confidence >= 0.85:
		return "high_confidence", "High confidence. You can rely on this advice."
	case confidence >= 0.70:
		return "good_confidence", "Good confidence. Advice is dependable."
	case confidence >= 0.55:
		return "moderate_confidence", "Moderate confidence. Check mandi prices before acting."
	default:
		return "limited_reliability", "Limited reliability. Treat this advice with caution."
	}
}

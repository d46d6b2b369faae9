package models

// Advice is the final farmer-facing package: the (possibly overridden)
// recommendation, the forecast it came from, and the oversight verdict.
type Advice struct {
	Recommendation Recommendation
	Forecast       *Forecast
	Oversight      OversightResult
	Explanation    string
}

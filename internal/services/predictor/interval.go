package predictor

import (
	"math"

	"MandiCast/internal/services/bundle"
)

// Risk tier labels derived from relative interval width.
const (
	RiskLow      = "Low"
	RiskModerate = "Moderate"
	RiskHigh     = "High"
)

// Interval is a 95% confidence band around one prediction.
type Interval struct {
	Mean float64
	Low  float64
	High float64
	Risk string
}

// RelWidth is the interval width relative to the mean magnitude.
func (iv Interval) RelWidth() float64 {
	m := math.Abs(iv.Mean)
	if m == 0 {
		return 0
	}
	return (iv.High - iv.Low) / m
}

// EstimateInterval derives a confidence band from the spread across the
// ensemble's per-stage predictions: mean plus or minus 1.96 sample
// standard deviations. With fewer than two stages there is no spread to
// measure, so the band falls back to a fixed 10% of the mean magnitude.
func EstimateInterval(model *bundle.Ensemble, x []float64) Interval {
	stages := model.PredictStages(x)
	if len(stages) < 2 {
		mean := model.Predict(x)
		sigma := 0.1 * math.Abs(mean)
		return classify(Interval{Mean: mean, Low: mean - 1.96*sigma, High: mean + 1.96*sigma})
	}

	mean := 0.0
	for _, s := range stages {
		mean += s
	}
	mean /= float64(len(stages))

	ss := 0.0
	for _, s := range stages {
		d := s - mean
		ss += d * d
	}
	sigma := math.Sqrt(ss / float64(len(stages)-1))

	return classify(Interval{Mean: mean, Low: mean - 1.96*sigma, High: mean + 1.96*sigma})
}

func classify(iv Interval) Interval {
	w := iv.RelWidth()
	switch {
	case w <= 0.15:
		iv.Risk = RiskLow
	case w >= 0.35:
		iv.Risk = RiskHigh
	default:
		iv.Risk = RiskModerate
	}
	return iv
}

// ScenarioConfidence blends the training-time cross-validation
// confidence with the interval width into a 5..98 percent score. Wide
// intervals shrink the score, tight ones lift it slightly above the
// cross-validation baseline.
func ScenarioConfidence(cvPct float64, iv Interval) float64 {
	if cvPct <= 0 {
		cvPct = 50
	}
	w := iv.RelWidth()
	if w < 0.05 {
		w = 0.05
	}
	if w > 0.5 {
		w = 0.5
	}
	factor := 1.1 - (w-0.05)/(0.5-0.05)*(1.1-0.2)
	conf := cvPct * factor
	if conf < 5 {
		conf = 5
	}
	if conf > 98 {
		conf = 98
	}
	return math.Round(conf*10) / 10
}

package bundle

import (
	"math"
	"time"
)

// FractionalMonth converts a date to a continuous month coordinate so
// seasonal features vary smoothly within a month instead of stepping at
// month boundaries.
func FractionalMonth(date time.Time) float64 {
	return float64(date.Month()) + float64(date.Day()-1)/30.0
}

// SeasonalValue is the cosine bump centred on peak, clipped at zero.
// Sharpness narrows the bump; distances wrap around the year.
func SeasonalValue(fracMonth, peak, sharpness float64) float64 {
	d := fracMonth - peak
	for d > 6 {
		d -= 12
	}
	for d < -6 {
		d += 12
	}
	v := math.Cos(2 * math.Pi * d / 12 * sharpness)
	if v < 0 {
		return 0
	}
	return v
}

// WeatherAt linearly interpolates a monthly normal across the month so
// consecutive days never see a discontinuity.
func WeatherAt(norm [12]float64, date time.Time) float64 {
	m := int(date.Month()) - 1
	next := (m + 1) % 12
	frac := float64(date.Day()) / 30.0
	if frac > 1 {
		frac = 1
	}
	return norm[m]*(1-frac) + norm[next]*frac
}

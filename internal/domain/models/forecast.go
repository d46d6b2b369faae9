package models

import "time"

// Prediction is a single-day price estimate for one market.
type Prediction struct {
	Commodity      string
	Market         string
	Date           time.Time
	Price          float64
	RawPrice       float64
	BiasCorrection float64
	Festival       string
	FestivalBoost  float64
	AboveFloor     bool
	FloorNote      string
	Season         string
	Decision       string
	Quantity       float64
	Revenue        float64
	Confidence     float64
	PriceLow       float64
	PriceHigh      float64
	RiskLevel      string
	ModelMAE       float64
	ModelBuiltAt   string
}

// ForecastPoint is one day of a rolling multi-day forecast.
type ForecastPoint struct {
	Date       time.Time
	Price      float64
	Festival   string
	AboveFloor bool
}

// BestDay is the storage-optimal sell day net of spoilage losses.
// Index is days from today; zero means sell today.
type BestDay struct {
	Day      string
	Index    int
	Price    float64
	NetPrice float64
	GainPct  float64
}

// Forecast bundles today's prediction with the rolling day forecast.
type Forecast struct {
	Today    Prediction
	Points   []ForecastPoint
	BestDay  BestDay
	TrendPct float64
	Context  *FeatureContext
}

// Prices returns the forecast price series in day order.
func (f *Forecast) Prices() []float64 {
	out := make([]float64, 0, len(f.Points))
	for _, p := range f.Points {
		out = append(out, p.Price)
	}
	return out
}

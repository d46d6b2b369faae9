package models

import "time"

// PricePoint is one observed market price, keyed by (commodity, market, date).
type PricePoint struct {
	Commodity string
	Market    string
	Date      time.Time
	Price     float64
}

// TrackingRecord is an issued forecast awaiting its actual outcome.
type TrackingRecord struct {
	Commodity      string
	Market         string
	TargetDate     time.Time
	PredictedPrice float64
	ActualPrice    float64
	ErrorPct       float64
	RecordedAt     time.Time
}

// ActualObservation is a settled market price used to close the accuracy loop.
type ActualObservation struct {
	Commodity string
	Market    string
	Date      time.Time
	Price     float64
}

// WeatherSample is one day's climate reading supplied by a caller in
// place of the climatological normals.
type WeatherSample struct {
	Rainfall float64
	Tempmax  float64
}

// FeatureContext describes what enrichment data backed a recommendation.
// A nil context means no advanced features were computed at all.
type FeatureContext struct {
	MomentumPoints  int
	SeasonalDefault bool
	WeatherMissing  bool
}

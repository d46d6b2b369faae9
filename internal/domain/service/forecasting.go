package service

import (
	"context"
	"time"

	"MandiCast/internal/domain/models"
)

// PointPredictor produces a single-day price estimate for one market.
type PointPredictor interface {
	Predict(ctx context.Context, commodity, market string, date time.Time, quantity float64) (models.Prediction, error)
}

// Forecaster produces a rolling multi-day forecast with lag propagation
// and a storage-optimal sell day.
type Forecaster interface {
	Forecast(ctx context.Context, commodity, market string, days int, quantity float64, storageDays int) (models.Forecast, error)
}

// Overseer re-validates a recommendation and produces a verdict with a
// calibrated confidence. Every evaluation writes exactly one audit entry.
type Overseer interface {
	Evaluate(ctx context.Context, rec models.Recommendation, forecast *models.Forecast, features *models.FeatureContext, subjectID string) (models.OversightResult, error)
}

// Explainer turns structured advice into farmer-facing prose. The text
// service is external and consumed as a black box.
type Explainer interface {
	Explain(ctx context.Context, advice models.Advice) (string, error)
}

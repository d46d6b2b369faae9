package repository

import (
	"context"
	"time"

	"MandiCast/internal/domain/models"
)

// PriceHistory provides read-only access to time-ordered market prices.
// Used by the overseer's cross-validation and drift checks only.
type PriceHistory interface {
	Range(ctx context.Context, commodity, market string, from, to time.Time) ([]models.PricePoint, error)
	Health(ctx context.Context) error
}

// AuditLog is the append-only store for overseer decisions.
// Entries are written once and never updated or deleted.
type AuditLog interface {
	Append(ctx context.Context, e *models.AuditEntry) error
}

// AuditPublisher mirrors audit entries onto an event stream, best-effort.
type AuditPublisher interface {
	Publish(ctx context.Context, e *models.AuditEntry) error
	Close() error
}

// ForecastTracking records issued forecasts and their eventual errors.
// The external system owns retention; this core only appends and reads
// the recent error history for the accuracy self-check.
type ForecastTracking interface {
	RecordPrediction(ctx context.Context, rec *models.TrackingRecord) error
	RecordActual(ctx context.Context, obs *models.ActualObservation) error
	ErrorHistory(ctx context.Context, commodity string, since time.Time) ([]float64, error)
}

// Metrics records operational telemetry.
type Metrics interface {
	RecordPrediction(commodity, market string)
	RecordForecastDuration(commodity string, seconds float64)
	RecordLastPrice(commodity, market string, price float64)
	RecordVerdict(verdict string)
	RecordOverride(code string)
	RecordDrift(commodity string)
	RecordAuditWriteFailure()
	RecordError(kind string)
}

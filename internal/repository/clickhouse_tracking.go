package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"MandiCast/internal/domain/models"
	pkgch "MandiCast/pkg/clickhouse"
	applogger "MandiCast/pkg/logger"
)

// CHTracking stores issued forecasts and settles them when the actual
// market price arrives. Settlement rewrites the row through the
// ReplacingMergeTree with the error filled in.
type CHTracking struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHTracking(ch *pkgch.Client) *CHTracking {
	return &CHTracking{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHTracking) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHTracking) RecordPrediction(ctx context.Context, rec *models.TrackingRecord) error {
	const q = `
        INSERT INTO forecast_tracking
            (commodity, market, target_date, predicted_price, actual_price, error_pct, settled, recorded_at)
        VALUES (?, ?, ?, ?, 0, 0, 0, ?)
    `
	_, err := s.db.ExecContext(ctx, q,
		rec.Commodity, rec.Market, rec.TargetDate, rec.PredictedPrice, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("record prediction: %w", err)
	}
	return nil
}

// RecordActual settles any open prediction for the observation's
// (commodity, market, date). Observations with no matching prediction
// are dropped silently; they are routine.
func (s *CHTracking) RecordActual(ctx context.Context, obs *models.ActualObservation) error {
	const sel = `
        SELECT predicted_price, recorded_at
        FROM forecast_tracking FINAL
        WHERE commodity = ? AND market = ? AND target_date = ? AND settled = 0
        LIMIT 1
    `
	var predicted float64
	var recordedAt time.Time
	err := s.db.QueryRowContext(ctx, sel, obs.Commodity, obs.Market, obs.Date).
		Scan(&predicted, &recordedAt)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup prediction: %w", err)
	}

	errorPct := 0.0
	if obs.Price > 0 {
		errorPct = math.Abs(predicted-obs.Price) / obs.Price * 100
	}
	const ins = `
        INSERT INTO forecast_tracking
            (commodity, market, target_date, predicted_price, actual_price, error_pct, settled, recorded_at)
        VALUES (?, ?, ?, ?, ?, ?, 1, ?)
    `
	if _, err := s.db.ExecContext(ctx, ins,
		obs.Commodity, obs.Market, obs.Date, predicted, obs.Price, errorPct, time.Now()); err != nil {
		return fmt.Errorf("settle prediction: %w", err)
	}
	if s.l != nil {
		s.l.Debug("forecast settled",
			applogger.String("commodity", obs.Commodity),
			applogger.String("market", obs.Market),
			applogger.Any("error_pct", math.Round(errorPct*10)/10),
		)
	}
	return nil
}

func (s *CHTracking) ErrorHistory(ctx context.Context, commodity string, since time.Time) ([]float64, error) {
	const q = `
        SELECT error_pct
        FROM forecast_tracking FINAL
        WHERE commodity = ? AND settled = 1 AND target_date >= ?
        ORDER BY target_date ASC
    `
	rows, err := s.db.QueryContext(ctx, q, commodity, since)
	if err != nil {
		return nil, fmt.Errorf("error history: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var e float64
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("error history scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

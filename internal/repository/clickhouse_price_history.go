package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"MandiCast/internal/domain/models"
	pkgch "MandiCast/pkg/clickhouse"
	applogger "MandiCast/pkg/logger"
)

// Schema statements are idempotent and applied at startup via
// clickhouse.Client.InitSchema.
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS mandi_prices (
        commodity LowCardinality(String),
        market    LowCardinality(String),
        date      Date,
        price     Float64
    ) ENGINE = ReplacingMergeTree
    ORDER BY (commodity, market, date)`,
	`CREATE TABLE IF NOT EXISTS overseer_audit (
        subject_id        String,
        commodity         LowCardinality(String),
        market            LowCardinality(String),
        original_decision String,
        final_decision    String,
        override_reason   String,
        verdict           LowCardinality(String),
        confidence_before Float64,
        confidence_after  Float64,
        warning_count     UInt16,
        anomaly_count     UInt16,
        drift_detected    UInt8,
        warnings_json     String,
        created_at        DateTime
    ) ENGINE = MergeTree
    ORDER BY (commodity, created_at)`,
	`CREATE TABLE IF NOT EXISTS forecast_tracking (
        commodity       LowCardinality(String),
        market          LowCardinality(String),
        target_date     Date,
        predicted_price Float64,
        actual_price    Float64,
        error_pct       Float64,
        settled         UInt8,
        recorded_at     DateTime
    ) ENGINE = ReplacingMergeTree(recorded_at)
    ORDER BY (commodity, market, target_date)`,
}

// CHPriceHistory reads observed mandi prices from ClickHouse.
type CHPriceHistory struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHPriceHistory(ch *pkgch.Client) *CHPriceHistory {
	return &CHPriceHistory{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHPriceHistory) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPriceHistory) Range(ctx context.Context, commodity, market string, from, to time.Time) ([]models.PricePoint, error) {
	const q = `
        SELECT commodity, market, date, price
        FROM mandi_prices
        WHERE commodity = ? AND market = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, q, commodity, market, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse price range query error",
				applogger.String("commodity", commodity),
				applogger.String("market", market),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("price range: %w", err)
	}
	defer rows.Close()

	out := make([]models.PricePoint, 0, 64)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Commodity, &p.Market, &p.Date, &p.Price); err != nil {
			return nil, fmt.Errorf("price range scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *CHPriceHistory) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"MandiCast/internal/domain/models"
	pkgch "MandiCast/pkg/clickhouse"
)

// CHAuditLog is the append-only ClickHouse sink for overseer audit
// entries. The table has no UPDATE or DELETE path on purpose.
type CHAuditLog struct {
	db *sql.DB
}

func NewCHAuditLog(ch *pkgch.Client) *CHAuditLog {
	return &CHAuditLog{db: ch.DB()}
}

func (s *CHAuditLog) Append(ctx context.Context, e *models.AuditEntry) error {
	const q = `
        INSERT INTO overseer_audit
            (subject_id, commodity, market, original_decision, final_decision,
             override_reason, verdict, confidence_before, confidence_after,
             warning_count, anomaly_count, drift_detected, warnings_json, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	drift := uint8(0)
	if e.DriftDetected {
		drift = 1
	}
	_, err := s.db.ExecContext(ctx, q,
		e.SubjectID,
		e.Commodity,
		e.Market,
		e.OriginalDecision,
		e.FinalDecision,
		e.OverrideReason,
		string(e.Verdict),
		e.ConfidenceBefore,
		e.ConfidenceAfter,
		uint16(e.WarningCount),
		uint16(e.AnomalyCount),
		drift,
		e.WarningsJSON,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	return nil
}

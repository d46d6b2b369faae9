package overseer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"MandiCast/internal/domain/models"
	"MandiCast/internal/domain/repository"
	"MandiCast/pkg/config"
	"MandiCast/pkg/logger"
)

// Service is the stateless recommendation evaluator. It runs six
// independent checks over a recommendation and its forecast context,
// subtracts penalties from a confidence ceiling, and may override the
// recommendation itself. Every evaluation writes exactly one audit
// entry regardless of outcome.
type Service struct {
	cfg       config.OverseerConfig
	history   repository.PriceHistory
	tracking  repository.ForecastTracking
	audit     repository.AuditLog
	publisher repository.AuditPublisher
	metrics   repository.Metrics
	log       *logger.Logger
	now       func() time.Time
}

func New(
	cfg config.OverseerConfig,
	history repository.PriceHistory,
	tracking repository.ForecastTracking,
	audit repository.AuditLog,
	publisher repository.AuditPublisher,
	metrics repository.Metrics,
	log *logger.Logger,
) *Service {
	return &Service{
		cfg:       cfg,
		history:   history,
		tracking:  tracking,
		audit:     audit,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// evaluation accumulates check findings. Confidence only ever goes
// down; warnings and overrides are append-only.
type evaluation struct {
	rec       models.Recommendation
	penalty   float64
	warnings  []models.Warning
	overrides []models.Override
	anomalies int
	drift     models.DriftStatus
}

func (ev *evaluation) warn(code, severity, message, detail string) {
	ev.warnings = append(ev.warnings, models.Warning{
		Code: code, Severity: severity, Message: message, Detail: detail,
	})
}

func (ev *evaluation) penalize(p float64) {
	ev.penalty += p
}

func (ev *evaluation) override(field, oldVal, newVal, reason string) {
	if reason == "" {
		reason = "unspecified safety override"
	}
	ev.overrides = append(ev.overrides, models.Override{
		Field: field, OldValue: oldVal, NewValue: newVal, Reason: reason,
	})
}

// Evaluate runs all checks and persists the audit record. The returned
// result carries the final action and wait days after any overrides;
// the input recommendation is never mutated.
func (s *Service) Evaluate(ctx context.Context, rec models.Recommendation, forecast *models.Forecast, features *models.FeatureContext, subjectID string) (models.OversightResult, error) {
	ev := &evaluation{rec: rec}

	s.checkForecastSanity(ev, forecast)
	s.checkBaseline(ctx, ev)
	s.checkPerishable(ev)
	s.checkInputQuality(ev, features)
	s.checkDrift(ctx, ev)
	s.checkAccuracy(ctx, ev)

	conf := s.cfg.ConfidenceCeiling - ev.penalty
	if conf < s.cfg.ConfidenceFloor {
		conf = s.cfg.ConfidenceFloor
	}
	if conf > s.cfg.ConfidenceCeiling {
		conf = s.cfg.ConfidenceCeiling
	}

	res := models.OversightResult{
		AdjustedConfidence: conf,
		OriginalConfidence: s.cfg.ConfidenceCeiling,
		ConfidenceDelta:    conf - s.cfg.ConfidenceCeiling,
		Warnings:           ev.warnings,
		Overrides:          ev.overrides,
		AnomalyCount:       ev.anomalies,
		Drift:              ev.drift,
		Verdict:            s.verdict(ev, conf),
		FinalAction:        rec.Action,
		FinalWaitDays:      rec.WaitDays,
		EvaluatedAt:        s.now(),
	}
	res.RiskLabel, res.RiskMessage = riskBand(conf)
	for _, ov := range ev.overrides {
		switch ov.Field {
		case "action":
			res.FinalAction = ov.NewValue
		case "wait_days":
			if d, err := strconv.Atoi(ov.NewValue); err == nil {
				res.FinalWaitDays = d
			}
		}
		s.metrics.RecordOverride(ov.Field)
	}
	s.metrics.RecordVerdict(string(res.Verdict))

	s.writeAudit(ctx, subjectID, rec, &res)

	s.log.Info("recommendation evaluated",
		logger.String("commodity", rec.Commodity),
		logger.String("market", rec.Market),
		logger.String("verdict", string(res.Verdict)),
		logger.Any("confidence", res.AdjustedConfidence),
		logger.Int("warnings", len(res.Warnings)),
		logger.Int("anomalies", res.AnomalyCount))
	return res, nil
}

func (s *Service) verdict(ev *evaluation, conf float64) models.Verdict {
	switch {
	case len(ev.overrides) > 0:
		return models.VerdictOverridden
	case ev.anomalies >= 2 || conf < 0.5:
		return models.VerdictFlagged
	case len(ev.warnings) > 0:
		return models.VerdictApprovedWithWarnings
	default:
		return models.VerdictApproved
	}
}

// writeAudit persists the single audit entry for this evaluation. A
// storage failure must not block the advice path, so it is logged,
// counted and swallowed. The stream publish is likewise best-effort.
func (s *Service) writeAudit(ctx context.Context, subjectID string, rec models.Recommendation, res *models.OversightResult) {
	entry := &models.AuditEntry{
		SubjectID:        subjectID,
		Commodity:        rec.Commodity,
		Market:           rec.Market,
		OriginalDecision: fmt.Sprintf("%s wait=%d", rec.Action, rec.WaitDays),
		FinalDecision:    fmt.Sprintf("%s wait=%d", res.FinalAction, res.FinalWaitDays),
		Verdict:          res.Verdict,
		ConfidenceBefore: res.OriginalConfidence,
		ConfidenceAfter:  res.AdjustedConfidence,
		WarningCount:     len(res.Warnings),
		AnomalyCount:     res.AnomalyCount,
		DriftDetected:    res.Drift.Detected,
		CreatedAt:        res.EvaluatedAt,
	}
	if len(res.Overrides) > 0 {
		entry.OverrideReason = res.Overrides[0].Reason
	}
	if raw, err := json.Marshal(res.Warnings); err == nil {
		entry.WarningsJSON = string(raw)
	}

	if err := s.audit.Append(ctx, entry); err != nil {
		s.metrics.RecordAuditWriteFailure()
		s.log.Error("audit write failed", logger.Error(err),
			logger.String("commodity", rec.Commodity),
			logger.String("subject", subjectID))
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, entry); err != nil {
			s.log.Warn("audit publish failed", logger.Error(err))
		}
	}
}

package overseer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/creasty/defaults"

	"MandiCast/internal/domain/models"
	"MandiCast/pkg/config"
	"MandiCast/pkg/logger"
)

var evalTime = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

type fakeHistory struct {
	points []models.PricePoint
	err    error
}

func (f *fakeHistory) Range(_ context.Context, _, _ string, from, to time.Time) ([]models.PricePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.PricePoint
	for _, p := range f.points {
		if !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeHistory) Health(context.Context) error { return nil }

type fakeTracking struct {
	errs []float64
	err  error
}

func (f *fakeTracking) RecordPrediction(context.Context, *models.TrackingRecord) error { return nil }
func (f *fakeTracking) RecordActual(context.Context, *models.ActualObservation) error  { return nil }
func (f *fakeTracking) ErrorHistory(context.Context, string, time.Time) ([]float64, error) {
	return f.errs, f.err
}

type fakeAudit struct {
	entries []*models.AuditEntry
	err     error
}

func (f *fakeAudit) Append(_ context.Context, e *models.AuditEntry) error {
	f.entries = append(f.entries, e)
	return f.err
}

type fakePublisher struct {
	published int
	err       error
}

func (f *fakePublisher) Publish(context.Context, *models.AuditEntry) error {
	f.published++
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

type captureMetrics struct {
	verdicts      []string
	overrides     []string
	drifts        []string
	auditFailures int
}

func (m *captureMetrics) RecordPrediction(string, string)        {}
func (m *captureMetrics) RecordForecastDuration(string, float64) {}
func (m *captureMetrics) RecordLastPrice(string, string, float64) {
}
func (m *captureMetrics) RecordVerdict(v string)  { m.verdicts = append(m.verdicts, v) }
func (m *captureMetrics) RecordOverride(c string) { m.overrides = append(m.overrides, c) }
func (m *captureMetrics) RecordDrift(c string)    { m.drifts = append(m.drifts, c) }
func (m *captureMetrics) RecordAuditWriteFailure() {
	m.auditFailures++
}
func (m *captureMetrics) RecordError(string) {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testConfig(t *testing.T) config.OverseerConfig {
	t.Helper()
	var cfg config.OverseerConfig
	if err := defaults.Set(&cfg); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	cfg.Perishables = map[string]config.PerishableSpec{
		"tomato": {MaxSafeDays: 7, RiskMultiplier: 3.0},
		"onion":  {MaxSafeDays: 14, RiskMultiplier: 2.5},
	}
	return cfg
}

// stablePoints is daily history at a flat price covering the full
// baseline window, so neither divergence nor drift fires.
func stablePoints(price float64, days int) []models.PricePoint {
	out := make([]models.PricePoint, 0, days)
	for i := 1; i <= days; i++ {
		out = append(out, models.PricePoint{
			Date:  evalTime.AddDate(0, 0, -i),
			Price: price,
		})
	}
	return out
}

type fixture struct {
	svc      *Service
	audit    *fakeAudit
	metrics  *captureMetrics
	pub      *fakePublisher
	history  *fakeHistory
	tracking *fakeTracking
}

func newFixture(t *testing.T, cfg config.OverseerConfig, history *fakeHistory, tracking *fakeTracking) *fixture {
	t.Helper()
	f := &fixture{
		audit:    &fakeAudit{},
		metrics:  &captureMetrics{},
		pub:      &fakePublisher{},
		history:  history,
		tracking: tracking,
	}
	f.svc = New(cfg, history, tracking, f.audit, f.pub, f.metrics, testLogger(t))
	f.svc.now = func() time.Time { return evalTime }
	return f
}

func cleanForecast(prices ...float64) *models.Forecast {
	f := &models.Forecast{Today: models.Prediction{Price: prices[0]}}
	for i, p := range prices[1:] {
		f.Points = append(f.Points, models.ForecastPoint{
			Date:  evalTime.AddDate(0, 0, i+1),
			Price: p,
		})
	}
	return f
}

func TestEvaluateApprovesCleanRecommendation(t *testing.T) {
	fix := newFixture(t, testConfig(t),
		&fakeHistory{points: stablePoints(1000, 30)},
		&fakeTracking{errs: []float64{5, -4, 6}})

	rec := models.Recommendation{
		Commodity:    "groundnut",
		Market:       "Mysuru APMC",
		CurrentPrice: 1000,
		PeakPrice:    1040,
		WaitDays:     5,
		RiskLevel:    "Low",
		Action:       models.ActionHold,
	}
	fc := &models.FeatureContext{MomentumPoints: 3}

	res, err := fix.svc.Evaluate(context.Background(), rec,
		cleanForecast(1000, 1005, 1012, 1020, 1030, 1040), fc, "groundnut:mysuru:2025-06-15")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Verdict != models.VerdictApproved {
		t.Fatalf("verdict %s, warnings %+v", res.Verdict, res.Warnings)
	}
	if res.AdjustedConfidence != 0.95 {
		t.Fatalf("confidence %v want 0.95", res.AdjustedConfidence)
	}
	if res.RiskLabel != "high_confidence" {
		t.Fatalf("risk label %q", res.RiskLabel)
	}
	if res.FinalAction != models.ActionHold || res.FinalWaitDays != 5 {
		t.Fatalf("final %s wait=%d, expected recommendation untouched", res.FinalAction, res.FinalWaitDays)
	}
	if res.Drift.Detected {
		t.Fatalf("no drift expected on flat history")
	}
	if len(fix.audit.entries) != 1 {
		t.Fatalf("audit entries %d want 1", len(fix.audit.entries))
	}
	if fix.pub.published != 1 {
		t.Fatalf("publishes %d want 1", fix.pub.published)
	}
	if !res.EvaluatedAt.Equal(evalTime) {
		t.Fatalf("evaluated at %v want %v", res.EvaluatedAt, evalTime)
	}
}

func TestEvaluateOverridesPerishableHold(t *testing.T) {
	fix := newFixture(t, testConfig(t),
		&fakeHistory{points: stablePoints(1500, 30)},
		&fakeTracking{errs: []float64{3}})

	rec := models.Recommendation{
		Commodity:    "tomato",
		Market:       "Kolar APMC",
		CurrentPrice: 1500,
		PeakPrice:    1560,
		WaitDays:     12,
		RiskLevel:    "Low",
		Action:       models.ActionHold,
	}

	res, err := fix.svc.Evaluate(context.Background(), rec, nil,
		&models.FeatureContext{MomentumPoints: 3}, "tomato:kolar:2025-06-15")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Verdict != models.VerdictOverridden {
		t.Fatalf("verdict %s want OVERRIDDEN", res.Verdict)
	}
	if res.FinalAction != models.ActionSellNow {
		t.Fatalf("final action %q want %q", res.FinalAction, models.ActionSellNow)
	}
	if res.FinalWaitDays != 0 {
		t.Fatalf("wait %d want 0", res.FinalWaitDays)
	}
	if len(res.Overrides) == 0 || res.Overrides[0].Reason == "" {
		t.Fatalf("override with a reason required, got %+v", res.Overrides)
	}
	if len(fix.audit.entries) != 1 {
		t.Fatalf("audit entries %d want 1", len(fix.audit.entries))
	}
	if fix.audit.entries[0].OverrideReason == "" {
		t.Fatalf("audit entry must carry the override reason")
	}
	if len(fix.metrics.overrides) != 2 {
		t.Fatalf("override metrics %v", fix.metrics.overrides)
	}
}

func TestEvaluateFlagsRepeatedAnomalies(t *testing.T) {
	fix := newFixture(t, testConfig(t),
		&fakeHistory{points: stablePoints(1000, 30)},
		&fakeTracking{errs: []float64{3}})

	// 30% spike plus a 70-day hold, two independent anomalies
	rec := models.Recommendation{
		Commodity:    "groundnut",
		Market:       "Mysuru APMC",
		CurrentPrice: 1000,
		PeakPrice:    1300,
		WaitDays:     70,
		RiskLevel:    "Low",
		Action:       models.ActionHold,
	}

	res, err := fix.svc.Evaluate(context.Background(), rec, nil,
		&models.FeatureContext{MomentumPoints: 3}, "groundnut:mysuru:2025-06-15")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.AnomalyCount < 2 {
		t.Fatalf("anomalies %d want >= 2", res.AnomalyCount)
	}
	if res.Verdict != models.VerdictFlagged {
		t.Fatalf("verdict %s want FLAGGED", res.Verdict)
	}
	if res.AdjustedConfidence >= 0.95 {
		t.Fatalf("confidence %v should be penalised", res.AdjustedConfidence)
	}
}

func TestEvaluateForcesSellOnDownwardDrift(t *testing.T) {
	// baseline near 1000, last week collapsed to 800
	points := make([]models.PricePoint, 0, 30)
	for i := 1; i <= 30; i++ {
		price := 1000.0
		if i < 7 {
			price = 800
		}
		points = append(points, models.PricePoint{
			Date:  evalTime.AddDate(0, 0, -i),
			Price: price,
		})
	}
	fix := newFixture(t, testConfig(t),
		&fakeHistory{points: points},
		&fakeTracking{errs: []float64{3}})

	rec := models.Recommendation{
		Commodity:    "groundnut",
		Market:       "Mysuru APMC",
		CurrentPrice: 950,
		WaitDays:     10,
		RiskLevel:    "Low",
		Action:       models.ActionHold,
	}

	res, err := fix.svc.Evaluate(context.Background(), rec, nil,
		&models.FeatureContext{MomentumPoints: 3}, "groundnut:mysuru:2025-06-15")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Drift.Detected {
		t.Fatalf("drift not detected: %+v", res.Drift)
	}
	if res.Drift.Direction != "downward" {
		t.Fatalf("drift direction %q want downward", res.Drift.Direction)
	}
	if res.FinalAction != models.ActionSellNow {
		t.Fatalf("final action %q want %q", res.FinalAction, models.ActionSellNow)
	}
	if res.Verdict != models.VerdictOverridden {
		t.Fatalf("verdict %s want OVERRIDDEN", res.Verdict)
	}
	if len(fix.metrics.drifts) != 1 {
		t.Fatalf("drift metric recorded %d times", len(fix.metrics.drifts))
	}
}

func TestEvaluateCapsHoldHorizonOnUpwardDrift(t *testing.T) {
	// baseline near 1000, last week rallied to 1200: a 20% upward
	// shift, past the reaction threshold but with no reason to sell
	points := make([]models.PricePoint, 0, 30)
	for i := 1; i <= 30; i++ {
		price := 1000.0
		if i < 7 {
			price = 1200
		}
		points = append(points, models.PricePoint{
			Date:  evalTime.AddDate(0, 0, -i),
			Price: price,
		})
	}
	fix := newFixture(t, testConfig(t),
		&fakeHistory{points: points},
		&fakeTracking{errs: []float64{3}})

	rec := models.Recommendation{
		Commodity:    "groundnut",
		Market:       "Mysuru APMC",
		CurrentPrice: 1200,
		PeakPrice:    1260,
		WaitDays:     20,
		RiskLevel:    "Low",
		Action:       models.ActionHold,
	}

	res, err := fix.svc.Evaluate(context.Background(), rec, nil,
		&models.FeatureContext{MomentumPoints: 3}, "groundnut:mysuru:2025-06-15")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Drift.Detected || res.Drift.Direction != "upward" {
		t.Fatalf("drift %+v want detected upward", res.Drift)
	}
	if res.FinalAction != models.ActionHold {
		t.Fatalf("final action %q, an upward shift must not force a sale", res.FinalAction)
	}
	if res.FinalWaitDays != 14 {
		t.Fatalf("wait %d want capped to 14", res.FinalWaitDays)
	}
	if res.Verdict != models.VerdictOverridden {
		t.Fatalf("verdict %s want OVERRIDDEN", res.Verdict)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Code == WarnDriftHorizonReduced {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing %s in %+v", WarnDriftHorizonReduced, res.Warnings)
	}
}

func TestEvaluateFlagsExcessiveHold(t *testing.T) {
	fix := newFixture(t, testConfig(t),
		&fakeHistory{points: stablePoints(1000, 30)},
		&fakeTracking{errs: []float64{5, -4, 6}})

	rec := models.Recommendation{
		Commodity:    "groundnut",
		Market:       "Mysuru APMC",
		CurrentPrice: 1000,
		PeakPrice:    1040,
		WaitDays:     90,
		RiskLevel:    "Low",
		Action:       models.ActionHold,
	}

	res, err := fix.svc.Evaluate(context.Background(), rec, nil,
		&models.FeatureContext{MomentumPoints: 3}, "groundnut:mysuru:2025-06-15")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	found := false
	for _, w := range res.Warnings {
		if w.Code == WarnExcessiveHold {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing %s in %+v", WarnExcessiveHold, res.Warnings)
	}
	if res.Verdict != models.VerdictApprovedWithWarnings {
		t.Fatalf("verdict %s want APPROVED_WITH_WARNINGS", res.Verdict)
	}
	// identical to the clean run except the 90-day hold
	if 0.95-res.AdjustedConfidence < 0.08-1e-9 {
		t.Fatalf("confidence %v, the long hold must cost at least 0.08", res.AdjustedConfidence)
	}
	if res.FinalWaitDays != 90 {
		t.Fatalf("wait %d, a long hold alone is not overridden", res.FinalWaitDays)
	}
}

func TestEvaluateConfidenceNeverBelowFloor(t *testing.T) {
	// every check that can fire: spike, long hold, perishable cap,
	// missing features, terrible accuracy, no usable history
	fix := newFixture(t, testConfig(t),
		&fakeHistory{err: errors.New("clickhouse down")},
		&fakeTracking{errs: []float64{40, -38, 45}})

	rec := models.Recommendation{
		Commodity:    "tomato",
		Market:       "Kolar APMC",
		CurrentPrice: 1000,
		PeakPrice:    1400,
		WaitDays:     70,
		RiskLevel:    "High",
		Action:       models.ActionHold,
	}

	res, err := fix.svc.Evaluate(context.Background(), rec, nil, nil, "tomato:kolar:2025-06-15")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.AdjustedConfidence != 0.40 {
		t.Fatalf("confidence %v want floor 0.40", res.AdjustedConfidence)
	}
	if res.RiskLabel != "limited_reliability" {
		t.Fatalf("risk label %q", res.RiskLabel)
	}
	if res.Verdict != models.VerdictOverridden {
		t.Fatalf("verdict %s, overrides %+v", res.Verdict, res.Overrides)
	}
}

func TestEvaluateSurvivesAuditWriteFailure(t *testing.T) {
	fix := newFixture(t, testConfig(t),
		&fakeHistory{points: stablePoints(1000, 30)},
		&fakeTracking{errs: []float64{5}})
	fix.audit.err = errors.New("insert timeout")
	fix.pub.err = errors.New("broker unreachable")

	rec := models.Recommendation{
		Commodity:    "groundnut",
		Market:       "Mysuru APMC",
		CurrentPrice: 1000,
		PeakPrice:    1020,
		WaitDays:     3,
		RiskLevel:    "Low",
		Action:       models.ActionHold,
	}

	res, err := fix.svc.Evaluate(context.Background(), rec, nil,
		&models.FeatureContext{MomentumPoints: 3}, "groundnut:mysuru:2025-06-15")
	if err != nil {
		t.Fatalf("audit failure must not fail the evaluation: %v", err)
	}
	if fix.metrics.auditFailures != 1 {
		t.Fatalf("audit failure count %d want 1", fix.metrics.auditFailures)
	}
	if res.Verdict == "" {
		t.Fatalf("result must still carry a verdict")
	}
}

func TestEvaluateWarnsOnDegradedInputs(t *testing.T) {
	fix := newFixture(t, testConfig(t),
		&fakeHistory{points: stablePoints(1000, 2)},
		&fakeTracking{})

	rec := models.Recommendation{
		Commodity:    "groundnut",
		Market:       "Mysuru APMC",
		CurrentPrice: 1000,
		PeakPrice:    1020,
		WaitDays:     3,
		RiskLevel:    "Low",
		Action:       models.ActionHold,
	}
	fc := &models.FeatureContext{MomentumPoints: 1, SeasonalDefault: true, WeatherMissing: true}

	res, err := fix.svc.Evaluate(context.Background(), rec, nil, fc, "groundnut:mysuru:2025-06-15")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Verdict != models.VerdictApprovedWithWarnings {
		t.Fatalf("verdict %s want APPROVED_WITH_WARNINGS", res.Verdict)
	}
	want := map[string]bool{
		WarnInsufficientCrossval: false,
		WarnSparsePriceData:      false,
		WarnDefaultSeasonal:      false,
		WarnNoWeatherHistory:     false,
		WarnNoAccuracyHistory:    false,
	}
	for _, w := range res.Warnings {
		if _, ok := want[w.Code]; ok {
			want[w.Code] = true
		}
	}
	for code, seen := range want {
		if !seen {
			t.Fatalf("missing warning %s in %+v", code, res.Warnings)
		}
	}
}

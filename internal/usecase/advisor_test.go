package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"MandiCast/internal/domain/models"
	"MandiCast/pkg/logger"
)

type fakeForecaster struct {
	forecast models.Forecast
	err      error
}

func (f *fakeForecaster) Forecast(context.Context, string, string, int, float64, int) (models.Forecast, error) {
	return f.forecast, f.err
}

type fakeOverseer struct {
	result    models.OversightResult
	subjectID string
	rec       models.Recommendation
}

func (f *fakeOverseer) Evaluate(_ context.Context, rec models.Recommendation, _ *models.Forecast, _ *models.FeatureContext, subjectID string) (models.OversightResult, error) {
	f.rec = rec
	f.subjectID = subjectID
	return f.result, nil
}

type fakeExplainer struct {
	text string
	err  error
}

func (f *fakeExplainer) Explain(context.Context, models.Advice) (string, error) {
	return f.text, f.err
}

type fakeTracking struct {
	records []*models.TrackingRecord
	err     error
}

func (f *fakeTracking) RecordPrediction(_ context.Context, r *models.TrackingRecord) error {
	f.records = append(f.records, r)
	return f.err
}
func (f *fakeTracking) RecordActual(context.Context, *models.ActualObservation) error { return nil }
func (f *fakeTracking) ErrorHistory(context.Context, string, time.Time) ([]float64, error) {
	return nil, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func sampleForecast() models.Forecast {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	return models.Forecast{
		Today: models.Prediction{
			Commodity: "onion",
			Market:    "Lasalgaon APMC",
			Date:      today,
			Price:     1800,
			RiskLevel: "Low",
		},
		Points: []models.ForecastPoint{
			{Date: today.AddDate(0, 0, 1), Price: 1820},
			{Date: today.AddDate(0, 0, 2), Price: 1850},
		},
		BestDay: models.BestDay{Day: "Day 2", Index: 2, Price: 1850, NetPrice: 1832, GainPct: 1.8},
		Context: &models.FeatureContext{MomentumPoints: 3},
	}
}

func TestAdviseAssemblesRecommendation(t *testing.T) {
	ov := &fakeOverseer{result: models.OversightResult{
		Verdict:       models.VerdictApproved,
		FinalAction:   models.ActionHold,
		FinalWaitDays: 2,
	}}
	tracking := &fakeTracking{}
	adv := NewAdvisor(&fakeForecaster{forecast: sampleForecast()}, ov,
		&fakeExplainer{text: "prices are firming up"}, tracking, testLogger(t))

	advice, err := adv.Advise(context.Background(), "onion", "Lasalgaon APMC", 10, 7, 0)
	if err != nil {
		t.Fatalf("advise: %v", err)
	}

	if ov.rec.Action != models.ActionHold {
		t.Fatalf("positive gain must recommend HOLD, got %s", ov.rec.Action)
	}
	if ov.rec.WaitDays != 2 || ov.rec.PeakPrice != 1850 {
		t.Fatalf("recommendation %+v not derived from best day", ov.rec)
	}
	if ov.subjectID != "onion:Lasalgaon APMC:2025-06-15" {
		t.Fatalf("subject id %q", ov.subjectID)
	}
	if advice.Explanation != "prices are firming up" {
		t.Fatalf("explanation %q", advice.Explanation)
	}
	if advice.Oversight.Verdict != models.VerdictApproved {
		t.Fatalf("verdict %s", advice.Oversight.Verdict)
	}

	if len(tracking.records) != 1 {
		t.Fatalf("tracked %d forecasts want 1", len(tracking.records))
	}
	r := tracking.records[0]
	if r.PredictedPrice != 1850 || !r.TargetDate.Equal(sampleForecast().Points[1].Date) {
		t.Fatalf("tracked horizon end %+v", r)
	}
}

func TestAdviseSellWhenNoGain(t *testing.T) {
	f := sampleForecast()
	f.BestDay = models.BestDay{Day: "Today", Price: 1800, NetPrice: 1800}
	ov := &fakeOverseer{result: models.OversightResult{Verdict: models.VerdictApproved}}
	adv := NewAdvisor(&fakeForecaster{forecast: f}, ov, nil, &fakeTracking{}, testLogger(t))

	if _, err := adv.Advise(context.Background(), "onion", "Lasalgaon APMC", 10, 7, 0); err != nil {
		t.Fatalf("advise: %v", err)
	}
	if ov.rec.Action != models.ActionSell {
		t.Fatalf("no-gain forecast must recommend SELL, got %s", ov.rec.Action)
	}
}

func TestAdviseToleratesExplainerFailure(t *testing.T) {
	ov := &fakeOverseer{result: models.OversightResult{Verdict: models.VerdictApproved}}
	adv := NewAdvisor(&fakeForecaster{forecast: sampleForecast()}, ov,
		&fakeExplainer{err: errors.New("service unavailable")}, &fakeTracking{}, testLogger(t))

	advice, err := adv.Advise(context.Background(), "onion", "Lasalgaon APMC", 10, 7, 0)
	if err != nil {
		t.Fatalf("advise: %v", err)
	}
	if advice.Explanation != "" {
		t.Fatalf("explanation %q want empty on failure", advice.Explanation)
	}
}

func TestAdviseToleratesTrackingFailure(t *testing.T) {
	ov := &fakeOverseer{result: models.OversightResult{Verdict: models.VerdictApproved}}
	adv := NewAdvisor(&fakeForecaster{forecast: sampleForecast()}, ov,
		nil, &fakeTracking{err: errors.New("insert failed")}, testLogger(t))

	if _, err := adv.Advise(context.Background(), "onion", "Lasalgaon APMC", 10, 7, 0); err != nil {
		t.Fatalf("advise: %v", err)
	}
}

func TestAdvisePropagatesForecastError(t *testing.T) {
	adv := NewAdvisor(&fakeForecaster{err: errors.New("unknown commodity")},
		&fakeOverseer{}, nil, &fakeTracking{}, testLogger(t))

	if _, err := adv.Advise(context.Background(), "jackfruit", "Any", 10, 7, 0); err == nil {
		t.Fatalf("expected forecast error to propagate")
	}
}

package advice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"MandiCast/internal/domain/models"
	"MandiCast/internal/services/bundle"
	"MandiCast/internal/usecase"
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
	result models.OversightResult
}

func (f *fakeOverseer) Evaluate(context.Context, models.Recommendation, *models.Forecast, *models.FeatureContext, string) (models.OversightResult, error) {
	return f.result, nil
}

type fakeExplainer struct{}

func (fakeExplainer) Explain(context.Context, models.Advice) (string, error) {
	return "prices look steady", nil
}

type fakeTracking struct{}

func (fakeTracking) RecordPrediction(context.Context, *models.TrackingRecord) error { return nil }
func (fakeTracking) RecordActual(context.Context, *models.ActualObservation) error  { return nil }
func (fakeTracking) ErrorHistory(context.Context, string, time.Time) ([]float64, error) {
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

func testHandler(t *testing.T, fc *fakeForecaster) *Handler {
	t.Helper()
	l := testLogger(t)
	ov := &fakeOverseer{result: models.OversightResult{
		Verdict:       models.VerdictApproved,
		FinalAction:   models.ActionHold,
		FinalWaitDays: 2,
	}}
	advisor := usecase.NewAdvisor(fc, ov, fakeExplainer{}, fakeTracking{}, l)
	return NewHandler(l, advisor)
}

// serve issues one GET against the handler and decodes the response
// envelope. The envelope carries the real status; the transport status
// is always 200.
func serve(t *testing.T, h *Handler, target string) (int, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	if err := h.Advice(e.NewContext(req, rec)); err != nil {
		t.Fatalf("advice handler: %v", err)
	}
	var env struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env.Status, rec.Body.String()
}

func TestAdviceRejectsMissingCommodity(t *testing.T) {
	h := testHandler(t, &fakeForecaster{})
	status, body := serve(t, h, "/api/advice?market=Lasalgaon+APMC")
	if status != http.StatusBadRequest {
		t.Fatalf("status %d want 400", status)
	}
	if !strings.Contains(body, "ERR_REQUIRED") {
		t.Fatalf("body %s lacks validation code", body)
	}
}

func TestAdviceRejectsBadHorizon(t *testing.T) {
	h := testHandler(t, &fakeForecaster{})
	status, _ := serve(t, h, "/api/advice?commodity=onion&market=Lasalgaon+APMC&horizon_days=90")
	if status != http.StatusBadRequest {
		t.Fatalf("status %d want 400", status)
	}
}

func TestAdviceUnknownCommodityIs404(t *testing.T) {
	h := testHandler(t, &fakeForecaster{
		err: fmt.Errorf("%w: jackfruit", bundle.ErrNotFound),
	})
	status, body := serve(t, h, "/api/advice?commodity=jackfruit&market=Lasalgaon+APMC")
	if status != http.StatusNotFound {
		t.Fatalf("status %d want 404", status)
	}
	if !strings.Contains(body, "ERR_NOT_FOUND") {
		t.Fatalf("body %s lacks error code", body)
	}
}

func TestAdviceReturnsPipelineResult(t *testing.T) {
	today := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	h := testHandler(t, &fakeForecaster{forecast: models.Forecast{
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
	}})
	status, body := serve(t, h, "/api/advice?commodity=onion&market=Lasalgaon+APMC")
	if status != http.StatusOK {
		t.Fatalf("status %d want 200: %s", status, body)
	}
	if !strings.Contains(body, "Lasalgaon APMC") || !strings.Contains(body, "prices look steady") {
		t.Fatalf("unexpected body %s", body)
	}
}

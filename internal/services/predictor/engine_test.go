package predictor

import (
	"testing"
	"time"

	"MandiCast/internal/domain/models"
	"MandiCast/internal/services/bundle"
	"MandiCast/internal/services/features"
	"MandiCast/pkg/logger"
)

type noopMetrics struct{}

func (noopMetrics) RecordPrediction(string, string)             {}
func (noopMetrics) RecordForecastDuration(string, float64)      {}
func (noopMetrics) RecordLastPrice(string, string, float64)     {}
func (noopMetrics) RecordVerdict(string)                        {}
func (noopMetrics) RecordOverride(string)                       {}
func (noopMetrics) RecordDrift(string)                          {}
func (noopMetrics) RecordAuditWriteFailure()                    {}
func (noopMetrics) RecordError(string)                          {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

// constantBundle predicts base+leaf regardless of input.
func constantBundle(price float64) *bundle.Bundle {
	return &bundle.Bundle{
		Config: bundle.CommodityConfig{
			Name:        "groundnut",
			Calendar:    "yearly",
			LagDays:     []int{7, 14, 30},
			LagAlpha:    0.3,
			MaxDailyPct: 3.0,
			LossPerDay:  0.25,
		},
		Model: &bundle.Ensemble{
			BaseScore: price,
			Trees:     []bundle.Tree{{Nodes: []bundle.Node{{Leaf: true, Value: 0}}}},
		},
		Features:    []string{"doy_sin", "doy_cos", "price_lag_7", "market_cat"},
		Markets:     []string{"Mysuru APMC"},
		Bias:        map[int]float64{},
		Medians:     map[string]map[int]float64{},
		Lags:        map[string]bundle.LagSnapshot{},
		Performance: bundle.Performance{CVConfidencePct: 88, MAE: 150},
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return &Engine{
		metrics: noopMetrics{},
		log:     testLogger(t),
		now:     func() time.Time { return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC) },
	}
}

func buildRow(b *bundle.Bundle, date time.Time) *features.Row {
	return features.NewBuilder(b).Build("Mysuru APMC", date, 10, features.Overrides{})
}

func TestPredictAppliesBiasCorrection(t *testing.T) {
	b := constantBundle(5000)
	b.Bias[6] = -120
	e := testEngine(t)

	p := e.predictRow(b, buildRow(b, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)), 10)
	if p.RawPrice != 5000 {
		t.Fatalf("raw %v", p.RawPrice)
	}
	if p.BiasCorrection != -120 || p.Price != 4880 {
		t.Fatalf("bias %v price %v", p.BiasCorrection, p.Price)
	}
}

func TestPredictAppliesFestivalBoost(t *testing.T) {
	b := constantBundle(5000)
	b.Festivals = []bundle.Festival{
		{Name: "Deepavali", Month: 10, Day: 20, BoostPct: 10, WindowDays: 5},
	}
	e := testEngine(t)

	p := e.predictRow(b, buildRow(b, time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC)), 10)
	if p.Festival != "Deepavali" || p.FestivalBoost != 10 {
		t.Fatalf("festival %q boost %v", p.Festival, p.FestivalBoost)
	}
	if p.Price != 5500 {
		t.Fatalf("boosted price %v want 5500", p.Price)
	}
}

func TestPredictEnforcesFloor(t *testing.T) {
	b := constantBundle(900)
	b.Config.Floor = bundle.FloorConfig{Absolute: 1000}
	e := testEngine(t)

	p := e.predictRow(b, buildRow(b, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)), 10)
	if p.Price != 1000 {
		t.Fatalf("price %v want floor 1000", p.Price)
	}
	if p.AboveFloor {
		t.Fatalf("floored prediction must not report above floor")
	}
	if p.FloorNote == "" {
		t.Fatalf("floored prediction must carry a note")
	}
	if p.PriceLow < 1000 {
		t.Fatalf("interval low %v below floor", p.PriceLow)
	}
}

func TestPredictRevenueAndSeason(t *testing.T) {
	b := constantBundle(5000)
	b.Config.Seasons = []bundle.SeasonalSignal{
		{Name: "harvest_season", PeakMonth: 6, Sharpness: 2},
	}
	e := testEngine(t)

	p := e.predictRow(b, buildRow(b, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)), 10)
	if p.Revenue != p.Price*10 {
		t.Fatalf("revenue %v", p.Revenue)
	}
	if p.Season != "harvest_season" {
		t.Fatalf("season %q", p.Season)
	}
	if p.Confidence < 5 || p.Confidence > 98 {
		t.Fatalf("confidence %v out of range", p.Confidence)
	}
}

func TestClampDailyPreservesDirection(t *testing.T) {
	// 3% of 1000 is 30
	if got := clampDaily(1100, 1000, 3); got != 1030 {
		t.Fatalf("upward clamp %v want 1030", got)
	}
	if got := clampDaily(900, 1000, 3); got != 970 {
		t.Fatalf("downward clamp %v want 970", got)
	}
	if got := clampDaily(1010, 1000, 3); got != 1010 {
		t.Fatalf("within-limit move %v should pass through", got)
	}
}

func TestBestStorageDayNetOfSpoilage(t *testing.T) {
	day := func(i int, price float64) models.ForecastPoint {
		return models.ForecastPoint{
			Date:  time.Date(2025, 6, 15+i, 0, 0, 0, 0, time.UTC),
			Price: price,
		}
	}
	points := []models.ForecastPoint{day(1, 1050), day(2, 1100), day(3, 1105)}

	// 1%/day spoilage: day 2 nets 1100*0.98 = 1078, day 3 nets 1105*0.97
	best := bestStorageDay(1000, points, 1.0, 0)
	if best.Index != 2 || best.NetPrice != 1078 {
		t.Fatalf("best %+v", best)
	}
	if best.GainPct != 7.8 {
		t.Fatalf("gain %v want 7.8", best.GainPct)
	}

	// a storage limit of one day leaves only day 1
	limited := bestStorageDay(1000, points, 1.0, 1)
	if limited.Index != 1 {
		t.Fatalf("limited %+v", limited)
	}

	// heavy spoilage: selling today wins with zero gain
	today := bestStorageDay(1000, points, 50.0, 0)
	if today.Index != 0 || today.Day != "Today" || today.GainPct != 0 {
		t.Fatalf("today %+v", today)
	}
}

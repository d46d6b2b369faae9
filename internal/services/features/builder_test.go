package features

import (
	"math"
	"testing"
	"time"

	"MandiCast/internal/domain/models"
	"MandiCast/internal/services/bundle"
)

func testBundle() *bundle.Bundle {
	return &bundle.Bundle{
		Config: bundle.CommodityConfig{
			Name:     "groundnut",
			Calendar: "yearly",
			LagDays:  []int{7, 14, 30},
			Seasons: []bundle.SeasonalSignal{
				{Name: "harvest_season", PeakMonth: 11, Sharpness: 2},
			},
			Weather: &bundle.WeatherNormals{
				Rainfall: [12]float64{0.1, 0.1, 0.2, 0.3, 0.5, 0.9, 1.0, 0.9, 0.7, 0.5, 0.2, 0.1},
				Tempmax:  [12]float64{0.6, 0.7, 0.8, 0.9, 1.0, 0.8, 0.7, 0.7, 0.7, 0.7, 0.6, 0.6},
			},
		},
		Markets: []string{"Mysuru APMC", "Hubballi"},
		Medians: map[string]map[int]float64{
			"Mysuru APMC": {1: 5000, 2: 5300, 12: 4800, 6: 5100, 7: 5100},
		},
		Lags: map[string]bundle.LagSnapshot{
			"Mysuru APMC": {
				Prices:     map[int]float64{7: 5200, 14: 5100, 30: 5000},
				LatestDate: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestCalendarContinuityAtYearEnd(t *testing.T) {
	b := NewBuilder(testBundle())
	dec31 := b.Build("Mysuru APMC", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), 10, Overrides{})
	jan1 := b.Build("Mysuru APMC", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 10, Overrides{})

	for _, k := range []string{"doy_sin", "doy_cos"} {
		d := math.Abs(dec31.Values[k] - jan1.Values[k])
		if d > 0.05 {
			t.Fatalf("%s jumps %.4f across the year boundary", k, d)
		}
	}
}

func TestWeatherInterpolationIsSmooth(t *testing.T) {
	b := NewBuilder(testBundle())
	may30 := b.Build("Mysuru APMC", time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC), 10, Overrides{})
	jun1 := b.Build("Mysuru APMC", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 10, Overrides{})

	d := math.Abs(may30.Values["rainfall"] - jun1.Values["rainfall"])
	if d > 0.1 {
		t.Fatalf("rainfall steps %.4f at the month boundary", d)
	}
	// end of May should be pulled well away from the May normal (0.5)
	// toward June (0.9)
	if may30.Values["rainfall"] < 0.8 {
		t.Fatalf("rainfall %.4f not interpolated toward june", may30.Values["rainfall"])
	}
}

func TestWeatherOverrideWins(t *testing.T) {
	b := NewBuilder(testBundle())
	sample := &models.WeatherSample{Rainfall: 3.2, Tempmax: 0.4}
	row := b.Build("Mysuru APMC", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), 10,
		Overrides{Weather: sample})
	if row.Values["rainfall"] != 3.2 || row.Values["tempmax"] != 0.4 {
		t.Fatalf("override not applied: %v %v", row.Values["rainfall"], row.Values["tempmax"])
	}
	if row.Context.WeatherMissing {
		t.Fatalf("weather should not be flagged missing with an override")
	}
}

func TestMedianBlendsAtMonthBoundary(t *testing.T) {
	b := NewBuilder(testBundle())
	jan1 := b.Build("Mysuru APMC", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 10, Overrides{})
	jan15 := b.Build("Mysuru APMC", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 10, Overrides{})

	mid := jan15.Values["median_price"]
	if mid != 5000 {
		t.Fatalf("mid-month median %v want 5000", mid)
	}
	// january 1st blends half toward the december median of 4800
	first := jan1.Values["median_price"]
	if first >= mid || first < 4800 {
		t.Fatalf("boundary median %v not blended toward december", first)
	}
}

func TestLagOverridesReplaceSnapshot(t *testing.T) {
	b := NewBuilder(testBundle())
	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	row := b.Build("Mysuru APMC", date, 10, Overrides{})
	if row.Values["price_lag_7"] != 5200 {
		t.Fatalf("snapshot lag %v", row.Values["price_lag_7"])
	}
	if row.Context.MomentumPoints != 3 {
		t.Fatalf("momentum %d want 3", row.Context.MomentumPoints)
	}

	over := b.Build("Mysuru APMC", date, 10, Overrides{Lags: map[int]float64{7: 6000}})
	if over.Values["price_lag_7"] != 6000 {
		t.Fatalf("override lag %v want 6000", over.Values["price_lag_7"])
	}
	if over.Values["price_lag_14"] != 5100 {
		t.Fatalf("non-overridden lag %v want 5100", over.Values["price_lag_14"])
	}
}

func TestStaleMarketDropsSnapshotLags(t *testing.T) {
	b := NewBuilder(testBundle())
	future := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	row := b.Build("Mysuru APMC", future, 10, Overrides{})
	if _, ok := row.Values["price_lag_7"]; ok {
		t.Fatalf("stale snapshot should not supply lags")
	}
	if row.Context.MomentumPoints != 0 {
		t.Fatalf("momentum %d want 0", row.Context.MomentumPoints)
	}
}

func TestContextFlagsDegradedInputs(t *testing.T) {
	raw := testBundle()
	raw.Config.Weather = nil
	b := NewBuilder(raw)
	row := b.Build("Hubballi", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), 10, Overrides{})
	if !row.Context.WeatherMissing {
		t.Fatalf("expected weather flagged missing")
	}
	if !row.Context.SeasonalDefault {
		t.Fatalf("market without medians should flag seasonal default")
	}
}

func TestVectorOrdersAndZeroFills(t *testing.T) {
	b := NewBuilder(testBundle())
	row := b.Build("Mysuru APMC", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), 10, Overrides{})
	x := row.Vector([]string{"price_lag_7", "not_a_feature", "market_cat"})
	if x[0] != 5200 || x[1] != 0 || x[2] != 0 {
		t.Fatalf("vector %v", x)
	}
}

func TestQuantityIsLogScaledWithFloor(t *testing.T) {
	b := NewBuilder(testBundle())
	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	zero := b.Build("Mysuru APMC", date, 0, Overrides{})
	if math.Abs(zero.Values["log_qty"]-math.Log1p(0.1)) > 1e-9 {
		t.Fatalf("zero quantity should floor at 0.1, got %v", zero.Values["log_qty"])
	}
}

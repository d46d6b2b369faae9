package features

import (
	"math"
	"strconv"
	"time"

	"MandiCast/internal/domain/models"
	"MandiCast/internal/services/bundle"
	"MandiCast/pkg/util"
)

// Overrides carries caller-supplied values that replace the bundle's
// static snapshots. The rolling forecaster feeds predicted prices back
// through Lags; Weather lets tests and backtests pin climate inputs.
type Overrides struct {
	Lags    map[int]float64
	Weather *models.WeatherSample
}

// Row is one model input: named feature values plus the context the
// overseer needs to judge input quality. Rows are built per call and
// never persisted.
type Row struct {
	Market  string
	Date    time.Time
	Values  map[string]float64
	Context models.FeatureContext
}

// Vector orders the row against the training-time feature list.
// Features the row does not carry become zero, never an error, so a
// model trained with extra columns still evaluates.
func (r *Row) Vector(featureList []string) []float64 {
	out := make([]float64, len(featureList))
	for i, name := range featureList {
		out[i] = r.Values[name]
	}
	return out
}

// Builder constructs feature rows from a commodity bundle.
type Builder struct {
	b *bundle.Bundle
}

func NewBuilder(b *bundle.Bundle) *Builder {
	return &Builder{b: b}
}

// Build assembles the row for (market, date, quantity). The market is
// resolved against the training vocabulary before anything else so the
// encoding and all market-keyed lookups agree on one name.
func (bl *Builder) Build(market string, date time.Time, quantity float64, ov Overrides) *Row {
	resolved, marketIdx := bl.b.ResolveMarket(market)
	row := &Row{
		Market: resolved,
		Date:   date,
		Values: map[string]float64{},
	}

	bl.calendar(row, date)
	bl.seasons(row, date)
	bl.weather(row, date, ov.Weather)
	bl.median(row, resolved, date)
	bl.lags(row, resolved, date, ov.Lags)

	row.Values["market_cat"] = float64(marketIdx)
	row.Values["month"] = float64(date.Month())
	row.Values["day"] = float64(date.Day())
	if quantity < 0.1 {
		quantity = 0.1
	}
	row.Values["log_qty"] = math.Log1p(quantity)

	return row
}

// calendar encodes the date as sine/cosine pairs so December and
// January sit next to each other in feature space.
func (bl *Builder) calendar(row *Row, date time.Time) {
	if bl.b.Config.Calendar == "weekly" {
		dow := float64(date.Weekday())
		row.Values["dow_sin"] = math.Sin(2 * math.Pi * dow / 7)
		row.Values["dow_cos"] = math.Cos(2 * math.Pi * dow / 7)
		return
	}
	doy := float64(date.YearDay())
	week := float64(util.WeekOfYear(date))
	row.Values["doy_sin"] = math.Sin(2 * math.Pi * doy / 365)
	row.Values["doy_cos"] = math.Cos(2 * math.Pi * doy / 365)
	row.Values["week_sin"] = math.Sin(2 * math.Pi * week / 52)
	row.Values["week_cos"] = math.Cos(2 * math.Pi * week / 52)
}

func (bl *Builder) seasons(row *Row, date time.Time) {
	fm := bundle.FractionalMonth(date)
	for _, s := range bl.b.Config.Seasons {
		row.Values[s.Name] = bundle.SeasonalValue(fm, s.PeakMonth, s.Sharpness)
	}
}

func (bl *Builder) weather(row *Row, date time.Time, sample *models.WeatherSample) {
	if sample != nil {
		row.Values["rainfall"] = sample.Rainfall
		row.Values["tempmax"] = sample.Tempmax
		return
	}
	norms := bl.b.Config.Weather
	if norms == nil {
		row.Context.WeatherMissing = true
		return
	}
	row.Values["rainfall"] = bundle.WeatherAt(norms.Rainfall, date)
	row.Values["tempmax"] = bundle.WeatherAt(norms.Tempmax, date)
}

// median looks up the market's monthly median baseline, blending with
// the adjacent month inside a 5-day window at each boundary so the
// feature does not step on the 1st.
func (bl *Builder) median(row *Row, market string, date time.Time) {
	byMonth, ok := bl.b.Medians[market]
	if !ok || len(byMonth) == 0 {
		row.Context.SeasonalDefault = true
		return
	}
	m := int(date.Month())
	cur := byMonth[m]
	day := date.Day()
	days := util.DaysInMonth(date)

	switch {
	case day <= 5:
		if prev, ok := byMonth[util.PrevMonth(m)]; ok {
			w := float64(6-day) / 10
			cur = cur*(1-w) + prev*w
		}
	case day >= days-4:
		if next, ok := byMonth[util.NextMonth(m)]; ok {
			w := float64(day-(days-5)) / 10
			cur = cur*(1-w) + next*w
		}
	}
	row.Values["median_price"] = cur
}

// lags fills price_lag_<d> features. Caller overrides win; otherwise
// the bundle snapshot supplies values only while the market is fresh.
func (bl *Builder) lags(row *Row, market string, date time.Time, overrides map[int]float64) {
	var snap map[int]float64
	if bl.b.MarketFresh(market, date) {
		snap = bl.b.Lags[market].Prices
	}
	for _, d := range bl.b.Config.LagDays {
		v, ok := overrides[d]
		if !ok {
			v, ok = snap[d]
		}
		if !ok {
			continue
		}
		row.Values[lagName(d)] = v
		row.Context.MomentumPoints++
	}
}

func lagName(days int) string {
	return "price_lag_" + strconv.Itoa(days)
}

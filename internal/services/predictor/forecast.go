package predictor

import (
	"context"
	"fmt"
	"math"
	"time"

	"MandiCast/internal/domain/models"
	"MandiCast/internal/services/bundle"
	"MandiCast/internal/services/features"
	"MandiCast/pkg/logger"
)

// Forecast produces a rolling day-by-day forecast. Each day's row is
// built with lag values blended toward the previous predictions, and
// the day's price is clamped to the commodity's maximum daily move so
// a single bad tree cannot send the curve vertical.
func (e *Engine) Forecast(ctx context.Context, commodity, market string, days int, quantity float64, storageDays int) (models.Forecast, error) {
	start := time.Now()
	b, err := e.registry.Get(commodity)
	if err != nil {
		e.metrics.RecordError("bundle_load")
		return models.Forecast{}, err
	}
	if days <= 0 {
		return models.Forecast{}, fmt.Errorf("forecast horizon must be positive, got %d", days)
	}

	builder := features.NewBuilder(b)
	today := e.now().Truncate(24 * time.Hour)

	row := builder.Build(market, today, quantity, features.Overrides{})
	todayPred := e.predictRow(b, row, quantity)

	lags := seedLags(b, row.Market, today, todayPred.Price)
	alpha := b.Config.LagAlpha
	if alpha <= 0 {
		alpha = 0.3
	}

	points := make([]models.ForecastPoint, 0, days)
	prev := todayPred.Price
	for i := 1; i <= days; i++ {
		date := today.AddDate(0, 0, i)
		dayRow := builder.Build(market, date, quantity, features.Overrides{Lags: lags})
		p := e.predictRow(b, dayRow, quantity)

		price := clampDaily(p.Price, prev, b.Config.MaxDailyPct)
		points = append(points, models.ForecastPoint{
			Date:       date,
			Price:      round2(price),
			Festival:   p.Festival,
			AboveFloor: p.AboveFloor,
		})

		for d, v := range lags {
			lags[d] = alpha*price + (1-alpha)*v
		}
		prev = price
	}

	fc := row.Context
	f := models.Forecast{
		Today:   todayPred,
		Points:  points,
		BestDay: bestStorageDay(todayPred.Price, points, b.Config.LossPerDay, storageDays),
		Context: &fc,
	}
	if todayPred.Price > 0 {
		last := points[len(points)-1].Price
		f.TrendPct = math.Round((last-todayPred.Price)/todayPred.Price*1000) / 10
	}

	f.Today.Decision = models.ActionSell
	if f.BestDay.GainPct > 0 {
		f.Today.Decision = models.ActionHold
	}

	e.metrics.RecordForecastDuration(b.Config.Name, time.Since(start).Seconds())
	e.log.Debug("forecast built",
		logger.String("commodity", b.Config.Name),
		logger.String("market", row.Market),
		logger.Int("days", days),
		logger.Any("trend_pct", f.TrendPct))
	return f, nil
}

// seedLags starts the rolling lag trackers from the bundle snapshot
// when the market is fresh, otherwise from today's prediction.
func seedLags(b *bundle.Bundle, market string, asOf time.Time, todayPrice float64) map[int]float64 {
	lags := make(map[int]float64, len(b.Config.LagDays))
	var snap map[int]float64
	if b.MarketFresh(market, asOf) {
		snap = b.Lags[market].Prices
	}
	for _, d := range b.Config.LagDays {
		if v, ok := snap[d]; ok {
			lags[d] = v
		} else {
			lags[d] = todayPrice
		}
	}
	return lags
}

// clampDaily limits the move from prev to price to maxPct percent,
// preserving the direction of the move.
func clampDaily(price, prev, maxPct float64) float64 {
	if prev <= 0 || maxPct <= 0 {
		return price
	}
	limit := prev * maxPct / 100
	switch {
	case price > prev+limit:
		return prev + limit
	case price < prev-limit:
		return prev - limit
	}
	return price
}

// bestStorageDay scans the forecast net of spoilage and picks the day
// with the highest net price. Holding only wins when the net beats
// selling today; otherwise the best day is today with zero gain.
func bestStorageDay(todayPrice float64, points []models.ForecastPoint, lossPerDay float64, storageDays int) models.BestDay {
	best := models.BestDay{Day: "Today", Price: todayPrice, NetPrice: todayPrice}
	limit := len(points)
	if storageDays > 0 && storageDays < limit {
		limit = storageDays
	}
	for i := 0; i < limit; i++ {
		decay := 1 - lossPerDay*float64(i+1)/100
		if decay < 0 {
			decay = 0
		}
		net := points[i].Price * decay
		if net > best.NetPrice {
			best = models.BestDay{
				Day:      fmt.Sprintf("Day %d", i+1),
				Index:    i + 1,
				Price:    points[i].Price,
				NetPrice: round2(net),
			}
		}
	}
	if todayPrice > 0 && best.NetPrice > todayPrice {
		best.GainPct = math.Round((best.NetPrice-todayPrice)/todayPrice*1000) / 10
	}
	return best
}

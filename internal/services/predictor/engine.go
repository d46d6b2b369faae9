package predictor

import (
	"context"
	"fmt"
	"math"
	"time"

	"MandiCast/internal/domain/models"
	"MandiCast/internal/domain/repository"
	"MandiCast/internal/services/bundle"
	"MandiCast/internal/services/features"
	"MandiCast/pkg/logger"
)

// Engine is the single forecasting engine serving every commodity.
// Behavioural differences live in the commodity bundle, not in code.
type Engine struct {
	registry *bundle.Registry
	metrics  repository.Metrics
	log      *logger.Logger
	now      func() time.Time
}

func NewEngine(registry *bundle.Registry, metrics repository.Metrics, log *logger.Logger) *Engine {
	return &Engine{registry: registry, metrics: metrics, log: log, now: time.Now}
}

// Predict produces today's price estimate with its confidence interval.
func (e *Engine) Predict(ctx context.Context, commodity, market string, date time.Time, quantity float64) (models.Prediction, error) {
	b, err := e.registry.Get(commodity)
	if err != nil {
		e.metrics.RecordError("bundle_load")
		return models.Prediction{}, err
	}
	row := features.NewBuilder(b).Build(market, date, quantity, features.Overrides{})
	p := e.predictRow(b, row, quantity)
	e.metrics.RecordPrediction(b.Config.Name, p.Market)
	e.metrics.RecordLastPrice(b.Config.Name, p.Market, p.Price)
	return p, nil
}

// predictRow runs the full single-day pipeline on an already built row:
// ensemble, bias correction, festival multiplier, floor clamp, interval.
func (e *Engine) predictRow(b *bundle.Bundle, row *features.Row, quantity float64) models.Prediction {
	x := row.Vector(b.Features)
	raw := b.Model.Predict(x)

	bias := b.Bias[int(row.Date.Month())]
	price := raw + bias
	if price <= 0 && b.Config.DefaultPrice > 0 {
		price = b.Config.DefaultPrice
	}

	fest, hasFest := b.FestivalFor(row.Date)
	if hasFest {
		price *= 1 + fest.BoostPct/100
	}

	iv := EstimateInterval(b.Model, x)
	low, high := iv.Low, iv.High
	low += bias
	high += bias
	if hasFest {
		low *= 1 + fest.BoostPct/100
		high *= 1 + fest.BoostPct/100
	}

	floor := b.Config.Floor.Value()
	aboveFloor := true
	floorNote := ""
	if floor > 0 && price < floor {
		price = floor
		aboveFloor = false
		floorNote = fmt.Sprintf("raised to support price %.0f", floor)
	}
	if floor > 0 && low < floor {
		low = floor
	}
	if high < price {
		high = price
	}
	if low > price {
		low = price
	}

	p := models.Prediction{
		Commodity:      b.Config.Name,
		Market:         row.Market,
		Date:           row.Date,
		Price:          round2(price),
		RawPrice:       round2(raw),
		BiasCorrection: round2(bias),
		AboveFloor:     aboveFloor,
		FloorNote:      floorNote,
		Season:         b.SeasonFor(row.Date),
		Quantity:       quantity,
		Revenue:        round2(price * quantity),
		PriceLow:       round2(low),
		PriceHigh:      round2(high),
		RiskLevel:      iv.Risk,
		Confidence:     ScenarioConfidence(b.Performance.CVConfidencePct, iv),
		ModelMAE:       b.Performance.MAE,
	}
	if !b.Performance.BuiltAt.IsZero() {
		p.ModelBuiltAt = b.Performance.BuiltAt.Format("2006-01-02")
	}
	if hasFest {
		p.Festival = fest.Name
		p.FestivalBoost = fest.BoostPct
	}

	// Hint only; the rolling forecast makes the real hold/sell call.
	if med, ok := row.Values["median_price"]; ok && med > 0 && price < med {
		p.Decision = models.ActionHold
	} else {
		p.Decision = models.ActionSell
	}
	return p
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"MandiCast/internal/domain/models"
	domrepo "MandiCast/internal/domain/repository"
	domsvc "MandiCast/internal/domain/service"
	"MandiCast/pkg/logger"
)

// Advisor runs the full advice pipeline: forecast, recommendation
// assembly, oversight, optional prose explanation. The overseer's
// verdict is final; the advisor never second-guesses an override.
type Advisor struct {
	forecaster domsvc.Forecaster
	overseer   domsvc.Overseer
	explainer  domsvc.Explainer
	tracking   domrepo.ForecastTracking
	log        *logger.Logger
}

func NewAdvisor(
	forecaster domsvc.Forecaster,
	overseer domsvc.Overseer,
	explainer domsvc.Explainer,
	tracking domrepo.ForecastTracking,
	log *logger.Logger,
) *Advisor {
	return &Advisor{
		forecaster: forecaster,
		overseer:   overseer,
		explainer:  explainer,
		tracking:   tracking,
		log:        log,
	}
}

// Advise forecasts, assembles a recommendation and submits it to the
// overseer. The issued forecast is also recorded for later accuracy
// scoring when the actual price arrives.
func (a *Advisor) Advise(ctx context.Context, commodity, market string, quantity float64, horizonDays, storageDays int) (models.Advice, error) {
	forecast, err := a.forecaster.Forecast(ctx, commodity, market, horizonDays, quantity, storageDays)
	if err != nil {
		return models.Advice{}, fmt.Errorf("forecast %s/%s: %w", commodity, market, err)
	}

	rec := recommendationFrom(&forecast)
	subjectID := fmt.Sprintf("%s:%s:%s", rec.Commodity, rec.Market,
		forecast.Today.Date.Format("2006-01-02"))

	oversight, err := a.overseer.Evaluate(ctx, rec, &forecast, forecast.Context, subjectID)
	if err != nil {
		return models.Advice{}, fmt.Errorf("oversight %s: %w", subjectID, err)
	}

	advice := models.Advice{
		Recommendation: rec,
		Forecast:       &forecast,
		Oversight:      oversight,
	}

	if a.explainer != nil {
		text, err := a.explainer.Explain(ctx, advice)
		if err != nil {
			a.log.Warn("explanation unavailable", logger.Error(err),
				logger.String("subject", subjectID))
		} else {
			advice.Explanation = text
		}
	}

	a.trackForecast(ctx, &forecast)
	return advice, nil
}

// recommendationFrom condenses a forecast into the selling advice the
// overseer evaluates.
func recommendationFrom(f *models.Forecast) models.Recommendation {
	rec := models.Recommendation{
		Commodity:    f.Today.Commodity,
		Market:       f.Today.Market,
		CurrentPrice: f.Today.Price,
		PeakPrice:    f.BestDay.Price,
		WaitDays:     f.BestDay.Index,
		RiskLevel:    f.Today.RiskLevel,
		Action:       models.ActionSell,
	}
	if f.BestDay.Index > 0 && f.BestDay.GainPct > 0 {
		rec.Action = models.ActionHold
	}
	return rec
}

// trackForecast records the horizon-end prediction so the accuracy
// check has something to score once the actual price settles.
// Tracking failures are logged and swallowed; they must not block advice.
func (a *Advisor) trackForecast(ctx context.Context, f *models.Forecast) {
	if len(f.Points) == 0 {
		return
	}
	last := f.Points[len(f.Points)-1]
	err := a.tracking.RecordPrediction(ctx, &models.TrackingRecord{
		Commodity:      f.Today.Commodity,
		Market:         f.Today.Market,
		TargetDate:     last.Date,
		PredictedPrice: last.Price,
		RecordedAt:     time.Now(),
	})
	if err != nil {
		a.log.Warn("forecast tracking failed", logger.Error(err),
			logger.String("commodity", f.Today.Commodity))
	}
}

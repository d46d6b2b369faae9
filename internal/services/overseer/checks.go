package overseer

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"MandiCast/internal/domain/models"
	"MandiCast/pkg/logger"
)

// checkForecastSanity inspects the forecast curve for moves no real
// mandi produces: unrealistic spikes, sharp declines, excessive hold
// horizons and noisy curves. Each finding counts as an anomaly.
func (s *Service) checkForecastSanity(ev *evaluation, forecast *models.Forecast) {
	rec := ev.rec

	if rec.CurrentPrice > 0 && rec.PeakPrice > 0 {
		gainPct := (rec.PeakPrice - rec.CurrentPrice) / rec.CurrentPrice * 100
		if gainPct > s.cfg.SpikePct {
			ev.anomalies++
			ev.penalize(s.cfg.SpikePenalty)
			ev.warn(WarnUnrealisticSpike, models.SeverityHigh,
				fmt.Sprintf("forecast peak is %.1f%% above current price", gainPct),
				fmt.Sprintf("current=%.2f peak=%.2f", rec.CurrentPrice, rec.PeakPrice))
		}
	}

	if forecast != nil && rec.CurrentPrice > 0 {
		if min, ok := minPrice(forecast.Prices()); ok {
			dropPct := (rec.CurrentPrice - min) / rec.CurrentPrice * 100
			if dropPct > s.cfg.DeclinePct {
				ev.anomalies++
				ev.penalize(s.cfg.DeclinePenalty)
				ev.warn(WarnSharpDecline, models.SeverityMedium,
					fmt.Sprintf("forecast predicts a %.1f%% decline", dropPct),
					fmt.Sprintf("current=%.2f forecast_min=%.2f", rec.CurrentPrice, min))
			}
		}
	}

	if rec.WaitDays > s.cfg.LongHoldDays {
		ev.anomalies++
		ev.penalize(s.cfg.LongHoldPenalty)
		ev.warn(WarnExcessiveHold, models.SeverityMedium,
			fmt.Sprintf("hold period of %d days exceeds the %d-day limit", rec.WaitDays, s.cfg.LongHoldDays), "")
	}

	if forecast != nil {
		if cv, ok := coefficientOfVariation(forecast.Prices()); ok && cv > s.cfg.VariationLimit {
			ev.anomalies++
			ev.penalize(s.cfg.VariancePenalty)
			ev.warn(WarnHighVariance, models.SeverityMedium,
				fmt.Sprintf("forecast variation %.2f exceeds %.2f", cv, s.cfg.VariationLimit), "")
		}
	}

	if strings.EqualFold(rec.RiskLevel, "high") {
		if spec, ok := s.cfg.Perishables[strings.ToLower(rec.Commodity)]; ok {
			ev.penalize(s.cfg.PerishableVolPenalty * spec.RiskMultiplier)
			ev.warn(WarnPerishableVolatility, models.SeverityMedium,
				"high model risk on a perishable commodity", "")
		} else {
			ev.penalize(s.cfg.HighRiskPenalty)
		}
	}
}

// checkBaseline cross-validates the claimed peak against a naive
// trend extrapolation of the observed history: continue the window's
// average daily change out to the recommended wait day, and flag peaks
// the naive model cannot come close to. A short history cannot prove
// divergence, so it only yields a low-severity warning.
func (s *Service) checkBaseline(ctx context.Context, ev *evaluation) {
	rec := ev.rec
	to := s.now()
	from := to.AddDate(0, 0, -s.cfg.CrossValWindowDays)
	points, err := s.history.Range(ctx, rec.Commodity, rec.Market, from, to)
	if err != nil {
		s.log.Warn("price history unavailable", logger.Error(err),
			logger.String("commodity", rec.Commodity))
		ev.warn(WarnInsufficientCrossval, models.SeverityLow,
			"price history unavailable for cross-validation", err.Error())
		return
	}
	if len(points) < s.cfg.CrossValMinPoints {
		ev.warn(WarnInsufficientCrossval, models.SeverityLow,
			fmt.Sprintf("only %d price points in the last %d days", len(points), s.cfg.CrossValWindowDays), "")
		return
	}

	projected := trendProjection(points, rec.WaitDays)
	if projected <= 0 || rec.PeakPrice <= 0 {
		return
	}
	divergence := math.Abs(rec.PeakPrice-projected) / projected * 100
	if divergence > s.cfg.DivergencePct {
		ev.anomalies++
		ev.penalize(s.cfg.DivergencePenalty)
		ev.warn(WarnBaselineDivergence, models.SeverityHigh,
			fmt.Sprintf("claimed peak diverges %.1f%% from the %d-day trend extrapolation", divergence, s.cfg.CrossValWindowDays),
			fmt.Sprintf("peak=%.2f projected=%.2f", rec.PeakPrice, projected))
	}
}

// trendProjection continues the window's average daily change from its
// newest observation out days ahead. Point order is not assumed.
func trendProjection(points []models.PricePoint, days int) float64 {
	first, last := points[0], points[0]
	for _, p := range points[1:] {
		if p.Date.Before(first.Date) {
			first = p
		}
		if p.Date.After(last.Date) {
			last = p
		}
	}
	span := last.Date.Sub(first.Date).Hours() / 24
	if span <= 0 {
		return last.Price
	}
	perDay := (last.Price - first.Price) / span
	return last.Price + perDay*float64(days)
}

// checkPerishable enforces storage-safety limits. A hold past the safe
// window is not advice a farmer can act on, so the wait is overridden
// rather than merely flagged.
func (s *Service) checkPerishable(ev *evaluation) {
	rec := ev.rec
	spec, ok := s.cfg.Perishables[strings.ToLower(rec.Commodity)]
	if !ok || spec.MaxSafeDays <= 0 {
		return
	}

	switch {
	case rec.WaitDays > spec.MaxSafeDays:
		ev.penalize(s.cfg.PerishableOverridePenalty)
		reason := fmt.Sprintf("%s spoils after %d days of storage", rec.Commodity, spec.MaxSafeDays)
		ev.override("action", rec.Action, models.ActionSellNow, reason)
		ev.override("wait_days", strconv.Itoa(rec.WaitDays), "0", reason)
		ev.warn(WarnPerishableOverride, models.SeverityHigh,
			fmt.Sprintf("hold of %d days exceeds the %d-day safe storage window, sell now", rec.WaitDays, spec.MaxSafeDays), "")
	case rec.WaitDays*2 > spec.MaxSafeDays:
		ev.penalize(s.cfg.PerishableHoldPenalty)
		ev.warn(WarnPerishableHoldRisk, models.SeverityMedium,
			fmt.Sprintf("hold of %d days is past half the %d-day safe storage window", rec.WaitDays, spec.MaxSafeDays), "")
	}
}

// checkInputQuality penalises recommendations built on degraded
// features. A nil context means no features at all, the worst case.
func (s *Service) checkInputQuality(ev *evaluation, fc *models.FeatureContext) {
	if fc == nil {
		ev.penalize(s.cfg.MissingFeaturesPenalty)
		ev.warn(WarnNoFeatures, models.SeverityMedium,
			"no advanced features were computed for this recommendation", "")
		return
	}
	if fc.MomentumPoints < s.cfg.MinMomentumPoints {
		ev.penalize(s.cfg.SparseMomentumPenalty)
		ev.warn(WarnSparsePriceData, models.SeverityLow,
			fmt.Sprintf("only %d of %d momentum points available", fc.MomentumPoints, s.cfg.MinMomentumPoints), "")
	}
	if fc.SeasonalDefault {
		ev.penalize(s.cfg.DefaultSeasonalPenalty)
		ev.warn(WarnDefaultSeasonal, models.SeverityLow,
			"seasonal baseline fell back to defaults", "")
	}
	if fc.WeatherMissing {
		ev.penalize(s.cfg.NoWeatherPenalty)
		ev.warn(WarnNoWeatherHistory, models.SeverityLow,
			"no weather history backed this recommendation", "")
	}
}

// checkAccuracy scores the model against its own recent track record.
func (s *Service) checkAccuracy(ctx context.Context, ev *evaluation) {
	since := s.now().AddDate(0, 0, -s.cfg.AccuracyWindowDays)
	errs, err := s.tracking.ErrorHistory(ctx, ev.rec.Commodity, since)
	if err != nil {
		s.log.Warn("accuracy history unavailable", logger.Error(err),
			logger.String("commodity", ev.rec.Commodity))
		return
	}
	if len(errs) == 0 {
		ev.warn(WarnNoAccuracyHistory, models.SeverityLow,
			"no settled forecasts to score accuracy against", "")
		return
	}

	sum := 0.0
	for _, e := range errs {
		sum += math.Abs(e)
	}
	meanErr := sum / float64(len(errs))
	switch {
	case meanErr > s.cfg.AccuracyHighPct:
		ev.penalize(s.cfg.AccuracyHighPenalty)
		ev.warn(WarnHighHistoricalError, models.SeverityHigh,
			fmt.Sprintf("mean forecast error %.1f%% over the last %d days", meanErr, s.cfg.AccuracyWindowDays), "")
	case meanErr > s.cfg.AccuracyModeratePct:
		ev.penalize(s.cfg.AccuracyModeratePenalty)
		ev.warn(WarnModerateHistError, models.SeverityMedium,
			fmt.Sprintf("mean forecast error %.1f%% over the last %d days", meanErr, s.cfg.AccuracyWindowDays), "")
	}
}

func minPrice(prices []float64) (float64, bool) {
	if len(prices) == 0 {
		return 0, false
	}
	min := prices[0]
	for _, p := range prices[1:] {
		if p < min {
			min = p
		}
	}
	return min, true
}

// coefficientOfVariation is sample stddev over mean.
func coefficientOfVariation(prices []float64) (float64, bool) {
	if len(prices) < 2 {
		return 0, false
	}
	mean := 0.0
	for _, p := range prices {
		mean += p
	}
	mean /= float64(len(prices))
	if mean == 0 {
		return 0, false
	}
	ss := 0.0
	for _, p := range prices {
		d := p - mean
		ss += d * d
	}
	return math.Sqrt(ss/float64(len(prices)-1)) / mean, true
}

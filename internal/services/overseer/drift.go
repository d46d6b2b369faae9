package overseer

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"MandiCast/internal/domain/models"
	"MandiCast/pkg/logger"
)

// checkDrift compares the recent price window against the preceding
// baseline window. Detection penalises confidence; a severe shift also
// changes the recommendation itself, because telling a farmer to hold
// through a collapsing market is worse than a wrong number.
func (s *Service) checkDrift(ctx context.Context, ev *evaluation) {
	rec := ev.rec
	now := s.now()
	recentFrom := now.AddDate(0, 0, -s.cfg.DriftRecentDays)
	baselineFrom := now.AddDate(0, 0, -s.cfg.DriftBaselineDays)

	points, err := s.history.Range(ctx, rec.Commodity, rec.Market, baselineFrom, now)
	if err != nil {
		s.log.Warn("drift history unavailable", logger.Error(err),
			logger.String("commodity", rec.Commodity))
		return
	}

	var recentSum, baseSum float64
	var recentN, baseN int
	for _, p := range points {
		if p.Date.After(recentFrom) {
			recentSum += p.Price
			recentN++
		} else {
			baseSum += p.Price
			baseN++
		}
	}
	if recentN == 0 || baseN == 0 || baseSum == 0 {
		return
	}

	recentMean := recentSum / float64(recentN)
	baseMean := baseSum / float64(baseN)
	shift := (recentMean - baseMean) / baseMean * 100

	ev.drift = models.DriftStatus{
		ShiftPct:     math.Round(shift*10) / 10,
		RecentMean:   math.Round(recentMean*100) / 100,
		BaselineMean: math.Round(baseMean*100) / 100,
		Direction:    "upward",
	}
	if shift < 0 {
		ev.drift.Direction = "downward"
	}

	if math.Abs(shift) <= s.cfg.DriftShiftPct {
		return
	}

	ev.drift.Detected = true
	ev.drift.Detail = fmt.Sprintf("recent %d-day mean shifted %.1f%% against the %d-day baseline",
		s.cfg.DriftRecentDays, shift, s.cfg.DriftBaselineDays)
	ev.penalize(s.cfg.DriftPenalty)
	ev.warn(WarnDriftDetected, models.SeverityMedium, ev.drift.Detail, "")
	s.metrics.RecordDrift(rec.Commodity)

	if math.Abs(shift) <= s.cfg.DriftReactionPct {
		ev.warn(WarnDriftConservative, models.SeverityLow,
			"market drifting, treating forecast conservatively", "")
		return
	}
	s.reactToDrift(ev, shift)
}

// reactToDrift adjusts the recommendation under a severe shift.
func (s *Service) reactToDrift(ev *evaluation, shift float64) {
	rec := ev.rec

	if shift < 0 && rec.Action == models.ActionHold {
		ev.override("action", rec.Action, models.ActionSellNow,
			fmt.Sprintf("market dropped %.1f%% recently, holding is unsafe", -shift))
		ev.warn(WarnDriftForcedSell, models.SeverityHigh,
			"severe downward drift, advising immediate sale", "")
		return
	}

	if rec.Action == models.ActionHold && rec.WaitDays > s.cfg.DriftMaxHoldDays {
		ev.override("wait_days",
			strconv.Itoa(rec.WaitDays), strconv.Itoa(s.cfg.DriftMaxHoldDays),
			fmt.Sprintf("market shifted %.1f%%, long holds are unreliable", shift))
		ev.warn(WarnDriftHorizonReduced, models.SeverityMedium,
			fmt.Sprintf("hold horizon reduced to %d days under drift", s.cfg.DriftMaxHoldDays), "")
		return
	}

	ev.warn(WarnDriftConservative, models.SeverityLow,
		"market drifting, treating forecast conservatively", "")
}

package overseer

// Warning codes emitted by the checks. Codes are stable identifiers
// consumed by the audit trail and downstream dashboards; messages are
// free to change, codes are not.
const (
	WarnUnrealisticSpike     = "UNREALISTIC_SPIKE"
	WarnSharpDecline         = "SHARP_DECLINE_PREDICTED"
	WarnExcessiveHold        = "EXCESSIVE_HOLD_PERIOD"
	WarnHighVariance         = "HIGH_FORECAST_VARIANCE"
	WarnBaselineDivergence   = "FORECAST_BASELINE_DIVERGENCE"
	WarnInsufficientCrossval = "INSUFFICIENT_CROSSVAL_DATA"
	WarnPerishableHoldRisk   = "PERISHABLE_HOLD_RISK"
	WarnPerishableOverride   = "PERISHABLE_OVERRIDE"
	WarnPerishableVolatility = "PERISHABLE_HIGH_VOLATILITY"
	WarnNoFeatures           = "NO_FEATURES_COMPUTED"
	WarnSparsePriceData      = "SPARSE_PRICE_DATA"
	WarnDefaultSeasonal      = "DEFAULT_SEASONAL_DATA"
	WarnNoWeatherHistory     = "NO_WEATHER_HISTORY"
	WarnDriftDetected        = "DRIFT_DETECTED"
	WarnDriftHorizonReduced  = "DRIFT_HORIZON_REDUCED"
	WarnDriftForcedSell      = "DRIFT_FORCED_SELL"
	WarnDriftConservative    = "DRIFT_CONSERVATIVE_MODE"
	WarnNoAccuracyHistory    = "NO_ACCURACY_HISTORY"
	WarnHighHistoricalError  = "HIGH_HISTORICAL_ERROR"
	WarnModerateHistError    = "MODERATE_HISTORICAL_ERROR"
)

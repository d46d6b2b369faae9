package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions      *prometheus.CounterVec
	forecastDuration *prometheus.HistogramVec
	lastPrice        *prometheus.GaugeVec
	verdicts         *prometheus.CounterVec
	overrides        *prometheus.CounterVec
	driftDetected    *prometheus.CounterVec
	auditFailures    prometheus.Counter
	errorsTotal      *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		predictions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mandicast_predictions_total",
				Help: "Total number of point predictions produced",
			},
			[]string{"commodity", "market"},
		),
		forecastDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mandicast_forecast_duration_seconds",
				Help:    "Duration of rolling forecast runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"commodity"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mandicast_last_predicted_price",
				Help: "Last predicted price for a commodity in a market",
			},
			[]string{"commodity", "market"},
		),
		verdicts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mandicast_overseer_verdicts_total",
				Help: "Overseer verdicts by outcome",
			},
			[]string{"verdict"},
		),
		overrides: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mandicast_overseer_overrides_total",
				Help: "Overseer overrides by warning code",
			},
			[]string{"code"},
		),
		driftDetected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mandicast_drift_detected_total",
				Help: "Drift detections by commodity",
			},
			[]string{"commodity"},
		),
		auditFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mandicast_audit_write_failures_total",
				Help: "Audit log writes that failed and were swallowed",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mandicast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordPrediction counts a point prediction.
func (r *Recorder) RecordPrediction(commodity, market string) {
	r.predictions.WithLabelValues(commodity, market).Inc()
}

// RecordForecastDuration records one rolling forecast run.
func (r *Recorder) RecordForecastDuration(commodity string, seconds float64) {
	r.forecastDuration.WithLabelValues(commodity).Observe(seconds)
}

// RecordLastPrice records the last predicted price.
func (r *Recorder) RecordLastPrice(commodity, market string, price float64) {
	r.lastPrice.WithLabelValues(commodity, market).Set(price)
}

// RecordVerdict counts an overseer verdict.
func (r *Recorder) RecordVerdict(verdict string) {
	r.verdicts.WithLabelValues(verdict).Inc()
}

// RecordOverride counts an overseer override by warning code.
func (r *Recorder) RecordOverride(code string) {
	r.overrides.WithLabelValues(code).Inc()
}

// RecordDrift counts a drift detection.
func (r *Recorder) RecordDrift(commodity string) {
	r.driftDetected.WithLabelValues(commodity).Inc()
}

// RecordAuditWriteFailure counts a swallowed audit write failure.
func (r *Recorder) RecordAuditWriteFailure() {
	r.auditFailures.Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	predictions     *prometheus.CounterVec
	predictLatency  *prometheus.HistogramVec
	modelMSE        *prometheus.GaugeVec
	modelR2         *prometheus.GaugeVec
	trainingSeconds prometheus.Histogram
	priceRows       prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricelens_predictions_total",
				Help: "Total number of predictions served",
			},
			[]string{"model", "result"},
		),
		predictLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pricelens_prediction_duration_seconds",
				Help:    "Time spent reconciling and predicting one row",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		modelMSE: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricelens_model_mse",
				Help: "Held-out mean squared error of the last training run",
			},
			[]string{"model"},
		),
		modelR2: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pricelens_model_r2",
				Help: "Held-out R2 of the last training run",
			},
			[]string{"model"},
		),
		trainingSeconds: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pricelens_training_seconds",
				Help:    "Duration of a full training run",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
		priceRows: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "pricelens_price_rows",
				Help: "Rows in the last loaded price table",
			},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricelens_cache_lookups_total",
				Help: "Price table cache lookups by result",
			},
			[]string{"result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricelens_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordPrediction records one prediction attempt and its latency.
func (r *Recorder) RecordPrediction(model, result string, seconds float64) {
	r.predictions.WithLabelValues(model, result).Inc()
	r.predictLatency.WithLabelValues(model).Observe(seconds)
}

// RecordModelScore publishes held-out scores for a model.
func (r *Recorder) RecordModelScore(model string, mse, r2 float64) {
	r.modelMSE.WithLabelValues(model).Set(mse)
	r.modelR2.WithLabelValues(model).Set(r2)
}

func (r *Recorder) RecordTrainingDuration(seconds float64) {
	r.trainingSeconds.Observe(seconds)
}

func (r *Recorder) RecordPriceRows(n int) {
	r.priceRows.Set(float64(n))
}

// RecordCacheLookup counts a cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordPrediction(string, string, float64)  {}
func (Nop) RecordModelScore(string, float64, float64) {}
func (Nop) RecordTrainingDuration(float64)            {}
func (Nop) RecordPriceRows(int)                       {}
func (Nop) RecordCacheLookup(bool)                    {}
func (Nop) RecordError(string)                        {}

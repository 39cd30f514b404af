package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-optimum/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It provides real-time monitoring of judging throughput, latency, and the
// quality of the optimal set for every judge.
//
// The metric names exported by this package map to dedicated vectors. Any
// other name passed through the MetricsCollector methods, for example by a
// custom JudgeObserver, is recorded under optimum_operations_total,
// optimum_system_state or optimum_values with the name as the operation or
// metric label, so no observation is dropped.
type PrometheusMetrics struct {
	trialsJudged      *prometheus.CounterVec
	judgeLatency      *prometheus.HistogramVec
	bestSatisfaction  *prometheus.GaugeVec
	optimalSolutions  *prometheus.GaugeVec
	trialSatisfaction *prometheus.HistogramVec
	operationCounter  *prometheus.CounterVec
	systemGauges      *prometheus.GaugeVec
	valueHistogram    *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all metrics with reg. Pass prometheus.DefaultRegisterer to use the global
// registry, or a fresh prometheus.NewRegistry() in tests.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		// Judge-specific metrics.
		trialsJudged: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optimum_trials_judged_total",
				Help: "Total number of trials judged, by outcome.",
			},
			[]string{"judge", "status"},
		),
		judgeLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optimum_judge_duration_seconds",
				Help:    "Time spent judging a single trial.",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"operation", "judge"},
		),
		bestSatisfaction: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optimum_best_satisfaction",
				Help: "Best aggregate satisfaction found since the last reset.",
			},
			[]string{"judge"},
		),
		optimalSolutions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optimum_optimal_solutions",
				Help: "Number of trials in the current optimal set.",
			},
			[]string{"judge"},
		),
		trialSatisfaction: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optimum_trial_satisfaction",
				Help:    "Distribution of overall trial satisfaction.",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"judge"},
		),

		// Landing vectors for names without a dedicated collector.
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optimum_operations_total",
				Help: "Total number of other judging operations.",
			},
			[]string{"operation", "judge"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optimum_system_state",
				Help: "Current values of other judging state.",
			},
			[]string{"metric", "judge"},
		),
		valueHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optimum_values",
				Help:    "Distribution of other recorded values.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"metric", "judge"},
		),
	}
}

func judgeLabel(labels map[string]string) string {
	if judge := labels["judge"]; judge != "" {
		return judge
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.judgeLatency.WithLabelValues(operation, judgeLabel(labels)).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	judge := judgeLabel(labels)

	switch metric {
	case MetricTrialsJudged:
		status := labels["status"]
		if status == "" {
			status = statusAccepted
		}
		pm.trialsJudged.WithLabelValues(judge, status).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, judge).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	judge := judgeLabel(labels)

	switch metric {
	case MetricBestSatisfaction:
		pm.bestSatisfaction.WithLabelValues(judge).Set(value)
	case MetricOptimalSolutions:
		pm.optimalSolutions.WithLabelValues(judge).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric, judge).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	judge := judgeLabel(labels)

	switch metric {
	case MetricTrialSatisfaction:
		pm.trialSatisfaction.WithLabelValues(judge).Observe(value)
	default:
		pm.valueHistogram.WithLabelValues(metric, judge).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

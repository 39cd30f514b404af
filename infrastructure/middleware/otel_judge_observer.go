package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/ports"
)

var _ JudgeObserver = (*OTelJudgeObserver)(nil)

// Metric names reported to the MetricsCollector.
const (
	MetricJudgeLatency      = "judge"
	MetricTrialsJudged      = "trials_judged_total"
	MetricTrialSatisfaction = "trial_satisfaction"
	MetricBestSatisfaction  = "best_satisfaction"
	MetricOptimalSolutions  = "optimal_solutions"
)

const instrumentationName = "github.com/ahrav/go-optimum/infrastructure/middleware"

// Judgment outcomes used as the status label.
const (
	statusAccepted = "accepted"
	statusRejected = "rejected"
	statusFailed   = "failed"
)

// bestValuer is implemented by judges that expose their best aggregate.
type bestValuer interface {
	BestValue() float64
}

// OTelJudgeObserver implements observability for judgments using
// OpenTelemetry tracing. It opens one span per judgment, records the trial's
// satisfaction, and marks rejected trials with an error status.
//
// The span travels in the context returned by PreJudge, so one observer can
// serve concurrent judgments.
type OTelJudgeObserver struct {
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// OTelOption configures an OTelJudgeObserver.
type OTelOption func(*OTelJudgeObserver)

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(o *OTelJudgeObserver) {
		if tp != nil {
			o.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// NewOTelJudgeObserver creates a new OpenTelemetry judge observer.
// The metrics collector may be nil.
func NewOTelJudgeObserver(metrics ports.MetricsCollector, opts ...OTelOption) *OTelJudgeObserver {
	o := &OTelJudgeObserver{
		metrics: metrics,
		tracer:  otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PreJudge implements the JudgeObserver interface. It starts a span as a
// child of any span already in ctx.
func (o *OTelJudgeObserver) PreJudge(ctx context.Context, judge ports.SolutionJudge, trial *domain.Trial) context.Context {
	ctx, span := o.tracer.Start(ctx, "SolutionJudge.Judge", trace.WithAttributes(
		attribute.String("judge.name", judge.Name()),
	))
	if trial != nil {
		span.SetAttributes(attribute.String("trial.id", trial.ID()))
	}
	return ctx
}

// PostJudge implements the JudgeObserver interface. It finalizes the span
// and records metrics for the judgment.
func (o *OTelJudgeObserver) PostJudge(
	ctx context.Context,
	judge ports.SolutionJudge,
	trial *domain.Trial,
	elapsed time.Duration,
	err error,
) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	labels := map[string]string{"judge": judge.Name()}
	if o.metrics != nil {
		o.metrics.RecordLatency(MetricJudgeLatency, elapsed, labels)
	}

	if err != nil {
		var trialErr *domain.TrialError
		status := statusFailed
		if errors.As(err, &trialErr) {
			status = statusRejected
			span.AddEvent("trial.rejected", trace.WithAttributes(
				attribute.String("reason", trialErr.Reason),
				attribute.String("objective", trialErr.Objective),
			))
			span.SetStatus(codes.Error, "invalid trial")
		} else {
			span.SetStatus(codes.Error, err.Error())
		}
		span.RecordError(err)
		o.count(labels, status)
		return
	}

	solutions := judge.OptimalSolutions()
	satisfaction := trial.Satisfaction()
	span.SetAttributes(
		attribute.Float64("trial.satisfaction", satisfaction),
		attribute.Int("judge.optimal_solutions", len(solutions)),
	)
	span.SetStatus(codes.Ok, "trial judged")

	o.count(labels, statusAccepted)
	if o.metrics == nil {
		return
	}
	o.metrics.RecordHistogram(MetricTrialSatisfaction, satisfaction, labels)
	o.metrics.RecordGauge(MetricOptimalSolutions, float64(len(solutions)), labels)
	if bv, ok := judge.(bestValuer); ok {
		o.metrics.RecordGauge(MetricBestSatisfaction, bv.BestValue(), labels)
	}
}

func (o *OTelJudgeObserver) count(labels map[string]string, status string) {
	if o.metrics == nil {
		return
	}
	withStatus := map[string]string{"judge": labels["judge"], "status": status}
	o.metrics.RecordCounter(MetricTrialsJudged, 1, withStatus)
}

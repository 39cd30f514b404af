package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/ports"
)

// contextJudge is implemented by judges that accept a context, such as
// the instrumented middleware decorator.
type contextJudge interface {
	JudgeContext(ctx context.Context, trial *domain.Trial) error
}

// Rejection records a trial the judge refused.
type Rejection struct {
	TrialID string
	Err     error
}

// RunReport summarizes a completed run.
type RunReport struct {
	// Judged counts trials the judge scored successfully.
	Judged int
	// Rejected lists trials that failed with domain.ErrInvalidTrial, in
	// completion order.
	Rejected []Rejection
	// Optimal is the judge's optimal set when the run ended.
	Optimal []*domain.Trial
	// Best is the judge's best value, when the judge exposes one.
	Best float64
}

// Runner feeds trials to a judge with bounded concurrency and an optional
// rate limit. The judge itself never blocks on I/O; the runner only adds
// scheduling and cancellation around it.
type Runner struct {
	judge   ports.SolutionJudge
	config  RunnerConfig
	limiter *rate.Limiter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger for run progress.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRunnerTracerProvider overrides the global tracer provider.
func WithRunnerTracerProvider(tp trace.TracerProvider) RunnerOption {
	return func(r *Runner) {
		if tp != nil {
			r.tracer = tp.Tracer("github.com/ahrav/go-optimum/internal/application")
		}
	}
}

// NewRunner creates a runner for judge. Zero fields of config take their
// DefaultRunnerConfig values.
func NewRunner(judge ports.SolutionJudge, config RunnerConfig, opts ...RunnerOption) (*Runner, error) {
	if judge == nil {
		return nil, fmt.Errorf("runner: judge is required")
	}
	config = config.withDefaults()
	if config.OnInvalid != OnInvalidSkip && config.OnInvalid != OnInvalidAbort {
		return nil, fmt.Errorf("runner: unknown on_invalid policy %q", config.OnInvalid)
	}
	if config.Concurrency < 1 {
		return nil, fmt.Errorf("runner: concurrency must be positive, got %d", config.Concurrency)
	}
	if config.RateLimit < 0 {
		return nil, fmt.Errorf("runner: rate_limit cannot be negative, got %v", config.RateLimit)
	}

	r := &Runner{
		judge:  judge,
		config: config,
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/ahrav/go-optimum/internal/application"),
	}
	if config.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run judges every trial and returns a report of the outcome.
//
// With OnInvalidSkip, trials rejected with domain.ErrInvalidTrial are
// recorded in the report and the run continues. With OnInvalidAbort the
// first rejection stops the run and is returned. Cancellation of ctx stops
// scheduling new trials; trials already handed to the judge finish.
// On error the partial report is returned along with it.
func (r *Runner) Run(ctx context.Context, trials []*domain.Trial) (*RunReport, error) {
	ctx, span := r.tracer.Start(ctx, "Runner.Run", trace.WithAttributes(
		attribute.String("judge.name", r.judge.Name()),
		attribute.Int("run.trials", len(trials)),
		attribute.Int("run.concurrency", r.config.Concurrency),
	))
	defer span.End()

	logger := LoggerWithTrace(ctx, r.logger).With(slog.String("judge", r.judge.Name()))
	logger.Info("run started",
		slog.Int("trials", len(trials)),
		slog.Int("concurrency", r.config.Concurrency),
		slog.Float64("rate_limit", r.config.RateLimit),
	)

	var (
		mu     sync.Mutex
		report RunReport
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)

	var schedErr error
	for _, trial := range trials {
		if err := gctx.Err(); err != nil {
			schedErr = err
			break
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(gctx); err != nil {
				schedErr = err
				break
			}
		}

		g.Go(func() error {
			// The slot may free up only after another trial aborted the run.
			if err := gctx.Err(); err != nil {
				return err
			}
			err := r.judgeOne(gctx, trial)
			if err == nil {
				mu.Lock()
				report.Judged++
				mu.Unlock()
				logger.Debug("trial judged",
					slog.String("trial_id", trial.ID()),
					slog.Float64("satisfaction", trial.Satisfaction()),
				)
				return nil
			}

			if !errors.Is(err, domain.ErrInvalidTrial) {
				return err
			}
			logger.Warn("trial rejected", slog.String("trial_id", trialID(trial)), slog.Any("error", err))
			if r.config.OnInvalid == OnInvalidAbort {
				return fmt.Errorf("trial %s: %w", trialID(trial), err)
			}

			mu.Lock()
			report.Rejected = append(report.Rejected, Rejection{TrialID: trialID(trial), Err: err})
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = schedErr
	}

	report.Optimal = r.judge.OptimalSolutions()
	if bv, ok := JudgeAs[interface{ BestValue() float64 }](r.judge); ok {
		report.Best = bv.BestValue()
	}

	span.SetAttributes(
		attribute.Int("run.judged", report.Judged),
		attribute.Int("run.rejected", len(report.Rejected)),
		attribute.Int("run.optimal", len(report.Optimal)),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error("run failed", slog.Any("error", err), slog.Int("judged", report.Judged))
		return &report, err
	}

	span.SetStatus(codes.Ok, "run completed")
	logger.Info("run completed",
		slog.Int("judged", report.Judged),
		slog.Int("rejected", len(report.Rejected)),
		slog.Int("optimal_solutions", len(report.Optimal)),
		slog.Float64("best", report.Best),
	)
	return &report, nil
}

func (r *Runner) judgeOne(ctx context.Context, trial *domain.Trial) error {
	if cj, ok := r.judge.(contextJudge); ok {
		return cj.JudgeContext(ctx, trial)
	}
	return r.judge.Judge(trial)
}

func trialID(trial *domain.Trial) string {
	if trial == nil {
		return ""
	}
	return trial.ID()
}

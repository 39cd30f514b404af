package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ahrav/go-optimum/infrastructure/events"
	"github.com/ahrav/go-optimum/infrastructure/judges"
	"github.com/ahrav/go-optimum/infrastructure/middleware"
	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/ports"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// scenario builds the weighted scenario: judge, trials, and the objectives.
func scenario(t *testing.T, deps ports.JudgeDeps) (ports.SolutionJudge, []*domain.Trial) {
	t.Helper()
	config := loadScenario(t)
	problem, idx := BuildProblem(config)
	trials, err := BuildTrials(config, problem, idx)
	require.NoError(t, err)
	judge, err := NewJudge(config, NewDefaultJudgeRegistry(), idx, deps)
	require.NoError(t, err)
	return judge, trials
}

func TestRunner_Scenario(t *testing.T) {
	proxy := events.NewProxy()
	var notified []string
	proxy.SubscribeFunc(func(_ ports.SolutionJudge, _ []*domain.Trial, trial *domain.Trial) {
		notified = append(notified, trial.ID())
	})

	judge, trials := scenario(t, ports.JudgeDeps{Listener: proxy})
	runner, err := NewRunner(judge, DefaultRunnerConfig(), WithRunnerLogger(discardLogger()))
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), trials)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Judged)
	assert.Empty(t, report.Rejected)
	require.Len(t, report.Optimal, 1)
	assert.Equal(t, "trial3", report.Optimal[0].ID())
	assert.Equal(t, 1.0, report.Best)
	assert.Equal(t, []string{"trial1", "trial2", "trial3"}, notified)
	assert.Equal(t, trials[0].Satisfaction(), trials[1].Satisfaction())
	assert.InDelta(t, 0.4, trials[0].Satisfaction(), 1e-12)
}

func TestRunner_OnInvalid(t *testing.T) {
	p := domain.NewProblem(domain.NewObjective("q"))
	q, _ := p.Objective("q")
	good := domain.NewTrialWithID("good", p, map[*domain.Objective]domain.Score{q: domain.NewScore(1, 0.7)})
	bad := domain.NewTrialWithID("bad", p, nil)
	late := domain.NewTrialWithID("late", p, map[*domain.Objective]domain.Score{q: domain.NewScore(1, 0.9)})

	t.Run("skip records rejection", func(t *testing.T) {
		judge, err := judges.NewWeightedSatisfactionJudge("w")
		require.NoError(t, err)
		runner, err := NewRunner(judge, RunnerConfig{OnInvalid: OnInvalidSkip}, WithRunnerLogger(discardLogger()))
		require.NoError(t, err)

		report, err := runner.Run(context.Background(), []*domain.Trial{good, bad, late})
		require.NoError(t, err)

		assert.Equal(t, 2, report.Judged)
		require.Len(t, report.Rejected, 1)
		assert.Equal(t, "bad", report.Rejected[0].TrialID)
		assert.ErrorIs(t, report.Rejected[0].Err, domain.ErrInvalidTrial)
		assert.Equal(t, []*domain.Trial{late}, report.Optimal)
	})

	t.Run("abort returns first rejection", func(t *testing.T) {
		judge, err := judges.NewWeightedSatisfactionJudge("w")
		require.NoError(t, err)
		runner, err := NewRunner(judge, RunnerConfig{OnInvalid: OnInvalidAbort}, WithRunnerLogger(discardLogger()))
		require.NoError(t, err)

		report, err := runner.Run(context.Background(), []*domain.Trial{good, bad, late})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidTrial)
		assert.Contains(t, err.Error(), "trial bad")

		require.NotNil(t, report)
		assert.Equal(t, 1, report.Judged)
		assert.Equal(t, []*domain.Trial{good}, report.Optimal, "Trials after the rejection are not judged")
	})
}

func TestRunner_Concurrency(t *testing.T) {
	p := domain.NewProblem(domain.NewObjective("q"))
	q, _ := p.Objective("q")

	trials := make([]*domain.Trial, 200)
	for i := range trials {
		sat := float64(i%20) / 20
		trials[i] = domain.NewTrial(p, map[*domain.Objective]domain.Score{q: domain.NewScore(sat, sat)})
	}

	judge, err := judges.NewWeightedSatisfactionJudge("w")
	require.NoError(t, err)
	runner, err := NewRunner(judge, RunnerConfig{Concurrency: 8}, WithRunnerLogger(discardLogger()))
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), trials)
	require.NoError(t, err)

	assert.Equal(t, 200, report.Judged)
	assert.Equal(t, 0.95, report.Best)
	assert.Len(t, report.Optimal, 10)
}

func TestRunner_Cancellation(t *testing.T) {
	p := domain.NewProblem(domain.NewObjective("q"))
	q, _ := p.Objective("q")

	ctx, cancel := context.WithCancel(context.Background())
	var seen atomic.Int32
	judge, err := judges.NewWeightedSatisfactionJudge("w", judges.WithListener(
		ports.OptimalSolutionListenerFunc(func(ports.SolutionJudge, []*domain.Trial, *domain.Trial) {
			if seen.Add(1) == 2 {
				cancel()
			}
		}),
	))
	require.NoError(t, err)

	trials := make([]*domain.Trial, 10)
	for i := range trials {
		sat := float64(i+1) / 10
		trials[i] = domain.NewTrial(p, map[*domain.Objective]domain.Score{q: domain.NewScore(sat, sat)})
	}

	runner, err := NewRunner(judge, DefaultRunnerConfig(), WithRunnerLogger(discardLogger()))
	require.NoError(t, err)

	report, err := runner.Run(ctx, trials)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 2, report.Judged)
}

func TestRunner_RateLimit(t *testing.T) {
	p := domain.NewProblem(domain.NewObjective("q"))
	q, _ := p.Objective("q")
	trials := make([]*domain.Trial, 5)
	for i := range trials {
		trials[i] = domain.NewTrial(p, map[*domain.Objective]domain.Score{q: domain.NewScore(0.5, 0.5)})
	}

	judge, err := judges.NewWeightedSatisfactionJudge("w")
	require.NoError(t, err)
	runner, err := NewRunner(judge, RunnerConfig{RateLimit: 100, Burst: 1}, WithRunnerLogger(discardLogger()))
	require.NoError(t, err)

	start := time.Now()
	report, err := runner.Run(context.Background(), trials)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Judged)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond, "Four waits of 10ms are expected")
}

func TestRunner_RateLimitDeadline(t *testing.T) {
	p := domain.NewProblem(domain.NewObjective("q"))
	q, _ := p.Objective("q")
	trials := make([]*domain.Trial, 3)
	for i := range trials {
		trials[i] = domain.NewTrial(p, map[*domain.Objective]domain.Score{q: domain.NewScore(0.5, 0.5)})
	}

	judge, err := judges.NewWeightedSatisfactionJudge("w")
	require.NoError(t, err)
	runner, err := NewRunner(judge, RunnerConfig{RateLimit: 0.01, Burst: 1}, WithRunnerLogger(discardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report, err := runner.Run(ctx, trials)
	require.Error(t, err)
	assert.Equal(t, 1, report.Judged, "Only the burst token is available before the deadline")
}

func TestNewRunner_Validation(t *testing.T) {
	judge, err := judges.NewWeightedSatisfactionJudge("w")
	require.NoError(t, err)

	tests := []struct {
		name    string
		judge   ports.SolutionJudge
		config  RunnerConfig
		wantErr string
	}{
		{name: "nil judge", judge: nil, wantErr: "judge is required"},
		{name: "bad policy", judge: judge, config: RunnerConfig{OnInvalid: "retry"}, wantErr: "unknown on_invalid"},
		{name: "negative concurrency", judge: judge, config: RunnerConfig{Concurrency: -2}, wantErr: "concurrency must be positive"},
		{name: "negative rate", judge: judge, config: RunnerConfig{RateLimit: -1}, wantErr: "rate_limit cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(tt.judge, tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunner_TraceCorrelatedLogs(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	inner, trials := scenario(t, ports.JudgeDeps{})
	judge := middleware.NewInstrumentedJudge(inner, middleware.NewOTelJudgeObserver(nil, middleware.WithTracerProvider(tp)))
	runner, err := NewRunner(judge, DefaultRunnerConfig(),
		WithRunnerLogger(logger),
		WithRunnerTracerProvider(tp),
	)
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), trials)
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.Best, "Best value is found through the decorator")

	spans := recorder.Ended()
	require.Len(t, spans, 4, "One span per trial plus the run span")
	runSpan := spans[len(spans)-1]
	assert.Equal(t, "Runner.Run", runSpan.Name())
	for _, s := range spans[:3] {
		assert.Equal(t, runSpan.SpanContext().SpanID(), s.Parent().SpanID())
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, runSpan.SpanContext().TraceID().String(), entry["trace_id"])
	}
}

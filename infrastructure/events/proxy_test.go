package events

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-optimum/infrastructure/judges"
	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/ports"
)

func newProblem() (*domain.Problem, *domain.Objective) {
	o := domain.NewObjective("quality")
	return domain.NewProblem(o), o
}

func trialWith(p *domain.Problem, o *domain.Objective, sat float64) *domain.Trial {
	return domain.NewTrial(p, map[*domain.Objective]domain.Score{o: domain.NewScore(sat, sat)})
}

func TestProxy_FanOutInSubscriptionOrder(t *testing.T) {
	proxy := NewProxy()
	var order []string
	proxy.SubscribeFunc(func(ports.SolutionJudge, []*domain.Trial, *domain.Trial) { order = append(order, "first") })
	proxy.SubscribeFunc(func(ports.SolutionJudge, []*domain.Trial, *domain.Trial) { order = append(order, "second") })
	proxy.SubscribeFunc(func(ports.SolutionJudge, []*domain.Trial, *domain.Trial) { order = append(order, "third") })

	judge, err := judges.NewWeightedSatisfactionJudge("w", judges.WithListener(proxy))
	require.NoError(t, err)

	p, o := newProblem()
	require.NoError(t, judge.Judge(trialWith(p, o, 0.5)))

	assert.Equal(t, []string{"first", "second", "third"}, order, "Delivery must be synchronous and ordered")
}

func TestProxy_Unsubscribe(t *testing.T) {
	proxy := NewProxy()
	var calls int
	id := proxy.SubscribeFunc(func(ports.SolutionJudge, []*domain.Trial, *domain.Trial) { calls++ })
	require.NotEmpty(t, id)
	assert.Equal(t, 1, proxy.Len())

	judge, err := judges.NewWeightedSatisfactionJudge("w", judges.WithListener(proxy))
	require.NoError(t, err)
	p, o := newProblem()

	require.NoError(t, judge.Judge(trialWith(p, o, 0.3)))
	assert.True(t, proxy.Unsubscribe(id))
	assert.False(t, proxy.Unsubscribe(id))
	require.NoError(t, judge.Judge(trialWith(p, o, 0.6)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, proxy.Len())
}

func TestProxy_IgnoresNilListeners(t *testing.T) {
	proxy := NewProxy()
	assert.Empty(t, proxy.Subscribe(nil))
	assert.Empty(t, proxy.SubscribeFunc(nil))
	assert.Equal(t, 0, proxy.Len())
}

func TestProxy_RecoversPanickingSubscriber(t *testing.T) {
	var buf bytes.Buffer
	proxy := NewProxy(WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	var delivered []*domain.Trial
	proxy.SubscribeFunc(func(ports.SolutionJudge, []*domain.Trial, *domain.Trial) { panic("boom") })
	proxy.SubscribeFunc(func(_ ports.SolutionJudge, _ []*domain.Trial, trial *domain.Trial) {
		delivered = append(delivered, trial)
	})

	judge, err := judges.NewWeightedSatisfactionJudge("w", judges.WithListener(proxy))
	require.NoError(t, err)
	p, o := newProblem()
	trial := trialWith(p, o, 0.8)

	require.NotPanics(t, func() { require.NoError(t, judge.Judge(trial)) })

	assert.Equal(t, []*domain.Trial{trial}, delivered)
	assert.Equal(t, []*domain.Trial{trial}, judge.OptimalSolutions(), "Judge state must survive a subscriber panic")
	assert.Contains(t, buf.String(), "optimal solution subscriber panicked")
	assert.Contains(t, buf.String(), trial.ID())
}

func TestProxy_SubscribersGetIndependentSlices(t *testing.T) {
	proxy := NewProxy()
	var seen []*domain.Trial
	proxy.SubscribeFunc(func(_ ports.SolutionJudge, solutions []*domain.Trial, _ *domain.Trial) {
		solutions[0] = nil
	})
	proxy.SubscribeFunc(func(_ ports.SolutionJudge, solutions []*domain.Trial, _ *domain.Trial) {
		seen = solutions
	})

	judge, err := judges.NewWeightedSatisfactionJudge("w", judges.WithListener(proxy))
	require.NoError(t, err)
	p, o := newProblem()
	trial := trialWith(p, o, 0.8)
	require.NoError(t, judge.Judge(trial))

	assert.Equal(t, []*domain.Trial{trial}, seen)
}

func TestProxy_ConcurrentSubscribeAndDeliver(t *testing.T) {
	proxy := NewProxy()
	judge, err := judges.NewWeightedSatisfactionJudge("w", judges.WithListener(proxy))
	require.NoError(t, err)
	p, o := newProblem()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := proxy.SubscribeFunc(func(ports.SolutionJudge, []*domain.Trial, *domain.Trial) {})
			proxy.Unsubscribe(id)
		}()
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, judge.Judge(trialWith(p, o, float64(i)/10)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, proxy.Len())
}

package judges

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/testutils"
)

func unweightedMean(t *testing.T, trial *domain.Trial) float64 {
	t.Helper()
	var sum float64
	objectives := trial.Problem().Objectives()
	for _, o := range objectives {
		s, ok := trial.Score(o)
		require.True(t, ok)
		sum += s.Satisfaction()
	}
	return sum / float64(len(objectives))
}

func TestWeightedSatisfactionJudge_GeneratedTrials(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 4, 5} {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			g := testutils.NewTrialGenerator(seed)
			p := g.Problem(3)
			trials := g.Trials(p, 200)

			judge := newWeightedJudge(t)
			for _, trial := range trials {
				require.NoError(t, judge.Judge(trial))
			}

			best := 0.0
			for _, trial := range trials {
				best = max(best, unweightedMean(t, trial))
			}
			var want []*domain.Trial
			for _, trial := range trials {
				if unweightedMean(t, trial) == best {
					want = append(want, trial)
				}
			}

			assert.Equal(t, best, judge.BestValue())
			assert.Equal(t, want, judge.OptimalSolutions())
		})
	}
}

func TestParetoJudge_GeneratedTrialsAreNonDominated(t *testing.T) {
	g := testutils.NewTrialGenerator(11)
	p := g.Problem(2)
	trials := g.Trials(p, 100)

	judge, err := NewParetoJudge("pareto")
	require.NoError(t, err)
	for _, trial := range trials {
		require.NoError(t, judge.Judge(trial))
	}

	front := judge.OptimalSolutions()
	require.NotEmpty(t, front)
	a, b := p.Objectives()[0], p.Objectives()[1]
	sat := func(trial *domain.Trial, o *domain.Objective) float64 {
		s, _ := trial.Score(o)
		return s.Satisfaction()
	}
	for _, member := range front {
		for _, other := range trials {
			dominated := sat(other, a) >= sat(member, a) && sat(other, b) >= sat(member, b) &&
				(sat(other, a) > sat(member, a) || sat(other, b) > sat(member, b))
			assert.False(t, dominated, "trial %s on the front is dominated by %s", member.ID(), other.ID())
		}
	}
}

func TestJudges_GeneratedInvalidTrials(t *testing.T) {
	g := testutils.NewTrialGenerator(9)
	g.MissingRate = 1
	p := g.Problem(3)

	judge := newWeightedJudge(t)
	for _, trial := range g.Trials(p, 10) {
		assert.ErrorIs(t, judge.Judge(trial), domain.ErrInvalidTrial)
	}
	assert.Empty(t, judge.OptimalSolutions())
}

func BenchmarkWeightedSatisfactionJudge_Judge(b *testing.B) {
	g := testutils.NewTrialGenerator(1)
	p := g.Problem(8)
	trials := g.Trials(p, 1024)
	judge, err := NewWeightedSatisfactionJudge("bench")
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = judge.Judge(trials[i%len(trials)])
	}
}

func BenchmarkWeightedSatisfactionJudge_JudgeParallel(b *testing.B) {
	g := testutils.NewTrialGenerator(1)
	p := g.Problem(8)
	trials := g.Trials(p, 1024)
	judge, err := NewWeightedSatisfactionJudge("bench")
	require.NoError(b, err)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = judge.Judge(trials[i%len(trials)])
			i++
		}
	})
}

func BenchmarkParetoJudge_Judge(b *testing.B) {
	g := testutils.NewTrialGenerator(1)
	p := g.Problem(3)
	trials := g.Trials(p, 1024)
	judge, err := NewParetoJudge("bench")
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = judge.Judge(trials[i%len(trials)])
	}
}

package judges

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/ports"
)

var _ ports.SolutionJudge = (*ParetoJudge)(nil)

// ParetoJudge keeps the non-dominated front of all judged trials.
// Trial a dominates trial b when a is at least as satisfied as b on every
// objective and strictly more satisfied on at least one. Trials from
// different problems are never compared and can coexist on the front.
//
// Each trial's overall satisfaction is set to the unweighted mean of its
// objective satisfactions; it does not influence front membership.
// Satisfaction comparisons honor the configured tie policy.
type ParetoJudge struct {
	name string
	opts options

	mu    sync.Mutex
	front []frontEntry

	view publisher
}

type frontEntry struct {
	trial  *domain.Trial
	values []float64
	mean   float64
}

// ParetoConfig controls per-objective comparison for the Pareto judge.
type ParetoConfig struct {
	// TiePolicy defines when two objective satisfactions count as equal.
	TiePolicy TiePolicy `yaml:"tie_policy" json:"tie_policy" validate:"required,oneof=exact tolerance"`

	// Tolerance is the absolute tolerance used by the tolerance policy.
	Tolerance float64 `yaml:"tolerance" json:"tolerance" validate:"min=0"`
}

// DefaultParetoConfig returns exact comparison.
func DefaultParetoConfig() ParetoConfig {
	return ParetoConfig{TiePolicy: TieExact}
}

// NewParetoJudge creates a judge with an empty front.
func NewParetoJudge(name string, opts ...Option) (*ParetoJudge, error) {
	if name == "" {
		return nil, ErrEmptyJudgeName
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid judge options: %w", err)
	}

	j := &ParetoJudge{name: name, opts: o}
	j.view.publish(&snapshot{})
	return j, nil
}

// Name returns the unique identifier for this judge instance.
func (j *ParetoJudge) Name() string { return j.name }

// Reset empties the front.
func (j *ParetoJudge) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.front = nil
	j.view.publish(&snapshot{})
}

// OptimalSolutions returns the current front in insertion order.
func (j *ParetoJudge) OptimalSolutions() []*domain.Trial {
	return j.view.solutions()
}

// BestValue returns the highest overall satisfaction on the front.
func (j *ParetoJudge) BestValue() float64 { return j.view.load().best }

// Judge scores the trial and admits it to the front if no member
// dominates it, evicting every member it dominates.
func (j *ParetoJudge) Judge(trial *domain.Trial) error {
	_, values, err := satisfactions(trial)
	if err != nil {
		return err
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	mean := sum / float64(len(values))

	j.mu.Lock()
	defer j.mu.Unlock()

	trial.SetSatisfaction(mean)

	for _, e := range j.front {
		if e.trial == trial {
			return nil
		}
		if e.trial.Problem() == trial.Problem() && j.dominates(e.values, values) {
			return nil
		}
	}

	before := len(j.front)
	j.front = slices.DeleteFunc(j.front, func(e frontEntry) bool {
		return e.trial.Problem() == trial.Problem() && j.dominates(values, e.values)
	})
	evicted := before - len(j.front)
	j.front = append(j.front, frontEntry{trial: trial, values: values, mean: mean})

	j.notifyLocked(trial, evicted)
	return nil
}

// dominates reports whether a dominates b under the tie policy.
func (j *ParetoJudge) dominates(a, b []float64) bool {
	strictly := false
	for i := range a {
		switch j.opts.compare(a[i], b[i]) {
		case -1:
			return false
		case 1:
			strictly = true
		}
	}
	return strictly
}

func (j *ParetoJudge) notifyLocked(trial *domain.Trial, evicted int) {
	solutions := make([]*domain.Trial, len(j.front))
	best := j.front[0].mean
	for i, e := range j.front {
		solutions[i] = e.trial
		best = max(best, e.mean)
	}
	j.view.publish(&snapshot{best: best, optimal: solutions})

	j.opts.logger.Debug("found new optimal solution",
		slog.String("judge", j.name),
		slog.String("trial_id", trial.ID()),
		slog.Int("evicted", evicted),
		slog.Int("optimal_solutions", len(solutions)),
	)

	if j.opts.listener != nil {
		j.opts.listener.FoundNewOptimalSolution(j, append([]*domain.Trial(nil), solutions...), trial)
	}
}

// NewParetoFromConfig creates a ParetoJudge from a configuration map.
func NewParetoFromConfig(id string, config map[string]any, deps ports.JudgeDeps) (ports.SolutionJudge, error) {
	cfg := DefaultParetoConfig()
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}

	opts := append(withDeps(deps), tieOptions(cfg.TiePolicy, cfg.Tolerance)...)
	return NewParetoJudge(id, opts...)
}

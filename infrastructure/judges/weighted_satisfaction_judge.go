package judges

import (
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/ports"
)

var _ ports.WeightedJudge = (*WeightedSatisfactionJudge)(nil)

// WeightedSatisfactionJudge decides whether a trial belongs to the optimal
// set based on the weighted mean of all objective satisfactions.
//
// Algorithm: for every objective of the trial's problem, in problem order,
// the judge accumulates satisfaction*weight and weight, then divides. The
// result is written to the trial and compared with the best value seen so
// far: a tie appends the trial to the optimal set, a strictly better value
// replaces the set with the trial, and a worse value only scores the trial.
//
// Weights are read from the live weight map on every call, so they may be
// adjusted between judgments. Objectives without a weight count as 1.0.
//
// Concurrency: Judge, Reset and SetWeight run under a per-instance mutex.
// OptimalSolutions and BestValue read an immutable snapshot published
// under that mutex and never block.
type WeightedSatisfactionJudge struct {
	// name is the unique identifier for this judge instance.
	name string
	// opts holds construction-time settings that survive Reset.
	opts options

	mu        sync.Mutex
	bestValue float64
	optimal   []*domain.Trial
	members   map[*domain.Trial]struct{}
	weights   map[*domain.Objective]float64

	view publisher
}

// WeightedSatisfactionConfig controls tie detection for the weighted judge.
// Per-objective weights are not part of this struct because they reference
// objectives of a concrete problem; apply them with SetWeight.
type WeightedSatisfactionConfig struct {
	// TiePolicy defines how aggregates are compared with the best value.
	// "exact": bit-exact equality (default)
	// "tolerance": values within Tolerance tie
	TiePolicy TiePolicy `yaml:"tie_policy" json:"tie_policy" validate:"required,oneof=exact tolerance"`

	// Tolerance is the absolute tie tolerance used by the tolerance policy.
	Tolerance float64 `yaml:"tolerance" json:"tolerance" validate:"min=0"`
}

// DefaultWeightedSatisfactionConfig returns exact tie detection.
func DefaultWeightedSatisfactionConfig() WeightedSatisfactionConfig {
	return WeightedSatisfactionConfig{TiePolicy: TieExact}
}

// NewWeightedSatisfactionJudge creates a judge with a best value of 0.0, an
// empty optimal set and no explicit weights.
//
// Returns ErrEmptyJudgeName if name is empty, or an option validation
// error for an unknown tie policy or invalid tolerance.
func NewWeightedSatisfactionJudge(name string, opts ...Option) (*WeightedSatisfactionJudge, error) {
	if name == "" {
		return nil, ErrEmptyJudgeName
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid judge options: %w", err)
	}

	j := &WeightedSatisfactionJudge{name: name, opts: o}
	j.resetLocked()
	return j, nil
}

// Name returns the unique identifier for this judge instance.
func (j *WeightedSatisfactionJudge) Name() string { return j.name }

// Reset restores the best value, optimal set and weights to their
// construction-time defaults.
func (j *WeightedSatisfactionJudge) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.resetLocked()
}

func (j *WeightedSatisfactionJudge) resetLocked() {
	j.bestValue = 0.0
	j.optimal = nil
	j.members = make(map[*domain.Trial]struct{})
	j.weights = make(map[*domain.Objective]float64)
	j.view.publish(&snapshot{})
}

// SetWeight associates a weight with an objective, overwriting any prior
// weight. Zero and negative weights are accepted as given.
func (j *WeightedSatisfactionJudge) SetWeight(objective *domain.Objective, weight float64) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.weights[objective] = weight
}

// Weight returns the weight of the objective, or DefaultWeight if none was set.
func (j *WeightedSatisfactionJudge) Weight(objective *domain.Objective) float64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.weightLocked(objective)
}

func (j *WeightedSatisfactionJudge) weightLocked(objective *domain.Objective) float64 {
	if w, ok := j.weights[objective]; ok {
		return w
	}
	return DefaultWeight
}

// Weights returns a copy of the explicitly configured weights.
func (j *WeightedSatisfactionJudge) Weights() map[*domain.Objective]float64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	return maps.Clone(j.weights)
}

// BestValue returns the best aggregate satisfaction seen since the last reset.
func (j *WeightedSatisfactionJudge) BestValue() float64 { return j.view.load().best }

// OptimalSolutions returns the trials tied for the best aggregate in the
// order they were judged. The returned slice is owned by the caller.
func (j *WeightedSatisfactionJudge) OptimalSolutions() []*domain.Trial {
	return j.view.solutions()
}

// Judge scores the trial with the weighted mean of its objective
// satisfactions and updates the optimal set.
//
// Errors wrap domain.ErrInvalidTrial when the problem has no objectives,
// a score is missing, or the weights sum to zero. On error neither the
// trial nor the judge is modified.
func (j *WeightedSatisfactionJudge) Judge(trial *domain.Trial) error {
	objectives, values, err := satisfactions(trial)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	var weightedSum, totalWeight float64
	for i, objective := range objectives {
		w := j.weightLocked(objective)
		weightedSum += values[i] * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return domain.NewTrialError(trial.ID(), "", domain.ReasonZeroWeight)
	}

	aggregate := weightedSum / totalWeight
	trial.SetSatisfaction(aggregate)

	switch j.opts.compare(aggregate, j.bestValue) {
	case 0:
		if _, seen := j.members[trial]; seen {
			return nil
		}
		j.optimal = append(j.optimal, trial)
		j.members[trial] = struct{}{}
		j.notifyLocked(trial, "tie")
	case 1:
		j.bestValue = aggregate
		j.optimal = []*domain.Trial{trial}
		j.members = map[*domain.Trial]struct{}{trial: {}}
		j.notifyLocked(trial, "improved")
	}
	return nil
}

// notifyLocked publishes the new optimal set and delivers the event.
func (j *WeightedSatisfactionJudge) notifyLocked(trial *domain.Trial, transition string) {
	solutions := append([]*domain.Trial(nil), j.optimal...)
	j.view.publish(&snapshot{best: j.bestValue, optimal: solutions})

	j.opts.logger.Debug("found new optimal solution",
		slog.String("judge", j.name),
		slog.String("trial_id", trial.ID()),
		slog.String("transition", transition),
		slog.Float64("satisfaction", j.bestValue),
		slog.Int("optimal_solutions", len(solutions)),
	)

	if j.opts.listener != nil {
		j.opts.listener.FoundNewOptimalSolution(j, append([]*domain.Trial(nil), solutions...), trial)
	}
}

// NewWeightedSatisfactionFromConfig creates a WeightedSatisfactionJudge from
// a configuration map. This is the boundary adapter for YAML/JSON configuration.
func NewWeightedSatisfactionFromConfig(
	id string,
	config map[string]any,
	deps ports.JudgeDeps,
) (ports.SolutionJudge, error) {
	cfg := DefaultWeightedSatisfactionConfig()
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}

	opts := append(withDeps(deps), tieOptions(cfg.TiePolicy, cfg.Tolerance)...)
	return NewWeightedSatisfactionJudge(id, opts...)
}

// decodeConfig overlays a loosely typed map onto a defaulted config struct
// and validates the result.
func decodeConfig(config map[string]any, out any) error {
	if len(config) > 0 {
		data, err := yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}

	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

func tieOptions(policy TiePolicy, tolerance float64) []Option {
	if policy == TieTolerance {
		return []Option{WithTolerance(tolerance)}
	}
	return []Option{WithTiePolicy(policy)}
}

// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"log/slog"

	"github.com/ahrav/go-optimum/internal/domain"
)

// SolutionJudge is the strategy that consumes Trials and maintains the
// set of optimal solutions found so far. Implementations must be safe for
// concurrent use: Judge, Reset and any configuration setters execute
// under mutual exclusion per judge instance.
type SolutionJudge interface {
	// Name returns a unique identifier for this judge.
	// The name is used for logging, metrics, and configuration.
	Name() string

	// Reset clears all accumulated state back to the construction-time
	// defaults. It is idempotent.
	Reset()

	// Judge evaluates one Trial, writes its overall satisfaction and
	// updates the optimal-solution set. It returns an error wrapping
	// domain.ErrInvalidTrial when the trial cannot be scored; in that case
	// neither the judge state nor the trial is modified.
	//
	// Example:
	//
	//	if err := judge.Judge(trial); err != nil {
	//	    return fmt.Errorf("judge %s failed: %w", judge.Name(), err)
	//	}
	Judge(trial *domain.Trial) error

	// OptimalSolutions returns a snapshot of the current optimal set in
	// insertion order. Mutating the returned slice does not affect the judge.
	OptimalSolutions() []*domain.Trial
}

// WeightedJudge is a SolutionJudge that aggregates objectives with
// per-objective weights.
type WeightedJudge interface {
	SolutionJudge

	// SetWeight associates a weight with an objective, replacing any
	// previous weight. No sign or range validation is performed.
	SetWeight(objective *domain.Objective, weight float64)

	// Weight returns the configured weight for the objective, or the
	// default weight of 1.0 when none was set.
	Weight(objective *domain.Objective) float64
}

// OptimalSolutionListener receives notifications when a judge's optimal
// set changes. Notifications are delivered synchronously on the goroutine
// that called Judge, before Judge returns. The judge holds its lock during
// delivery: a listener may read OptimalSolutions but must not call Judge,
// Reset or SetWeight on the same judge.
type OptimalSolutionListener interface {
	// FoundNewOptimalSolution is called with the judge, a snapshot of the
	// full optimal set after the change, and the trial that was just added.
	FoundNewOptimalSolution(judge SolutionJudge, solutions []*domain.Trial, trial *domain.Trial)
}

// OptimalSolutionListenerFunc adapts an ordinary function to the
// OptimalSolutionListener interface.
type OptimalSolutionListenerFunc func(judge SolutionJudge, solutions []*domain.Trial, trial *domain.Trial)

// FoundNewOptimalSolution calls f(judge, solutions, trial).
func (f OptimalSolutionListenerFunc) FoundNewOptimalSolution(
	judge SolutionJudge,
	solutions []*domain.Trial,
	trial *domain.Trial,
) {
	f(judge, solutions, trial)
}

// JudgeDeps carries the collaborators injected into judges created by a
// JudgeRegistry. Nil fields fall back to judge defaults.
type JudgeDeps struct {
	// Listener is notified whenever the optimal set changes.
	Listener OptimalSolutionListener

	// Logger receives structured judge logs.
	Logger *slog.Logger
}

// JudgeFactory creates a judge from an identifier and a loosely typed
// configuration map, typically decoded from YAML.
type JudgeFactory func(id string, config map[string]any, deps JudgeDeps) (SolutionJudge, error)

// JudgeRegistry creates judges by type name.
type JudgeRegistry interface {
	// CreateJudge builds a judge of the given registered type.
	CreateJudge(judgeType, id string, config map[string]any, deps JudgeDeps) (SolutionJudge, error)

	// RegisterJudgeFactory adds or replaces the factory for a judge type.
	RegisterJudgeFactory(judgeType string, factory JudgeFactory) error

	// SupportedTypes lists the registered judge types.
	SupportedTypes() []string
}

package application

import (
	"fmt"

	"golang.org/x/text/cases"

	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/ports"
)

// ObjectiveIndex resolves objective names from configuration to the
// objectives of a built Problem. Lookups use Unicode case folding.
type ObjectiveIndex struct {
	byName map[string]*domain.Objective
}

// Lookup returns the objective declared under name.
func (idx ObjectiveIndex) Lookup(name string) (*domain.Objective, bool) {
	o, ok := idx.byName[cases.Fold().String(name)]
	return o, ok
}

// BuildProblem creates the Problem declared by the configuration, with
// objectives in declaration order.
func BuildProblem(config *RunConfig) (*domain.Problem, ObjectiveIndex) {
	fold := cases.Fold()
	idx := ObjectiveIndex{byName: make(map[string]*domain.Objective, len(config.Objectives))}
	objectives := make([]*domain.Objective, 0, len(config.Objectives))
	for _, oc := range config.Objectives {
		o := domain.NewObjective(oc.Name)
		objectives = append(objectives, o)
		idx.byName[fold.String(oc.Name)] = o
	}
	return domain.NewProblem(objectives...), idx
}

// BuildTrials creates one Trial per configured trial, in order.
// Returns an error if a score names an objective missing from idx.
func BuildTrials(config *RunConfig, problem *domain.Problem, idx ObjectiveIndex) ([]*domain.Trial, error) {
	trials := make([]*domain.Trial, 0, len(config.Trials))
	for i, tc := range config.Trials {
		scores := make(map[*domain.Objective]domain.Score, len(tc.Scores))
		for name, sc := range tc.Scores {
			o, ok := idx.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("trials[%d]: unknown objective %q", i, name)
			}
			scores[o] = domain.NewScore(sc.Value, sc.Satisfaction)
		}

		if tc.ID != "" {
			trials = append(trials, domain.NewTrialWithID(tc.ID, problem, scores))
		} else {
			trials = append(trials, domain.NewTrial(problem, scores))
		}
	}
	return trials, nil
}

// NewJudge creates the configured judge through the registry and applies
// the configured weights.
func NewJudge(
	config *RunConfig,
	registry ports.JudgeRegistry,
	idx ObjectiveIndex,
	deps ports.JudgeDeps,
) (ports.SolutionJudge, error) {
	id := config.Judge.ID
	if id == "" {
		id = config.Judge.Type
	}

	judge, err := registry.CreateJudge(config.Judge.Type, id, judgeParameters(config.Judge), deps)
	if err != nil {
		return nil, err
	}

	if len(config.Judge.Weights) == 0 {
		return judge, nil
	}
	weighted, ok := JudgeAs[ports.WeightedJudge](judge)
	if !ok {
		return nil, fmt.Errorf("judge %s of type %s does not support weights", id, config.Judge.Type)
	}
	for name, w := range config.Judge.Weights {
		o, ok := idx.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("weight references unknown objective %q", name)
		}
		weighted.SetWeight(o, w)
	}
	return judge, nil
}

// judgeParameters converts the typed judge section into the loosely typed
// map consumed by judge factories.
func judgeParameters(jc JudgeConfig) map[string]any {
	params := make(map[string]any, 2)
	if jc.TiePolicy != "" {
		params["tie_policy"] = jc.TiePolicy
	}
	if jc.Tolerance != 0 {
		params["tolerance"] = jc.Tolerance
	}
	return params
}

// JudgeAs finds the first judge in a decorator chain that implements T.
// Decorators expose the judge they wrap through an Unwrap method.
func JudgeAs[T any](judge ports.SolutionJudge) (T, bool) {
	for judge != nil {
		if t, ok := judge.(T); ok {
			return t, true
		}
		u, ok := judge.(interface{ Unwrap() ports.SolutionJudge })
		if !ok {
			break
		}
		judge = u.Unwrap()
	}
	var zero T
	return zero, false
}

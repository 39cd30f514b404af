package domain

import (
	"maps"
	"math"
	"sync/atomic"

	"github.com/google/uuid"
)

// Trial represents one candidate solution under evaluation by the search
// process. A Trial references its Problem, carries one Score per
// Objective and a single overall satisfaction written by a judge.
//
// Trials are shared between the solver that created them and any judge
// that retains them in its optimal-solution set. Apart from the
// satisfaction attribute a Trial is read-only after construction, so it
// is safe for concurrent use.
type Trial struct {
	id      string
	problem *Problem
	scores  map[*Objective]Score

	// satisfaction holds the float64 bits of the last judgment.
	satisfaction atomic.Uint64
}

// NewTrial creates a Trial for the given problem with a random identifier.
// The scores map is copied; later changes to it do not affect the Trial.
func NewTrial(problem *Problem, scores map[*Objective]Score) *Trial {
	return NewTrialWithID(uuid.NewString(), problem, scores)
}

// NewTrialWithID creates a Trial with an explicit identifier.
func NewTrialWithID(id string, problem *Problem, scores map[*Objective]Score) *Trial {
	owned := make(map[*Objective]Score, len(scores))
	maps.Copy(owned, scores)
	return &Trial{
		id:      id,
		problem: problem,
		scores:  owned,
	}
}

// ID returns the trial's identifier.
func (t *Trial) ID() string { return t.id }

// Problem returns the problem this trial was created against.
func (t *Trial) Problem() *Problem { return t.problem }

// Score returns the score the trial carries for the objective and whether
// one is present.
func (t *Trial) Score(objective *Objective) (Score, bool) {
	s, ok := t.scores[objective]
	return s, ok
}

// Satisfaction returns the overall satisfaction assigned by the most
// recent judgment, or 0 if the trial has never been judged.
func (t *Trial) Satisfaction() float64 {
	return math.Float64frombits(t.satisfaction.Load())
}

// SetSatisfaction records the overall satisfaction of the trial.
// Each judgment overwrites the previous value.
func (t *Trial) SetSatisfaction(v float64) {
	t.satisfaction.Store(math.Float64bits(v))
}

// Package domain contains the pure domain models and types
// for the solution-judging engine.
package domain

// Objective is a named evaluation criterion within a Problem.
// Objectives compare by identity: two objectives created with the same
// name are distinct map keys. The judge attaches weights to objectives
// and reads one Score per objective from each Trial.
type Objective struct {
	name string
}

// NewObjective creates a new Objective with the given name.
func NewObjective(name string) *Objective {
	return &Objective{name: name}
}

// Name returns the human-readable name of the objective.
func (o *Objective) Name() string { return o.name }

// String implements fmt.Stringer.
func (o *Objective) String() string { return o.name }

// Score is an Objective's evaluation of a specific Trial.
// Score is a value type and is immutable once constructed.
type Score struct {
	value        float64
	satisfaction float64
}

// NewScore creates a Score from the raw objective value and the
// satisfaction derived from it. Satisfaction conventionally lies in
// [0, 1] but the range is not enforced.
func NewScore(value, satisfaction float64) Score {
	return Score{value: value, satisfaction: satisfaction}
}

// Value returns the raw value the objective measured for the trial.
func (s Score) Value() float64 { return s.value }

// Satisfaction returns how well the trial meets the objective.
func (s Score) Satisfaction() float64 { return s.satisfaction }

// Problem owns the ordered set of active Objectives for a search run.
// The objective sequence is fixed at construction and never changes for
// the lifetime of the Problem.
type Problem struct {
	objectives []*Objective
}

// NewProblem creates a Problem over the given objectives, preserving
// their order. Nil objectives are dropped.
func NewProblem(objectives ...*Objective) *Problem {
	owned := make([]*Objective, 0, len(objectives))
	for _, o := range objectives {
		if o != nil {
			owned = append(owned, o)
		}
	}
	return &Problem{objectives: owned}
}

// Objectives returns the problem's objectives in declaration order.
// The returned slice is a copy and may be modified freely.
func (p *Problem) Objectives() []*Objective {
	return append([]*Objective(nil), p.objectives...)
}

// NumObjectives returns the number of active objectives.
func (p *Problem) NumObjectives() int { return len(p.objectives) }

// Objective returns the first objective with the given name.
func (p *Problem) Objective(name string) (*Objective, bool) {
	for _, o := range p.objectives {
		if o.name == name {
			return o, true
		}
	}
	return nil, false
}

// Package judges provides solution-judging strategies that implement the
// ports.SolutionJudge interface for the go-optimum engine.
package judges

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/ports"
)

// DefaultWeight is the weight of any objective without an explicit weight.
const DefaultWeight = 1.0

// TiePolicy represents the strategy for deciding whether two satisfaction
// values are equal when maintaining the optimal-solution set.
type TiePolicy string

// Supported tie policies.
const (
	// TieExact treats values as tied only when they are bit-for-bit equal.
	// This is the default and reproduces the classic judging semantics.
	TieExact TiePolicy = "exact"

	// TieTolerance treats values within an absolute tolerance as tied.
	// Use it when aggregation order or rounding makes exact ties fragile.
	TieTolerance TiePolicy = "tolerance"
)

// Common errors returned by judge constructors.
var (
	// ErrEmptyJudgeName is returned when attempting to create a judge with an empty name.
	ErrEmptyJudgeName = errors.New("judge name cannot be empty")

	// ErrInvalidTolerance is returned when a tolerance is negative or not a number.
	ErrInvalidTolerance = errors.New("tolerance must be a non-negative number")

	// ErrUnknownTiePolicy is returned for tie policies other than exact or tolerance.
	ErrUnknownTiePolicy = errors.New("unknown tie policy")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// options holds the settings shared by all judge strategies.
// They are fixed at construction and survive Reset.
type options struct {
	listener  ports.OptimalSolutionListener
	logger    *slog.Logger
	tiePolicy TiePolicy
	tolerance float64
}

// Option configures a judge at construction time.
type Option func(*options)

// WithListener sets the listener notified whenever the optimal set changes.
// The listener runs inside the judge's critical section; it may read the
// judge through OptimalSolutions but must not call Judge, Reset or SetWeight.
func WithListener(l ports.OptimalSolutionListener) Option {
	return func(o *options) { o.listener = l }
}

// WithLogger sets the structured logger used for judge diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTiePolicy selects how satisfaction values are compared.
func WithTiePolicy(policy TiePolicy) Option {
	return func(o *options) { o.tiePolicy = policy }
}

// WithTolerance switches to TieTolerance with the given absolute tolerance.
func WithTolerance(tolerance float64) Option {
	return func(o *options) {
		o.tiePolicy = TieTolerance
		o.tolerance = tolerance
	}
}

// withDeps converts registry-injected dependencies into options.
func withDeps(deps ports.JudgeDeps) []Option {
	opts := make([]Option, 0, 2)
	if deps.Listener != nil {
		opts = append(opts, WithListener(deps.Listener))
	}
	if deps.Logger != nil {
		opts = append(opts, WithLogger(deps.Logger))
	}
	return opts
}

func buildOptions(opts []Option) (options, error) {
	o := options{
		logger:    slog.New(slog.DiscardHandler),
		tiePolicy: TieExact,
	}
	for _, opt := range opts {
		opt(&o)
	}

	switch o.tiePolicy {
	case TieExact:
	case TieTolerance:
		if math.IsNaN(o.tolerance) || o.tolerance < 0 {
			return o, fmt.Errorf("%w: %v", ErrInvalidTolerance, o.tolerance)
		}
	default:
		return o, fmt.Errorf("%w: %q", ErrUnknownTiePolicy, o.tiePolicy)
	}
	return o, nil
}

// compare orders x against y under the configured tie policy.
// It returns 0 when tied, 1 when x is better and -1 otherwise.
// NaN never ties and is never better.
func (o options) compare(x, y float64) int {
	if o.tiePolicy == TieTolerance {
		d := x - y
		switch {
		case math.Abs(d) <= o.tolerance:
			return 0
		case d > o.tolerance:
			return 1
		default:
			return -1
		}
	}

	switch {
	case x == y:
		return 0
	case x > y:
		return 1
	default:
		return -1
	}
}

// satisfactions checks that the trial can be judged and returns its
// objectives with the matching satisfaction values in problem order.
// It never modifies the trial.
func satisfactions(trial *domain.Trial) ([]*domain.Objective, []float64, error) {
	if trial == nil {
		return nil, nil, domain.NewTrialError("", "", domain.ReasonNilTrial)
	}
	problem := trial.Problem()
	if problem == nil {
		return nil, nil, domain.NewTrialError(trial.ID(), "", domain.ReasonNilProblem)
	}

	objectives := problem.Objectives()
	if len(objectives) == 0 {
		return nil, nil, domain.NewTrialError(trial.ID(), "", domain.ReasonNoObjectives)
	}

	values := make([]float64, len(objectives))
	for i, objective := range objectives {
		score, ok := trial.Score(objective)
		if !ok {
			return nil, nil, domain.NewTrialError(trial.ID(), objective.Name(), domain.ReasonMissingScore)
		}
		values[i] = score.Satisfaction()
	}
	return objectives, values, nil
}

// snapshot is an immutable view of a judge's optimal set published after
// every change, so readers never wait on an in-progress judgment.
type snapshot struct {
	best    float64
	optimal []*domain.Trial
}

// publisher stores the latest snapshot of a judge.
type publisher struct {
	current atomic.Pointer[snapshot]
}

func (p *publisher) publish(s *snapshot) { p.current.Store(s) }

func (p *publisher) load() *snapshot {
	if s := p.current.Load(); s != nil {
		return s
	}
	return &snapshot{}
}

// solutions returns a caller-owned copy of the published optimal set.
func (p *publisher) solutions() []*domain.Trial {
	return append([]*domain.Trial(nil), p.load().optimal...)
}

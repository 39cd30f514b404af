// Package testutils provides utilities for testing, including synthetic
// problem and trial generators. These components are intended for internal
// use within the project's test suites and tools and are not part of the
// public API.
package testutils

import (
	"fmt"
	"math/rand"

	"github.com/ahrav/go-optimum/internal/domain"
)

// DefaultLevels is the number of distinct satisfaction steps above zero.
// Coarse steps make exact ties between trials common.
const DefaultLevels = 4

// TrialGenerator creates reproducible synthetic problems and trials.
// A TrialGenerator is not safe for concurrent use.
type TrialGenerator struct {
	rng *rand.Rand

	// Levels quantizes satisfactions to multiples of 1/Levels in [0, 1].
	// Values below 1 fall back to DefaultLevels.
	Levels int

	// MissingRate is the probability that a trial omits the score of one
	// objective, which makes it invalid for judging.
	MissingRate float64
}

// NewTrialGenerator creates a generator. The seed parameter controls
// randomization; use a fixed value for reproducible tests.
func NewTrialGenerator(seed int64) *TrialGenerator {
	return &TrialGenerator{
		rng:    rand.New(rand.NewSource(seed)),
		Levels: DefaultLevels,
	}
}

// ObjectiveName returns the name the generator gives the i-th objective.
func ObjectiveName(i int) string { return fmt.Sprintf("objective-%02d", i+1) }

// TrialID returns the id the generator gives the i-th trial.
func TrialID(i int) string { return fmt.Sprintf("trial-%04d", i+1) }

// Problem returns a problem with n objectives named by ObjectiveName.
func (g *TrialGenerator) Problem(n int) *domain.Problem {
	objectives := make([]*domain.Objective, n)
	for i := range n {
		objectives[i] = domain.NewObjective(ObjectiveName(i))
	}
	return domain.NewProblem(objectives...)
}

// Trials returns count trials for problem with ids from TrialID.
// Each score's value equals its satisfaction.
func (g *TrialGenerator) Trials(problem *domain.Problem, count int) []*domain.Trial {
	objectives := problem.Objectives()
	trials := make([]*domain.Trial, 0, count)
	for i := range count {
		skip := -1
		if len(objectives) > 0 && g.rng.Float64() < g.MissingRate {
			skip = g.rng.Intn(len(objectives))
		}

		scores := make(map[*domain.Objective]domain.Score, len(objectives))
		for j, o := range objectives {
			if j == skip {
				continue
			}
			s := g.satisfaction()
			scores[o] = domain.NewScore(s, s)
		}
		trials = append(trials, domain.NewTrialWithID(TrialID(i), problem, scores))
	}
	return trials
}

func (g *TrialGenerator) satisfaction() float64 {
	levels := g.Levels
	if levels < 1 {
		levels = DefaultLevels
	}
	return float64(g.rng.Intn(levels+1)) / float64(levels)
}

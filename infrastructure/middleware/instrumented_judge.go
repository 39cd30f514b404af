// Package middleware provides cross-cutting concerns for the judging engine.
// It implements the decorator pattern so that tracing and metrics stay out
// of the judging strategies themselves.
package middleware

import (
	"context"
	"time"

	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/ports"
)

var _ ports.SolutionJudge = (*InstrumentedJudge)(nil)

// JudgeObserver provides observability hooks around a single judgment.
// Implementations can add tracing, metrics, and logging without
// coupling observability concerns to the judging strategy.
type JudgeObserver interface {
	// PreJudge is called before the wrapped judge runs. The returned
	// context is passed to PostJudge, which lets observers carry spans.
	PreJudge(ctx context.Context, judge ports.SolutionJudge, trial *domain.Trial) context.Context

	// PostJudge is called after the wrapped judge returns with timing and
	// the judge's error, if any.
	PostJudge(ctx context.Context, judge ports.SolutionJudge, trial *domain.Trial, elapsed time.Duration, err error)
}

// InstrumentedJudge wraps a SolutionJudge and reports every judgment to a
// JudgeObserver. It holds no judging state of its own; Reset and
// OptimalSolutions go straight to the wrapped judge.
type InstrumentedJudge struct {
	// next is the judge doing the actual work.
	next ports.SolutionJudge

	// observer provides optional observability hooks for tracing and metrics.
	observer JudgeObserver
}

// NewInstrumentedJudge creates a decorator around next. The observer may be nil.
func NewInstrumentedJudge(next ports.SolutionJudge, observer JudgeObserver) *InstrumentedJudge {
	if next == nil {
		panic("instrumented judge: next judge is required")
	}
	return &InstrumentedJudge{next: next, observer: observer}
}

// Name returns the wrapped judge's name.
func (ij *InstrumentedJudge) Name() string { return ij.next.Name() }

// Reset resets the wrapped judge.
func (ij *InstrumentedJudge) Reset() { ij.next.Reset() }

// OptimalSolutions returns the wrapped judge's optimal set.
func (ij *InstrumentedJudge) OptimalSolutions() []*domain.Trial { return ij.next.OptimalSolutions() }

// Unwrap returns the wrapped judge.
func (ij *InstrumentedJudge) Unwrap() ports.SolutionJudge { return ij.next }

// Judge judges the trial with a background context.
func (ij *InstrumentedJudge) Judge(trial *domain.Trial) error {
	return ij.JudgeContext(context.Background(), trial)
}

// JudgeContext judges the trial, attaching the observer's spans and metrics
// to ctx. A context that is already done is reported without judging.
func (ij *InstrumentedJudge) JudgeContext(ctx context.Context, trial *domain.Trial) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ij.observer != nil {
		ctx = ij.observer.PreJudge(ctx, ij.next, trial)
	}

	start := time.Now()
	err := ij.next.Judge(trial)
	elapsed := time.Since(start)

	if ij.observer != nil {
		ij.observer.PostJudge(ctx, ij.next, trial, elapsed, err)
	}
	return err
}

// Package events delivers optimal-solution notifications from judges to
// any number of in-process subscribers.
package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ahrav/go-optimum/internal/domain"
	"github.com/ahrav/go-optimum/internal/ports"
)

var _ ports.OptimalSolutionListener = (*Proxy)(nil)

type subscription struct {
	id       string
	listener ports.OptimalSolutionListener
}

// Proxy is an OptimalSolutionListener that fans every notification out to
// its subscribers, synchronously and in subscription order, on the
// goroutine that called Judge.
//
// A panicking subscriber is recovered and logged; the remaining
// subscribers still receive the event.
//
// Thread Safety: Proxy is safe for concurrent use. Subscribers may
// subscribe or unsubscribe from within a callback; the change takes effect
// with the next notification.
type Proxy struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *slog.Logger
}

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithLogger sets the logger used to report subscriber panics.
func WithLogger(logger *slog.Logger) ProxyOption {
	return func(p *Proxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProxy creates a proxy with no subscribers.
func NewProxy(opts ...ProxyOption) *Proxy {
	p := &Proxy{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subscribe registers a listener and returns its subscription ID.
// A nil listener is ignored and yields an empty ID.
func (p *Proxy) Subscribe(listener ports.OptimalSolutionListener) string {
	if listener == nil {
		return ""
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.NewString()
	p.subs = append(p.subs, subscription{id: id, listener: listener})
	return id
}

// SubscribeFunc registers a plain function as a listener.
func (p *Proxy) SubscribeFunc(fn func(judge ports.SolutionJudge, solutions []*domain.Trial, trial *domain.Trial)) string {
	if fn == nil {
		return ""
	}
	return p.Subscribe(ports.OptimalSolutionListenerFunc(fn))
}

// Unsubscribe removes a subscription.
// It reports whether the subscription was found.
func (p *Proxy) Unsubscribe(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, s := range p.subs {
		if s.id == id {
			p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of active subscriptions.
func (p *Proxy) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// FoundNewOptimalSolution delivers the event to every subscriber exactly once.
// Each subscriber receives its own copy of the solutions slice.
func (p *Proxy) FoundNewOptimalSolution(judge ports.SolutionJudge, solutions []*domain.Trial, trial *domain.Trial) {
	p.mu.RLock()
	subs := p.subs
	p.mu.RUnlock()

	for _, s := range subs {
		p.safeDeliver(s, judge, append([]*domain.Trial(nil), solutions...), trial)
	}
}

func (p *Proxy) safeDeliver(s subscription, judge ports.SolutionJudge, solutions []*domain.Trial, trial *domain.Trial) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("optimal solution subscriber panicked",
				slog.String("subscription_id", s.id),
				slog.String("judge", judge.Name()),
				slog.String("trial_id", trial.ID()),
				slog.Any("panic", r),
			)
		}
	}()
	s.listener.FoundNewOptimalSolution(judge, solutions, trial)
}

package application

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ahrav/go-optimum/infrastructure/judges"
	"github.com/ahrav/go-optimum/internal/ports"
)

// Built-in judge types.
const (
	JudgeTypeWeightedSatisfaction = "weighted_satisfaction"
	JudgeTypePareto               = "pareto"
)

// Verify interface compliance at compile time.
var _ ports.JudgeRegistry = (*DefaultJudgeRegistry)(nil)

// DefaultJudgeRegistry implements the JudgeRegistry interface providing
// a factory for creating judges based on type and configuration.
// It supports dynamic registration of judge factories.
type DefaultJudgeRegistry struct {
	// factories maps judge type strings to their factory functions.
	factories map[string]ports.JudgeFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
}

// NewDefaultJudgeRegistry creates a new registry with the built-in judge
// types pre-registered.
func NewDefaultJudgeRegistry() *DefaultJudgeRegistry {
	return &DefaultJudgeRegistry{
		factories: map[string]ports.JudgeFactory{
			JudgeTypeWeightedSatisfaction: judges.NewWeightedSatisfactionFromConfig,
			JudgeTypePareto:               judges.NewParetoFromConfig,
		},
	}
}

// CreateJudge creates a new judge instance based on the provided type,
// identifier, and configuration.
func (r *DefaultJudgeRegistry) CreateJudge(
	judgeType string,
	id string,
	config map[string]any,
	deps ports.JudgeDeps,
) (ports.SolutionJudge, error) {
	r.mu.RLock()
	factory, exists := r.factories[judgeType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnknownJudgeType, judgeType)
	}

	if id == "" {
		return nil, fmt.Errorf("judge ID cannot be empty")
	}

	if config == nil {
		config = make(map[string]any)
	}

	judge, err := factory(id, config, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create judge %s of type %s: %w", id, judgeType, err)
	}

	return judge, nil
}

// RegisterJudgeFactory registers a new factory function for a judge type,
// replacing any existing factory for that type.
func (r *DefaultJudgeRegistry) RegisterJudgeFactory(
	judgeType string,
	factory ports.JudgeFactory,
) error {
	if judgeType == "" {
		return fmt.Errorf("judge type cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[judgeType] = factory
	return nil
}

// SupportedTypes returns all registered judge types in sorted order.
func (r *DefaultJudgeRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for judgeType := range r.factories {
		types = append(types, judgeType)
	}
	slices.Sort(types)

	return types
}

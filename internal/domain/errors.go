package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during judging operations.
var (
	// ErrInvalidTrial indicates that a Trial cannot be judged because its
	// Problem has no objectives or a required Score is absent.
	ErrInvalidTrial = errors.New("invalid trial")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Reasons reported by TrialError.
const (
	ReasonNilTrial     = "nil trial"
	ReasonNilProblem   = "trial has no problem"
	ReasonNoObjectives = "problem has no objectives"
	ReasonMissingScore = "missing score"
	ReasonZeroWeight   = "total objective weight is zero"
)

// TrialError represents a failure to judge a specific Trial.
// It provides context about which trial and objective caused the error
// and always unwraps to ErrInvalidTrial.
type TrialError struct {
	// TrialID identifies the rejected trial. It is empty for nil trials.
	TrialID string

	// Objective names the objective involved, if any.
	Objective string

	// Reason describes why the trial was rejected.
	Reason string
}

// Error implements the error interface for TrialError.
func (e *TrialError) Error() string {
	if e.Objective != "" {
		return fmt.Sprintf("%v: trial=%s, reason=%s, objective=%s", ErrInvalidTrial, e.TrialID, e.Reason, e.Objective)
	}
	return fmt.Sprintf("%v: trial=%s, reason=%s", ErrInvalidTrial, e.TrialID, e.Reason)
}

// Unwrap returns ErrInvalidTrial so callers can match with errors.Is.
func (e *TrialError) Unwrap() error { return ErrInvalidTrial }

// NewTrialError creates a new TrialError with the given details.
func NewTrialError(trialID, objective, reason string) *TrialError {
	return &TrialError{
		TrialID:   trialID,
		Objective: objective,
		Reason:    reason,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// AddErrorf adds a formatted error message to the validation error.
func (e *ValidationError) AddErrorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

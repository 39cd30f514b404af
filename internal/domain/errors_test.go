package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrialError(t *testing.T) {
	tests := []struct {
		name      string
		trialID   string
		objective string
		reason    string
		wantMsg   string
	}{
		{
			name:    "problem without objectives",
			trialID: "t1",
			reason:  ReasonNoObjectives,
			wantMsg: "invalid trial: trial=t1, reason=problem has no objectives",
		},
		{
			name:      "missing score names the objective",
			trialID:   "t2",
			objective: "throughput",
			reason:    ReasonMissingScore,
			wantMsg:   "invalid trial: trial=t2, reason=missing score, objective=throughput",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTrialError(tt.trialID, tt.objective, tt.reason)

			assert.Equal(t, tt.wantMsg, err.Error(), "Error message mismatch")
			assert.Equal(t, tt.trialID, err.TrialID, "TrialID mismatch")
			assert.Equal(t, tt.reason, err.Reason, "Reason mismatch")
			assert.True(t, errors.Is(err, ErrInvalidTrial), "Should unwrap to ErrInvalidTrial")
		})
	}
}

func TestTrialErrorWrapping(t *testing.T) {
	wrapped := fmt.Errorf("judge %s: %w", "weighted", NewTrialError("t9", "", ReasonNilProblem))

	assert.True(t, errors.Is(wrapped, ErrInvalidTrial), "Should match through fmt wrapping")

	var trialErr *TrialError
	require.True(t, errors.As(wrapped, &trialErr), "Should extract TrialError")
	assert.Equal(t, "t9", trialErr.TrialID)
	assert.Equal(t, ReasonNilProblem, trialErr.Reason)
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("RunConfig")
		err.AddError("missing objectives")

		assert.Equal(t, "validation error for RunConfig: missing objectives", err.Error())
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.Len(t, err.Errors, 1, "Should have one error")
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("RunConfig")
		err.AddError("unknown objective")
		err.AddErrorf("duplicate trial id %q", "t1")

		assert.Contains(t, err.Error(), "validation errors for RunConfig")
		assert.Contains(t, err.Error(), `duplicate trial id "t1"`)
		assert.Len(t, err.Errors, 2, "Should have two errors")
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("Config")

		assert.False(t, err.HasErrors(), "Should not have errors")
		assert.Empty(t, err.Errors, "Errors slice should be empty")
	})

	t.Run("unwraps to invalid configuration", func(t *testing.T) {
		err := NewValidationError("Config")
		err.AddError("bad")

		assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	})
}

func TestCommonDomainErrors(t *testing.T) {
	tests := []struct {
		err     error
		message string
	}{
		{ErrInvalidTrial, "invalid trial"},
		{ErrInvalidConfiguration, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error(), "Error message mismatch")
		})
	}
}

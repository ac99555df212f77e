package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"parse", &ParseError{Fragment: "x", Offset: 2, Message: "dangling operator"}, ErrParse},
		{"unresolved", &UnresolvedVariableError{Name: "x"}, ErrUnresolvedVariable},
		{"levels", &FactorLevelRangeError{Name: "f", Levels: 25, Min: 2, Max: 20}, ErrFactorLevelRange},
		{"config", &VariableConfigError{Name: "f", Reason: "duplicate level"}, ErrVariableConfig},
		{"hierarchy", &ClusterHierarchyError{Group: "g", Reason: "cycle"}, ErrClusterHierarchy},
		{"slope", &UnsupportedRandomSlopeError{Group: "g", Variable: "f", Kind: "factor"}, ErrUnsupportedRandomSlope},
		{"model", &ModelValidationError{Reason: "no predictors"}, ErrModelValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := &StageError{Stage: StageResolve, Err: tt.err}
			assert.True(t, errors.Is(wrapped, tt.sentinel))
			assert.Equal(t, StageResolve, StageOf(fmt.Errorf("outer: %w", wrapped)))
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsParseError(&ParseError{Message: "boom"}))
	assert.True(t, IsResolutionError(&FactorLevelRangeError{Name: "f"}))
	assert.True(t, IsClusterError(&UnsupportedRandomSlopeError{}))
	assert.True(t, IsNotFoundError(ErrDatasetNotFound))
	assert.False(t, IsClusterError(ErrParse))
	assert.Equal(t, Stage(""), StageOf(errors.New("plain")))
}

func TestParseErrorHint(t *testing.T) {
	err := &ParseError{Fragment: "x1", Offset: 2, Message: "missing '=' or '~'"}
	assert.Equal(t, "y x1 + x2\n  ^", err.Hint("y x1 + x2"))
	assert.Contains(t, err.Error(), "column 3")
}

func TestComputeSpecHashIsOrderSensitive(t *testing.T) {
	a := ComputeSpecHash("y", "a", "b")
	b := ComputeSpecHash("y", "b", "a")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, ComputeSpecHash("y", "a", "b"))
	assert.Len(t, a.Short(), 12)
}

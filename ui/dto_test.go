package ui

import (
	"testing"

	"mcspec/domain/variable"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariableDTO_FactorProportionsFollowLabels(t *testing.T) {
	dto := VariableDTO{
		Kind:        "factor",
		LevelLabels: []string{"control", "low", "high"},
		Proportions: []float64{0.6, 0.3, 0.1},
	}
	spec, err := dto.Spec("arm")
	require.NoError(t, err)
	assert.Equal(t, variable.KindFactor, spec.Kind)
	assert.Equal(t, []string{"control", "high", "low"}, spec.Levels)
	assert.Equal(t, []float64{0.6, 0.1, 0.3}, spec.Proportions)

	dto.Proportions = []float64{0.6, 0.4}
	_, err = dto.Spec("arm")
	assert.Error(t, err)
}

package app

import (
	"context"
	"errors"
	"testing"

	"mcspec/domain/core"
	"mcspec/domain/modelspec"
	"mcspec/domain/variable"
	"mcspec/internal/parser"
	"mcspec/internal/resolver"
	"mcspec/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manual(specs ...variable.Spec) map[string]variable.Spec {
	m := make(map[string]variable.Spec, len(specs))
	for _, s := range specs {
		m[s.Name] = s
	}
	return m
}

func resolve(t *testing.T, in Input) Resolution {
	t.Helper()
	return NewAssembler(nil).Resolve(context.Background(), in)
}

func TestAssembler_ContinuousPredictors(t *testing.T) {
	res := resolve(t, Input{
		Formula: "y = x1 + x2",
		Manual:  manual(variable.Continuous("y"), variable.Continuous("x1"), variable.Continuous("x2")),
	})
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, "y", res.Spec.Dependent())
	assert.Equal(t, []string{"x1", "x2"}, res.Spec.TermNames())
	assert.False(t, res.Spec.IsMixed())
}

func TestAssembler_FactorByBinaryInteraction(t *testing.T) {
	res := resolve(t, Input{
		Formula: "y = a*b",
		Manual: manual(
			variable.Continuous("y"),
			variable.NumberedFactor("a", 3),
			variable.Binary("b", 0.5),
		),
	})
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, []string{"a[2]", "a[3]", "b", "a[2]:b", "a[3]:b"}, res.Spec.TermNames())
	assert.Equal(t, []string{"a", "b", "a:b"}, res.Spec.Predictors())
	assert.Equal(t, map[string]int{"a": 3}, res.Spec.Factors())
}

func TestAssembler_RandomIntercept(t *testing.T) {
	res := resolve(t, Input{
		Formula: "y ~ x + (1|school)",
		Options: resolver.Options{AssumeContinuous: true},
	})
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, []string{"x"}, res.Spec.TermNames())
	assert.Equal(t, []modelspec.ClusterSpec{{Group: "school"}}, res.Spec.Clusters())
	_, hasSchool := res.Spec.Variable("school")
	assert.False(t, hasSchool, "grouping names are not variables")
}

func TestAssembler_NestedRandomSlope(t *testing.T) {
	res := resolve(t, Input{
		Formula: "y ~ x + (1 + x|school/class)",
		Options: resolver.Options{AssumeContinuous: true},
	})
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, []modelspec.ClusterSpec{
		{Group: "school", HasRandomSlope: true, SlopeVariable: "x"},
		{Group: "class", Parent: "school", HasRandomSlope: true, SlopeVariable: "x"},
	}, res.Spec.Clusters())
	assert.Equal(t, "y ~ x + (1 + x|school) + (1 + x|school/class)", res.Spec.Formula())
}

func TestAssembler_DataProvider(t *testing.T) {
	res := resolve(t, Input{
		Formula: "mpg ~ hp + origin + am",
		Data:    testkit.CarsProvider(),
	})
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, []string{"hp", "origin[Japan]", "origin[USA]", "am"}, res.Spec.TermNames())
	assert.Equal(t, []string{"hp", "am"}, res.Spec.CorrelableVariables())

	spec, ok := res.Spec.Variable("origin")
	require.True(t, ok)
	assert.Equal(t, variable.SourceData, spec.Source)
}

func TestAssembler_DataWinsOverManual(t *testing.T) {
	res := resolve(t, Input{
		Formula: "mpg ~ cyl",
		Manual:  manual(variable.Continuous("cyl")),
		Data:    testkit.CarsProvider(),
	})
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, []string{"cyl[6]", "cyl[8]"}, res.Spec.TermNames())
}

func TestAssembler_Empty(t *testing.T) {
	res := resolve(t, Input{Formula: "   "})
	assert.Equal(t, StateEmpty, res.State)
	assert.Nil(t, res.Spec)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Summary())
}

func TestAssembler_Failures(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		stage    core.Stage
		sentinel error
	}{
		{
			name:     "missing separator",
			in:       Input{Formula: "y x1 + x2"},
			stage:    core.StageParse,
			sentinel: core.ErrParse,
		},
		{
			name: "unresolved predictor",
			in: Input{
				Formula: "y ~ x + z",
				Manual:  manual(variable.Continuous("y"), variable.Continuous("x")),
			},
			stage:    core.StageResolve,
			sentinel: core.ErrUnresolvedVariable,
		},
		{
			name: "factor with too many levels",
			in: Input{
				Formula: "y ~ f",
				Manual:  manual(variable.Continuous("y"), variable.NumberedFactor("f", 25)),
			},
			stage:    core.StageResolve,
			sentinel: core.ErrFactorLevelRange,
		},
		{
			name: "factor random slope",
			in: Input{
				Formula: "mpg ~ hp + (1 + origin|cyl)",
				Data:    testkit.CarsProvider(),
			},
			stage:    core.StageRandomEffects,
			sentinel: core.ErrUnsupportedRandomSlope,
		},
		{
			name: "conflicting cluster declarations",
			in: Input{
				Formula: "y ~ x + (1|school) + (1 + x|school)",
				Options: resolver.Options{AssumeContinuous: true},
			},
			stage:    core.StageRandomEffects,
			sentinel: core.ErrClusterHierarchy,
		},
		{
			name: "dependent used as predictor",
			in: Input{
				Formula: "y ~ x + y:x",
				Options: resolver.Options{AssumeContinuous: true},
			},
			stage:    core.StageValidate,
			sentinel: core.ErrModelValidation,
		},
		{
			name: "only random effects",
			in: Input{
				Formula: "y ~ (1|g)",
				Options: resolver.Options{AssumeContinuous: true},
			},
			stage:    core.StageValidate,
			sentinel: core.ErrModelValidation,
		},
		{
			name: "group named like a variable",
			in: Input{
				Formula: "mpg ~ hp + (1|cyl)",
				Data:    testkit.CarsProvider(),
			},
			stage:    core.StageValidate,
			sentinel: core.ErrModelValidation,
		},
		{
			name: "group named like a configured variable",
			in: Input{
				Formula: "y ~ x + (1|site)",
				Manual:  manual(variable.Continuous("y"), variable.Continuous("x"), variable.NumberedFactor("site", 4)),
			},
			stage:    core.StageValidate,
			sentinel: core.ErrModelValidation,
		},
		{
			name: "dependent as random slope",
			in: Input{
				Formula: "y ~ x + (1 + y|g)",
				Options: resolver.Options{AssumeContinuous: true},
			},
			stage:    core.StageValidate,
			sentinel: core.ErrModelValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := resolve(t, tt.in)
			require.Equal(t, StateFailed, res.State)
			assert.Nil(t, res.Spec)
			assert.Equal(t, tt.stage, res.Stage)
			assert.True(t, errors.Is(res.Err, tt.sentinel), "got %v", res.Err)
		})
	}
}

func TestAssembler_PartialPreviewOnUnresolved(t *testing.T) {
	res := resolve(t, Input{
		Formula: "y ~ x + z + w",
		Manual:  manual(variable.Continuous("y"), variable.Continuous("x")),
	})
	require.Equal(t, StateFailed, res.State)
	assert.True(t, res.Partial())
	require.NotNil(t, res.Parsed)
	assert.Equal(t, []string{"x", "z", "w"}, res.Parsed.Predictors())
	assert.Contains(t, res.Variables, "x")
	assert.Len(t, res.Warnings, 2)

	summary := res.Summary()
	assert.Contains(t, summary, `✗ variable "z"`)
	assert.Contains(t, summary, `variable "w"`)
}

func TestAssembler_ParseErrorSummary(t *testing.T) {
	res := resolve(t, Input{Formula: "y x1 + x2"})
	assert.False(t, res.Partial())

	var pe *core.ParseError
	require.True(t, errors.As(res.Err, &pe))
	assert.Equal(t, "x1", pe.Fragment)
	assert.Equal(t, 2, pe.Offset)
	assert.Contains(t, res.Summary(), "Parse error: ")
}

func TestAssembler_Summary(t *testing.T) {
	res := resolve(t, Input{
		Formula: "y ~ x + (1|school)",
		Options: resolver.Options{AssumeContinuous: true},
	})
	require.True(t, res.OK())
	assert.Equal(t, "✓ Dependent: y\n  Predictors: x\n  Random effects: (1|school)", res.Summary())
}

func TestAssembler_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewAssembler(nil).Resolve(ctx, Input{Formula: "y ~ x", Options: resolver.Options{AssumeContinuous: true}})
	assert.Equal(t, StateFailed, res.State)
	assert.True(t, errors.Is(res.Err, core.ErrCancelled))
	assert.Nil(t, res.Parsed)
	assert.Equal(t, "Cancelled", res.Summary())
}

func TestAssembler_RoundTrip(t *testing.T) {
	inputs := []Input{
		{Formula: "y = x1 + x2", Options: resolver.Options{AssumeContinuous: true}},
		{Formula: "y = a*b", Manual: manual(variable.Continuous("y"), variable.NumberedFactor("a", 3), variable.Binary("b", 0.5))},
		{Formula: "y ~ x + (1|school)", Options: resolver.Options{AssumeContinuous: true}},
		{Formula: "y ~ x + (1 + x|school/class)", Options: resolver.Options{AssumeContinuous: true}},
		{Formula: "mpg ~ hp*am + origin + (1|plant)", Data: testkit.CarsProvider()},
	}
	for _, in := range inputs {
		t.Run(in.Formula, func(t *testing.T) {
			first := resolve(t, in)
			require.True(t, first.OK(), "err: %v", first.Err)

			rendered := first.Spec.Formula()
			_, err := parser.Parse(rendered)
			require.NoError(t, err)

			again := in
			again.Formula = rendered
			second := resolve(t, again)
			require.True(t, second.OK(), "err: %v", second.Err)
			assert.True(t, first.Spec.Equal(second.Spec), "%s vs %s", rendered, second.Spec.Formula())
			assert.Equal(t, first.Spec.Fingerprint(), second.Spec.Fingerprint())
		})
	}
}

func TestAssembler_Deterministic(t *testing.T) {
	in := Input{Formula: "mpg ~ cyl*origin*am + hp + (1 + hp|plant/line)", Data: testkit.CarsProvider()}
	first := resolve(t, in)
	require.True(t, first.OK(), "err: %v", first.Err)
	for i := 0; i < 20; i++ {
		again := resolve(t, in)
		require.True(t, again.OK())
		assert.Equal(t, first.Spec.TermNames(), again.Spec.TermNames())
		assert.True(t, first.Spec.Equal(again.Spec))
	}
}

func TestAssembler_DoesNotMutateManualConfig(t *testing.T) {
	m := manual(variable.Continuous("y"), variable.NumberedFactor("a", 3))
	res := resolve(t, Input{
		Formula: "y ~ a",
		Manual:  m,
		Options: resolver.Options{ReferenceOverrides: map[string]string{"a": "3"}},
	})
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, []string{"a[1]", "a[2]"}, res.Spec.TermNames())
	assert.Equal(t, "1", m["a"].Reference)
}

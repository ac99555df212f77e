package modelspec

import (
	"testing"

	"mcspec/domain/variable"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets(t *testing.T) {
	assert.Equal(t, 0.25, Preset(variable.KindContinuous, EffectMedium))
	assert.Equal(t, 0.8, Preset(variable.KindBinary, EffectLarge))
	assert.Equal(t, 0.2, Preset(variable.KindFactor, EffectSmall))

	size, err := ParseEffectSize("L")
	require.NoError(t, err)
	assert.Equal(t, EffectLarge, size)
	_, err = ParseEffectSize("huge")
	assert.Error(t, err)
}

func TestEffectsCarry(t *testing.T) {
	spec := sampleSpec()
	prev := Effects{"x": 0.33, "gone": 1}
	got := prev.Carry(spec, EffectSmall)
	assert.Equal(t, 0.33, got["x"])
	assert.Equal(t, 0.2, got["a[2]"])
	assert.NotContains(t, got, "gone")
	assert.Len(t, got, 6)
}

func TestCorrelations(t *testing.T) {
	assert.Equal(t, "a,b", CorrKey("b", "a"))
	a, b, ok := SplitCorrKey("a,b")
	require.True(t, ok)
	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)

	c := Correlations{}
	require.NoError(t, c.Set("x", "b", 0.3))
	assert.Equal(t, 0.3, c.Get("b", "x"))
	assert.Error(t, c.Set("x", "x", 0.1))
	assert.Error(t, c.Set("x", "b", 1.5))

	spec := sampleSpec()
	assert.Equal(t, [][2]string{{"b", "x"}}, Pairs(spec))
	c["a,x"] = 0.9
	carried := c.Carry(spec)
	assert.Equal(t, Correlations{"b,x": 0.3}, carried)
	assert.Equal(t, []string{"b,x"}, carried.NonZeroKeys())
}

func TestClusterParams(t *testing.T) {
	spec := sampleSpec()
	school, _ := spec.Cluster("school")
	class, _ := spec.Cluster("class")

	root := DefaultClusterParams(school)
	assert.Equal(t, ClusterParams{ICC: 0.2, NClusters: 20}, root)
	require.NoError(t, root.Validate(school))

	nested := DefaultClusterParams(class)
	assert.Equal(t, 3, nested.NPerParent)
	assert.Equal(t, 0.1, nested.SlopeVariance)
	require.NoError(t, nested.Validate(class))

	bad := root
	bad.ICC = 1
	assert.Error(t, bad.Validate(school))

	prev := ClusterConfig{"school": {ICC: 0.35, NClusters: 40}, "old": {ICC: 0.5}}
	carried := prev.Carry(spec)
	assert.Equal(t, 0.35, carried["school"].ICC)
	assert.Equal(t, 40, carried["school"].NClusters)
	assert.Equal(t, nested, carried["class"])
	assert.NotContains(t, carried, "old")
}

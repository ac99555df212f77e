package modelspec

import (
	"encoding/json"
	"testing"

	"mcspec/domain/variable"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSpec() *ModelSpec {
	vars := map[string]variable.Spec{
		"y": variable.Continuous("y"),
		"a": variable.NumberedFactor("a", 3),
		"b": variable.Binary("b", 0.5),
		"x": variable.Continuous("x"),
	}
	a2, a3, b := Atom{"a", "2"}, Atom{"a", "3"}, Atom{Variable: "b"}
	terms := []ExpandedTerm{
		{Atoms: []Atom{a2}, Source: "a"},
		{Atoms: []Atom{a3}, Source: "a"},
		{Atoms: []Atom{b}, Source: "b"},
		{Atoms: []Atom{{Variable: "x"}}, Source: "x"},
		{Atoms: []Atom{a2, b}, Source: "a:b"},
		{Atoms: []Atom{a3, b}, Source: "a:b"},
	}
	clusters := []ClusterSpec{
		{Group: "school"},
		{Group: "class", Parent: "school", HasRandomSlope: true, SlopeVariable: "x"},
	}
	return New("y", vars, []string{"a", "b", "x", "a:b"}, terms, clusters)
}

func TestAtomLabel(t *testing.T) {
	assert.Equal(t, "x", Atom{Variable: "x"}.Label())
	assert.Equal(t, "origin[Japan]", Atom{Variable: "origin", Level: "Japan"}.Label())
}

func TestTermKeyIsOrderIndependent(t *testing.T) {
	ab := ExpandedTerm{Atoms: []Atom{{"a", "2"}, {Variable: "b"}}}
	ba := ExpandedTerm{Atoms: []Atom{{Variable: "b"}, {"a", "2"}}}
	assert.Equal(t, ab.Key(), ba.Key())
	assert.NotEqual(t, ab.Name(), ba.Name())

	colon := ExpandedTerm{Atoms: []Atom{{"t", "10:30"}}}
	split := ExpandedTerm{Atoms: []Atom{{"t", "10"}, {"30", ""}}}
	assert.NotEqual(t, colon.Key(), split.Key())
}

func TestTermKind(t *testing.T) {
	spec := sampleSpec()
	kinds := spec.TermKinds()
	assert.Equal(t, variable.KindFactor, kinds["a[2]"])
	assert.Equal(t, variable.KindBinary, kinds["b"])
	assert.Equal(t, variable.KindContinuous, kinds["x"])
	assert.Equal(t, variable.KindFactor, kinds["a[3]:b"])
}

func TestFormulaRendering(t *testing.T) {
	spec := sampleSpec()
	assert.Equal(t, "y ~ a + b + x + a:b + (1|school) + (1 + x|school/class)", spec.Formula())
	assert.Equal(t, []string{"a[2]", "a[3]", "b", "x", "a[2]:b", "a[3]:b"}, spec.TermNames())
	assert.True(t, spec.IsMixed())
	c, ok := spec.Cluster("class")
	require.True(t, ok)
	assert.Equal(t, "class (random slope: x)", c.Describe())
}

func TestSpecIsImmutable(t *testing.T) {
	spec := sampleSpec()
	terms := spec.Terms()
	terms[0].Atoms[0].Level = "9"
	vars := spec.Variables()
	vars["a"].Levels[0] = "z"
	preds := spec.Predictors()
	preds[0] = "zzz"

	assert.Equal(t, "a[2]", spec.TermNames()[0])
	got, _ := spec.Variable("a")
	assert.Equal(t, "1", got.Levels[0])
	assert.Equal(t, "a", spec.Predictors()[0])
}

func TestCorrelableVariables(t *testing.T) {
	assert.Equal(t, []string{"b", "x"}, sampleSpec().CorrelableVariables())
	assert.Equal(t, map[string]int{"a": 3}, sampleSpec().Factors())
}

func TestJSONRoundTrip(t *testing.T) {
	spec := sampleSpec()
	data, err := json.Marshal(spec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"formula":"y ~ a + b + x + a:b`)

	var back ModelSpec
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, spec.Equal(&back))
	assert.Equal(t, spec.Fingerprint(), back.Fingerprint())
}

func TestFingerprintTracksReference(t *testing.T) {
	spec := sampleSpec()
	vars := spec.Variables()
	vars["a"] = vars["a"].WithReference("3")
	other := New(spec.Dependent(), vars, spec.Predictors(), spec.Terms(), spec.Clusters())
	assert.NotEqual(t, spec.Fingerprint(), other.Fingerprint())
	assert.False(t, spec.Equal(other))
}

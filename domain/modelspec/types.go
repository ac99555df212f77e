// Package modelspec defines the resolved, immutable model specification that
// every downstream consumer reads: the dependent variable, the expanded
// predictor terms and the random-effect cluster hierarchy.
//
// A ModelSpec is never patched. Any edit to the formula or the variable
// configuration produces a new snapshot through a full re-derivation.
package modelspec

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"mcspec/domain/core"
	"mcspec/domain/variable"
)

// keySeparator separates atom labels inside identity keys. Level labels come
// from user data and may contain ':', so the key uses a control character.
const keySeparator = "\x1f"

// Atom is one predictor column: a continuous or binary variable, or one
// non-reference level (a dummy) of a factor.
type Atom struct {
	Variable string `json:"variable"`
	Level    string `json:"level,omitempty"`
}

// IsDummy reports whether the atom is a factor level.
func (a Atom) IsDummy() bool {
	return a.Level != ""
}

// Label renders the atom as "x" or "x[level]".
func (a Atom) Label() string {
	if a.Level == "" {
		return a.Variable
	}
	return a.Variable + "[" + a.Level + "]"
}

// ExpandedTerm is one canonical predictor: a single atom or an ordered tuple of
// atoms forming an interaction.
type ExpandedTerm struct {
	Atoms  []Atom `json:"atoms"`
	Source string `json:"source"` // raw term this was expanded from
}

// Name joins the atom labels with ':' in identifier order.
func (t ExpandedTerm) Name() string {
	labels := make([]string, len(t.Atoms))
	for i, a := range t.Atoms {
		labels[i] = a.Label()
	}
	return strings.Join(labels, ":")
}

// Key identifies the term as an unordered atom set.
func (t ExpandedTerm) Key() string {
	labels := make([]string, len(t.Atoms))
	for i, a := range t.Atoms {
		labels[i] = a.Variable + keySeparator + a.Level
	}
	sort.Strings(labels)
	return strings.Join(labels, keySeparator+keySeparator)
}

// IsInteraction reports whether the term has more than one atom.
func (t ExpandedTerm) IsInteraction() bool {
	return len(t.Atoms) > 1
}

// Kind classifies the term for effect-size editors: any dummy makes it a
// factor term, a lone atom keeps its variable's kind, and interactions of
// non-factors count as continuous.
func (t ExpandedTerm) Kind(vars map[string]variable.Spec) variable.Kind {
	for _, a := range t.Atoms {
		if a.IsDummy() {
			return variable.KindFactor
		}
	}
	if len(t.Atoms) == 1 {
		if spec, ok := vars[t.Atoms[0].Variable]; ok {
			return spec.Kind
		}
	}
	return variable.KindContinuous
}

func (t ExpandedTerm) clone() ExpandedTerm {
	return ExpandedTerm{Atoms: append([]Atom(nil), t.Atoms...), Source: t.Source}
}

// ClusterSpec is one grouping factor of the random-effect hierarchy.
type ClusterSpec struct {
	Group          string `json:"group"`
	Parent         string `json:"parent,omitempty"`
	HasRandomSlope bool   `json:"has_random_slope"`
	SlopeVariable  string `json:"slope_variable,omitempty"`
}

// IsNested reports whether the cluster sits under a parent cluster.
func (c ClusterSpec) IsNested() bool {
	return c.Parent != ""
}

// Effects renders the clause left side, "1" or "1 + x".
func (c ClusterSpec) Effects() string {
	if !c.HasRandomSlope {
		return "1"
	}
	return "1 + " + c.SlopeVariable
}

// Clause renders the cluster as a formula clause. Nested clusters are
// rendered through their parent path so the clause re-declares the parent
// with identical effects.
func (c ClusterSpec) Clause() string {
	path := c.Group
	if c.Parent != "" {
		path = c.Parent + "/" + c.Group
	}
	return "(" + c.Effects() + "|" + path + ")"
}

// Describe is the short human label used by cluster editors.
func (c ClusterSpec) Describe() string {
	switch {
	case c.HasRandomSlope:
		return c.Group + " (random slope: " + c.SlopeVariable + ")"
	case c.Parent != "":
		return c.Group + " (nested in " + c.Parent + ")"
	default:
		return c.Group + " (random intercept)"
	}
}

// ModelSpec is the canonical output of the engine.
type ModelSpec struct {
	dependent  string
	variables  map[string]variable.Spec
	predictors []string
	terms      []ExpandedTerm
	clusters   []ClusterSpec
}

// New builds a ModelSpec from deep copies of its inputs.
func New(dependent string, vars map[string]variable.Spec, predictors []string, terms []ExpandedTerm, clusters []ClusterSpec) *ModelSpec {
	m := &ModelSpec{
		dependent:  dependent,
		variables:  make(map[string]variable.Spec, len(vars)),
		predictors: append([]string(nil), predictors...),
		terms:      make([]ExpandedTerm, len(terms)),
		clusters:   append([]ClusterSpec(nil), clusters...),
	}
	for name, spec := range vars {
		m.variables[name] = spec.Clone()
	}
	for i, t := range terms {
		m.terms[i] = t.clone()
	}
	return m
}

// Dependent returns the dependent variable name.
func (m *ModelSpec) Dependent() string { return m.dependent }

// Variable looks up one resolved variable.
func (m *ModelSpec) Variable(name string) (variable.Spec, bool) {
	spec, ok := m.variables[name]
	if !ok {
		return variable.Spec{}, false
	}
	return spec.Clone(), true
}

// Variables returns a copy of the name → spec mapping.
func (m *ModelSpec) Variables() map[string]variable.Spec {
	out := make(map[string]variable.Spec, len(m.variables))
	for name, spec := range m.variables {
		out[name] = spec.Clone()
	}
	return out
}

// VariableNames returns the resolved variable names sorted alphabetically.
func (m *ModelSpec) VariableNames() []string {
	names := make([]string, 0, len(m.variables))
	for name := range m.variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Predictors returns the canonical raw predictor terms ("a", "b", "a:b").
func (m *ModelSpec) Predictors() []string { return append([]string(nil), m.predictors...) }

// Terms returns a copy of the expanded terms in display order.
func (m *ModelSpec) Terms() []ExpandedTerm {
	out := make([]ExpandedTerm, len(m.terms))
	for i, t := range m.terms {
		out[i] = t.clone()
	}
	return out
}

// TermNames returns the expanded term names in display order.
func (m *ModelSpec) TermNames() []string {
	out := make([]string, len(m.terms))
	for i, t := range m.terms {
		out[i] = t.Name()
	}
	return out
}

// TermKinds maps every expanded term name to its editor kind.
func (m *ModelSpec) TermKinds() map[string]variable.Kind {
	out := make(map[string]variable.Kind, len(m.terms))
	for _, t := range m.terms {
		out[t.Name()] = t.Kind(m.variables)
	}
	return out
}

// Clusters returns a copy of the cluster hierarchy in declaration order.
func (m *ModelSpec) Clusters() []ClusterSpec { return append([]ClusterSpec(nil), m.clusters...) }

// Cluster looks up a cluster by group name.
func (m *ModelSpec) Cluster(group string) (ClusterSpec, bool) {
	for _, c := range m.clusters {
		if c.Group == group {
			return c, true
		}
	}
	return ClusterSpec{}, false
}

// IsMixed reports whether the model has random effects.
func (m *ModelSpec) IsMixed() bool { return len(m.clusters) > 0 }

// Factors maps every factor predictor to its level count.
func (m *ModelSpec) Factors() map[string]int {
	out := make(map[string]int)
	for name, spec := range m.variables {
		if spec.Kind == variable.KindFactor && name != m.dependent {
			out[name] = len(spec.Levels)
		}
	}
	return out
}

// CorrelableVariables returns the main-effect predictors that are continuous
// or binary, in predictor order. Factors and interactions are never correlated.
func (m *ModelSpec) CorrelableVariables() []string {
	var out []string
	for _, p := range m.predictors {
		if strings.Contains(p, ":") {
			continue
		}
		if spec, ok := m.variables[p]; ok && spec.Kind.IsCorrelable() {
			out = append(out, p)
		}
	}
	return out
}

// Formula renders canonical formula text. Parsing it again yields an equal ModelSpec.
func (m *ModelSpec) Formula() string {
	parts := append([]string(nil), m.predictors...)
	for _, c := range m.clusters {
		parts = append(parts, c.Clause())
	}
	return m.dependent + " ~ " + strings.Join(parts, " + ")
}

// Fingerprint hashes the canonical rendering together with the variable
// configuration so editors can tell two snapshots apart cheaply.
func (m *ModelSpec) Fingerprint() core.SpecHash {
	parts := []string{m.Formula()}
	for _, name := range m.VariableNames() {
		spec := m.variables[name]
		parts = append(parts, name+"="+string(spec.Kind)+"["+strings.Join(spec.Levels, ",")+"]ref="+spec.Reference)
	}
	parts = append(parts, m.TermNames()...)
	return core.ComputeSpecHash(parts...)
}

// Equal compares two specs structurally.
func (m *ModelSpec) Equal(other *ModelSpec) bool {
	if m == nil || other == nil {
		return m == other
	}
	return reflect.DeepEqual(m.wire(), other.wire())
}

type wireSpec struct {
	Dependent  string                   `json:"dependent"`
	Formula    string                   `json:"formula"`
	Variables  map[string]variable.Spec `json:"variables"`
	Predictors []string                 `json:"predictors"`
	Terms      []ExpandedTerm           `json:"terms"`
	TermNames  []string                 `json:"term_names"`
	Clusters   []ClusterSpec            `json:"clusters"`
}

func (m *ModelSpec) wire() wireSpec {
	return wireSpec{
		Dependent:  m.dependent,
		Formula:    m.Formula(),
		Variables:  m.Variables(),
		Predictors: m.Predictors(),
		Terms:      m.Terms(),
		TermNames:  m.TermNames(),
		Clusters:   m.Clusters(),
	}
}

// MarshalJSON encodes the spec for the HTTP API and history records.
func (m *ModelSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.wire())
}

// UnmarshalJSON restores a spec saved by MarshalJSON.
func (m *ModelSpec) UnmarshalJSON(data []byte) error {
	var w wireSpec
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = *New(w.Dependent, w.Variables, w.Predictors, w.Terms, w.Clusters)
	return nil
}

// Package export renders a resolved ModelSpec for people and tools outside
// the engine: a replication script for the simulation library and a
// markdown/HTML report.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"mcspec/domain/modelspec"
	"mcspec/domain/variable"
)

// Settings are the analysis parameters written at the end of a script.
type Settings struct {
	SampleSize  int     `json:"sample_size" validate:"omitempty,min=2"`
	Alpha       float64 `json:"alpha" validate:"omitempty,gt=0,lt=1"`
	TargetPower float64 `json:"target_power" validate:"omitempty,gt=0,lte=100"`
	Simulations int     `json:"n_simulations" validate:"omitempty,min=1"`
	Seed        int     `json:"seed"`
	TargetTest  string  `json:"target_test"`
	DataFile    string  `json:"data_file,omitempty"`
	Preserve    string  `json:"preserve_correlation,omitempty" validate:"omitempty,oneof=strict partial no"`
}

// DefaultSettings mirrors the simulation library's defaults.
func DefaultSettings() Settings {
	return Settings{
		SampleSize:  100,
		Alpha:       0.05,
		TargetPower: 80,
		Simulations: 1600,
		Seed:        2137,
		TargetTest:  "all",
		Preserve:    "partial",
	}
}

// Model bundles a spec with the values users attach to it in the editors.
// Nil maps fall back to medium effects, zero correlations and default
// cluster parameters.
type Model struct {
	Spec         *modelspec.ModelSpec
	Effects      modelspec.Effects
	Correlations modelspec.Correlations
	Clusters     modelspec.ClusterConfig
}

// normalize carries editor values onto the current spec.
func (m Model) normalize() Model {
	return Model{
		Spec:         m.Spec,
		Effects:      m.Effects.Carry(m.Spec, modelspec.EffectMedium),
		Correlations: m.Correlations.Carry(m.Spec),
		Clusters:     m.Clusters.Carry(m.Spec),
	}
}

// Script renders m as a runnable replication script.
func Script(m Model, s Settings) (string, error) {
	if m.Spec == nil {
		return "", fmt.Errorf("no model to export")
	}
	m = m.normalize()
	for _, c := range m.Spec.Clusters() {
		if err := m.Clusters[c.Group].Validate(c); err != nil {
			return "", err
		}
	}
	def := DefaultSettings()
	if s.SampleSize == 0 {
		s.SampleSize = def.SampleSize
	}
	if s.Alpha == 0 {
		s.Alpha = def.Alpha
	}
	if s.TargetPower == 0 {
		s.TargetPower = def.TargetPower
	}
	if s.Simulations == 0 {
		s.Simulations = def.Simulations
	}
	if s.TargetTest == "" {
		s.TargetTest = def.TargetTest
	}
	if s.Preserve == "" {
		s.Preserve = def.Preserve
	}

	var b strings.Builder
	b.WriteString("from mcpower import MCPower\n")
	if s.DataFile != "" {
		b.WriteString("import pandas as pd\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "model = MCPower(%s)\n", quote(m.Spec.Formula()))
	if s.DataFile != "" {
		fmt.Fprintf(&b, "model.upload_data(pd.read_csv(%s), preserve_correlation=%s)\n", quote(s.DataFile), quote(s.Preserve))
	}
	if types := VariableTypes(m.Spec); types != "" {
		fmt.Fprintf(&b, "model.set_variable_type(%s)\n", quote(types))
	}
	fmt.Fprintf(&b, "model.set_effects(%s)\n", quote(EffectsString(m.Spec, m.Effects)))
	for _, c := range m.Spec.Clusters() {
		b.WriteString(clusterCall(c, m.Clusters[c.Group]) + "\n")
	}
	if corr := CorrelationsString(m.Correlations); corr != "" {
		fmt.Fprintf(&b, "model.set_correlations(%s)\n", quote(corr))
	}
	fmt.Fprintf(&b, "model.set_simulations(%d)\n", s.Simulations)
	fmt.Fprintf(&b, "model.set_alpha(%s)\n", num(s.Alpha))
	fmt.Fprintf(&b, "model.set_power(%s)\n", num(s.TargetPower))
	fmt.Fprintf(&b, "model.set_seed(%d)\n", s.Seed)
	fmt.Fprintf(&b, "model.find_power(sample_size=%d, target_test=%s)\n", s.SampleSize, quote(s.TargetTest))
	return b.String(), nil
}

// VariableTypes renders the non-continuous, manually configured predictors
// as "b=(binary, 0.5), f=(factor, 3)". Data-derived variables are typed by
// the uploaded data and the dependent is never listed.
func VariableTypes(spec *modelspec.ModelSpec) string {
	var parts []string
	for _, name := range predictorVariables(spec) {
		v, _ := spec.Variable(name)
		if v.Source == variable.SourceData {
			continue
		}
		switch v.Kind {
		case variable.KindBinary:
			p := variable.DefaultBinaryProportion
			if len(v.Proportions) == 1 {
				p = v.Proportions[0]
			}
			parts = append(parts, fmt.Sprintf("%s=(binary, %s)", name, num(p)))
		case variable.KindFactor:
			if len(v.Proportions) == len(v.Levels) && len(v.Proportions) > 0 {
				props := make([]string, len(v.Proportions))
				for i, p := range v.Proportions {
					props[i] = num(p)
				}
				parts = append(parts, fmt.Sprintf("%s=(factor, %s)", name, strings.Join(props, ", ")))
			} else {
				parts = append(parts, fmt.Sprintf("%s=(factor, %d)", name, len(v.Levels)))
			}
		}
	}
	return strings.Join(parts, ", ")
}

// EffectsString renders "x=0.25, a[2]=0.5" in term order.
func EffectsString(spec *modelspec.ModelSpec, effects modelspec.Effects) string {
	names := spec.TermNames()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "=" + num(effects[n])
	}
	return strings.Join(parts, ", ")
}

// CorrelationsString renders the non-zero pairs as "corr(a, b)=0.3".
func CorrelationsString(c modelspec.Correlations) string {
	var parts []string
	for _, key := range c.NonZeroKeys() {
		a, b, ok := modelspec.SplitCorrKey(key)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("corr(%s, %s)=%s", a, b, num(c[key])))
	}
	return strings.Join(parts, ", ")
}

// ClusterName is the grouping name the simulation library expects: nested
// clusters are addressed as "parent:child".
func ClusterName(c modelspec.ClusterSpec) string {
	if c.IsNested() {
		return c.Parent + ":" + c.Group
	}
	return c.Group
}

func clusterCall(c modelspec.ClusterSpec, p modelspec.ClusterParams) string {
	args := []string{quote(ClusterName(c)), "ICC=" + num(p.ICC)}
	if c.IsNested() {
		args = append(args, fmt.Sprintf("n_per_parent=%d", p.NPerParent))
	} else {
		args = append(args, fmt.Sprintf("n_clusters=%d", p.NClusters))
	}
	if c.HasRandomSlope {
		args = append(args,
			fmt.Sprintf("random_slopes=[%s]", quote(c.SlopeVariable)),
			"slope_variance="+num(p.SlopeVariance),
			"slope_intercept_corr="+num(p.SlopeInterceptCorr),
		)
	}
	return "model.set_cluster(" + strings.Join(args, ", ") + ")"
}

// predictorVariables lists variables used by predictor terms in first-appearance order.
func predictorVariables(spec *modelspec.ModelSpec) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range spec.Predictors() {
		for _, id := range strings.Split(p, ":") {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	return strconv.Quote(s)
}

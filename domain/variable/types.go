// Package variable defines the resolved description of a formula identifier:
// its kind, its ordered level set and its reference level.
package variable

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"mcspec/domain/core"
)

// Kind is the tagged variant resolved once per identifier.
type Kind string

const (
	KindContinuous Kind = "continuous"
	KindBinary     Kind = "binary"
	KindFactor     Kind = "factor"
)

// ParseKind accepts the user-facing kind names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "continuous", "numeric", "":
		return KindContinuous, nil
	case "binary", "boolean":
		return KindBinary, nil
	case "factor", "categorical":
		return KindFactor, nil
	default:
		return "", fmt.Errorf("unknown variable kind %q", s)
	}
}

// IsCorrelable reports whether the kind may take part in pairwise correlations and random slopes.
func (k Kind) IsCorrelable() bool {
	return k == KindContinuous || k == KindBinary
}

// Source records where a Spec came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceData   Source = "data"
)

// Factor level bounds accepted by the simulation engine.
const (
	MinFactorLevels = 2
	MaxFactorLevels = 20
)

// DefaultBinaryProportion is used for manually configured binaries without a proportion.
const DefaultBinaryProportion = 0.5

// Spec is the resolved VariableSpec for one identifier.
type Spec struct {
	Name      string   `json:"name"`
	Kind      Kind     `json:"kind"`
	Levels    []string `json:"levels,omitempty"`
	Reference string   `json:"reference_level,omitempty"`
	// Proportions follows Levels for factors; for binaries it holds the
	// single share of the non-reference level.
	Proportions []float64 `json:"proportions,omitempty"`
	Source      Source    `json:"source"`
}

// Continuous builds a manual continuous spec.
func Continuous(name string) Spec {
	return Spec{Name: name, Kind: KindContinuous, Source: SourceManual}
}

// Binary builds a manual binary spec over the canonical levels 0 and 1.
func Binary(name string, proportion float64) Spec {
	return Spec{
		Name:        name,
		Kind:        KindBinary,
		Levels:      []string{"0", "1"},
		Reference:   "0",
		Proportions: []float64{proportion},
		Source:      SourceManual,
	}
}

// BinaryWithLevels builds a binary spec over two observed labels, sorted naturally.
func BinaryWithLevels(name string, labels []string, proportion float64) Spec {
	levels := SortLevels(labels)
	ref := ""
	if len(levels) > 0 {
		ref = levels[0]
	}
	return Spec{
		Name:        name,
		Kind:        KindBinary,
		Levels:      levels,
		Reference:   ref,
		Proportions: []float64{proportion},
		Source:      SourceManual,
	}
}

// Factor builds a factor spec over the given labels. Levels are sorted
// naturally and the first sorted level becomes the reference.
func Factor(name string, labels []string) Spec {
	levels := SortLevels(labels)
	ref := ""
	if len(levels) > 0 {
		ref = levels[0]
	}
	return Spec{Name: name, Kind: KindFactor, Levels: levels, Reference: ref, Source: SourceManual}
}

// NumberedFactor builds a factor with synthetic levels "1".."n"; level "1" is the reference.
func NumberedFactor(name string, n int) Spec {
	labels := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		labels = append(labels, strconv.Itoa(i))
	}
	return Factor(name, labels)
}

// Clone returns a deep copy.
func (s Spec) Clone() Spec {
	out := s
	out.Levels = append([]string(nil), s.Levels...)
	out.Proportions = append([]float64(nil), s.Proportions...)
	return out
}

// WithReference returns a copy with an explicit reference level. A binary's
// proportion is flipped when the non-reference level changes.
func (s Spec) WithReference(ref string) Spec {
	out := s.Clone()
	if s.Kind == KindBinary && ref != s.Reference && len(out.Proportions) == 1 {
		out.Proportions[0] = 1 - out.Proportions[0]
	}
	out.Reference = ref
	return out
}

// WithSource returns a copy tagged with src.
func (s Spec) WithSource(src Source) Spec {
	out := s.Clone()
	out.Source = src
	return out
}

// WithProportions returns a copy carrying the given proportions.
func (s Spec) WithProportions(p []float64) Spec {
	out := s.Clone()
	out.Proportions = append([]float64(nil), p...)
	return out
}

// WithLabelProportions returns a copy whose proportions follow Levels, given
// proportions listed in the caller's label order.
func (s Spec) WithLabelProportions(labels []string, p []float64) (Spec, error) {
	if len(labels) != len(p) {
		return s, &core.VariableConfigError{Name: s.Name, Reason: fmt.Sprintf("%d proportions for %d labels", len(p), len(labels))}
	}
	byLabel := make(map[string]float64, len(labels))
	for i, l := range labels {
		byLabel[l] = p[i]
	}
	ordered := make([]float64, len(s.Levels))
	for i, l := range s.Levels {
		v, ok := byLabel[l]
		if !ok {
			return s, &core.VariableConfigError{Name: s.Name, Reason: fmt.Sprintf("no proportion for level %q", l)}
		}
		ordered[i] = v
	}
	return s.WithProportions(ordered), nil
}

// NonReferenceLevels returns the levels that become dummies, in level order.
func (s Spec) NonReferenceLevels() []string {
	if s.Kind != KindFactor {
		return nil
	}
	out := make([]string, 0, len(s.Levels))
	for _, l := range s.Levels {
		if l != s.Reference {
			out = append(out, l)
		}
	}
	return out
}

// HasLevel reports whether label is one of the spec's levels.
func (s Spec) HasLevel(label string) bool {
	for _, l := range s.Levels {
		if l == label {
			return true
		}
	}
	return false
}

// Validate checks the VariableSpec invariants.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindContinuous:
		return nil
	case KindBinary:
		if len(s.Levels) != 2 {
			return &core.VariableConfigError{Name: s.Name, Reason: fmt.Sprintf("binary variable needs exactly 2 levels, got %d", len(s.Levels))}
		}
		if s.Levels[0] == s.Levels[1] {
			return &core.VariableConfigError{Name: s.Name, Reason: fmt.Sprintf("duplicate level %q", s.Levels[0])}
		}
		if !s.HasLevel(s.Reference) {
			return &core.VariableConfigError{Name: s.Name, Reason: fmt.Sprintf("reference level %q is not one of %v", s.Reference, s.Levels)}
		}
		return nil
	case KindFactor:
		if n := len(s.Levels); n < MinFactorLevels || n > MaxFactorLevels {
			return &core.FactorLevelRangeError{Name: s.Name, Levels: n, Min: MinFactorLevels, Max: MaxFactorLevels}
		}
		seen := make(map[string]bool, len(s.Levels))
		for _, l := range s.Levels {
			if seen[l] {
				return &core.VariableConfigError{Name: s.Name, Reason: fmt.Sprintf("duplicate level %q", l)}
			}
			seen[l] = true
		}
		if !seen[s.Reference] {
			return &core.VariableConfigError{Name: s.Name, Reason: fmt.Sprintf("reference level %q is not one of %v", s.Reference, s.Levels)}
		}
		if len(s.Proportions) > 0 && len(s.Proportions) != len(s.Levels) {
			return &core.VariableConfigError{Name: s.Name, Reason: fmt.Sprintf("%d proportions for %d levels", len(s.Proportions), len(s.Levels))}
		}
		return nil
	default:
		return &core.VariableConfigError{Name: s.Name, Reason: fmt.Sprintf("unknown kind %q", s.Kind)}
	}
}

// SortLevels orders labels numerically when every label parses as a number
// and lexicographically otherwise. The input is not modified.
func SortLevels(labels []string) []string {
	out := append([]string(nil), labels...)
	nums := make(map[string]float64, len(out))
	numeric := len(out) > 0
	for _, l := range out {
		v, err := strconv.ParseFloat(strings.TrimSpace(l), 64)
		if err != nil {
			numeric = false
			break
		}
		nums[l] = v
	}
	if numeric {
		sort.SliceStable(out, func(i, j int) bool { return nums[out[i]] < nums[out[j]] })
	} else {
		sort.Strings(out)
	}
	return out
}

// FormatNumber renders a numeric level without a trailing ".0" so that
// integer-coded columns keep labels like "4", "6", "8".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

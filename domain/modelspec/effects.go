package modelspec

import (
	"fmt"
	"strings"

	"mcspec/domain/variable"
)

// EffectSize is a preset button on the effect editor.
type EffectSize string

const (
	EffectSmall  EffectSize = "small"
	EffectMedium EffectSize = "medium"
	EffectLarge  EffectSize = "large"
)

// ParseEffectSize accepts "s", "m", "l" and the full names.
func ParseEffectSize(s string) (EffectSize, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s", "small":
		return EffectSmall, nil
	case "m", "medium":
		return EffectMedium, nil
	case "l", "large":
		return EffectLarge, nil
	}
	return "", fmt.Errorf("unknown effect size %q", s)
}

var continuousPresets = map[EffectSize]float64{
	EffectSmall:  0.10,
	EffectMedium: 0.25,
	EffectLarge:  0.40,
}

// binary and factor dummies share the standardized-difference scale
var dummyPresets = map[EffectSize]float64{
	EffectSmall:  0.20,
	EffectMedium: 0.50,
	EffectLarge:  0.80,
}

// Preset returns the standardized effect for a term kind and size.
func Preset(kind variable.Kind, size EffectSize) float64 {
	if kind == variable.KindContinuous {
		return continuousPresets[size]
	}
	return dummyPresets[size]
}

// Effects maps term names to standardized effect sizes.
type Effects map[string]float64

// DefaultEffects fills every expanded term of spec with the preset for size.
func DefaultEffects(spec *ModelSpec, size EffectSize) Effects {
	out := make(Effects, len(spec.terms))
	for _, t := range spec.terms {
		out[t.Name()] = Preset(t.Kind(spec.variables), size)
	}
	return out
}

// Carry keeps values from prev for terms that still exist in spec and fills
// new terms with the preset for size. Terms that disappeared are dropped.
func (e Effects) Carry(spec *ModelSpec, size EffectSize) Effects {
	out := DefaultEffects(spec, size)
	for name := range out {
		if v, ok := e[name]; ok {
			out[name] = v
		}
	}
	return out
}

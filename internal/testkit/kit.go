// Package testkit provides fixtures shared by package tests: a synthetic cars
// table and a static data provider carrying its expected profiles.
package testkit

import (
	"sort"

	"mcspec/domain/modelspec"
	"mcspec/domain/variable"
	"mcspec/ports"
)

// StaticProvider serves fixed data-derived specs and correlations
type StaticProvider struct {
	specs        map[string]variable.Spec
	order        []string
	correlations modelspec.Correlations
}

var (
	_ ports.DataProvider      = (*StaticProvider)(nil)
	_ ports.CorrelationSource = (*StaticProvider)(nil)
)

// NewStaticProvider creates a provider over specs; every spec is tagged as data-derived
func NewStaticProvider(specs ...variable.Spec) *StaticProvider {
	p := &StaticProvider{
		specs:        make(map[string]variable.Spec, len(specs)),
		correlations: modelspec.Correlations{},
	}
	for _, s := range specs {
		p.specs[s.Name] = s.WithSource(variable.SourceData)
		p.order = append(p.order, s.Name)
	}
	return p
}

// WithCorrelation records an observed correlation
func (p *StaticProvider) WithCorrelation(a, b string, r float64) *StaticProvider {
	p.correlations[modelspec.CorrKey(a, b)] = r
	return p
}

func (p *StaticProvider) Lookup(name string) (variable.Spec, bool) {
	s, ok := p.specs[name]
	if !ok {
		return variable.Spec{}, false
	}
	return s.Clone(), true
}

func (p *StaticProvider) Columns() []string {
	return append([]string(nil), p.order...)
}

func (p *StaticProvider) Correlations(names []string) modelspec.Correlations {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	out := modelspec.Correlations{}
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			key := modelspec.CorrKey(sorted[i], sorted[j])
			if r, ok := p.correlations[key]; ok {
				out[key] = r
			}
		}
	}
	return out
}

// CarsSpecs are the profiles a profiler should derive from the cars table
func CarsSpecs() []variable.Spec {
	return []variable.Spec{
		variable.Continuous("mpg"),
		variable.Continuous("hp"),
		variable.Continuous("wt"),
		variable.Factor("cyl", []string{"4", "6", "8"}),
		variable.Factor("origin", []string{"USA", "Europe", "Japan"}),
		variable.BinaryWithLevels("am", []string{"0", "1"}, 0.5),
	}
}

// CarsProvider is a StaticProvider over CarsSpecs
func CarsProvider() *StaticProvider {
	return NewStaticProvider(CarsSpecs()...).
		WithCorrelation("mpg", "hp", -0.78).
		WithCorrelation("hp", "wt", 0.66)
}

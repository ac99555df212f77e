package tabular

import (
	"sort"

	"mcspec/domain/dataset"
	"mcspec/domain/modelspec"
	"mcspec/domain/variable"
	"mcspec/ports"
)

// MaxAnovaLevels bounds the level count of columns offered as ANOVA factors.
const MaxAnovaLevels = 12

// Provider serves a profiled dataset to the resolver
type Provider struct {
	ds *dataset.Dataset
}

var (
	_ ports.DataProvider      = (*Provider)(nil)
	_ ports.CorrelationSource = (*Provider)(nil)
)

// NewProvider wraps a dataset that has already been profiled
func NewProvider(ds *dataset.Dataset) *Provider {
	return &Provider{ds: ds}
}

// Dataset returns the wrapped dataset
func (p *Provider) Dataset() *dataset.Dataset { return p.ds }

func (p *Provider) Lookup(name string) (variable.Spec, bool) {
	spec, ok := p.ds.Profiles[name]
	if !ok {
		return variable.Spec{}, false
	}
	return spec.Clone(), true
}

// Columns lists profiled columns in file order
func (p *Provider) Columns() []string {
	var out []string
	for _, name := range p.ds.ColumnNames() {
		if _, ok := p.ds.Profiles[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Correlations returns the observed coefficients among names
func (p *Provider) Correlations(names []string) modelspec.Correlations {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	out := make(modelspec.Correlations)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			key := modelspec.CorrKey(sorted[i], sorted[j])
			if r, ok := p.ds.Correlations[key]; ok {
				out[key] = r
			}
		}
	}
	return out
}

// FactorColumns lists categorical columns with 2 to 12 levels, excluding the
// dependent, in file order. These are the columns offered as ANOVA factors.
func (p *Provider) FactorColumns(dependent string) []string {
	var out []string
	for _, name := range p.Columns() {
		if name == dependent {
			continue
		}
		spec := p.ds.Profiles[name]
		if spec.Kind == variable.KindContinuous {
			continue
		}
		if n := len(spec.Levels); n >= variable.MinFactorLevels && n <= MaxAnovaLevels {
			out = append(out, name)
		}
	}
	return out
}

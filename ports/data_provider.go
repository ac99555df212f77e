package ports

import (
	"mcspec/domain/modelspec"
	"mcspec/domain/variable"
)

// DataProvider supplies data-derived variable specs. Lookup is a pure
// read; implementations must not infer kinds from formula text.
type DataProvider interface {
	Lookup(name string) (variable.Spec, bool)
	Columns() []string
}

// CorrelationSource supplies observed correlations between correlable columns
type CorrelationSource interface {
	Correlations(names []string) modelspec.Correlations
}

package tabular

import (
	"math"
	"sort"
	"strconv"

	"mcspec/domain/dataset"
	"mcspec/domain/modelspec"
	"mcspec/domain/variable"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// minPairedRows is the fewest complete rows a coefficient is computed from.
const minPairedRows = 3

// Correlate computes Pearson coefficients between every pair of profiled
// continuous or binary columns, rounded to 2 decimals. Rows missing either
// value are skipped. Pairs with too few rows or zero variance are omitted.
func Correlate(ds *dataset.Dataset) modelspec.Correlations {
	var names []string
	for name, spec := range ds.Profiles {
		if spec.Kind.IsCorrelable() {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	vectors := make(map[string][]float64, len(names))
	present := make(map[string][]bool, len(names))
	for _, name := range names {
		col, _ := ds.Column(name)
		vectors[name], present[name] = encode(col, ds.Profiles[name])
	}

	out := make(modelspec.Correlations)
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := names[i], names[j]
			var xs, ys []float64
			for r := range vectors[a] {
				if present[a][r] && present[b][r] {
					xs = append(xs, vectors[a][r])
					ys = append(ys, vectors[b][r])
				}
			}
			if len(xs) < minPairedRows {
				continue
			}
			r := stat.Correlation(xs, ys, nil)
			if math.IsNaN(r) {
				continue
			}
			rounded, err := stats.Round(r, 2)
			if err != nil {
				continue
			}
			out[modelspec.CorrKey(a, b)] = rounded
		}
	}
	return out
}

func encode(col dataset.Column, spec variable.Spec) ([]float64, []bool) {
	values := make([]float64, len(col.Values))
	ok := make([]bool, len(col.Values))
	for i, cell := range col.Values {
		if cell == "" {
			continue
		}
		if spec.Kind == variable.KindBinary {
			values[i], ok[i] = levelIndex(spec, cell)
			continue
		}
		f, err := strconv.ParseFloat(cell, 64)
		if err == nil {
			values[i], ok[i] = f, true
		}
	}
	return values, ok
}

package tabular

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"mcspec/domain/dataset"
	"mcspec/domain/variable"
	"mcspec/internal"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// Inference thresholds for data-derived specs.
const (
	BinaryUniqueValues = 2
	MaxFactorUnique    = 20
)

// Profiler derives a VariableSpec for every column of a dataset
type Profiler struct {
	workers int
	logger  *internal.Logger
}

// NewProfiler creates a profiler that profiles up to workers columns at
// once. workers <= 0 uses GOMAXPROCS.
func NewProfiler(workers int) *Profiler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Profiler{workers: workers, logger: internal.DefaultLogger.With("profiler")}
}

// Profile fills ds.Profiles and ds.Correlations. Columns without any
// observed value get no profile.
func (p *Profiler) Profile(ctx context.Context, ds *dataset.Dataset) error {
	specs := make([]*variable.Spec, len(ds.Columns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, col := range ds.Columns {
		i, col := i, col
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			spec, ok, err := ProfileColumn(col)
			if err != nil {
				return fmt.Errorf("failed to profile column %s: %w", col.Name, err)
			}
			if ok {
				specs[i] = &spec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ds.Profiles = make(map[string]variable.Spec, len(specs))
	for _, s := range specs {
		if s != nil {
			ds.Profiles[s.Name] = *s
		}
	}
	ds.Correlations = Correlate(ds)
	p.logger.Debug("profiled %s: %d columns, %d correlations", ds.Name, len(ds.Profiles), len(ds.Correlations))
	return nil
}

// ProfileColumn infers a spec from the observed values of col: two unique
// values make a binary, a non-numeric column or 3 to 20 unique values make a
// factor, anything else is continuous.
func ProfileColumn(col dataset.Column) (variable.Spec, bool, error) {
	observed := col.Observed()
	if len(observed) == 0 {
		return variable.Spec{}, false, nil
	}

	labels := observed
	floats, numeric := col.Floats()
	if numeric {
		labels = make([]string, len(floats))
		for i, f := range floats {
			labels[i] = variable.FormatNumber(f)
		}
	}
	counts := make(map[string]int)
	for _, l := range labels {
		counts[l]++
	}
	unique := make([]string, 0, len(counts))
	for l := range counts {
		unique = append(unique, l)
	}

	var spec variable.Spec
	switch n := len(unique); {
	case n == BinaryUniqueValues:
		levels := variable.SortLevels(unique)
		prop, err := share(counts[levels[1]], len(labels), 2)
		if err != nil {
			return spec, false, err
		}
		spec = variable.BinaryWithLevels(col.Name, levels, prop)
	case !numeric || (n > BinaryUniqueValues && n <= MaxFactorUnique):
		spec = variable.Factor(col.Name, unique)
		props := make([]float64, len(spec.Levels))
		for i, l := range spec.Levels {
			p, err := share(counts[l], len(labels), 4)
			if err != nil {
				return spec, false, err
			}
			props[i] = p
		}
		spec = spec.WithProportions(props)
	default:
		spec = variable.Continuous(col.Name)
	}
	return spec.WithSource(variable.SourceData), true, nil
}

func share(count, total, places int) (float64, error) {
	if total == 0 {
		return 0, stats.EmptyInputErr
	}
	return stats.Round(float64(count)/float64(total), places)
}

// levelIndex encodes a binary column's labels as 0 and 1 in level order.
func levelIndex(spec variable.Spec, label string) (float64, bool) {
	if f, err := strconv.ParseFloat(label, 64); err == nil {
		label = variable.FormatNumber(f)
	}
	for i, l := range spec.Levels {
		if l == label {
			return float64(i), true
		}
	}
	return 0, false
}

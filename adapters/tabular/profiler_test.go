package tabular

import (
	"context"
	"testing"

	"mcspec/domain/dataset"
	"mcspec/domain/variable"
	"mcspec/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func column(name string, values ...string) dataset.Column {
	return dataset.Column{Name: name, Values: values}
}

func TestProfileColumn(t *testing.T) {
	tests := []struct {
		name   string
		col    dataset.Column
		kind   variable.Kind
		levels []string
		props  []float64
	}{
		{
			name:   "numeric binary",
			col:    column("am", "0", "1", "1", "1", "", "0", "1", "1"),
			kind:   variable.KindBinary,
			levels: []string{"0", "1"},
			props:  []float64{0.71},
		},
		{
			name:   "text binary",
			col:    column("smoker", "no", "yes", "no", "no"),
			kind:   variable.KindBinary,
			levels: []string{"no", "yes"},
			props:  []float64{0.25},
		},
		{
			name:   "numeric factor",
			col:    column("cyl", "8", "4", "6", "4.0"),
			kind:   variable.KindFactor,
			levels: []string{"4", "6", "8"},
			props:  []float64{0.5, 0.25, 0.25},
		},
		{
			name:   "text factor",
			col:    column("origin", "USA", "Japan", "Europe"),
			kind:   variable.KindFactor,
			levels: []string{"Europe", "Japan", "USA"},
			props:  []float64{0.3333, 0.3333, 0.3333},
		},
		{
			name: "many numbers",
			col:  column("x", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12", "13", "14", "15", "16", "17", "18", "19", "20", "21"),
			kind: variable.KindContinuous,
		},
		{
			name: "constant number",
			col:  column("k", "3", "3", "3"),
			kind: variable.KindContinuous,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, ok, err := ProfileColumn(tt.col)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, spec.Kind)
			assert.Equal(t, variable.SourceData, spec.Source)
			if tt.levels != nil {
				assert.Equal(t, tt.levels, spec.Levels)
				assert.Equal(t, tt.levels[0], spec.Reference)
				assert.Equal(t, tt.props, spec.Proportions)
			}
		})
	}
}

func TestProfileColumn_TwentyLevelsIsFactor(t *testing.T) {
	var values []string
	for i := 1; i <= 20; i++ {
		values = append(values, variable.FormatNumber(float64(i)))
	}
	spec, ok, err := ProfileColumn(column("grade", values...))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, variable.KindFactor, spec.Kind)
	assert.Len(t, spec.Levels, 20)
}

func TestProfileColumn_Empty(t *testing.T) {
	_, ok, err := ProfileColumn(column("blank", "", ""))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProfiler_Cars(t *testing.T) {
	headers, rows := testkit.NewCarsDataGenerator(testkit.DefaultCarsConfig()).Generate()
	ds := dataset.New("cars.csv", headers, rows)
	require.NoError(t, NewProfiler(2).Profile(context.Background(), ds))

	for _, want := range testkit.CarsSpecs() {
		got, ok := ds.Profiles[want.Name]
		require.True(t, ok, want.Name)
		assert.Equal(t, want.Kind, got.Kind, want.Name)
		assert.Equal(t, want.Levels, got.Levels, want.Name)
	}
	_, hasIndex := ds.Profiles["Unnamed: 0"]
	assert.False(t, hasIndex)

	assert.Less(t, ds.Correlations.Get("mpg", "hp"), 0.0)
	assert.Greater(t, ds.Correlations.Get("hp", "wt"), 0.0)
	_, hasFactorPair := ds.Correlations["cyl,mpg"]
	assert.False(t, hasFactorPair)
}

func TestProfiler_Cancelled(t *testing.T) {
	headers, rows := testkit.NewCarsDataGenerator(testkit.DefaultCarsConfig()).Generate()
	ds := dataset.New("cars.csv", headers, rows)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewProfiler(1).Profile(ctx, ds), context.Canceled)
}

func TestCorrelate_SkipsMissingRows(t *testing.T) {
	ds := dataset.New("t.csv",
		[]string{"a", "b", "c"},
		[][]string{
			{"1", "2", "x"},
			{"2", "4", "y"},
			{"3", "", "x"},
			{"4", "8", "y"},
			{"5", "10", "x"},
		})
	ds.Profiles = map[string]variable.Spec{
		"a": variable.Continuous("a"),
		"b": variable.Continuous("b"),
		"c": variable.BinaryWithLevels("c", []string{"x", "y"}, 0.4),
	}
	corr := Correlate(ds)
	assert.Equal(t, 1.0, corr.Get("a", "b"))
	assert.Contains(t, corr, "a,c")
	assert.Len(t, corr, 3)
}

func TestShare(t *testing.T) {
	p, err := share(5, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.71, p)

	p, err = share(1, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 0.3333, p)

	_, err = share(0, 0, 2)
	assert.Error(t, err)
}

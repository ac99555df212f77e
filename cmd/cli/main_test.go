package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mcspec/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	out, err := run(t, "", "resolve", "y ~ arm*dose + (1|site)", "--var", "arm=factor:3", "--var", "dose=continuous", "--var", "y=continuous")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Dependent: y")
	assert.Contains(t, out, "Random effects: (1|site)")
	assert.Contains(t, out, "Terms: arm[2], arm[3], dose, arm[2]:dose, arm[3]:dose")
}

func TestResolveCommandParseError(t *testing.T) {
	out, err := run(t, "", "resolve", "y ~ x +", "--assume-continuous")
	require.Error(t, err)
	assert.Contains(t, out, "y ~ x +\n      ^")
	assert.Contains(t, out, "Parse error:")
}

func TestResolveCommandJSONWithData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cars.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, testkit.NewCarsDataGenerator(testkit.DefaultCarsConfig()).WriteCSV(f))
	require.NoError(t, f.Close())

	out, err := run(t, "", "resolve", "mpg ~ hp + origin", "--data", path, "--ref", "origin=USA", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"origin[Europe]"`)
	assert.Contains(t, out, `"origin[Japan]"`)
	assert.NotContains(t, out, `"origin[USA]"`)
}

func TestDesignCommand(t *testing.T) {
	out, err := run(t, "", "design", "--factor", "arm=control|low|high", "--factor", "2", "--interaction", "arm:factor1", "--ref", "arm=control")
	require.NoError(t, err)
	assert.Contains(t, out, "Predictors: arm, factor1, arm:factor1")
	assert.Contains(t, out, "arm[high]:factor1[2]")
}

func TestExportCommand(t *testing.T) {
	out, err := run(t, "", "export", "y ~ x + b + (1|school)", "--var", "b=binary:0.4", "--assume-continuous",
		"--effect", "x=0.3", "--corr", "x,b=0.2", "--icc", "school=0.1", "--sample-size", "250")
	require.NoError(t, err)
	assert.Contains(t, out, `model.set_effects("x=0.3, b=0.5")`)
	assert.Contains(t, out, `model.set_cluster("school", ICC=0.1, n_clusters=20)`)
	assert.Contains(t, out, `model.set_correlations("corr(b, x)=0.2")`)
	assert.Contains(t, out, "model.find_power(sample_size=250")

	_, err = run(t, "", "export", "y ~ x + (1|school)", "--assume-continuous", "--icc", "class=0.1")
	assert.Error(t, err)

	out, err = run(t, "", "export", "y ~ x", "--assume-continuous", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "`y ~ x`")
}

func TestWatchCommandPublishesLastLine(t *testing.T) {
	out, err := run(t, "y ~ x\ny ~ x + z\n", "watch", "--assume-continuous", "--debounce", "1h")
	require.NoError(t, err)
	assert.Equal(t, "✓ Dependent: y\n  Predictors: x, z\n", out)
}

func TestApplyNumbers(t *testing.T) {
	got := map[string]float64{}
	require.NoError(t, applyNumbers([]string{"a=0.5", " b = -1 "}, func(k string, v float64) error {
		got[k] = v
		return nil
	}))
	assert.Equal(t, map[string]float64{"a": 0.5, "b": -1}, got)
	assert.Error(t, applyNumbers([]string{"a"}, func(string, float64) error { return nil }))
	assert.Error(t, applyNumbers([]string{"a=x"}, func(string, float64) error { return nil }))
}

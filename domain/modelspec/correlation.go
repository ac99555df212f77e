package modelspec

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// CorrKey returns the canonical "a,b" key for an unordered variable pair.
func CorrKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "," + b
}

// SplitCorrKey reverses CorrKey.
func SplitCorrKey(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, ",")
	if !ok || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}

// Correlations maps CorrKey pairs to correlation coefficients.
type Correlations map[string]float64

// Set stores r for the pair after range checking.
func (c Correlations) Set(a, b string, r float64) error {
	if a == b {
		return fmt.Errorf("correlation of %s with itself", a)
	}
	if math.IsNaN(r) || r < -1 || r > 1 {
		return fmt.Errorf("correlation %s must be within [-1, 1], got %v", CorrKey(a, b), r)
	}
	c[CorrKey(a, b)] = r
	return nil
}

// Get returns the coefficient for the pair, zero when unset.
func (c Correlations) Get(a, b string) float64 {
	return c[CorrKey(a, b)]
}

// Pairs lists every unordered pair of the spec's correlable variables in
// predictor order.
func Pairs(spec *ModelSpec) [][2]string {
	vars := spec.CorrelableVariables()
	var out [][2]string
	for i := 0; i < len(vars); i++ {
		for j := i + 1; j < len(vars); j++ {
			out = append(out, [2]string{vars[i], vars[j]})
		}
	}
	return out
}

// Carry keeps coefficients for pairs still present in spec. New pairs start at zero.
func (c Correlations) Carry(spec *ModelSpec) Correlations {
	out := make(Correlations)
	for _, p := range Pairs(spec) {
		key := CorrKey(p[0], p[1])
		out[key] = c[key]
	}
	return out
}

// NonZeroKeys returns the keys with a non-zero coefficient, sorted.
func (c Correlations) NonZeroKeys() []string {
	var keys []string
	for k, v := range c {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

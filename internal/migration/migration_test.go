package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepsAreIdempotent(t *testing.T) {
	steps := Steps()
	assert.NotEmpty(t, steps)
	for _, s := range steps {
		upper := strings.ToUpper(s.SQL)
		assert.True(t, strings.Contains(upper, "IF NOT EXISTS"), "%s must be safe to re-run", s.Name)
	}
	assert.Equal(t, "1.0.0", NewRunner().Version())
}

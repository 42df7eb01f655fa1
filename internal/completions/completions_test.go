package completions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	first := Load()
	require.NotEmpty(t, first)

	kinds := map[string]int{}
	labels := map[string]bool{}
	for _, c := range first {
		kinds[c.Kind]++
		assert.NotEmpty(t, c.Label)
		assert.False(t, labels[c.Kind+":"+c.Label], "duplicate completion %q", c.Label)
		labels[c.Kind+":"+c.Label] = true
	}
	assert.Greater(t, kinds["kw"], 0)
	assert.Greater(t, kinds["fn"], 0)

	// Loading again returns the same parsed list.
	second := Load()
	assert.Equal(t, len(first), len(second))
}

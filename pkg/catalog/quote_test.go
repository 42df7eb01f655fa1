package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"single", []string{"orders"}, `"orders"`},
		{"path", []string{"cat", "sales", "orders"}, `"cat"."sales"."orders"`},
		{"reserved word", []string{"select"}, `"select"`},
		{"embedded quote", []string{`we"ird`}, `"we""ird"`},
		{"mixed case", []string{"Sales"}, `"Sales"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteIdent(tt.parts...))
		})
	}
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'plain'", quoteLiteral("plain"))
	assert.Equal(t, "'o''brien'", quoteLiteral("o'brien"))
}

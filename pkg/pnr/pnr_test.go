package pnr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Run("Shape", func(t *testing.T) {
		code, err := Generate()
		require.NoError(t, err)

		assert.Len(t, code, len(Prefix)+6)
		assert.True(t, strings.HasPrefix(code, Prefix))
		assert.True(t, IsValid(code))
	})

	t.Run("No Ambiguous Characters", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			code, err := Generate()
			require.NoError(t, err)

			assert.NotContains(t, code[len(Prefix):], "0")
			assert.NotContains(t, code[len(Prefix):], "O")
			assert.NotContains(t, code[len(Prefix):], "1")
			assert.NotContains(t, code[len(Prefix):], "I")
		}
	})

	t.Run("Distinct Across Calls", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			code, err := Generate()
			require.NoError(t, err)
			assert.False(t, seen[code], "generated duplicate %s", code)
			seen[code] = true
		}
	})
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "DGCX7K2QA", Normalize("  dgcx7k2qa "))
	assert.Equal(t, "DGCABCDEF", Normalize("dgcAbCdEf"))
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		valid bool
	}{
		{"valid code", "DGCX7K2QA", true},
		{"wrong prefix", "ABCX7K2QA", false},
		{"too short", "DGCX7K", false},
		{"too long", "DGCX7K2QAZZ", false},
		{"lowercase", "dgcx7k2qa", false},
		{"ambiguous character", "DGCX7K2Q0", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValid(tt.code))
		})
	}
}

package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeInt(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected *int
	}{
		{"nil", nil, nil},
		{"int", 7, ptr(7)},
		{"int64", int64(-4), ptr(-4)},
		{"float truncates", 12.7, ptr(12)},
		{"negative float truncates toward zero", -3.9, ptr(-3)},
		{"numeric string", "12", ptr(12)},
		{"decimal string", "12.7", ptr(12)},
		{"negative string", "-3", ptr(-3)},
		{"padded string", "  42 ", ptr(42)},
		{"exponent string", "1e3", ptr(1000)},
		{"json number", json.Number("15.2"), ptr(15)},
		{"empty string", "", nil},
		{"whitespace string", "   ", nil},
		{"letters", "abc", nil},
		{"mixed", "12cm", nil},
		{"nan", math.NaN(), nil},
		{"inf string", "inf", nil},
		{"overflow", 1e30, nil},
		{"bool", true, nil},
		{"list", []any{1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeInt(tt.input)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}

func ptr(n int) *int { return &n }

package recipes

import (
	"encoding/json"
	"testing"

	apperrors "github.com/feedora/backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "brown sugar", NormalizeName("  Brown \t  Sugar "))
	assert.Equal(t, "egg", NormalizeName("EGG"))
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"2", 2},
		{"0.5", 0.5},
		{"1/2", 0.5},
		{"1 1/2", 1.5},
		{" 2  3/4 ", 2.75},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	for _, bad := range []string{"", "a lot", "1/0", "-2"} {
		_, err := ParseQuantity(bad)
		assert.ErrorIs(t, err, apperrors.ErrInvalid, bad)
	}
}

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		qty      float64
		unit     string
		wantQty  float64
		wantUnit string
	}{
		{1.5, "kg", 1500, "g"},
		{2, "l", 2000, "ml"},
		{3, "pcs", 3, "pc"},
		{1, "Tablespoon", 1, "tbsp"},
		{2, "teaspoons", 2, "tsp"},
		{2, "cups", 2, "cup"},
		{1, "lb", 453.592, "g"},
		{2, "oz", 56.699, "g"},
		{1, "clove", 1, "clove"},
		{4, "", 4, ""},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			q, u := NormalizeUnit(tt.qty, tt.unit)
			assert.InDelta(t, tt.wantQty, q, 1e-9)
			assert.Equal(t, tt.wantUnit, u)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in       string
		wantQty  float64
		wantUnit string
	}{
		{"1.5 kg", 1500, "g"},
		{"2 l", 2000, "ml"},
		{"1 1/2 cups", 1.5, "cup"},
		{"500g", 500, "g"},
		{"3", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			q, u, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantQty, q, 1e-9)
			assert.Equal(t, tt.wantUnit, u)
		})
	}

	_, _, err := ParseAmount("some")
	assert.ErrorIs(t, err, apperrors.ErrInvalid)
}

func TestQuantityUnmarshal(t *testing.T) {
	var in struct {
		A Quantity `json:"a"`
		B Quantity `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1.5, "b": "1 1/2"}`), &in))
	assert.Equal(t, Quantity("1.5"), in.A)
	assert.Equal(t, Quantity("1 1/2"), in.B)
}

package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"120", 12000, true},
		{"45,90", 4590, true},
		{"45.90", 4590, true},
		{"R$ 45,90", 4590, true},
		{"120 reais", 12000, true},
		{"0,5", 50, true},
		{",5", 50, true},
		{"10.", 1000, true},
		{"0", 0, true},
		{"1.005", 101, true},    // half away from zero
		{"-15", 1500, true},     // sign is stripped with the other symbols
		{"1.200,50", 120, true}, // grouping is not recognised
		{"1,200,50", 120, true}, // only the first comma becomes a point
		{"", 0, false},
		{"abc", 0, false},
		{".", 0, false},
		{",", 0, false},
		{"999999999999999999999", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := NormalizeAmount(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.out, got)
			}
		})
	}
}

func TestNormalizeAmountRoundTrip(t *testing.T) {
	for cents := int64(0); cents <= 250000; cents += 37 {
		dot := fmt.Sprintf("%d.%02d", cents/100, cents%100)
		comma := strings.Replace(dot, ".", ",", 1)

		got, ok := NormalizeAmount(dot)
		if assert.True(t, ok, dot) {
			assert.Equal(t, cents, got, dot)
		}
		got, ok = NormalizeAmount(comma)
		if assert.True(t, ok, comma) {
			assert.Equal(t, cents, got, comma)
		}
		got, ok = NormalizeAmount(FormatAmount(cents))
		if assert.True(t, ok) {
			assert.Equal(t, cents, got)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "R$ 120.00", FormatAmount(12000))
	assert.Equal(t, "R$ 45.90", FormatAmount(4590))
	assert.Equal(t, "R$ 0.05", FormatAmount(5))
	assert.Equal(t, "R$ 0.00", FormatAmount(0))
}

package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQty(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "thousand with space", input: "Cable NYM-J 3x2.5 1 000 pcs", want: 1000},
		{name: "decimal comma", input: "Wire H07V 1,5 m", want: 1.5},
		{name: "decimal dot", input: "Wire H07V 1.5 m", want: 1.5},
		{name: "thousand dot", input: "Cable 1.000 pcs", want: 1000},
		{name: "dimension and qty", input: "NYM-J 3x2.5 100 pcs", want: 100},
		{name: "bare trailing number", input: "Junction box IP65 40", want: 40},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed := ParseQty(tc.input)
			require.NotNil(t, parsed.Qty)
			require.Equal(t, tc.want, *parsed.Qty)
		})
	}
}

func TestParseQtyUnit(t *testing.T) {
	parsed := ParseQty("Conduit 20mm 50 m")
	require.NotNil(t, parsed.Unit)
	require.Equal(t, "m", *parsed.Unit)
}

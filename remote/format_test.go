package remote

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		value  string
		digits int
		pad    rune
		want   string
	}{
		{"42", 4, '0', "0042"},
		{"0", 4, '0', "0000"},
		{"42", 4, ' ', "  42"},
		{"-5", 4, '0', "-005"},
		{"-5", 4, ' ', "  -5"},
		{"1.5", 4, '0', "01.5"},
		{"3.14159", 4, '0', "3.14"},
		{"-1.25", 4, '0', "-1.3"},
		{"9.96", 3, '0', "010"},
		{"99.96", 4, '0', "0100"},
		{"123.456", 5, '0', "123.5"},
		{"-0.001", 3, '0', "000"},
		{"12345", 4, '0', "----"},
		{"-999", 3, '0', "---"},
		{"7", 1, '0', "7"},
		{"7", 0, '0', ""},
	}
	for _, tc := range tests {
		got := Format(decimal.RequireFromString(tc.value), tc.digits, tc.pad)
		require.Equal(t, tc.want, got, "Format(%s, %d, %q)", tc.value, tc.digits, tc.pad)
		require.Len(t, got, tc.digits)
	}
}

func TestPlaceholderAndOverflow(t *testing.T) {
	require.Equal(t, "____", Placeholder(4))
	require.Equal(t, "", Placeholder(0))
	require.Equal(t, "--", Overflow(2))
}

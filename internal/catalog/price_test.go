package catalog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	table := []struct {
		input    string
		expected int
		ok       bool
	}{
		{input: "12,345원", expected: 12345, ok: true},
		{input: "42,000원", expected: 42000, ok: true},
		{input: "900원", expected: 900, ok: true},
		{input: " 1,234,567원 ", expected: 1234567, ok: true},
		{input: "-5,000원", expected: -5000, ok: true},
		{input: PRICE_UNKNOWN, expected: 0, ok: false},
		{input: "", expected: 0, ok: false},
		{input: "가격문의", expected: 0, ok: false},
		{input: "12,000원 (할인)", expected: 0, ok: false},
	}

	for _, row := range table {
		value, ok := ParsePrice(row.input)
		require.Equal(t, row.ok, ok, row.input)
		require.Equal(t, row.expected, value, row.input)
	}
}

func TestParsePriceAllThousands(t *testing.T) {
	for i := 0; i < 1_000_000; i += 997 {
		raw := fmt.Sprintf("%s원", formatThousands(i))
		value, ok := ParsePrice(raw)
		require.True(t, ok, raw)
		require.Equal(t, i, value, raw)
	}
}

func formatThousands(n int) string {
	s := fmt.Sprint(n)
	out := ""
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out += ","
		}
		out += string(c)
	}
	return out
}

func TestVAT(t *testing.T) {
	require.Equal(t, 4200, VAT(42000))
	require.Equal(t, 99, VAT(999))
	require.Equal(t, 0, VAT(0))
}

func TestIsAccessory(t *testing.T) {
	require.True(t, IsAccessory("Acc_Film"))
	require.True(t, IsAccessory("애플 악세사리"))
	require.False(t, IsAccessory("iPhone"))
	require.False(t, IsAccessory("acc_lowercase"))
}

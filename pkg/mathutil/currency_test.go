package mathutil

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Half cent rounds to even (down)", "1.225", "1.22"},
		{"Half cent rounds to even (up)", "1.235", "1.24"},
		{"Round down below midpoint", "1.234", "1.23"},
		{"Round up above midpoint", "1.236", "1.24"},
		{"No rounding needed", "1.23", "1.23"},
		{"Large number", "12345.678", "12345.68"},
		{"Negative half cent to even", "-1.225", "-1.22"},
		{"Negative number round down", "-1.234", "-1.23"},
		{"Zero", "0", "0"},
		{"Very small positive", "0.001", "0"},
		{"Exactly one cent", "0.01", "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(d(tt.input))
			if !result.Equal(d(tt.expected)) {
				t.Errorf("Round(%s) = %s, expected %s", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSum(t *testing.T) {
	if got := Sum(); !got.IsZero() {
		t.Errorf("Sum() = %s, expected 0", got)
	}
	if got := Sum(d("0.1"), d("0.2"), d("-0.3")); !got.IsZero() {
		t.Errorf("Sum(0.1, 0.2, -0.3) = %s, expected exactly 0", got)
	}
}

func TestClampZero(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"-0.01", "0"},
		{"0", "0"},
		{"12.5", "12.5"},
	}
	for _, tt := range tests {
		if got := ClampZero(d(tt.input)); !got.Equal(d(tt.expected)) {
			t.Errorf("ClampZero(%s) = %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected bool
	}{
		{"Identical", "100.00", "100.00", true},
		{"Half cent apart", "100.000", "100.005", true},
		{"One cent apart", "100.00", "100.01", false},
		{"Negative values", "-5.00", "-5.004", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(d(tt.a), d(tt.b)); got != tt.expected {
				t.Errorf("Equal(%s, %s) = %v, expected %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestMax(t *testing.T) {
	if got := Max(d("1"), d("2")); !got.Equal(d("2")) {
		t.Errorf("Max(1, 2) = %s", got)
	}
	if got := Max(d("-3"), d("0")); !got.IsZero() {
		t.Errorf("Max(-3, 0) = %s", got)
	}
}

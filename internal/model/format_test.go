package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"50500", "50,500.00"},
		{"1234567.891", "1,234,567.89"},
		{"3.5", "3.50"},
		{"0.08231", "0.0823"},
		{"0", "0.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FormatPrice(decimal.RequireFromString(tt.in)); got != tt.want {
				t.Errorf("FormatPrice(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatUSD(t *testing.T) {
	if got := FormatUSD(decimal.RequireFromString("2450.5")); got != "$2,450.50" {
		t.Errorf("FormatUSD = %q, want %q", got, "$2,450.50")
	}
	if got := FormatUSD(decimal.RequireFromString("-12.3")); got != "-$12.30" {
		t.Errorf("FormatUSD negative = %q, want %q", got, "-$12.30")
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.256", "+1.26%"},
		{"-0.5", "-0.50%"},
		{"0", "0.00%"},
	}
	for _, tt := range tests {
		if got := FormatPercent(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatPercent(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0", "0", true},
		{"", "0", true},
		{" 2.50 ", "2.5", true},
		{".5", "0.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{".", "", false},
		{"1234567890123456789", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseAmountSignErrors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"-5", ErrNegativeAmount},
		{"-0,5", ErrNegativeAmount},
		{"+5", ErrInvalidAmount},
		{" +5.00", ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if _, err := ParseAmount(tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("ParseAmount(%q) error = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"400":     "$400.00",
		"0":       "$0.00",
		"-12.5":   "-$12.50",
		"1234.56": "$1234.56",
	}
	for in, want := range cases {
		if got := FormatAmount(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatAmount(%s) = %q, want %q", in, got, want)
		}
	}
}

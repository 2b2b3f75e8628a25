// Package core provides amount parsing and the expense record shared by the
// evaluator and the web surface.
//
// This file contains functions for parsing monetary amounts from form input.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied string into a non-negative decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. An empty
// string is a missing category and parses as zero. Signs, thousands
// separators and anything other than digits are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("")      -> 0, nil
//	ParseAmount("-1")    -> 0, ErrNegativeAmount
//	ParseAmount("+1")    -> 0, ErrInvalidAmount
//	ParseAmount("1e3")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrNegativeAmount
	}
	if strings.HasPrefix(s, "+") {
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	digits := 0
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) || r > unicode.MaxASCII {
				return decimal.Zero, ErrInvalidAmount
			}
			digits++
		}
	}
	if digits == 0 || digits > maxAmountDigits {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals and a leading dollar sign,
// keeping the sign in front of the symbol for negative values.
func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

const maxAmountDigits = 18

// Package core provides money parsing and handling utilities.
//
// Amounts are carried as integer cents everywhere; decimal arithmetic is only
// used at the edges, when reading user text and when rendering replies.
package core

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every amount shown to users.
const CurrencySymbol = "R$"

var (
	leadingNumber = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)`)
	hundred       = decimal.NewFromInt(100)
	maxUnits      = decimal.NewFromInt(math.MaxInt64 / 100)
)

// NormalizeAmount converts a free-form amount such as "R$ 45,90" or "120 reais"
// into integer cents.
//
// Every rune other than a digit, comma or period is dropped, the first comma
// becomes the decimal point and the longest leading decimal literal is read.
// Thousands grouping is not recognised: "1.200,50" is read as 1.20.
//
// Examples:
//
//	NormalizeAmount("120")      -> 12000, true
//	NormalizeAmount("R$ 45,90") -> 4590, true
//	NormalizeAmount("abc")      -> 0, false
func NormalizeAmount(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}

	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			return r
		}
		return -1
	}, raw)
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	literal := leadingNumber.FindString(cleaned)
	if literal == "" {
		return 0, false
	}
	literal = strings.TrimSuffix(literal, ".")
	if strings.HasPrefix(literal, ".") {
		literal = "0" + literal
	}

	units, err := decimal.NewFromString(literal)
	if err != nil {
		return 0, false
	}
	if units.GreaterThan(maxUnits) {
		return 0, false
	}

	return units.Mul(hundred).Round(0).IntPart(), true
}

// FormatAmount renders cents as "R$ 120.00".
func FormatAmount(cents int64) string {
	return CurrencySymbol + " " + decimal.New(cents, -2).StringFixed(2)
}

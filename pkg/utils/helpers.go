package utils

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// missingTokens are the cell values read as "no value", matching what pandas treats as NaN
var missingTokens = map[string]bool{
	"":     true,
	"NaN":  true,
	"nan":  true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

// ParseDuration safely parses duration string like "5m"
func ParseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return fallback
	}
	return duration
}

// IsMissingToken reports whether a raw cell stands for a missing value
func IsMissingToken(s string) bool {
	return missingTokens[strings.TrimSpace(s)]
}

// ParseFloat coerces a raw cell to a float.
// ok is false for missing tokens and for anything that is not a number.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if missingTokens[s] {
		return math.NaN(), false
	}
	f, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(f) {
		return math.NaN(), false
	}
	return f, true
}

// DigitCount returns the number of characters in the decimal rendering of
// the integer part of f, so a leading minus sign counts as one.
func DigitCount(f float64) int {
	t := math.Trunc(f)
	if t == 0 {
		return 1
	}
	return len(strconv.FormatFloat(t, 'f', 0, 64))
}

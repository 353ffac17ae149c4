package util

import (
	"math"
	"strconv"
	"strings"
)

// ParseFloatOrNaN parses a plain decimal cell; empty or invalid yields NaN.
func ParseFloatOrNaN(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// KeepDigitsAndDots drops every rune that is not 0-9 or '.'.
func KeepDigitsAndDots(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatCount abbreviates a view, like or follower count for display:
// 950 -> "950", 1500 -> "1.5K", 1000000 -> "1.0M", 2340000 -> "2.34M".
func FormatCount(n int64) string {
	switch {
	case n >= 1_000 && n < 1_000_000:
		return formatRounded(float64(n)/1_000) + "K"
	case n >= 1_000_000:
		return formatRounded(float64(n)/1_000_000) + "M"
	default:
		return strconv.FormatInt(n, 10)
	}
}

// formatRounded rounds to two decimals and keeps at least one fractional
// digit, so 1 renders as "1.0" and 1.50 as "1.5".
func formatRounded(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// ParseCount parses counts as upstreams print them ("1,234", " 56 ", "").
// An empty string is zero.
func ParseCount(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", s, err)
	}
	return n, nil
}

package pricing

import (
	"strconv"
	"strings"
)

// Parse extracts a numeric value from a free-form currency string such as
// "₹45", "Rs 45.50" or "1,234.00". Every rune that is not a digit or a
// decimal point is stripped before parsing. The boolean is false when the
// string holds no usable number, so a failed parse cannot be confused with
// a genuine zero price.
func Parse(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseOrZero is Parse with the zero-on-failure policy applied: unknown
// prices come back as 0 and callers exclude them from trend math.
func ParseOrZero(raw string) float64 {
	value, ok := Parse(raw)
	if !ok {
		return 0
	}
	return value
}

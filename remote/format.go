package remote

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Placeholder returns the text shown for a display whose value is unknown.
func Placeholder(digits int) string {
	if digits <= 0 {
		return ""
	}
	return strings.Repeat("_", digits)
}

// Overflow returns the text shown for a value too wide for its display.
func Overflow(digits int) string {
	if digits <= 0 {
		return ""
	}
	return strings.Repeat("-", digits)
}

// Format renders value as exactly digits characters.
//
// A negative sign takes one character. Fractional digits are kept, rounded, as
// far as they fit; trailing fractional zeros are dropped. With pad '0' the sign
// precedes the zeros, with any other pad rune the sign sits next to the number.
// Values whose integer part does not fit render as Overflow.
func Format(value decimal.Decimal, digits int, pad rune) string {
	if digits <= 0 {
		return ""
	}
	negative := value.IsNegative()
	abs := value.Abs()
	signWidth := 0
	if negative {
		signWidth = 1
	}

	body := abs.StringFixed(0)
	for places := int32(digits - 2); places >= 1; places-- {
		candidate := trimFraction(abs.StringFixed(places))
		if !strings.Contains(candidate, ".") {
			break
		}
		if len(candidate)+signWidth <= digits {
			body = candidate
			break
		}
	}

	if strings.Trim(body, "0.") == "" {
		negative = false
		signWidth = 0
	}
	width := len(body) + signWidth
	if width > digits {
		return Overflow(digits)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	fill := strings.Repeat(string(pad), digits-width)
	if pad == '0' {
		return sign + fill + body
	}
	return fill + sign + body
}

func trimFraction(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

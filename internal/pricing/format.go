package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1000)
	million  = decimal.NewFromInt(1000000)
)

// FormatAmount renders a token amount for display, compacting large
// values: 1,234,567 -> "1.2M", 12,345 -> "12.3K", 12.3456 -> "12.35",
// 0.000123 -> "0.000123".
func FormatAmount(value decimal.Decimal) string {
	switch {
	case value.GreaterThanOrEqual(million):
		return value.Div(million).StringFixed(1) + "M"
	case value.GreaterThanOrEqual(thousand):
		return value.Div(thousand).StringFixed(1) + "K"
	case value.GreaterThanOrEqual(one):
		return value.StringFixed(2)
	default:
		return trimTrailingZeros(value.StringFixed(6))
	}
}

// FormatUSD renders a USD value with a currency symbol, two decimals and
// thousands separators, e.g. "$12,345.68".
func FormatUSD(value decimal.Decimal) string {
	fixed := value.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")
	intPart, fracPart, _ := strings.Cut(fixed, ".")
	out := "$" + groupDigits(intPart) + "." + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// groupThousands renders a decimal with thousands separators in the
// integer part and any trailing fractional zeros removed.
func groupThousands(value decimal.Decimal) string {
	s := value.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	out := groupDigits(intPart)
	if hasFrac && fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

func groupDigits(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func trimTrailingZeros(fixed string) string {
	if !strings.Contains(fixed, ".") {
		return fixed
	}
	fixed = strings.TrimRight(fixed, "0")
	fixed = strings.TrimSuffix(fixed, ".")
	if fixed == "" || fixed == "-" {
		return "0"
	}
	return fixed
}

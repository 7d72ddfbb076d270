package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Defaults match the storefront (Bangladeshi Taka, English - Bangladesh)
const (
	DefaultCurrency = "BDT"
	DefaultLocale   = "en-BD"
)

// FormatCurrency renders a monetary amount for display, e.g. "৳ 1,250" or "$ 12.5"
// Amounts are rounded to two fraction digits and trailing zeros are dropped.
func FormatCurrency(amount decimal.Decimal, currencyCode, locale string) string {
	if currencyCode == "" {
		currencyCode = DefaultCurrency
	}
	if locale == "" {
		locale = DefaultLocale
	}

	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)

	symbol := strings.ToUpper(currencyCode)
	if unit, err := currency.ParseISO(currencyCode); err == nil {
		if s := p.Sprint(currency.Symbol(unit)); s != "" {
			symbol = s
		}
	}

	rounded := amount.Round(2)
	neg := rounded.IsNegative()

	// String drops trailing fraction zeros
	whole, frac, _ := strings.Cut(rounded.Abs().String(), ".")
	number := groupDigits(p, whole)
	if frac != "" {
		number += decimalSeparator(p) + frac
	}

	if neg {
		return "-" + symbol + " " + number
	}
	return symbol + " " + number
}

// groupDigits adds the locale's thousands separators to a string of digits
func groupDigits(p *message.Printer, digits string) string {
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		return p.Sprintf("%d", n)
	}

	sep := strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%d", 1000), "1"), "000")
	if sep == "" || strings.ContainsAny(sep, "0123456789") {
		sep = ","
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(sep)
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func decimalSeparator(p *message.Printer) string {
	sep := strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%.1f", 0.5), "0"), "5")
	if sep == "" {
		return "."
	}
	return sep
}

// FormatDistance renders kilometers, switching to meters below 1 km
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%dm", int(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1fkm", km)
}

// FormatDuration renders minutes as "45 min", "2h" or "1h 30min"
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins > 0 {
		return fmt.Sprintf("%dh %dmin", hours, mins)
	}
	return fmt.Sprintf("%dh", hours)
}

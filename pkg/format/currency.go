// Package format renders monetary amounts for humans.
package format

import (
	"fmt"
	"math"
	"strings"
)

// Currency returns an amount prefixed with its currency code and a dollar
// sign, with thousands separators (e.g., "-AUD $1,234.56").
func Currency(code string, amount float64) string {
	return CurrencyPlaces(code, amount, 2)
}

// CurrencyPlaces is Currency with an explicit number of decimals.
func CurrencyPlaces(code string, amount float64, places int) string {
	formatted := formatPositive(math.Abs(amount), places)
	prefix := "$"
	if code != "" {
		prefix = code + " $"
	}
	if amount < 0 && formatted != zeroString(places) {
		return "-" + prefix + formatted
	}
	return prefix + formatted
}

// NumericCurrency returns a currency string without a currency symbol but with separators (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	sign := ""
	formatted := formatPositive(math.Abs(amount), 2)
	if amount < 0 && formatted != zeroString(2) {
		sign = "-"
	}
	return sign + formatted
}

func zeroString(places int) string {
	return fmt.Sprintf("%.*f", places, 0.0)
}

func formatPositive(value float64, places int) string {
	if places < 0 {
		places = 0
	}
	formatted := fmt.Sprintf("%.*f", places, value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := ""
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	if decPart == "" {
		return intPart
	}
	return intPart + "." + decPart
}

// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/true-cost/pkg/constants"
	"golang.org/x/text/currency"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// NormalizeCurrencyCode checks that code is a known ISO 4217 currency and
// returns it in canonical upper case.
func NormalizeCurrencyCode(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != 3 {
		return "", fmt.Errorf("expected a 3-letter currency code, got %q", code)
	}
	unit, err := currency.ParseISO(trimmed)
	if err != nil {
		return "", fmt.Errorf("unknown currency code %q: %w", code, err)
	}
	return unit.String(), nil
}

// ValidateExchangeRate checks that rate can be used to convert an amount.
func ValidateExchangeRate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("exchange rate must be a finite number, got %v", rate)
	}
	if rate <= 0 {
		return fmt.Errorf("exchange rate must be greater than 0, got %v", rate)
	}
	return nil
}

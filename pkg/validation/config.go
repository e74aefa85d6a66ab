// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"sort"
)

// ValidateRateTable checks the configured exchange rates against the target
// currency and returns human-readable warnings. Entries that cannot be used
// are reported but never abort a run; the orders that need them fail instead.
func ValidateRateTable(target string, rates map[string]float64) []string {
	var warnings []string

	codes := make([]string, 0, len(rates))
	for code := range rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		rate := rates[code]
		normalized, err := NormalizeCurrencyCode(code)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Exchange rate '%s' ignored: %v", code, err))
			continue
		}
		if err := ValidateExchangeRate(rate); err != nil {
			warnings = append(warnings, fmt.Sprintf("Exchange rate '%s' ignored: %v", normalized, err))
			continue
		}
		if normalized == target && rate != 1 {
			warnings = append(warnings, fmt.Sprintf("Exchange rate for target currency %s is %v; orders already in %s are never converted",
				target, rate, target))
		}
	}

	return warnings
}

// ValidateTolerance reports a warning when the reconciliation tolerance is
// unusable.
func ValidateTolerance(tolerance float64) []string {
	if tolerance < 0 {
		return []string{fmt.Sprintf("Reconciliation tolerance %v is negative; the default will be used", tolerance)}
	}
	return nil
}

// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/true-cost/pkg/constants"
)

const (
	// OrderDateLayout is the canonical order date format.
	OrderDateLayout = constants.OrderDateLayout
)

// orderDateLayouts are the date formats seen on invoices and order files.
var orderDateLayouts = []string{
	OrderDateLayout,
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2, 2006",
	"Monday, January 2, 2006",
	"2006/01/02",
	time.RFC3339,
}

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseOrderDate parses an order date in any of the known invoice formats.
func ParseOrderDate(date string) (time.Time, error) {
	trimmed := strings.Join(strings.Fields(date), " ")
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty order date")
	}
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized order date %q", date)
}

// NormalizeOrderDate returns date in OrderDateLayout, or the trimmed input
// when it cannot be parsed.
func NormalizeOrderDate(date string) string {
	t, err := ParseOrderDate(date)
	if err != nil {
		return strings.TrimSpace(date)
	}
	return t.Format(OrderDateLayout)
}

// DateBeforeDate returns true if firstDate is strictly before secondDate.
// Unparseable dates sort after parseable ones.
func DateBeforeDate(firstDate string, secondDate string) bool {
	firstDateT, firstErr := ParseOrderDate(firstDate)
	secondDateT, secondErr := ParseOrderDate(secondDate)
	switch {
	case firstErr != nil:
		return false
	case secondErr != nil:
		return true
	default:
		return firstDateT.Before(secondDateT)
	}
}

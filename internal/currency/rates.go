package currency

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/iwvelando/true-cost/internal/order"
	"github.com/iwvelando/true-cost/pkg/constants"
	"github.com/iwvelando/true-cost/pkg/validation"
)

// RateBook holds one exchange rate per source currency for a run.
type RateBook struct {
	target string
	rates  map[string]float64
}

// NewRateBook builds a rate book converting into target. Codes are
// normalized; unusable entries are returned as an error.
func NewRateBook(target string, rates map[string]float64) (*RateBook, error) {
	if target == "" {
		target = constants.DefaultTargetCurrency
	}
	normalizedTarget, err := validation.NormalizeCurrencyCode(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target currency: %w", err)
	}

	book := &RateBook{target: normalizedTarget, rates: make(map[string]float64, len(rates))}
	for code, rate := range rates {
		if err := book.Set(code, rate); err != nil {
			return nil, err
		}
	}
	return book, nil
}

// Target is the accounting currency of the book.
func (b *RateBook) Target() string {
	return b.target
}

// Set records the rate for one source currency.
func (b *RateBook) Set(code string, rate float64) error {
	normalized, err := validation.NormalizeCurrencyCode(code)
	if err != nil {
		return fmt.Errorf("invalid currency in rate table: %w", err)
	}
	if err := checkRate(normalized, rate); err != nil {
		return err
	}
	b.rates[normalized] = rate
	return nil
}

// Lookup returns the rate converting code into the target currency. The
// target currency itself always converts at 1.
func (b *RateBook) Lookup(code string) (float64, error) {
	if code == b.target {
		return constants.NeutralExchangeRate, nil
	}
	rate, ok := b.rates[code]
	if !ok {
		return 0, &InvalidRateError{Currency: code, Reason: fmt.Sprintf("no exchange rate configured for %s to %s", code, b.target)}
	}
	return rate, nil
}

// Codes lists the currencies with a configured rate, sorted.
func (b *RateBook) Codes() []string {
	codes := make([]string, 0, len(b.rates))
	for code := range b.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// NormalizeRecord converts rec into the book's target currency using the
// configured rate for its currency.
func (b *RateBook) NormalizeRecord(rec order.Record) (order.Record, error) {
	rate, err := b.Lookup(rec.Currency)
	if err != nil {
		return order.Record{}, err
	}
	return Normalize(rec, b.target, rate)
}

// ParseRate parses a "CUR=rate" pair such as "EUR=1.6".
func ParseRate(value string) (string, float64, error) {
	code, rawRate, ok := strings.Cut(strings.TrimSpace(value), "=")
	if !ok {
		return "", 0, fmt.Errorf("expected CUR=rate, got %q", value)
	}
	normalized, err := validation.NormalizeCurrencyCode(code)
	if err != nil {
		return "", 0, err
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(rawRate), 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid rate in %q: %w", value, err)
	}
	if err := checkRate(normalized, rate); err != nil {
		return "", 0, err
	}
	return normalized, rate, nil
}

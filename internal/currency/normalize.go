// Package currency converts order records into the target accounting
// currency using a caller-supplied scalar exchange rate.
package currency

import (
	"fmt"
	"math"

	"github.com/iwvelando/true-cost/internal/order"
)

// InvalidRateError reports an exchange rate that cannot be used.
type InvalidRateError struct {
	Currency string
	Rate     float64
	Reason   string
}

func (e *InvalidRateError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "must be greater than 0"
	}
	if e.Currency == "" {
		return fmt.Sprintf("invalid exchange rate %v: %s", e.Rate, reason)
	}
	return fmt.Sprintf("invalid exchange rate %v for %s: %s", e.Rate, e.Currency, reason)
}

func checkRate(code string, rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return &InvalidRateError{Currency: code, Rate: rate, Reason: "must be a finite number"}
	}
	if rate <= 0 {
		return &InvalidRateError{Currency: code, Rate: rate}
	}
	return nil
}

// Normalize returns a copy of rec with every monetary field and every item
// price multiplied by rate, tagged with the target currency. One unit of the
// record's currency is worth rate units of target.
//
// A record already in target is returned unchanged. Otherwise the conversion
// compounds, so it must be applied at most once per record.
func Normalize(rec order.Record, target string, rate float64) (order.Record, error) {
	if err := checkRate(rec.Currency, rate); err != nil {
		return order.Record{}, err
	}

	if rec.Currency == target {
		return rec.Clone(), nil
	}

	converted := rec.Clone()
	converted.OriginalCurrency = rec.SourceCurrency()
	converted.Currency = target
	converted.ExchangeRate = rate

	converted.Subtotal *= rate
	converted.Shipping *= rate
	converted.Insurance *= rate
	converted.Surcharge1 *= rate
	converted.Surcharge2 *= rate
	converted.Credit *= rate
	converted.CouponCredit *= rate
	converted.GrandTotal *= rate

	for i := range converted.Items {
		converted.Items[i].UnitPrice *= rate
		converted.Items[i].LineTotal *= rate
	}

	return converted, nil
}

// ToSource converts an amount in the target currency back into the record's
// original currency. Records that were never converted return amount as is.
func ToSource(rec order.Record, amount float64) float64 {
	if !rec.Converted() || rec.ExchangeRate == 0 {
		return amount
	}
	return amount / rec.ExchangeRate
}

// Package order defines the canonical in-memory order record that flows from
// the input sources through currency normalization into the allocation engine.
package order

import (
	"math"

	"github.com/iwvelando/true-cost/pkg/constants"
)

// GrandTotalTolerance is the allowed gap between a stated grand total and the
// derived one.
const GrandTotalTolerance = constants.GrandTotalTolerance

// LineItem is one purchased lot on an invoice.
type LineItem struct {
	Name      string  `json:"name" yaml:"name" validate:"required"`
	Quantity  int     `json:"quantity" yaml:"quantity" validate:"min=0"`
	UnitPrice float64 `json:"unitPrice" yaml:"unitPrice" validate:"gte=0"`
	// LineTotal is the authoritative allocation weight; it is not recomputed
	// from UnitPrice and Quantity.
	LineTotal float64 `json:"lineTotal" yaml:"lineTotal" validate:"gte=0"`

	Condition  string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Color      string `json:"color,omitempty" yaml:"color,omitempty"`
	PartNumber string `json:"partNumber,omitempty" yaml:"partNumber,omitempty"`
	Weight     string `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// Drift is the gap between the stated line total and unit price times quantity.
func (item LineItem) Drift() float64 {
	return math.Abs(item.LineTotal - item.UnitPrice*float64(item.Quantity))
}

// Record is a single order: its charges and its ordered line items.
type Record struct {
	OrderID   string `json:"orderId" yaml:"orderId" validate:"required"`
	OrderDate string `json:"orderDate,omitempty" yaml:"orderDate,omitempty"`

	// Currency is the unit every amount on the record is expressed in.
	Currency string `json:"currency" yaml:"currency" validate:"required,currency_code"`
	// OriginalCurrency is the currency the invoice was issued in.
	OriginalCurrency string  `json:"originalCurrency,omitempty" yaml:"originalCurrency,omitempty" validate:"omitempty,currency_code"`
	ExchangeRate     float64 `json:"exchangeRate" yaml:"exchangeRate" validate:"gt=0"`

	Subtotal     float64 `json:"subtotal" yaml:"subtotal" validate:"gte=0"`
	Shipping     float64 `json:"shipping" yaml:"shipping" validate:"gte=0"`
	Insurance    float64 `json:"insurance" yaml:"insurance" validate:"gte=0"`
	Surcharge1   float64 `json:"surcharge1" yaml:"surcharge1" validate:"gte=0"`
	Surcharge2   float64 `json:"surcharge2" yaml:"surcharge2" validate:"gte=0"`
	Credit       float64 `json:"credit" yaml:"credit" validate:"gte=0"`
	CouponCredit float64 `json:"couponCredit,omitempty" yaml:"couponCredit,omitempty" validate:"gte=0"`
	GrandTotal   float64 `json:"grandTotal" yaml:"grandTotal"`

	Items []LineItem `json:"items" yaml:"items" validate:"dive"`
}

// SourceCurrency returns the currency the invoice was issued in.
func (r Record) SourceCurrency() string {
	if r.OriginalCurrency == "" {
		return r.Currency
	}
	return r.OriginalCurrency
}

// Converted reports whether the record has been normalized from another currency.
func (r Record) Converted() bool {
	return r.SourceCurrency() != r.Currency
}

// DerivedGrandTotal is subtotal plus every charge minus every credit.
func (r Record) DerivedGrandTotal() float64 {
	return r.Subtotal + r.Shipping + r.Insurance + r.Surcharge1 + r.Surcharge2 - r.Credit - r.CouponCredit
}

// TotalQuantity sums item quantities.
func (r Record) TotalQuantity() int {
	total := 0
	for _, item := range r.Items {
		total += item.Quantity
	}
	return total
}

// ItemsTotal sums item line totals.
func (r Record) ItemsTotal() float64 {
	total := 0.0
	for _, item := range r.Items {
		total += item.LineTotal
	}
	return total
}

// Clone returns a copy that shares no item storage with r.
func (r Record) Clone() Record {
	clone := r
	if r.Items != nil {
		clone.Items = make([]LineItem, len(r.Items))
		copy(clone.Items, r.Items)
	}
	return clone
}

// MergeCredits folds the coupon credit into Credit so the allocation engine
// only has to consider one credit field. The grand total is unchanged.
func MergeCredits(r Record) Record {
	merged := r.Clone()
	merged.Credit += merged.CouponCredit
	merged.CouponCredit = 0
	return merged
}

// WithDerivedGrandTotal returns a copy whose GrandTotal is the canonical one.
func WithDerivedGrandTotal(r Record) Record {
	clone := r.Clone()
	clone.GrandTotal = clone.DerivedGrandTotal()
	return clone
}

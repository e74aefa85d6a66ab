package order

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() Record {
	rec := Record{
		OrderID:      "1001",
		Currency:     "AUD",
		ExchangeRate: 1,
		Subtotal:     100,
		Shipping:     10,
		Insurance:    1.5,
		Credit:       2,
		Items: []LineItem{
			{Name: "Plate 2x2", Quantity: 10, UnitPrice: 4, LineTotal: 40},
			{Name: "Brick 1x4", Quantity: 4, UnitPrice: 15, LineTotal: 60},
		},
	}
	rec.GrandTotal = rec.DerivedGrandTotal()
	return rec
}

func TestValidateAcceptsWellFormedRecord(t *testing.T) {
	require.NoError(t, Validate(validRecord()))
}

func TestValidateReportsOffendingField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
		field  string
	}{
		{"missing order id", func(r *Record) { r.OrderID = "" }, "order_id"},
		{"missing currency", func(r *Record) { r.Currency = "" }, "currency"},
		{"unknown currency", func(r *Record) { r.Currency = "QQQ" }, "currency"},
		{"bad original currency", func(r *Record) { r.OriginalCurrency = "EURO" }, "original_currency"},
		{"zero exchange rate", func(r *Record) { r.ExchangeRate = 0 }, "exchange_rate"},
		{"negative shipping", func(r *Record) {
			r.Shipping = -1
			r.GrandTotal = r.DerivedGrandTotal()
		}, "shipping"},
		{"negative credit", func(r *Record) {
			r.Credit = -5
			r.GrandTotal = r.DerivedGrandTotal()
		}, "credit"},
		{"empty item name", func(r *Record) { r.Items[1].Name = "" }, "items[1].name"},
		{"negative quantity", func(r *Record) { r.Items[0].Quantity = -3 }, "items[0].quantity"},
		{"negative unit price", func(r *Record) { r.Items[0].UnitPrice = -0.5 }, "items[0].unit_price"},
		{"infinite line total", func(r *Record) { r.Items[1].LineTotal = math.Inf(1) }, "items[1].line_total"},
		{"grand total mismatch", func(r *Record) { r.GrandTotal += 0.5 }, "grand_total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			err := Validate(rec)
			require.Error(t, err)

			var invalid *InvalidOrderDataError
			require.True(t, errors.As(err, &invalid), "expected InvalidOrderDataError, got %T", err)
			assert.Equal(t, tt.field, invalid.Field)
			assert.Equal(t, rec.OrderID, invalid.OrderID)
		})
	}
}

func TestValidateAllowsZeroQuantity(t *testing.T) {
	// Zero quantity is rejected by the allocation engine, not by validation.
	rec := validRecord()
	rec.Items[0].Quantity = 0
	assert.NoError(t, Validate(rec))
}

func TestCheckGrandTotalTolerance(t *testing.T) {
	rec := validRecord()
	rec.GrandTotal = rec.DerivedGrandTotal() + GrandTotalTolerance/2
	assert.NoError(t, CheckGrandTotal(rec))

	rec.GrandTotal = rec.DerivedGrandTotal() + 0.01
	assert.Error(t, CheckGrandTotal(rec))
}

func TestMergeCredits(t *testing.T) {
	rec := validRecord()
	rec.CouponCredit = 1.10
	rec.GrandTotal = rec.DerivedGrandTotal()

	merged := MergeCredits(rec)

	assert.InDelta(t, 3.10, merged.Credit, 1e-9)
	assert.Zero(t, merged.CouponCredit)
	assert.InDelta(t, rec.GrandTotal, merged.GrandTotal, 1e-9)
	assert.InDelta(t, merged.GrandTotal, merged.DerivedGrandTotal(), 1e-9)
	assert.Equal(t, 1.10, rec.CouponCredit, "input must not be mutated")
}

func TestCloneDoesNotShareItems(t *testing.T) {
	rec := validRecord()
	clone := rec.Clone()
	clone.Items[0].UnitPrice = 99

	assert.Equal(t, 4.0, rec.Items[0].UnitPrice)
}

func TestRecordHelpers(t *testing.T) {
	rec := validRecord()

	assert.Equal(t, 14, rec.TotalQuantity())
	assert.InDelta(t, 100, rec.ItemsTotal(), 1e-9)
	assert.Equal(t, "AUD", rec.SourceCurrency())
	assert.False(t, rec.Converted())

	rec.OriginalCurrency = "EUR"
	assert.Equal(t, "EUR", rec.SourceCurrency())
	assert.True(t, rec.Converted())

	fixed := WithDerivedGrandTotal(Record{Subtotal: 10, Shipping: 2, Credit: 1})
	assert.InDelta(t, 11, fixed.GrandTotal, 1e-9)
}

func TestLineItemDrift(t *testing.T) {
	item := LineItem{Name: "Tile", Quantity: 8, UnitPrice: 0.541, LineTotal: 4.33}
	assert.InDelta(t, 0.002, item.Drift(), 1e-9)
}

func TestInvalidOrderDataErrorMessage(t *testing.T) {
	err := NewInvalidDataError("42", "subtotal", "is %s", "missing")
	assert.Equal(t, `invalid order data for order 42: field "subtotal" is missing`, err.Error())

	anonymous := &InvalidOrderDataError{Field: "currency", Reason: "is required"}
	assert.Equal(t, `invalid order data: field "currency" is required`, anonymous.Error())
}

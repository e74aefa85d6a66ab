package testutil

import (
	"math"
	"testing"

	"github.com/iwvelando/true-cost/internal/order"
)

func TestSampleOrdersAreValid(t *testing.T) {
	samples := map[string]order.Record{
		"AUD":    AUDOrder(),
		"EUR":    EUROrder(),
		"USD":    USDOrder(),
		"simple": SimpleOrder(100, 10, 20),
	}

	for name, rec := range samples {
		t.Run(name, func(t *testing.T) {
			if err := order.Validate(rec); err != nil {
				t.Fatalf("order.Validate() error = %v", err)
			}
		})
	}
}

func TestAUDOrderItemsMatchSubtotal(t *testing.T) {
	rec := AUDOrder()
	if len(rec.Items) != 19 {
		t.Fatalf("expected 19 items, got %d", len(rec.Items))
	}
	if math.Abs(rec.ItemsTotal()-rec.Subtotal) > 0.01 {
		t.Errorf("ItemsTotal() = %.4f, expected %.2f", rec.ItemsTotal(), rec.Subtotal)
	}
}

func TestUSDOrderGrandTotal(t *testing.T) {
	rec := USDOrder()
	if math.Abs(rec.GrandTotal-51.59) > 1e-9 {
		t.Errorf("GrandTotal = %.4f, expected 51.59", rec.GrandTotal)
	}
}

func TestSimpleOrderWeights(t *testing.T) {
	rec := SimpleOrder(100, 10, 0)
	if math.Abs(rec.ItemsTotal()-100) > 1e-9 {
		t.Errorf("ItemsTotal() = %.4f, expected 100", rec.ItemsTotal())
	}
}

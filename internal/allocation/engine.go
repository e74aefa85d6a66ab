// Package allocation spreads an order's non-item charges across its line
// items in proportion to each item's share of the subtotal.
package allocation

import (
	"math"

	"github.com/iwvelando/true-cost/internal/order"
	"github.com/iwvelando/true-cost/pkg/constants"
	"go.uber.org/zap"
)

// ItemAllocation is the overhead carried by one line item.
type ItemAllocation struct {
	Name                     string
	Quantity                 int
	UnitPrice                float64
	LineTotal                float64
	AllocatedOverhead        float64
	AllocatedOverheadPerUnit float64
	TrueUnitCost             float64
}

// Result is the outcome of allocating one order.
type Result struct {
	OrderID             string
	TotalOverhead       float64
	OverheadRate        float64
	DistributedTotal    float64
	ReconciliationError float64
	// ZeroSubtotal is set when the order had no subtotal to weight by and
	// therefore no overhead was allocated.
	ZeroSubtotal bool
	Items        []ItemAllocation
	Warning      *ReconciliationWarning
}

// Engine allocates overhead across line items.
type Engine struct {
	logger    *zap.Logger
	tolerance float64
}

// NewEngine returns an Engine that flags reconciliation gaps above tolerance.
// A non-positive tolerance selects the default.
func NewEngine(logger *zap.Logger, tolerance float64) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tolerance <= 0 || math.IsNaN(tolerance) {
		tolerance = constants.ReconciliationTolerance
	}
	return &Engine{logger: logger, tolerance: tolerance}
}

// Tolerance is the reconciliation tolerance in use.
func (e *Engine) Tolerance() float64 {
	return e.tolerance
}

// TotalOverhead is every non-item charge net of credits.
func TotalOverhead(rec order.Record) float64 {
	return rec.Shipping + rec.Insurance + rec.Surcharge1 + rec.Surcharge2 - rec.Credit - rec.CouponCredit
}

// OverheadRate is total overhead per unit of subtotal, or 0 when the subtotal
// is not positive.
func OverheadRate(rec order.Record) float64 {
	if rec.Subtotal > 0 {
		return TotalOverhead(rec) / rec.Subtotal
	}
	return 0
}

// Allocate distributes the order's overhead across its items in input order.
// The record is not modified; calling Allocate twice on the same record
// yields identical results.
func (e *Engine) Allocate(rec order.Record) (Result, error) {
	result := Result{
		OrderID:       rec.OrderID,
		TotalOverhead: TotalOverhead(rec),
		OverheadRate:  OverheadRate(rec),
		ZeroSubtotal:  !(rec.Subtotal > 0),
		Items:         make([]ItemAllocation, 0, len(rec.Items)),
	}

	if result.ZeroSubtotal && len(rec.Items) > 0 {
		e.logger.Warn("order has no subtotal; allocating no overhead",
			zap.String("op", "allocation.Allocate"),
			zap.String("order", rec.OrderID),
			zap.Float64("totalOverhead", result.TotalOverhead),
		)
	}

	for i, item := range rec.Items {
		allocated, err := allocateItem(i, item, result.OverheadRate)
		if err != nil {
			return Result{}, err
		}
		result.DistributedTotal += allocated.AllocatedOverhead
		result.Items = append(result.Items, allocated)
	}

	result.ReconciliationError = math.Abs(result.TotalOverhead - result.DistributedTotal)
	if result.ReconciliationError > e.tolerance {
		result.Warning = &ReconciliationWarning{
			OrderID:     rec.OrderID,
			Expected:    result.TotalOverhead,
			Distributed: result.DistributedTotal,
			Difference:  result.ReconciliationError,
			Tolerance:   e.tolerance,
		}
		e.logger.Warn("allocated overhead does not reconcile",
			zap.String("op", "allocation.Allocate"),
			zap.String("order", rec.OrderID),
			zap.Float64("expected", result.TotalOverhead),
			zap.Float64("distributed", result.DistributedTotal),
			zap.Float64("difference", result.ReconciliationError),
		)
	}

	e.logger.Debug("allocated overhead",
		zap.String("op", "allocation.Allocate"),
		zap.String("order", rec.OrderID),
		zap.Int("items", len(result.Items)),
		zap.Float64("rate", result.OverheadRate),
		zap.Float64("reconciliationError", result.ReconciliationError),
	)

	return result, nil
}

func allocateItem(index int, item order.LineItem, rate float64) (ItemAllocation, error) {
	if item.Quantity <= 0 {
		return ItemAllocation{}, &DivisionByZeroError{Index: index, Item: item.Name, Quantity: item.Quantity}
	}

	allocated := item.LineTotal * rate
	perUnit := allocated / float64(item.Quantity)

	return ItemAllocation{
		Name:                     item.Name,
		Quantity:                 item.Quantity,
		UnitPrice:                item.UnitPrice,
		LineTotal:                item.LineTotal,
		AllocatedOverhead:        allocated,
		AllocatedOverheadPerUnit: perUnit,
		TrueUnitCost:             item.UnitPrice + perUnit,
	}, nil
}

// Quote prices a single item against a known overhead rate, using the line
// total unitPrice*quantity as its weight.
func Quote(rate float64, quantity int, unitPrice float64) (ItemAllocation, error) {
	return allocateItem(0, order.LineItem{
		Name:      "quote",
		Quantity:  quantity,
		UnitPrice: unitPrice,
		LineTotal: unitPrice * float64(quantity),
	}, rate)
}

// TotalCost is the true cost of the whole lot.
func (a ItemAllocation) TotalCost() float64 {
	return a.TrueUnitCost * float64(a.Quantity)
}

package allocation

import "fmt"

// DivisionByZeroError reports an item whose quantity cannot carry a per-unit
// share of overhead.
type DivisionByZeroError struct {
	Index    int
	Item     string
	Quantity int
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("cannot allocate overhead per unit for item %d (%q): quantity is %d", e.Index, e.Item, e.Quantity)
}

// ReconciliationWarning reports that the per-item allocations do not add back
// up to the total overhead within tolerance. It never aborts an allocation.
type ReconciliationWarning struct {
	OrderID     string
	Expected    float64
	Distributed float64
	Difference  float64
	Tolerance   float64
}

func (w *ReconciliationWarning) Error() string {
	return fmt.Sprintf("order %s: distributed overhead %.4f differs from total overhead %.4f by %.4f (tolerance %.4f)",
		w.OrderID, w.Distributed, w.Expected, w.Difference, w.Tolerance)
}

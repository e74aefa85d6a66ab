package order

import "fmt"

// InvalidOrderDataError reports a missing or malformed field on an order.
type InvalidOrderDataError struct {
	OrderID string
	Field   string
	Reason  string
}

func (e *InvalidOrderDataError) Error() string {
	if e.OrderID == "" {
		return fmt.Sprintf("invalid order data: field %q %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid order data for order %s: field %q %s", e.OrderID, e.Field, e.Reason)
}

// NewInvalidDataError builds an InvalidOrderDataError with a formatted reason.
func NewInvalidDataError(orderID, field, format string, args ...interface{}) *InvalidOrderDataError {
	return &InvalidOrderDataError{
		OrderID: orderID,
		Field:   field,
		Reason:  fmt.Sprintf(format, args...),
	}
}

package order

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/iwvelando/true-cost/pkg/mathutil"
	"github.com/iwvelando/true-cost/pkg/validation"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
	errValidate  error
)

func initValidator() (*validator.Validate, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())

	vld.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	if err := vld.RegisterValidation("currency_code", func(fl validator.FieldLevel) bool {
		_, err := validation.NormalizeCurrencyCode(fl.Field().String())
		return err == nil
	}); err != nil {
		return nil, fmt.Errorf("failed to register 'currency_code': %w", err)
	}

	return vld, nil
}

func getValidator() (*validator.Validate, error) {
	validateOnce.Do(func() {
		validate, errValidate = initValidator()
	})
	return validate, errValidate
}

var reasons = map[string]func(param string) string{
	"required":      func(string) string { return "is required" },
	"gt":            func(p string) string { return "must be greater than " + p },
	"gte":           func(p string) string { return "must be at least " + p },
	"min":           func(p string) string { return "must be at least " + p },
	"currency_code": func(string) string { return "must be a 3-letter ISO 4217 currency code" },
}

// Validate checks every field constraint on the record and its grand total.
// The first violation is returned as an *InvalidOrderDataError.
func Validate(r Record) error {
	vld, err := getValidator()
	if err != nil {
		return fmt.Errorf("order validator unavailable: %w", err)
	}

	if err := vld.Struct(r); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return fromFieldError(r.OrderID, fieldErrors[0])
		}
		return NewInvalidDataError(r.OrderID, "record", "failed validation: %v", err)
	}

	if err := checkFinite(r); err != nil {
		return err
	}

	return CheckGrandTotal(r)
}

// CheckGrandTotal verifies GrandTotal against the derived total.
func CheckGrandTotal(r Record) error {
	derived := r.DerivedGrandTotal()
	if !mathutil.WithinTolerance(r.GrandTotal, derived, GrandTotalTolerance) {
		return NewInvalidDataError(r.OrderID, "grand_total",
			"is %.6f but subtotal, charges and credits add up to %.6f", r.GrandTotal, derived)
	}
	return nil
}

func checkFinite(r Record) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"exchange_rate", r.ExchangeRate},
		{"subtotal", r.Subtotal},
		{"shipping", r.Shipping},
		{"insurance", r.Insurance},
		{"surcharge1", r.Surcharge1},
		{"surcharge2", r.Surcharge2},
		{"credit", r.Credit},
		{"coupon_credit", r.CouponCredit},
		{"grand_total", r.GrandTotal},
	}
	for _, f := range fields {
		if !mathutil.IsFinite(f.value) {
			return NewInvalidDataError(r.OrderID, f.name, "must be a finite number")
		}
	}
	for i, item := range r.Items {
		if !mathutil.IsFinite(item.UnitPrice) {
			return NewInvalidDataError(r.OrderID, fmt.Sprintf("items[%d].unit_price", i), "must be a finite number")
		}
		if !mathutil.IsFinite(item.LineTotal) {
			return NewInvalidDataError(r.OrderID, fmt.Sprintf("items[%d].line_total", i), "must be a finite number")
		}
	}
	return nil
}

func fromFieldError(orderID string, fe validator.FieldError) *InvalidOrderDataError {
	field := fieldPath(fe.Namespace())
	if format, ok := reasons[fe.Tag()]; ok {
		return &InvalidOrderDataError{OrderID: orderID, Field: field, Reason: format(fe.Param())}
	}
	return NewInvalidDataError(orderID, field, "failed '%s' check", fe.Tag())
}

// fieldPath turns "Record.items[2].unitPrice" into "items[2].unit_price".
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		namespace = namespace[idx+1:]
	}
	return toSnakeCase(namespace)
}

func toSnakeCase(s string) string {
	var result strings.Builder

	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteByte('_')
		}

		result.WriteRune(r)
	}

	return strings.ToLower(result.String())
}

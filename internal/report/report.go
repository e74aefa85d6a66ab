// Package report projects an allocation result into the tabular layout shared
// by the console table and the CSV export.
package report

import (
	"fmt"
	"strconv"

	"github.com/iwvelando/true-cost/internal/allocation"
	"github.com/iwvelando/true-cost/internal/currency"
	"github.com/iwvelando/true-cost/internal/order"
	"github.com/iwvelando/true-cost/pkg/constants"
	"github.com/iwvelando/true-cost/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Column labels.
const (
	ColumnName         = "Name"
	ColumnOverheadRate = "Overhead Rate"
	ColumnQuantity     = "Quantity"
	SummaryLabel       = "SUMMARY"
)

// Reconciliation is the display form of the allocation's reconciliation check.
type Reconciliation struct {
	Distributed string
	Original    string
	Difference  string
}

// Report is the tabular projection of one allocated order.
type Report struct {
	OrderID        string
	OrderDate      string
	SourceCurrency string
	TargetCurrency string
	ExchangeRate   float64
	// Dual is set when the order was converted and every amount is shown in
	// both currencies.
	Dual           bool
	OverheadRate   string
	Header         []string
	Rows           [][]string
	Summary        [][]string
	Reconciliation Reconciliation
	Notes          []string
}

type projection struct {
	rec  order.Record
	dual bool
	cols int
}

// Build projects rec and its allocation into a Report. Rounding happens here
// only; res is not changed.
func Build(rec order.Record, res allocation.Result) Report {
	p := projection{rec: rec, dual: rec.Converted()}

	rep := Report{
		OrderID:        rec.OrderID,
		OrderDate:      rec.OrderDate,
		SourceCurrency: rec.SourceCurrency(),
		TargetCurrency: rec.Currency,
		ExchangeRate:   rec.ExchangeRate,
		Dual:           p.dual,
		OverheadRate:   Percent(res.OverheadRate),
		Header:         p.header(),
	}
	p.cols = len(rep.Header)

	rep.Rows = make([][]string, 0, len(res.Items))
	for _, item := range res.Items {
		rep.Rows = append(rep.Rows, p.itemRow(item, rep.OverheadRate))
	}

	rep.Summary = p.summary(res, rep.OverheadRate)
	rep.Reconciliation = Reconciliation{
		Distributed: Aggregate(res.DistributedTotal),
		Original:    Aggregate(res.TotalOverhead),
		Difference:  PerUnit(res.ReconciliationError),
	}

	if res.ZeroSubtotal && len(res.Items) > 0 {
		rep.Notes = append(rep.Notes, "Order has no subtotal; no overhead was allocated to its items")
	}
	if res.Warning != nil {
		rep.Notes = append(rep.Notes, res.Warning.Error())
	}

	return rep
}

func (p projection) header() []string {
	target := p.rec.Currency
	header := []string{ColumnName, ColumnOverheadRate, ColumnQuantity}
	if p.dual {
		header = append(header, fmt.Sprintf("Original %s Price", p.rec.SourceCurrency()))
	}
	return append(header,
		fmt.Sprintf("Original %s Price", target),
		fmt.Sprintf("True %s Cost", target),
	)
}

func (p projection) itemRow(item allocation.ItemAllocation, rate string) []string {
	row := []string{item.Name, rate, strconv.Itoa(item.Quantity)}
	if p.dual {
		row = append(row, PerUnit(currency.ToSource(p.rec, item.UnitPrice)))
	}
	return append(row, PerUnit(item.UnitPrice), PerUnit(item.TrueUnitCost))
}

func (p projection) blank() []string {
	return make([]string, p.cols)
}

// amountRow places amount in the original-price column(s).
func (p projection) amountRow(label, rateCell, quantityCell string, amount float64) []string {
	row := p.blank()
	row[0] = label
	row[1] = rateCell
	row[2] = quantityCell
	if p.dual {
		row[3] = Aggregate(currency.ToSource(p.rec, amount))
		row[4] = Aggregate(amount)
	} else {
		row[3] = Aggregate(amount)
	}
	return row
}

func (p projection) summary(res allocation.Result, rate string) [][]string {
	rec := p.rec
	rows := [][]string{append([]string{SummaryLabel}, p.blank()[1:]...)}

	if p.dual {
		row := p.blank()
		row[0] = "Exchange Rate"
		row[1] = fmt.Sprintf("1 %s = %s %s", rec.SourceCurrency(), strconv.FormatFloat(rec.ExchangeRate, 'f', -1, 64), rec.Currency)
		rows = append(rows, row)
	}

	rows = append(rows,
		p.amountRow("Subtotal", "", strconv.Itoa(rec.TotalQuantity()), rec.Subtotal),
		p.amountRow("Shipping", "", "", rec.Shipping),
	)

	optional := []struct {
		label  string
		amount float64
		credit bool
	}{
		{"Insurance", rec.Insurance, false},
		{"Surcharge 1", rec.Surcharge1, false},
		{"Surcharge 2", rec.Surcharge2, false},
		{"Credit", rec.Credit, true},
		{"Coupon Credit", rec.CouponCredit, true},
	}
	for _, charge := range optional {
		if charge.amount == 0 {
			continue
		}
		amount := charge.amount
		if charge.credit {
			amount = -amount
		}
		rows = append(rows, p.amountRow(charge.label, "", "", amount))
	}

	rows = append(rows, p.amountRow("Total Overhead", rate, "", res.TotalOverhead))

	grand := p.blank()
	grand[0] = "Grand Total"
	if p.dual {
		grand[3] = Aggregate(currency.ToSource(rec, rec.GrandTotal))
	}
	grand[p.cols-1] = Aggregate(rec.GrandTotal)
	rows = append(rows, grand)

	return rows
}

// Table returns the header, item rows, a blank separator and the summary block.
func (r Report) Table() [][]string {
	table := make([][]string, 0, len(r.Rows)+len(r.Summary)+2)
	table = append(table, r.Header)
	table = append(table, r.Rows...)
	table = append(table, make([]string, len(r.Header)))
	table = append(table, r.Summary...)
	return table
}

// PerUnit renders a per-unit figure.
func PerUnit(value float64) string {
	return fixed(value, constants.UnitPlaces)
}

// Aggregate renders an order-level total.
func Aggregate(value float64) string {
	return fixed(value, constants.AggregatePlaces)
}

// Percent renders a rate such as 0.10853 as "10.85%".
func Percent(rate float64) string {
	return fixed(mathutil.RateToPercentage(rate), constants.RatePlaces) + "%"
}

func fixed(value float64, places int) string {
	if !mathutil.IsFinite(value) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return decimal.NewFromFloat(value).StringFixed(int32(places))
}

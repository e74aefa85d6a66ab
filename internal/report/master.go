package report

import (
	"sort"

	"github.com/iwvelando/true-cost/internal/allocation"
	"github.com/iwvelando/true-cost/internal/order"
	"github.com/iwvelando/true-cost/pkg/datetime"
)

// MasterRow is one item line of the batch-wide export. Order-level charges
// repeat on every row of the order.
type MasterRow struct {
	OrderID         string
	OrderDate       string
	Currency        string
	Condition       string
	Color           string
	Name            string
	PartNumber      string
	Quantity        int
	UnitPrice       float64
	OverheadRate    float64
	OverheadPerUnit float64
	TrueUnitCost    float64
	LineTotal       float64
	TrueLineTotal   float64
	Weight          string
	Subtotal        float64
	Shipping        float64
	Insurance       float64
	Surcharges      float64
	Credit          float64
	GrandTotal      float64
}

// MasterRows flattens an allocated order into master export rows.
func MasterRows(rec order.Record, res allocation.Result) []MasterRow {
	rows := make([]MasterRow, 0, len(res.Items))
	for i, item := range res.Items {
		row := MasterRow{
			OrderID:         rec.OrderID,
			OrderDate:       datetime.NormalizeOrderDate(rec.OrderDate),
			Currency:        rec.Currency,
			Name:            item.Name,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			OverheadRate:    res.OverheadRate,
			OverheadPerUnit: item.AllocatedOverheadPerUnit,
			TrueUnitCost:    item.TrueUnitCost,
			LineTotal:       item.LineTotal,
			TrueLineTotal:   item.TotalCost(),
			Subtotal:        rec.Subtotal,
			Shipping:        rec.Shipping,
			Insurance:       rec.Insurance,
			Surcharges:      rec.Surcharge1 + rec.Surcharge2,
			Credit:          rec.Credit + rec.CouponCredit,
			GrandTotal:      rec.GrandTotal,
		}
		if i < len(rec.Items) {
			src := rec.Items[i]
			row.Condition = src.Condition
			row.Color = src.Color
			row.PartNumber = src.PartNumber
			row.Weight = src.Weight
		}
		rows = append(rows, row)
	}
	return rows
}

// SortMaster orders rows chronologically by order date, keeping the input
// order for rows of the same day. Undated rows go last.
func SortMaster(rows []MasterRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return datetime.DateBeforeDate(rows[i].OrderDate, rows[j].OrderDate)
	})
}

// CurrencyTotal aggregates master rows for one currency.
type CurrencyTotal struct {
	Currency string
	Orders   int
	Units    int
	Total    float64
}

// SummarizeMaster groups rows by currency, sorted by currency code.
func SummarizeMaster(rows []MasterRow) []CurrencyTotal {
	byCode := make(map[string]*CurrencyTotal)
	orders := make(map[string]map[string]struct{})
	for _, row := range rows {
		total, ok := byCode[row.Currency]
		if !ok {
			total = &CurrencyTotal{Currency: row.Currency}
			byCode[row.Currency] = total
			orders[row.Currency] = make(map[string]struct{})
		}
		orders[row.Currency][row.OrderID] = struct{}{}
		total.Units += row.Quantity
		total.Total += row.TrueLineTotal
	}

	totals := make([]CurrencyTotal, 0, len(byCode))
	for code, total := range byCode {
		total.Orders = len(orders[code])
		totals = append(totals, *total)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Currency < totals[j].Currency })
	return totals
}

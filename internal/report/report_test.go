package report

import (
	"testing"

	"github.com/iwvelando/true-cost/internal/allocation"
	"github.com/iwvelando/true-cost/internal/currency"
	"github.com/iwvelando/true-cost/internal/order"
	"github.com/iwvelando/true-cost/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, rec order.Record) Report {
	t.Helper()
	res, err := allocation.NewEngine(nil, 0).Allocate(rec)
	require.NoError(t, err)
	return Build(rec, res)
}

func findRow(rows [][]string, label string) []string {
	for _, row := range rows {
		if len(row) > 0 && row[0] == label {
			return row
		}
	}
	return nil
}

func TestBuildSingleCurrency(t *testing.T) {
	rep := build(t, testutil.AUDOrder())

	assert.False(t, rep.Dual)
	assert.Equal(t, []string{"Name", "Overhead Rate", "Quantity", "Original AUD Price", "True AUD Cost"}, rep.Header)
	assert.Equal(t, "10.85%", rep.OverheadRate)
	require.Len(t, rep.Rows, 19)
	assert.Equal(t, []string{"Red Barb/Claw/Horn/Tooth with Clip", "10.85%", "30", "0.0710", "0.0787"}, rep.Rows[0])

	assert.Equal(t, []string{"Subtotal", "", "437", "115.17", ""}, findRow(rep.Summary, "Subtotal"))
	assert.Equal(t, []string{"Shipping", "", "", "12.50", ""}, findRow(rep.Summary, "Shipping"))
	assert.Equal(t, []string{"Total Overhead", "10.85%", "", "12.50", ""}, findRow(rep.Summary, "Total Overhead"))
	assert.Equal(t, []string{"Grand Total", "", "", "", "127.67"}, findRow(rep.Summary, "Grand Total"))
	assert.Nil(t, findRow(rep.Summary, "Exchange Rate"))
	assert.Nil(t, findRow(rep.Summary, "Insurance"))
	assert.Nil(t, findRow(rep.Summary, "Credit"))

	assert.Equal(t, "12.50", rep.Reconciliation.Original)
	assert.Equal(t, "12.50", rep.Reconciliation.Distributed)
	assert.Equal(t, "0.0004", rep.Reconciliation.Difference)
	assert.Empty(t, rep.Notes)
}

func TestBuildDualCurrency(t *testing.T) {
	rec, err := currency.Normalize(testutil.EUROrder(), "AUD", 1.6)
	require.NoError(t, err)
	rep := build(t, rec)

	assert.True(t, rep.Dual)
	assert.Equal(t, "EUR", rep.SourceCurrency)
	assert.Equal(t, "AUD", rep.TargetCurrency)
	assert.Equal(t, []string{"Name", "Overhead Rate", "Quantity", "Original EUR Price", "Original AUD Price", "True AUD Cost"}, rep.Header)

	first := rep.Rows[0]
	require.Len(t, first, 6)
	assert.Equal(t, "15.2276", first[3])
	assert.Equal(t, "24.3641", first[4])

	assert.Equal(t, "1 EUR = 1.6 AUD", findRow(rep.Summary, "Exchange Rate")[1])
	assert.Equal(t, []string{"Subtotal", "", "19", "145.56", "232.90", ""}, findRow(rep.Summary, "Subtotal"))
	assert.Equal(t, []string{"Grand Total", "", "", "160.36", "", "256.58"}, findRow(rep.Summary, "Grand Total"))

	// Only a sample of the lots is listed, so the distribution falls short.
	require.Len(t, rep.Notes, 1)
	assert.Contains(t, rep.Notes[0], "29055780")
}

func TestBuildOptionalCharges(t *testing.T) {
	rep := build(t, testutil.USDOrder())

	assert.Equal(t, "2.99", findRow(rep.Summary, "Surcharge 1")[3])
	assert.Equal(t, "-1.10", findRow(rep.Summary, "Coupon Credit")[3])
	assert.Nil(t, findRow(rep.Summary, "Surcharge 2"))

	merged := build(t, order.MergeCredits(testutil.USDOrder()))
	assert.Equal(t, "-1.10", findRow(merged.Summary, "Credit")[3])
	assert.Nil(t, findRow(merged.Summary, "Coupon Credit"))
	assert.Equal(t, rep.Rows, merged.Rows)
}

func TestBuildZeroSubtotalNote(t *testing.T) {
	rep := build(t, testutil.SimpleOrder(0, 5, 0))
	assert.Equal(t, "0.00%", rep.OverheadRate)
	require.NotEmpty(t, rep.Notes)
	assert.Contains(t, rep.Notes[0], "no subtotal")
}

func TestTableLayout(t *testing.T) {
	rep := build(t, testutil.SimpleOrder(100, 10, 0))
	table := rep.Table()

	require.Len(t, table, 1+len(rep.Rows)+1+len(rep.Summary))
	assert.Equal(t, rep.Header, table[0])
	blank := table[1+len(rep.Rows)]
	assert.Equal(t, make([]string, len(rep.Header)), blank)
	assert.Equal(t, SummaryLabel, table[2+len(rep.Rows)][0])
	for _, row := range table {
		assert.Len(t, row, len(rep.Header))
	}
}

func TestNumberRendering(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"per unit", PerUnit(0.078706), "0.0787"},
		{"per unit pads", PerUnit(2), "2.0000"},
		{"aggregate", Aggregate(127.666), "127.67"},
		{"aggregate negative", Aggregate(-1.1), "-1.10"},
		{"percent", Percent(0.1085352088), "10.85%"},
		{"percent zero", Percent(0), "0.00%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestMasterRows(t *testing.T) {
	rec := testutil.USDOrder()
	rec.Items[0].Color = "Bright Light Yellow"
	rec.Items[0].PartNumber = "2429c01"
	rec.OrderDate = "Jun 20, 2025"
	res, err := allocation.NewEngine(nil, 0).Allocate(rec)
	require.NoError(t, err)

	rows := MasterRows(rec, res)
	require.Len(t, rows, len(rec.Items))
	first := rows[0]
	assert.Equal(t, "29062495", first.OrderID)
	assert.Equal(t, "2025-06-20", first.OrderDate)
	assert.Equal(t, "Bright Light Yellow", first.Color)
	assert.Equal(t, "2429c01", first.PartNumber)
	assert.InDelta(t, 2.99, first.Surcharges, 1e-9)
	assert.InDelta(t, 1.10, first.Credit, 1e-9)
	assert.InDelta(t, res.Items[0].TotalCost(), first.TrueLineTotal, 1e-9)
}

func TestSortMaster(t *testing.T) {
	rows := []MasterRow{
		{OrderID: "undated", OrderDate: "unknown"},
		{OrderID: "july-a", OrderDate: "2025-07-01"},
		{OrderID: "june", OrderDate: "2025-06-12"},
		{OrderID: "july-b", OrderDate: "2025-07-01"},
	}

	SortMaster(rows)

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.OrderID)
	}
	assert.Equal(t, []string{"june", "july-a", "july-b", "undated"}, ids)
}

func TestSummarizeMaster(t *testing.T) {
	rows := []MasterRow{
		{OrderID: "2", Currency: "USD", Quantity: 3, TrueLineTotal: 1.5},
		{OrderID: "1", Currency: "AUD", Quantity: 2, TrueLineTotal: 4},
		{OrderID: "1", Currency: "AUD", Quantity: 5, TrueLineTotal: 6},
		{OrderID: "3", Currency: "AUD", Quantity: 1, TrueLineTotal: 1},
	}

	totals := SummarizeMaster(rows)
	require.Len(t, totals, 2)
	assert.Equal(t, CurrencyTotal{Currency: "AUD", Orders: 2, Units: 8, Total: 11}, totals[0])
	assert.Equal(t, CurrencyTotal{Currency: "USD", Orders: 1, Units: 3, Total: 1.5}, totals[1])
}

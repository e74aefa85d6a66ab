// Package output renders allocation reports for the console and as CSV files.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iwvelando/true-cost/internal/allocation"
	"github.com/iwvelando/true-cost/internal/report"
	"github.com/iwvelando/true-cost/pkg/constants"
	"github.com/iwvelando/true-cost/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, rep report.Report) {
	p := message.NewPrinter(language.English)

	if rep.Dual {
		_, _ = p.Fprintf(w, "--- True cost for order %s (%s converted to %s) ---\n", rep.OrderID, rep.SourceCurrency, rep.TargetCurrency)
	} else {
		_, _ = p.Fprintf(w, "--- True cost for order %s (%s) ---\n", rep.OrderID, rep.TargetCurrency)
	}
	if rep.OrderDate != "" {
		_, _ = p.Fprintf(w, "Order date: %s\n", rep.OrderDate)
	}
	_, _ = p.Fprintf(w, "Lots: %d | Overhead rate: %s\n\n", len(rep.Rows), rep.OverheadRate)

	table := rep.Table()
	widths := columnWidths(table)
	for i, row := range table {
		_, _ = p.Fprintf(w, "%s\n", alignRow(row, widths))
		if i == 0 {
			_, _ = p.Fprintf(w, "%s\n", separatorRow(widths))
		}
	}

	_, _ = p.Fprintf(w, "\nReconciliation:\n")
	_, _ = p.Fprintf(w, "  Distributed overhead: %s\n", rep.Reconciliation.Distributed)
	_, _ = p.Fprintf(w, "  Original overhead:    %s\n", rep.Reconciliation.Original)
	_, _ = p.Fprintf(w, "  Difference:           %s\n", rep.Reconciliation.Difference)

	for _, note := range rep.Notes {
		_, _ = p.Fprintf(w, "WARNING: %s\n", note)
	}
}

// PrettyQuote writes the result of a single-item quote.
func PrettyQuote(w io.Writer, code string, rate float64, quote allocation.ItemAllocation) {
	p := message.NewPrinter(language.English)
	_, _ = p.Fprintf(w, "Overhead rate:         %s\n", report.Percent(rate))
	_, _ = p.Fprintf(w, "Original unit price:   %s\n", format.CurrencyPlaces(code, quote.UnitPrice, constants.UnitPlaces))
	_, _ = p.Fprintf(w, "Overhead per unit:     %s\n", format.CurrencyPlaces(code, quote.AllocatedOverheadPerUnit, constants.UnitPlaces))
	_, _ = p.Fprintf(w, "True unit cost:        %s\n", format.CurrencyPlaces(code, quote.TrueUnitCost, constants.UnitPlaces))
	_, _ = p.Fprintf(w, "Total cost (%d units): %s\n", quote.Quantity, format.Currency(code, quote.TotalCost()))
}

// PrettyMasterSummary writes per-currency totals of a batch export.
func PrettyMasterSummary(w io.Writer, totals []report.CurrencyTotal) {
	p := message.NewPrinter(language.English)
	_, _ = p.Fprintf(w, "Summary:\n")
	for _, total := range totals {
		_, _ = p.Fprintf(w, "  %s: %d orders, %d units, %s total\n", total.Currency, total.Orders, total.Units, format.NumericCurrency(total.Total))
	}
}

func columnWidths(table [][]string) []int {
	var widths []int
	for _, row := range table {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}
	return widths
}

// alignRow left-aligns the name column and right-aligns the rest.
func alignRow(row []string, widths []int) string {
	cells := make([]string, len(row))
	for i, cell := range row {
		pad := strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell))
		if i == 0 {
			cells[i] = cell + pad
		} else {
			cells[i] = pad + cell
		}
	}
	return strings.TrimRight(strings.Join(cells, " | "), " ")
}

func separatorRow(widths []int) string {
	cells := make([]string, len(widths))
	for i, width := range widths {
		cells[i] = strings.Repeat("_", width)
	}
	return strings.Join(cells, " | ")
}

// WriteCSV writes the report table in comma-separated value format.
func WriteCSV(w io.Writer, rep report.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(rep.Table()); err != nil {
		return fmt.Errorf("failed to write CSV for order %s: %w", rep.OrderID, err)
	}
	return nil
}

// CsvString returns the CSV rendering of the report.
func CsvString(rep report.Report) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rep); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExportFileName returns the per-order export file name, for example
// order_29055780_EUR_to_AUD_analysis_20250101_120000.csv.
func ExportFileName(orderID, sourceCurrency, targetCurrency string, at time.Time) string {
	return fmt.Sprintf("order_%s_%s_to_%s_analysis_%s.csv",
		safeName(orderID), sourceCurrency, targetCurrency, at.Format(constants.ExportTimestampLayout))
}

// WriteCSVFile writes the report into dir, creating dir when needed, and
// returns the written path.
func WriteCSVFile(dir string, rep report.Report, at time.Time) (string, error) {
	path := filepath.Join(dir, ExportFileName(rep.OrderID, rep.SourceCurrency, rep.TargetCurrency, at))
	return path, writeFile(dir, path, func(w io.Writer) error { return WriteCSV(w, rep) })
}

// MasterFileName returns the batch-wide export file name.
func MasterFileName(at time.Time) string {
	return fmt.Sprintf("orders_with_overhead_%s.csv", at.Format(constants.ExportTimestampLayout))
}

// MasterHeader lists the batch-wide export columns.
var MasterHeader = []string{
	"Order Number", "Order Date", "Currency", "Condition", "Color", "Description",
	"Part Number", "Quantity", "Original Unit Price", "Overhead Percentage",
	"Overhead Amount", "Adjusted Unit Price", "Original Total", "Adjusted Total",
	"Weight", "Order Subtotal", "Shipping", "Insurance", "Additional Charges",
	"Credit", "Grand Total",
}

// WriteMasterCSV writes all rows of a batch run as one CSV document.
func WriteMasterCSV(w io.Writer, rows []report.MasterRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(MasterHeader); err != nil {
		return fmt.Errorf("failed to write master CSV header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.OrderID,
			row.OrderDate,
			row.Currency,
			row.Condition,
			row.Color,
			row.Name,
			row.PartNumber,
			fmt.Sprintf("%d", row.Quantity),
			report.PerUnit(row.UnitPrice),
			report.Percent(row.OverheadRate),
			report.PerUnit(row.OverheadPerUnit),
			report.PerUnit(row.TrueUnitCost),
			report.Aggregate(row.LineTotal),
			report.Aggregate(row.TrueLineTotal),
			row.Weight,
			report.Aggregate(row.Subtotal),
			report.Aggregate(row.Shipping),
			report.Aggregate(row.Insurance),
			report.Aggregate(row.Surcharges),
			report.Aggregate(row.Credit),
			report.Aggregate(row.GrandTotal),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write master CSV row for order %s: %w", row.OrderID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteMasterCSVFile writes rows into dir and returns the written path.
func WriteMasterCSVFile(dir string, rows []report.MasterRow, at time.Time) (string, error) {
	path := filepath.Join(dir, MasterFileName(at))
	return path, writeFile(dir, path, func(w io.Writer) error { return WriteMasterCSV(w, rows) })
}

func writeFile(dir, path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// safeName keeps order identifiers usable as a file name component.
func safeName(id string) string {
	if id == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, id)
}

package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/true-cost/internal/allocation"
	"github.com/iwvelando/true-cost/internal/currency"
	"github.com/iwvelando/true-cost/internal/metrics"
	"github.com/iwvelando/true-cost/internal/order"
	"github.com/iwvelando/true-cost/internal/source"
	"github.com/iwvelando/true-cost/pkg/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeOrder(t *testing.T, dir, name string, rec order.Record) string {
	t.Helper()
	data, err := yaml.Marshal(rec)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeRaw(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newRunner(t *testing.T, opts Options) *Runner {
	t.Helper()
	rates, err := currency.NewRateBook("AUD", map[string]float64{"EUR": 1.6})
	require.NoError(t, err)
	return NewRunner(nil, source.NewRegistry(nil, source.Capabilities{}), rates, allocation.NewEngine(nil, 0), opts)
}

func fixedClock() func() time.Time {
	now := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	writeOrder(t, dir, "a_aud.yaml", testutil.AUDOrder())
	writeRaw(t, dir, "b_broken.yaml", "orderId: \"broken\"\ncurrency: AUD\n")
	writeOrder(t, dir, "c_eur.yaml", testutil.EUROrder())
	writeRaw(t, dir, "d_invoice.pdf", "%PDF-1.4")
	writeOrder(t, dir, "e_usd.yaml", testutil.USDOrder())

	paths, err := Discover(dir, []string{"*.yaml", "*.pdf"})
	require.NoError(t, err)
	require.Len(t, paths, 5)

	var sunk []string
	reg := metrics.NewRegistry()
	summary := newRunner(t, Options{
		Metrics: reg,
		Now:     fixedClock(),
		Sink: func(o Outcome) error {
			sunk = append(sunk, o.Record.OrderID)
			return nil
		},
	}).Run(paths)

	_, err = uuid.Parse(summary.RunID)
	assert.NoError(t, err)
	require.Len(t, summary.Outcomes, 5)
	for i, path := range paths {
		assert.Equal(t, path, summary.Outcomes[i].Path)
	}

	assert.False(t, summary.Outcomes[0].Failed())
	assert.Equal(t, "29154233", summary.Outcomes[0].Record.OrderID)

	var invalid *order.InvalidOrderDataError
	require.True(t, errors.As(summary.Outcomes[1].Err, &invalid))
	assert.Equal(t, "subtotal", invalid.Field)

	eur := summary.Outcomes[2]
	require.False(t, eur.Failed())
	assert.Equal(t, "AUD", eur.Record.Currency)
	assert.Equal(t, "EUR", eur.Record.OriginalCurrency)
	assert.True(t, eur.Report.Dual)
	assert.NotNil(t, eur.Result.Warning)

	assert.True(t, errors.Is(summary.Outcomes[3].Err, source.ErrUnsupportedSource))

	// USD has no configured rate.
	var rateErr *currency.InvalidRateError
	assert.True(t, errors.As(summary.Outcomes[4].Err, &rateErr))

	assert.Equal(t, 2, summary.Succeeded())
	assert.Equal(t, 3, summary.Failed())
	assert.Equal(t, 1, summary.Warnings())
	assert.Equal(t, []string{"29154233", "29055780"}, sunk)
	assert.Len(t, summary.MasterRows(), 19+5)
	assert.True(t, summary.Finished.After(summary.Started))

	assert.Equal(t, 2.0, promtest.ToFloat64(reg.Orders.WithLabelValues(metrics.OutcomeSucceeded)))
	assert.Equal(t, 3.0, promtest.ToFloat64(reg.Orders.WithLabelValues(metrics.OutcomeFailed)))
	assert.Equal(t, 1.0, promtest.ToFloat64(reg.ReconciliationWarnings))
}

func TestSinkErrorFailsOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeOrder(t, dir, "aud.yaml", testutil.AUDOrder())

	summary := newRunner(t, Options{
		Sink: func(Outcome) error { return errors.New("disk full") },
	}).Run([]string{path})

	require.Len(t, summary.Outcomes, 1)
	require.Error(t, summary.Outcomes[0].Err)
	assert.Contains(t, summary.Outcomes[0].Err.Error(), "disk full")
	assert.Equal(t, 0, summary.Succeeded())
	assert.Empty(t, summary.MasterRows())
}

func TestProcessRecord(t *testing.T) {
	runner := newRunner(t, Options{})

	outcome := runner.ProcessRecord(testutil.USDOrder(), 1.5)
	require.NoError(t, outcome.Err)
	assert.Equal(t, "USD", outcome.Record.OriginalCurrency)
	assert.InDelta(t, 41.78*1.5, outcome.Record.Subtotal, 1e-9)

	outcome = runner.ProcessRecord(testutil.EUROrder(), 0)
	require.NoError(t, outcome.Err)
	assert.InDelta(t, 1.6, outcome.Record.ExchangeRate, 1e-12)

	outcome = runner.ProcessRecord(testutil.USDOrder(), -1)
	var rateErr *currency.InvalidRateError
	assert.True(t, errors.As(outcome.Err, &rateErr))

	bad := testutil.AUDOrder()
	bad.Items[0].Quantity = 0
	outcome = runner.ProcessRecord(bad, 0)
	var divErr *allocation.DivisionByZeroError
	assert.True(t, errors.As(outcome.Err, &divErr))

	bad = testutil.AUDOrder()
	bad.OrderID = ""
	outcome = runner.ProcessRecord(bad, 0)
	var invalid *order.InvalidOrderDataError
	assert.True(t, errors.As(outcome.Err, &invalid))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.json", "c.pdf", "notes.txt"} {
		writeRaw(t, dir, name, "")
	}

	paths, err := Discover(dir, []string{"*.yaml", "*.json", "*.pdf", "*.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "c.pdf"),
	}, paths)

	_, err = Discover(dir, []string{"[bad"})
	assert.Error(t, err)
}

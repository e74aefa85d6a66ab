// Package batch processes many orders in one run, isolating per-order
// failures.
package batch

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/true-cost/internal/allocation"
	"github.com/iwvelando/true-cost/internal/currency"
	"github.com/iwvelando/true-cost/internal/metrics"
	"github.com/iwvelando/true-cost/internal/order"
	"github.com/iwvelando/true-cost/internal/report"
	"github.com/iwvelando/true-cost/internal/source"
	"go.uber.org/zap"
)

// Sink receives every successfully processed order. A sink error marks the
// order as failed.
type Sink func(Outcome) error

// Options configures a Runner.
type Options struct {
	// Metrics is optional.
	Metrics *metrics.Registry
	Sink    Sink
	// Now defaults to time.Now.
	Now func() time.Time
}

// Outcome is the result of processing one input.
type Outcome struct {
	Path     string
	Record   order.Record
	Result   allocation.Result
	Report   report.Report
	Err      error
	Duration time.Duration
}

// Failed reports whether the input could not be processed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Summary collects the outcomes of a run in input order.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome
}

// Succeeded counts the processed orders.
func (s Summary) Succeeded() int {
	n := 0
	for _, o := range s.Outcomes {
		if !o.Failed() {
			n++
		}
	}
	return n
}

// Failed counts the inputs that produced an error.
func (s Summary) Failed() int {
	return len(s.Outcomes) - s.Succeeded()
}

// Warnings counts processed orders whose allocation did not reconcile.
func (s Summary) Warnings() int {
	n := 0
	for _, o := range s.Outcomes {
		if !o.Failed() && o.Result.Warning != nil {
			n++
		}
	}
	return n
}

// MasterRows flattens every processed order into batch export rows, oldest
// order first.
func (s Summary) MasterRows() []report.MasterRow {
	var rows []report.MasterRow
	for _, o := range s.Outcomes {
		if !o.Failed() {
			rows = append(rows, report.MasterRows(o.Record, o.Result)...)
		}
	}
	report.SortMaster(rows)
	return rows
}

// Runner loads, normalizes, allocates and projects orders one at a time.
type Runner struct {
	logger   *zap.Logger
	registry *source.Registry
	rates    *currency.RateBook
	engine   *allocation.Engine
	opts     Options
}

// NewRunner creates a runner. A nil logger disables logging.
func NewRunner(logger *zap.Logger, registry *source.Registry, rates *currency.RateBook, engine *allocation.Engine, opts Options) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		logger:   logger,
		registry: registry,
		rates:    rates,
		engine:   engine,
		opts:     opts,
	}
}

// Run processes paths sequentially. A failing path is recorded in its
// outcome and the run continues with the next one.
func (r *Runner) Run(paths []string) Summary {
	summary := Summary{
		RunID:    uuid.NewString(),
		Started:  r.opts.Now(),
		Outcomes: make([]Outcome, 0, len(paths)),
	}
	logger := r.logger.With(zap.String("runId", summary.RunID))
	logger.Info("starting batch run",
		zap.String("op", "batch.Run"),
		zap.Int("inputs", len(paths)),
		zap.String("targetCurrency", r.rates.Target()),
		zap.Float64("tolerance", r.engine.Tolerance()),
	)

	for _, path := range paths {
		outcome := r.Process(path)
		if outcome.Failed() {
			logger.Error("failed to process order",
				zap.String("op", "batch.Run"),
				zap.String("path", path),
				zap.Error(outcome.Err),
			)
		} else {
			logger.Info("processed order",
				zap.String("op", "batch.Run"),
				zap.String("path", path),
				zap.String("order", outcome.Record.OrderID),
				zap.Int("items", len(outcome.Result.Items)),
				zap.Float64("overheadRate", outcome.Result.OverheadRate),
				zap.Duration("duration", outcome.Duration),
			)
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	summary.Finished = r.opts.Now()
	logger.Info("finished batch run",
		zap.String("op", "batch.Run"),
		zap.Int("succeeded", summary.Succeeded()),
		zap.Int("failed", summary.Failed()),
		zap.Int("warnings", summary.Warnings()),
	)
	return summary
}

// Process loads one input and runs it through the pipeline.
func (r *Runner) Process(path string) Outcome {
	start := r.opts.Now()
	rec, err := r.registry.Load(path)
	if err != nil {
		outcome := Outcome{Path: path, Err: err}
		return r.finish(outcome, start)
	}
	outcome := r.pipeline(rec, 0)
	outcome.Path = path
	return r.finish(outcome, start)
}

// ProcessRecord validates rec and runs it through the pipeline. A positive
// rate overrides the rate book for the record's currency.
func (r *Runner) ProcessRecord(rec order.Record, rate float64) Outcome {
	start := r.opts.Now()
	if err := order.Validate(rec); err != nil {
		return r.finish(Outcome{Err: err}, start)
	}
	return r.finish(r.pipeline(rec, rate), start)
}

func (r *Runner) pipeline(rec order.Record, rate float64) Outcome {
	var (
		normalized order.Record
		err        error
	)
	if rate != 0 {
		normalized, err = currency.Normalize(rec, r.rates.Target(), rate)
	} else {
		normalized, err = r.rates.NormalizeRecord(rec)
	}
	if err != nil {
		return Outcome{Record: rec, Err: fmt.Errorf("order %s: %w", rec.OrderID, err)}
	}

	res, err := r.engine.Allocate(normalized)
	if err != nil {
		return Outcome{Record: normalized, Err: fmt.Errorf("order %s: %w", rec.OrderID, err)}
	}

	return Outcome{
		Record: normalized,
		Result: res,
		Report: report.Build(normalized, res),
	}
}

func (r *Runner) finish(outcome Outcome, start time.Time) Outcome {
	if !outcome.Failed() && r.opts.Sink != nil {
		if err := r.opts.Sink(outcome); err != nil {
			outcome.Err = fmt.Errorf("order %s: %w", outcome.Record.OrderID, err)
		}
	}
	outcome.Duration = r.opts.Now().Sub(start)
	r.observe(outcome)
	return outcome
}

func (r *Runner) observe(outcome Outcome) {
	m := r.opts.Metrics
	if m == nil {
		return
	}
	m.AllocationSeconds.Observe(outcome.Duration.Seconds())
	if outcome.Failed() {
		m.Orders.WithLabelValues(metrics.OutcomeFailed).Inc()
		return
	}
	m.Orders.WithLabelValues(metrics.OutcomeSucceeded).Inc()
	if outcome.Result.Warning != nil {
		m.ReconciliationWarnings.Inc()
	}
	if outcome.Result.DistributedTotal > 0 {
		m.AllocatedOverhead.WithLabelValues(outcome.Record.Currency).Add(outcome.Result.DistributedTotal)
	}
}

// Discover lists the files in dir matching any of patterns, sorted and
// without duplicates.
func Discover(dir string, patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid input pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}
			paths = append(paths, match)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

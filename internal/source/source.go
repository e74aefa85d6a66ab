// Package source loads order records from order files and PDF invoices.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iwvelando/true-cost/internal/order"
	"github.com/iwvelando/true-cost/pkg/constants"
	"github.com/iwvelando/true-cost/pkg/mathutil"
	"github.com/iwvelando/true-cost/pkg/validation"
	"go.uber.org/zap"
)

// ErrUnsupportedSource is returned for inputs no enabled source can read.
var ErrUnsupportedSource = errors.New("unsupported order source")

// Source reads one kind of order input.
type Source interface {
	// Supports reports whether the source reads files named like path.
	Supports(path string) bool
	// Load reads and validates the order stored at path.
	Load(path string) (order.Record, error)
	// Parse reads and validates an order from raw content. name is used for
	// format detection and as a fallback order identifier.
	Parse(name string, data []byte) (order.Record, error)
}

// Capabilities selects which optional sources a Registry enables.
type Capabilities struct {
	PDF bool
}

// Registry dispatches inputs to the first source that supports them.
type Registry struct {
	logger  *zap.Logger
	caps    Capabilities
	sources []Source
	pdf     *PDFSource
}

// NewRegistry creates a registry with the order file source and, when
// enabled, the PDF invoice source.
func NewRegistry(logger *zap.Logger, caps Capabilities) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		logger:  logger,
		caps:    caps,
		sources: []Source{NewFileSource()},
		pdf:     NewPDFSource(),
	}
	if caps.PDF {
		r.sources = append(r.sources, r.pdf)
	}
	return r
}

// Capabilities returns the capabilities the registry was built with.
func (r *Registry) Capabilities() Capabilities {
	return r.caps
}

// Lookup returns the source for path.
func (r *Registry) Lookup(path string) (Source, error) {
	for _, src := range r.sources {
		if src.Supports(path) {
			return src, nil
		}
	}
	if r.pdf.Supports(path) {
		return nil, fmt.Errorf("%w: PDF support is disabled (%s)", ErrUnsupportedSource, path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, path)
}

// Load reads the order at path with the matching source.
func (r *Registry) Load(path string) (order.Record, error) {
	src, err := r.Lookup(path)
	if err != nil {
		return order.Record{}, err
	}
	rec, err := src.Load(path)
	if err != nil {
		return order.Record{}, err
	}
	r.logger.Debug("loaded order",
		zap.String("op", "source.Load"),
		zap.String("path", path),
		zap.String("order", rec.OrderID),
		zap.String("currency", rec.Currency),
		zap.Int("items", len(rec.Items)),
	)
	r.inspect("source.Load", rec)
	return rec, nil
}

// Parse reads an order from raw content, choosing the source by name.
func (r *Registry) Parse(name string, data []byte) (order.Record, error) {
	src, err := r.Lookup(name)
	if err != nil {
		return order.Record{}, err
	}
	rec, err := src.Parse(name, data)
	if err != nil {
		return order.Record{}, err
	}
	r.inspect("source.Parse", rec)
	return rec, nil
}

// inspect logs line totals that disagree with the subtotal or with their own
// unit price and quantity. Such records are still allocated as stated.
func (r *Registry) inspect(op string, rec order.Record) {
	if len(rec.Items) > 0 && !mathutil.WithinTolerance(rec.Subtotal, rec.ItemsTotal(), constants.CurrencyTolerance) {
		r.logger.Warn("item line totals do not add up to the subtotal",
			zap.String("op", op),
			zap.String("order", rec.OrderID),
			zap.Float64("subtotal", rec.Subtotal),
			zap.Float64("itemsTotal", rec.ItemsTotal()),
		)
	}
	for i, item := range rec.Items {
		if drift := item.Drift(); drift > constants.CurrencyTolerance {
			r.logger.Debug("line total differs from unit price times quantity",
				zap.String("op", op),
				zap.String("order", rec.OrderID),
				zap.Int("index", i),
				zap.String("item", item.Name),
				zap.Float64("drift", drift),
			)
		}
	}
}

// Patterns returns the file globs of the enabled sources.
func (r *Registry) Patterns() []string {
	var patterns []string
	for _, src := range r.sources {
		if p, ok := src.(interface{ Extensions() []string }); ok {
			for _, ext := range p.Extensions() {
				patterns = append(patterns, "*"+ext)
			}
		}
	}
	return patterns
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read order source %s: %w", path, err)
	}
	return data, nil
}

// baseName strips directory and extension, for use as a fallback order ID.
func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// finish applies the shared post-processing of every source.
func finish(rec order.Record, grandTotalKnown bool) (order.Record, error) {
	if code, err := validation.NormalizeCurrencyCode(rec.Currency); err == nil {
		rec.Currency = code
	}
	if code, err := validation.NormalizeCurrencyCode(rec.OriginalCurrency); err == nil {
		rec.OriginalCurrency = code
	}
	rec = order.MergeCredits(rec)
	if !grandTotalKnown {
		rec = order.WithDerivedGrandTotal(rec)
	}
	if rec.ExchangeRate == 0 {
		rec.ExchangeRate = 1
	}
	if err := order.Validate(rec); err != nil {
		return order.Record{}, err
	}
	return rec, nil
}

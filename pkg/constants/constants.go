// Package constants provides shared constants for the true-cost application.
package constants

import "time"

// Currency constants
const (
	// DefaultTargetCurrency is the accounting currency every order is
	// normalized into unless configured otherwise.
	DefaultTargetCurrency = "AUD"

	// NeutralExchangeRate marks a record that is already in the target currency.
	NeutralExchangeRate = 1.0
)

// Precision constants
const (
	// AggregatePlaces is the number of decimals shown for order-level totals.
	AggregatePlaces = 2

	// UnitPlaces is the number of decimals shown for per-unit figures.
	UnitPlaces = 4

	// RatePlaces is the number of decimals shown for an overhead rate percentage.
	RatePlaces = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Tolerance constants
const (
	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// ReconciliationTolerance is the default allowed gap between the total
	// overhead and the sum of the per-item allocations.
	ReconciliationTolerance = 0.01

	// GrandTotalTolerance is the allowed gap between a stated grand total and
	// the one derived from the charge fields.
	GrandTotalTolerance = 1e-6
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultOutputDirectory is where per-order CSV exports are written.
	DefaultOutputDirectory = "invoices"

	// DefaultInputDirectory is scanned for invoices when no paths are given.
	DefaultInputDirectory = "."

	// ExportTimestampLayout is the timestamp embedded in export file names.
	ExportTimestampLayout = "20060102_150405"

	// OrderDateLayout is the date format of the master export.
	OrderDateLayout = "2006-01-02"
)

// DefaultInputPatterns are the file globs picked up from the input directory.
var DefaultInputPatterns = []string{"*.pdf", "*.yaml", "*.yml", "*.json"}

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for invoices (2 MB)
	DefaultMaxUploadSizeBytes int64 = 2 * 1024 * 1024

	// DefaultShutdownTimeout bounds graceful shutdown of the API server
	DefaultShutdownTimeout = 10 * time.Second
)

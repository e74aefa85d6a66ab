package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iwvelando/true-cost/internal/allocation"
	"github.com/iwvelando/true-cost/internal/batch"
	"github.com/iwvelando/true-cost/internal/config"
	"github.com/iwvelando/true-cost/internal/currency"
	"github.com/iwvelando/true-cost/internal/metrics"
	"github.com/iwvelando/true-cost/internal/report"
	"github.com/iwvelando/true-cost/internal/source"
	"github.com/iwvelando/true-cost/pkg/constants"
	"github.com/iwvelando/true-cost/pkg/output"
	"github.com/iwvelando/true-cost/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// rateFlags collects repeated -rate CUR=value flags.
type rateFlags map[string]float64

func (r rateFlags) String() string {
	pairs := make([]string, 0, len(r))
	for code, rate := range r {
		pairs = append(pairs, fmt.Sprintf("%s=%g", code, rate))
	}
	return strings.Join(pairs, ",")
}

func (r rateFlags) Set(value string) error {
	code, rate, err := currency.ParseRate(value)
	if err != nil {
		return err
	}
	r[code] = rate
	return nil
}

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	// Logs go to stderr so pretty and CSV output stay clean on stdout.
	config.OutputPaths = []string{"stderr"}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

// loadConfiguration reads the config file. A missing file at the default
// location falls back to the built-in defaults.
func loadConfiguration(path string, explicit bool) (*config.Configuration, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		return config.Default(), nil
	}
	return config.LoadConfiguration(path)
}

func main() {
	// An optional .env file supplies TRUECOST_* overrides.
	_ = godotenv.Load()

	rates := rateFlags{}
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Var(rates, "rate", "exchange rate override CUR=value into the target currency (repeatable)")
	inputDir := flag.String("input-dir", "", "directory scanned for orders when no paths are given")
	outputDir := flag.String("output-dir", "", "directory for per-order CSV exports")
	master := flag.Bool("master", false, "also write one CSV covering every processed order")
	noPDF := flag.Bool("no-pdf", false, "disable the PDF invoice source")
	quoteRate := flag.Float64("quote-rate", 0, "quote mode: overhead rate in percent, e.g. 12.5")
	quoteQty := flag.Int("quote-qty", 0, "quote mode: quantity")
	quotePrice := flag.Float64("quote-price", 0, "quote mode: unit price")
	flag.Parse()

	explicitConfig := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicitConfig = true
		}
	})

	conf, err := loadConfiguration(*configLocation, explicitConfig)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *quoteQty != 0 || *quotePrice != 0 || *quoteRate != 0 {
		runQuote(logger, conf.TargetCurrency, *quoteRate, *quoteQty, *quotePrice)
		return
	}

	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	for code, rate := range rates {
		if conf.ExchangeRates == nil {
			conf.ExchangeRates = map[string]float64{}
		}
		conf.ExchangeRates[code] = rate
	}
	if *inputDir != "" {
		conf.Input.Directory = *inputDir
	}
	if *outputDir != "" {
		conf.Output.Directory = *outputDir
	}
	if *master {
		conf.Output.Master = true
	}
	if *noPDF {
		conf.Input.PDF = false
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	book, err := conf.RateBook()
	if err != nil {
		logger.Fatal("failed to build exchange rate table",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	logger.Debug("exchange rates loaded",
		zap.String("op", "main"),
		zap.String("target", book.Target()),
		zap.Strings("currencies", book.Codes()),
	)

	registry := source.NewRegistry(logger, source.Capabilities{PDF: conf.Input.PDF})

	paths := flag.Args()
	if len(paths) == 0 {
		patterns := enabledPatterns(registry, conf.Input.Patterns)
		if len(conf.Input.Patterns) == 0 {
			patterns = registry.Patterns()
		}
		paths, err = batch.Discover(conf.Input.Directory, patterns)
		if err != nil {
			logger.Fatal("failed to discover orders",
				zap.String("op", "main"),
				zap.String("directory", conf.Input.Directory),
				zap.Error(err),
			)
		}
	}
	if len(paths) == 0 {
		logger.Warn("no orders found",
			zap.String("op", "main"),
			zap.String("directory", conf.Input.Directory),
		)
		return
	}

	runner := batch.NewRunner(logger, registry, book, allocation.NewEngine(logger, conf.Tolerance), batch.Options{
		Metrics: metrics.NewRegistry(),
		Sink:    newSink(logger, outputFormat, conf.Output.Directory),
	})
	summary := runner.Run(paths)

	if conf.Output.Master {
		writeMaster(logger, conf.Output.Directory, summary)
	}

	for _, outcome := range summary.Outcomes {
		if outcome.Failed() {
			fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", outcome.Path, outcome.Err)
		}
	}
	fmt.Fprintf(os.Stderr, "Processed %d orders: %d succeeded, %d failed, %d with reconciliation warnings\n",
		len(summary.Outcomes), summary.Succeeded(), summary.Failed(), summary.Warnings())

	if summary.Failed() > 0 {
		_ = logger.Sync()
		os.Exit(1)
	}
}

// enabledPatterns keeps the configured patterns some enabled source can read.
func enabledPatterns(registry *source.Registry, patterns []string) []string {
	enabled := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, err := registry.Lookup(pattern); err == nil {
			enabled = append(enabled, pattern)
		}
	}
	return enabled
}

func newSink(logger *zap.Logger, format, dir string) batch.Sink {
	return func(outcome batch.Outcome) error {
		switch format {
		case constants.OutputFormatPretty:
			output.PrettyFormat(os.Stdout, outcome.Report)
		case constants.OutputFormatCSV:
			if err := output.WriteCSV(os.Stdout, outcome.Report); err != nil {
				return err
			}
		}

		path, err := output.WriteCSVFile(dir, outcome.Report, time.Now())
		if err != nil {
			return err
		}
		logger.Info("wrote order export",
			zap.String("op", "main.sink"),
			zap.String("order", outcome.Report.OrderID),
			zap.String("path", path),
		)
		return nil
	}
}

func writeMaster(logger *zap.Logger, dir string, summary batch.Summary) {
	rows := summary.MasterRows()
	if len(rows) == 0 {
		return
	}
	path, err := output.WriteMasterCSVFile(dir, rows, summary.Finished)
	if err != nil {
		logger.Error("failed to write master export",
			zap.String("op", "main.writeMaster"),
			zap.Error(err),
		)
		return
	}
	logger.Info("wrote master export",
		zap.String("op", "main.writeMaster"),
		zap.String("path", path),
		zap.Int("rows", len(rows)),
	)
	output.PrettyMasterSummary(os.Stdout, report.SummarizeMaster(rows))
}

func runQuote(logger *zap.Logger, code string, ratePercent float64, quantity int, unitPrice float64) {
	rate := ratePercent / constants.PercentageMultiplier
	quote, err := allocation.Quote(rate, quantity, unitPrice)
	if err != nil {
		logger.Fatal("failed to compute quote",
			zap.String("op", "main.runQuote"),
			zap.Error(err),
		)
	}
	output.PrettyQuote(os.Stdout, code, rate, quote)
}

// Package config defines the application configuration and the functions for
// loading and validating it.
package config

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iwvelando/true-cost/internal/currency"
	"github.com/iwvelando/true-cost/pkg/constants"
	"github.com/iwvelando/true-cost/pkg/validation"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. TRUECOST_OUTPUT_FORMAT.
const EnvPrefix = "TRUECOST"

// Configuration holds all configuration for true-cost.
type Configuration struct {
	TargetCurrency string             `yaml:"targetCurrency"`
	Tolerance      float64            `yaml:"tolerance"`
	ExchangeRates  map[string]float64 `yaml:"exchangeRates"`
	Input          InputConfig        `yaml:"input"`
	Output         OutputConfig       `yaml:"output"`
	Logging        LoggingConfig      `yaml:"logging,omitempty"`
}

// InputConfig selects the orders of a batch run.
type InputConfig struct {
	Directory string   `yaml:"directory"`
	Patterns  []string `yaml:"patterns"`
	PDF       bool     `yaml:"pdf"` // enables the PDF invoice source
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format    string `yaml:"format,omitempty"` // pretty, csv
	Directory string `yaml:"directory,omitempty"`
	Master    bool   `yaml:"master,omitempty"` // also write one CSV for the whole run
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("targetCurrency", constants.DefaultTargetCurrency)
	v.SetDefault("tolerance", constants.ReconciliationTolerance)
	v.SetDefault("input.directory", constants.DefaultInputDirectory)
	v.SetDefault("input.patterns", constants.DefaultInputPatterns)
	v.SetDefault("input.pdf", true)
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("output.directory", constants.DefaultOutputDirectory)
	v.SetDefault("output.master", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.outputFile", "")
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}
	return decode(v)
}

// Default returns the configuration used when no file is given.
func Default() *Configuration {
	conf, err := decode(newViper())
	if err != nil {
		panic(err)
	}
	return conf
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	target, err := validation.NormalizeCurrencyCode(configuration.TargetCurrency)
	if err != nil {
		return nil, fmt.Errorf("invalid targetCurrency: %w", err)
	}
	configuration.TargetCurrency = target

	return &configuration, nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string
	warnings = append(warnings, validation.ValidateRateTable(c.TargetCurrency, c.ExchangeRates)...)
	warnings = append(warnings, validation.ValidateTolerance(c.Tolerance)...)
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		warnings = append(warnings, fmt.Sprintf("Output format ignored: %v", err))
	}
	if len(c.Input.Patterns) == 0 {
		warnings = append(warnings, "No input patterns configured; batch runs will find no orders")
	}
	return warnings
}

// RateBook builds the exchange rate table for a run. Entries reported by
// ValidateConfiguration are skipped.
func (c *Configuration) RateBook() (*currency.RateBook, error) {
	book, err := currency.NewRateBook(c.TargetCurrency, nil)
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(c.ExchangeRates))
	for code := range c.ExchangeRates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		_ = book.Set(code, c.ExchangeRates[code])
	}
	return book, nil
}

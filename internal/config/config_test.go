package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/iwvelando/true-cost/pkg/constants"
)

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Example config file",
			configPath: "../../" + constants.ExampleConfigFile,
			wantError:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationExample(t *testing.T) {
	config, err := LoadConfiguration("../../" + constants.ExampleConfigFile)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if config.TargetCurrency != "AUD" {
		t.Errorf("TargetCurrency = %v, expected AUD", config.TargetCurrency)
	}
	if config.Tolerance != 0.01 {
		t.Errorf("Tolerance = %v, expected 0.01", config.Tolerance)
	}
	if len(config.ExchangeRates) != 3 {
		t.Errorf("ExchangeRates = %v, expected 3 entries", config.ExchangeRates)
	}
	if !config.Input.PDF {
		t.Errorf("Input.PDF = false, expected true")
	}
	if config.Output.Directory != "invoices" {
		t.Errorf("Output.Directory = %v, expected invoices", config.Output.Directory)
	}
	if warnings := config.ValidateConfiguration(); len(warnings) != 0 {
		t.Errorf("ValidateConfiguration() = %v, expected no warnings", warnings)
	}

	book, err := config.RateBook()
	if err != nil {
		t.Fatalf("RateBook() error = %v", err)
	}
	if rate, err := book.Lookup("EUR"); err != nil || rate != 1.6 {
		t.Errorf("RateBook().Lookup(EUR) = %v, %v; expected 1.6", rate, err)
	}
}

func TestLoadConfigurationFromReaderDefaults(t *testing.T) {
	config, err := LoadConfigurationFromReader(strings.NewReader("targetCurrency: usd\n"))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}

	if config.TargetCurrency != "USD" {
		t.Errorf("TargetCurrency = %v, expected USD", config.TargetCurrency)
	}
	if config.Tolerance != constants.ReconciliationTolerance {
		t.Errorf("Tolerance = %v, expected %v", config.Tolerance, constants.ReconciliationTolerance)
	}
	if !reflect.DeepEqual(config.Input.Patterns, constants.DefaultInputPatterns) {
		t.Errorf("Input.Patterns = %v, expected %v", config.Input.Patterns, constants.DefaultInputPatterns)
	}
	if config.Output.Format != constants.OutputFormatPretty {
		t.Errorf("Output.Format = %v, expected %v", config.Output.Format, constants.OutputFormatPretty)
	}
	if config.Logging.Level != "info" || config.Logging.Format != "console" {
		t.Errorf("Logging = %+v, expected info/console", config.Logging)
	}
}

func TestDefault(t *testing.T) {
	config := Default()
	if config.TargetCurrency != constants.DefaultTargetCurrency {
		t.Errorf("TargetCurrency = %v, expected %v", config.TargetCurrency, constants.DefaultTargetCurrency)
	}
	if config.Output.Directory != constants.DefaultOutputDirectory {
		t.Errorf("Output.Directory = %v, expected %v", config.Output.Directory, constants.DefaultOutputDirectory)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("TRUECOST_OUTPUT_FORMAT", "csv")
	t.Setenv("TRUECOST_TOLERANCE", "0.5")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("output:\n  format: pretty\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if config.Output.Format != "csv" {
		t.Errorf("Output.Format = %v, expected csv", config.Output.Format)
	}
	if config.Tolerance != 0.5 {
		t.Errorf("Tolerance = %v, expected 0.5", config.Tolerance)
	}
}

func TestLoadConfigurationInvalidTarget(t *testing.T) {
	if _, err := LoadConfigurationFromReader(strings.NewReader("targetCurrency: dollars\n")); err == nil {
		t.Errorf("LoadConfigurationFromReader() expected error for invalid target currency")
	}
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		config   Configuration
		expected int
	}{
		{
			name: "valid",
			config: Configuration{
				TargetCurrency: "AUD",
				ExchangeRates:  map[string]float64{"EUR": 1.6},
				Input:          InputConfig{Patterns: []string{"*.pdf"}},
				Output:         OutputConfig{Format: "csv"},
			},
			expected: 0,
		},
		{
			name: "bad rates and format",
			config: Configuration{
				TargetCurrency: "AUD",
				Tolerance:      -1,
				ExchangeRates:  map[string]float64{"EUR": -1, "ZZZZ": 2},
				Input:          InputConfig{Patterns: []string{"*.pdf"}},
				Output:         OutputConfig{Format: "xml"},
			},
			expected: 4,
		},
		{
			name: "no patterns",
			config: Configuration{
				TargetCurrency: "AUD",
				Output:         OutputConfig{Format: "pretty"},
			},
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := tt.config.ValidateConfiguration()
			if len(warnings) != tt.expected {
				t.Errorf("ValidateConfiguration() = %v, expected %d warnings", warnings, tt.expected)
			}
		})
	}
}

func TestRateBookSkipsUnusableEntries(t *testing.T) {
	config := Configuration{
		TargetCurrency: "AUD",
		ExchangeRates:  map[string]float64{"eur": 1.6, "usd": 0, "bogus": 3},
	}

	book, err := config.RateBook()
	if err != nil {
		t.Fatalf("RateBook() error = %v", err)
	}
	if codes := book.Codes(); !reflect.DeepEqual(codes, []string{"EUR"}) {
		t.Errorf("RateBook().Codes() = %v, expected [EUR]", codes)
	}
}

// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"
	"strings"

	"github.com/iwvelando/contract-forecast/internal/forecast"
	"github.com/iwvelando/contract-forecast/pkg/constants"
	"github.com/iwvelando/contract-forecast/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for contract-forecast.
type Configuration struct {
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Output   OutputConfig   `yaml:"output,omitempty"`
	Database DatabaseConfig `yaml:"database,omitempty"`
	Snapshot SnapshotConfig `yaml:"snapshot,omitempty"`
	Forecast ForecastConfig `yaml:"forecast,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json, xlsx
	File   string `yaml:"file,omitempty"`   // optional; stdout when empty
}

// DatabaseConfig selects the SQL store project records are read from.
type DatabaseConfig struct {
	Driver  string `yaml:"driver,omitempty"` // sqlite, postgres
	DSN     string `yaml:"dsn,omitempty"`
	Period  string `yaml:"period,omitempty"` // YYYY-MM; latest on file when empty
	Migrate bool   `yaml:"migrate,omitempty"`
}

// SnapshotConfig points at a snapshot YAML file or a directory of
// <projectID>.yaml files. It takes precedence over the database.
type SnapshotConfig struct {
	Path string `yaml:"path,omitempty"`
}

// ForecastConfig holds the default forecast options.
type ForecastConfig struct {
	IncludePending        bool `yaml:"includePending,omitempty"`
	AlternateCostForecast bool `yaml:"alternateCostForecast,omitempty"`
	Verify                bool `yaml:"verify,omitempty"`
}

// Options converts the forecast configuration into calculation options.
func (f ForecastConfig) Options() forecast.Options {
	return forecast.Options{
		IncludePending:        f.IncludePending,
		AlternateCostForecast: f.AlternateCostForecast,
	}
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Every key can be overridden from the environment with
// the CONTRACT_FORECAST_ prefix, e.g. CONTRACT_FORECAST_DATABASE_DSN. An empty
// path loads defaults and environment overrides only.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file, %s", err)
		}
	}

	var configuration Configuration
	err := v.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// setDefaults registers every key so environment overrides apply to keys
// absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("output.file", "")
	v.SetDefault("database.driver", constants.DriverSQLite)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.period", "")
	v.SetDefault("database.migrate", false)
	v.SetDefault("snapshot.path", "")
	v.SetDefault("forecast.includePending", true)
	v.SetDefault("forecast.alternateCostForecast", false)
	v.SetDefault("forecast.verify", false)
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		warnings = append(warnings, fmt.Sprintf("Output: %v", err))
	}

	validator := validation.ConfigValidator{
		Database: validation.DatabaseConfig{
			Driver: c.Database.Driver,
			DSN:    c.Database.DSN,
			Period: c.Database.Period,
		},
		Snapshot: validation.SnapshotConfig{Path: c.Snapshot.Path},
		Output: validation.OutputConfig{
			Format: c.Output.Format,
			File:   c.Output.File,
		},
		Forecast: validation.ForecastConfig{
			IncludePending:        c.Forecast.IncludePending,
			AlternateCostForecast: c.Forecast.AlternateCostForecast,
			Verify:                c.Forecast.Verify,
		},
	}
	return append(warnings, validator.ValidateAll()...)
}

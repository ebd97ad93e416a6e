// Package constants provides shared constants for the contract-forecast application.
package constants

// PeriodLayout is the accounting period format used in configuration and in
// stored actuals (e.g. "2025-06").
const PeriodLayout = "2006-01"

// Financial constants
const (
	// CurrencyPlaces is the number of decimal places every forecast amount is
	// rounded to.
	CurrencyPlaces = 2

	// VerificationTolerance absorbs one half-cent of rounding when comparing a
	// re-derived column against the calculated one.
	VerificationTolerance = "0.005"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatXLSX is the Excel workbook output format
	OutputFormatXLSX = "xlsx"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "contract-forecast.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix prefixes environment variable overrides, e.g.
	// CONTRACT_FORECAST_DATABASE_DSN.
	EnvPrefix = "CONTRACT_FORECAST"
)

// Database defaults
const (
	// DriverSQLite selects the embedded modernc.org/sqlite driver.
	DriverSQLite = "sqlite"

	// DriverPostgres selects the pgx PostgreSQL driver.
	DriverPostgres = "postgres"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for snapshot files (1 MB)
	DefaultMaxUploadSizeBytes int64 = 1024 * 1024
)

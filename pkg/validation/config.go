// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"os"
	"time"

	"github.com/iwvelando/contract-forecast/pkg/constants"
	"github.com/iwvelando/contract-forecast/pkg/datetime"
)

// ValidatePeriod checks that a configured accounting period is well formed
// and warns when it lies after the current period.
func ValidatePeriod(period string, now time.Time) (string, error) {
	if period == "" {
		return "", nil
	}
	if _, err := datetime.ParsePeriod(period); err != nil {
		return "", err
	}
	future, err := datetime.PeriodBeforePeriod(datetime.CurrentPeriod(now), period)
	if err != nil {
		return "", err
	}
	if future {
		return fmt.Sprintf("Period %s is after the current period %s - actuals will likely be empty",
			period, datetime.CurrentPeriod(now)), nil
	}
	return "", nil
}

// ConfigValidator performs cross-field configuration validation
type ConfigValidator struct {
	Database DatabaseConfig
	Snapshot SnapshotConfig
	Output   OutputConfig
	Forecast ForecastConfig
	Now      time.Time
}

type DatabaseConfig struct {
	Driver string
	DSN    string
	Period string
}

type SnapshotConfig struct {
	Path string
}

type OutputConfig struct {
	Format string
	File   string
}

type ForecastConfig struct {
	IncludePending        bool
	AlternateCostForecast bool
	Verify                bool
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	now := cv.Now
	if now.IsZero() {
		now = time.Now()
	}

	hasDatabase := cv.Database.DSN != ""
	hasSnapshot := cv.Snapshot.Path != ""
	switch {
	case hasDatabase && hasSnapshot:
		warnings = append(warnings, fmt.Sprintf("Both database and snapshot path are configured - snapshot '%s' takes precedence",
			cv.Snapshot.Path))
	case !hasDatabase && !hasSnapshot:
		warnings = append(warnings, "Neither database nor snapshot path is configured - no project records can be loaded")
	}

	if hasSnapshot {
		if _, err := os.Stat(cv.Snapshot.Path); err != nil {
			warnings = append(warnings, fmt.Sprintf("Snapshot path '%s' is not accessible: %v", cv.Snapshot.Path, err))
		}
	}

	if hasDatabase {
		if err := ValidateDriver(cv.Database.Driver); err != nil {
			warnings = append(warnings, fmt.Sprintf("Database: %v", err))
		}
		warning, err := ValidatePeriod(cv.Database.Period, now)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Database: %v", err))
		} else if warning != "" {
			warnings = append(warnings, warning)
		}
	} else if cv.Database.Period != "" {
		warnings = append(warnings, "Database period is set but no database is configured - it will be ignored")
	}

	if cv.Output.Format == constants.OutputFormatXLSX && cv.Output.File == "" {
		warnings = append(warnings, "XLSX output is binary - set an output file rather than writing to the terminal")
	}

	if cv.Forecast.AlternateCostForecast {
		warnings = append(warnings, "Alternate cost forecast is enabled - I is reported as A + F instead of C + G + H")
	}

	return warnings
}

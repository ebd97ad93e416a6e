// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/contract-forecast/pkg/constants"
)

// OutputFormats lists every supported output format.
var OutputFormats = []string{
	constants.OutputFormatPretty,
	constants.OutputFormatCSV,
	constants.OutputFormatJSON,
	constants.OutputFormatXLSX,
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	for _, f := range OutputFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("expected output format of %s, %s, %s or %s, got %s",
		constants.OutputFormatPretty, constants.OutputFormatCSV,
		constants.OutputFormatJSON, constants.OutputFormatXLSX, format)
}

// ValidateDriver checks if the database driver is supported.
func ValidateDriver(driver string) error {
	if driver != constants.DriverSQLite && driver != constants.DriverPostgres {
		return fmt.Errorf("expected database driver of %s or %s, got %s",
			constants.DriverSQLite, constants.DriverPostgres, driver)
	}
	return nil
}

package snapshot

import "fmt"

// DataIntegrityError reports a structural violation in a snapshot. The whole
// request fails; nothing is partially computed.
type DataIntegrityError struct {
	CostCode string
	Field    string
	Reason   string
}

func (e *DataIntegrityError) Error() string {
	if e.CostCode == "" {
		return fmt.Sprintf("data integrity: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("data integrity: cost code %s: %s: %s", e.CostCode, e.Field, e.Reason)
}

// ConfigurationError reports an unusable manual override. It is raised before
// any formula is evaluated.
type ConfigurationError struct {
	CostCode string
	Column   string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: cost code %s: override %s: %s", e.CostCode, e.Column, e.Reason)
}

func integrityErr(costCode, field, format string, args ...interface{}) error {
	return &DataIntegrityError{CostCode: costCode, Field: field, Reason: fmt.Sprintf(format, args...)}
}

func configErr(costCode, column, format string, args ...interface{}) error {
	return &ConfigurationError{CostCode: costCode, Column: column, Reason: fmt.Sprintf(format, args...)}
}

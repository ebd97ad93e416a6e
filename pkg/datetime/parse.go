// Package datetime provides accounting period utility functions.
package datetime

import (
	"fmt"
	"time"

	"github.com/iwvelando/contract-forecast/pkg/constants"
)

const (
	// PeriodLayout is the accounting period format expected in config files,
	// snapshots and stored actuals.
	PeriodLayout = constants.PeriodLayout
)

// ParsePeriod parses an accounting period such as "2025-06".
func ParsePeriod(period string) (time.Time, error) {
	t, err := time.Parse(PeriodLayout, period)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period %q, expected YYYY-MM", period)
	}
	return t, nil
}

// CurrentPeriod returns the accounting period containing now.
func CurrentPeriod(now time.Time) string {
	return now.Format(PeriodLayout)
}

// PeriodBeforePeriod returns true if firstPeriod is strictly before secondPeriod.
func PeriodBeforePeriod(firstPeriod string, secondPeriod string) (bool, error) {
	firstT, err := ParsePeriod(firstPeriod)
	if err != nil {
		return false, err
	}
	secondT, err := ParsePeriod(secondPeriod)
	if err != nil {
		return false, err
	}
	return firstT.Before(secondT), nil
}

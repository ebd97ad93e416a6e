// Package snapshot defines the point-in-time financial records a forecast is
// computed from, the structural validation applied to them, and the Loader
// contract implemented by the storage backends.
package snapshot

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrProjectNotFound is returned by a Loader when no records exist for the
// requested project.
var ErrProjectNotFound = errors.New("project not found")

// Loader resolves a consistent snapshot of one project's records.
//
// includePending is advisory: a Loader may omit unposted change orders when it
// is false, but the calculator applies the same filter on its own.
type Loader interface {
	Load(ctx context.Context, projectID string, includePending bool) (*ProjectSnapshot, error)
}

// ChangeOrderKind distinguishes PCIs from subcontract and owner change orders.
type ChangeOrderKind string

const (
	KindPCI ChangeOrderKind = "PCI"
	KindSCO ChangeOrderKind = "SCO"
	KindOCO ChangeOrderKind = "OCO"
)

// IsValid checks if the kind is one of the defined constants
func (k ChangeOrderKind) IsValid() bool {
	switch k {
	case KindPCI, KindSCO, KindOCO:
		return true
	}
	return false
}

// Direction tags a PCI as originating internally or from the owner side.
type Direction string

const (
	DirectionInternal Direction = "internal"
	DirectionExternal Direction = "external"
)

// IsValid checks if the direction is one of the defined constants
func (d Direction) IsValid() bool {
	return d == DirectionInternal || d == DirectionExternal
}

// PostedStatus reports whether a change order is reflected in the ledger baseline.
type PostedStatus string

const (
	StatusPosted   PostedStatus = "posted"
	StatusUnposted PostedStatus = "unposted"
)

// IsValid checks if the status is one of the defined constants
func (s PostedStatus) IsValid() bool {
	return s == StatusPosted || s == StatusUnposted
}

// CostCode is the lowest-level budget/commitment grouping key of a project.
type CostCode struct {
	Code     string `yaml:"code"`
	Category string `yaml:"category,omitempty"`
}

// Label renders the code together with its category for presentation.
func (c CostCode) Label() string {
	if c.Category == "" {
		return c.Code
	}
	return c.Code + " - " + c.Category
}

// BudgetBaseline holds the original budgets of a cost code.
type BudgetBaseline struct {
	CostCode              string          `yaml:"costCode"`
	OriginalCostBudget    decimal.Decimal `yaml:"originalCostBudget"`
	OriginalRevenueBudget decimal.Decimal `yaml:"originalRevenueBudget"`
}

// ChangeOrder is a PCI, SCO, or OCO against a cost code.
type ChangeOrder struct {
	ID            string          `yaml:"id,omitempty"`
	CostCode      string          `yaml:"costCode"`
	Kind          ChangeOrderKind `yaml:"kind"`
	Direction     Direction       `yaml:"direction,omitempty"`
	Status        PostedStatus    `yaml:"status"`
	CostImpact    decimal.Decimal `yaml:"costImpact"`
	RevenueImpact decimal.Decimal `yaml:"revenueImpact"`
	Advanced      bool            `yaml:"advanced,omitempty"`
}

// Posted reports whether the change order is posted.
func (co ChangeOrder) Posted() bool {
	return co.Status == StatusPosted
}

// IsAdvancedSCO reports whether the change order is an SCO already funded
// against unposted budget. The flag is ignored on other kinds.
func (co ChangeOrder) IsAdvancedSCO() bool {
	return co.Kind == KindSCO && co.Advanced
}

// Commitment holds committed and uncommitted spend for a cost code.
type Commitment struct {
	CostCode               string          `yaml:"costCode"`
	CommittedAmount        decimal.Decimal `yaml:"committedAmount"`
	SpentOutsideCommitment decimal.Decimal `yaml:"spentOutsideCommitment"`
}

// ActualsWindow holds the cost posted within the active accounting period.
type ActualsWindow struct {
	CostCode          string          `yaml:"costCode"`
	CurrentPeriodCost decimal.Decimal `yaml:"currentPeriodCost"`
}

// Override is a manually entered replacement for a computed column. Value is
// kept as entered so non-numeric input can be rejected during validation.
type Override struct {
	CostCode string `yaml:"costCode"`
	Column   string `yaml:"column"`
	Value    string `yaml:"value"`
}

// ProjectSnapshot is every record the forecast reads for one project and one
// accounting cutoff. It is treated as immutable once loaded.
type ProjectSnapshot struct {
	ProjectID    string           `yaml:"projectId"`
	Period       string           `yaml:"period,omitempty"`
	CostCodes    []CostCode       `yaml:"costCodes"`
	Baselines    []BudgetBaseline `yaml:"baselines,omitempty"`
	ChangeOrders []ChangeOrder    `yaml:"changeOrders,omitempty"`
	Commitments  []Commitment     `yaml:"commitments,omitempty"`
	Actuals      []ActualsWindow  `yaml:"actuals,omitempty"`
	Overrides    []Override       `yaml:"overrides,omitempty"`
}

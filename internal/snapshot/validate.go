package snapshot

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Columns that accept a manual override.
const (
	OverrideColumnF = "F"
	OverrideColumnL = "L"
)

// CostCodeRecords is every record of one cost code after validation.
type CostCodeRecords struct {
	CostCode     CostCode
	Baseline     BudgetBaseline
	HasBaseline  bool
	ChangeOrders []ChangeOrder
	Commitment   Commitment
	Actuals      ActualsWindow
	Overrides    map[string]decimal.Decimal
}

// Override returns the override for a column, if one was supplied.
func (r CostCodeRecords) Override(column string) (decimal.Decimal, bool) {
	v, ok := r.Overrides[column]
	return v, ok
}

// Group validates the snapshot and returns its records grouped per cost code,
// ordered by code. Structural problems produce a *DataIntegrityError and
// unusable overrides a *ConfigurationError; in both cases nothing is returned.
//
// A cost code without a baseline is valid and reads as zero budgets.
func (s *ProjectSnapshot) Group() ([]CostCodeRecords, error) {
	if s == nil {
		return nil, integrityErr("", "snapshot", "snapshot is nil")
	}

	index := make(map[string]*CostCodeRecords, len(s.CostCodes))
	for _, cc := range s.CostCodes {
		code := strings.TrimSpace(cc.Code)
		if code == "" {
			return nil, integrityErr("", "code", "cost code is empty")
		}
		if _, exists := index[code]; exists {
			return nil, integrityErr(code, "code", "duplicate cost code")
		}
		index[code] = &CostCodeRecords{
			CostCode:   CostCode{Code: code, Category: cc.Category},
			Baseline:   BudgetBaseline{CostCode: code},
			Commitment: Commitment{CostCode: code},
			Actuals:    ActualsWindow{CostCode: code},
		}
	}

	lookup := func(code, field string) (*CostCodeRecords, error) {
		rec, ok := index[strings.TrimSpace(code)]
		if !ok {
			return nil, integrityErr(code, field, "references an unknown cost code")
		}
		return rec, nil
	}

	for _, b := range s.Baselines {
		rec, err := lookup(b.CostCode, "baseline")
		if err != nil {
			return nil, err
		}
		if rec.HasBaseline {
			return nil, integrityErr(rec.CostCode.Code, "baseline", "duplicate budget baseline")
		}
		rec.Baseline = BudgetBaseline{
			CostCode:              rec.CostCode.Code,
			OriginalCostBudget:    b.OriginalCostBudget,
			OriginalRevenueBudget: b.OriginalRevenueBudget,
		}
		rec.HasBaseline = true
	}

	seenChangeOrders := make(map[string]struct{})
	for _, co := range s.ChangeOrders {
		rec, err := lookup(co.CostCode, "changeOrder")
		if err != nil {
			return nil, err
		}
		if err := validateChangeOrder(rec.CostCode.Code, co); err != nil {
			return nil, err
		}
		if co.ID != "" {
			if _, dup := seenChangeOrders[co.ID]; dup {
				return nil, integrityErr(rec.CostCode.Code, "changeOrder.id", "duplicate change order %s", co.ID)
			}
			seenChangeOrders[co.ID] = struct{}{}
		}
		co.CostCode = rec.CostCode.Code
		rec.ChangeOrders = append(rec.ChangeOrders, co)
	}

	seenCommitments := make(map[string]struct{})
	for _, c := range s.Commitments {
		rec, err := lookup(c.CostCode, "commitment")
		if err != nil {
			return nil, err
		}
		if _, dup := seenCommitments[rec.CostCode.Code]; dup {
			return nil, integrityErr(rec.CostCode.Code, "commitment", "duplicate commitment record")
		}
		seenCommitments[rec.CostCode.Code] = struct{}{}
		if c.CommittedAmount.IsNegative() {
			return nil, integrityErr(rec.CostCode.Code, "committedAmount", "must not be negative, got %s", c.CommittedAmount)
		}
		rec.Commitment = Commitment{
			CostCode:               rec.CostCode.Code,
			CommittedAmount:        c.CommittedAmount,
			SpentOutsideCommitment: c.SpentOutsideCommitment,
		}
	}

	seenActuals := make(map[string]struct{})
	for _, a := range s.Actuals {
		rec, err := lookup(a.CostCode, "actuals")
		if err != nil {
			return nil, err
		}
		if _, dup := seenActuals[rec.CostCode.Code]; dup {
			return nil, integrityErr(rec.CostCode.Code, "actuals", "duplicate actuals window")
		}
		seenActuals[rec.CostCode.Code] = struct{}{}
		rec.Actuals = ActualsWindow{CostCode: rec.CostCode.Code, CurrentPeriodCost: a.CurrentPeriodCost}
	}

	for _, o := range s.Overrides {
		rec, err := lookup(o.CostCode, "override")
		if err != nil {
			return nil, err
		}
		column, value, err := parseOverride(rec.CostCode.Code, o)
		if err != nil {
			return nil, err
		}
		if rec.Overrides == nil {
			rec.Overrides = make(map[string]decimal.Decimal, 2)
		}
		if _, dup := rec.Overrides[column]; dup {
			return nil, configErr(rec.CostCode.Code, column, "duplicate override")
		}
		rec.Overrides[column] = value
	}

	grouped := make([]CostCodeRecords, 0, len(index))
	for _, rec := range index {
		grouped = append(grouped, *rec)
	}
	sort.Slice(grouped, func(i, j int) bool {
		return grouped[i].CostCode.Code < grouped[j].CostCode.Code
	})
	return grouped, nil
}

func validateChangeOrder(code string, co ChangeOrder) error {
	if !co.Kind.IsValid() {
		return integrityErr(code, "changeOrder.kind", "unknown kind %q", co.Kind)
	}
	if !co.Status.IsValid() {
		return integrityErr(code, "changeOrder.status", "unknown posted status %q", co.Status)
	}
	if co.Kind == KindPCI && !co.Direction.IsValid() {
		return integrityErr(code, "changeOrder.direction", "PCI requires internal or external direction, got %q", co.Direction)
	}
	return nil
}

func parseOverride(code string, o Override) (string, decimal.Decimal, error) {
	column := strings.ToUpper(strings.TrimSpace(o.Column))
	if column != OverrideColumnF && column != OverrideColumnL {
		return "", decimal.Zero, configErr(code, o.Column, "column does not support overrides")
	}

	raw := strings.TrimSpace(o.Value)
	switch strings.ToLower(strings.TrimLeft(raw, "+-")) {
	case "":
		return "", decimal.Zero, configErr(code, column, "value is empty")
	case "nan", "inf", "infinity":
		return "", decimal.Zero, configErr(code, column, "value %q is not finite", raw)
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return "", decimal.Zero, configErr(code, column, "value %q is not a decimal", raw)
	}
	return column, value, nil
}

// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/contract-forecast/internal/forecast"
	"github.com/iwvelando/contract-forecast/internal/snapshot"
	"github.com/shopspring/decimal"
)

// Dec parses a decimal literal and panics on error.
// This is intended for use in tests where the literal is known to be valid.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// FindLine finds a forecast line by cost code in the lines slice.
// Returns a pointer to the line if found, nil otherwise.
func FindLine(lines []forecast.ForecastLine, costCode string) *forecast.ForecastLine {
	for i := range lines {
		if lines[i].CostCode == costCode {
			return &lines[i]
		}
	}
	return nil
}

// ConcreteScenario returns the single cost code C-100 project: a 100,000 cost
// budget with one posted +5,000 PCI, 80,000 committed plus 2,000 spent outside
// commitment, one unposted internal +3,000 PCI and a 150,000 revenue budget.
func ConcreteScenario() *snapshot.ProjectSnapshot {
	return &snapshot.ProjectSnapshot{
		ProjectID: "P-100",
		Period:    "2025-06",
		CostCodes: []snapshot.CostCode{{Code: "C-100", Category: "Concrete"}},
		Baselines: []snapshot.BudgetBaseline{
			{CostCode: "C-100", OriginalCostBudget: Dec("100000"), OriginalRevenueBudget: Dec("150000")},
		},
		ChangeOrders: []snapshot.ChangeOrder{
			{ID: "PCI-1", CostCode: "C-100", Kind: snapshot.KindPCI, Direction: snapshot.DirectionExternal,
				Status: snapshot.StatusPosted, CostImpact: Dec("5000")},
			{ID: "PCI-2", CostCode: "C-100", Kind: snapshot.KindPCI, Direction: snapshot.DirectionInternal,
				Status: snapshot.StatusUnposted, CostImpact: Dec("3000")},
		},
		Commitments: []snapshot.Commitment{
			{CostCode: "C-100", CommittedAmount: Dec("80000"), SpentOutsideCommitment: Dec("2000")},
		},
	}
}

// MixedScenario returns a three cost code project exercising every change
// order kind, both PCI directions, advanced SCOs, overrides, actuals and a
// cost code without a baseline.
func MixedScenario() *snapshot.ProjectSnapshot {
	return &snapshot.ProjectSnapshot{
		ProjectID: "P-200",
		Period:    "2025-07",
		CostCodes: []snapshot.CostCode{
			{Code: "03-300", Category: "Cast-in-place concrete"},
			{Code: "05-120", Category: "Structural steel"},
			{Code: "09-900", Category: "Painting"},
		},
		Baselines: []snapshot.BudgetBaseline{
			{CostCode: "03-300", OriginalCostBudget: Dec("250000.00"), OriginalRevenueBudget: Dec("310000.00")},
			{CostCode: "05-120", OriginalCostBudget: Dec("40000.00"), OriginalRevenueBudget: Dec("52000.00")},
		},
		ChangeOrders: []snapshot.ChangeOrder{
			{ID: "PCI-10", CostCode: "03-300", Kind: snapshot.KindPCI, Direction: snapshot.DirectionInternal,
				Status: snapshot.StatusPosted, CostImpact: Dec("12500.50"), RevenueImpact: Dec("15000.00")},
			{ID: "PCI-11", CostCode: "03-300", Kind: snapshot.KindPCI, Direction: snapshot.DirectionExternal,
				Status: snapshot.StatusUnposted, CostImpact: Dec("8000.00"), RevenueImpact: Dec("9600.00")},
			{ID: "PCI-12", CostCode: "03-300", Kind: snapshot.KindPCI, Direction: snapshot.DirectionInternal,
				Status: snapshot.StatusUnposted, CostImpact: Dec("-1500.25"), RevenueImpact: Dec("-1800.00")},
			{ID: "SCO-1", CostCode: "03-300", Kind: snapshot.KindSCO,
				Status: snapshot.StatusUnposted, CostImpact: Dec("4000.00"), Advanced: true},
			{ID: "OCO-1", CostCode: "03-300", Kind: snapshot.KindOCO,
				Status: snapshot.StatusUnposted, CostImpact: Dec("2500.00")},
			{ID: "SCO-2", CostCode: "05-120", Kind: snapshot.KindSCO,
				Status: snapshot.StatusPosted, CostImpact: Dec("1000.00")},
			{ID: "SCO-3", CostCode: "05-120", Kind: snapshot.KindSCO,
				Status: snapshot.StatusUnposted, CostImpact: Dec("30000.00")},
			{ID: "PCI-20", CostCode: "09-900", Kind: snapshot.KindPCI, Direction: snapshot.DirectionExternal,
				Status: snapshot.StatusUnposted, CostImpact: Dec("6000.00"), RevenueImpact: Dec("7200.00")},
		},
		Commitments: []snapshot.Commitment{
			{CostCode: "03-300", CommittedAmount: Dec("180000.00"), SpentOutsideCommitment: Dec("7250.75")},
			{CostCode: "05-120", CommittedAmount: Dec("38000.00"), SpentOutsideCommitment: Dec("0")},
			{CostCode: "09-900", CommittedAmount: Dec("4500.00"), SpentOutsideCommitment: Dec("125.00")},
		},
		Actuals: []snapshot.ActualsWindow{
			{CostCode: "03-300", CurrentPeriodCost: Dec("21000.10")},
			{CostCode: "09-900", CurrentPeriodCost: Dec("800.00")},
		},
		Overrides: []snapshot.Override{
			{CostCode: "09-900", Column: "L", Value: "5000"},
		},
	}
}

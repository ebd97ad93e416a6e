package forecast

import (
	"fmt"

	"github.com/iwvelando/contract-forecast/internal/snapshot"
	"github.com/iwvelando/contract-forecast/pkg/format"
	"github.com/iwvelando/contract-forecast/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// VerificationCheck is the outcome of one re-derivation or invariant check.
// CostCode is empty for project-wide checks.
type VerificationCheck struct {
	Label    string `json:"label"`
	OK       bool   `json:"ok"`
	CostCode string `json:"costCode,omitempty"`
	Column   string `json:"column,omitempty"`
}

// Verification is a forecast together with the checks proving it.
type Verification struct {
	*Result
	Checks []VerificationCheck
}

// Passed counts every check that succeeded.
func (v *Verification) Passed() int {
	passed := 0
	for _, c := range v.Checks {
		if c.OK {
			passed++
		}
	}
	return passed
}

// AllPassed reports whether every check succeeded.
func (v *Verification) AllPassed() bool {
	return v.Passed() == len(v.Checks)
}

// Failed returns the checks that did not pass.
func (v *Verification) Failed() []VerificationCheck {
	var failed []VerificationCheck
	for _, c := range v.Checks {
		if !c.OK {
			failed = append(failed, c)
		}
	}
	return failed
}

// Summary renders the "k / n checks passed" panel line.
func (v *Verification) Summary() string {
	return fmt.Sprintf("%d / %d checks passed", v.Passed(), len(v.Checks))
}

// Verify computes the forecast of a snapshot and checks it.
func Verify(snap *snapshot.ProjectSnapshot, includePending bool) (*Verification, error) {
	return VerifyWithOptions(snap, Options{IncludePending: includePending})
}

// VerifyWithOptions computes the forecast of a snapshot and checks it.
func VerifyWithOptions(snap *snapshot.ProjectSnapshot, opts Options) (*Verification, error) {
	result, err := ComputeWithOptions(snap, opts)
	if err != nil {
		return nil, err
	}
	checks, err := Check(snap, opts, result)
	if err != nil {
		return nil, err
	}
	return &Verification{Result: result, Checks: checks}, nil
}

// Check re-derives every column of every cost code directly from the snapshot
// and compares it with result, then checks the clamp, gating and footing
// invariants on result itself. A mismatch is reported as a failed check, never
// as an error; errors are returned only for a malformed snapshot.
func Check(snap *snapshot.ProjectSnapshot, opts Options, result *Result) ([]VerificationCheck, error) {
	grouped, err := snap.Group()
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &Result{}
	}

	lines := make(map[string]ForecastLine, len(result.Lines))
	for _, line := range result.Lines {
		lines[line.CostCode] = line
	}

	var checks []VerificationCheck
	known := make(map[string]struct{}, len(grouped))
	for _, rec := range grouped {
		code := rec.CostCode.Code
		known[code] = struct{}{}

		line, ok := lines[code]
		if !ok {
			checks = append(checks, VerificationCheck{
				Label:    fmt.Sprintf("Forecast line present for cost code %s", code),
				CostCode: code,
			})
		}

		expected := rederive(rec, opts)
		for _, c := range Columns {
			want, got := expected.Get(c), line.Get(c)
			checks = append(checks, VerificationCheck{
				Label: fmt.Sprintf("%s = %s for cost code %s (expected %s, got %s)",
					c.Key(), formula(c, opts), code, format.Plain(want), format.Plain(got)),
				OK:       mathutil.Equal(want, got),
				CostCode: code,
				Column:   c.Key(),
			})
		}

		checks = append(checks,
			VerificationCheck{
				Label:    fmt.Sprintf("G is non-negative for cost code %s", code),
				OK:       !line.G.IsNegative(),
				CostCode: code,
				Column:   ColumnG.Key(),
			},
			VerificationCheck{
				Label:    fmt.Sprintf("H is non-negative for cost code %s", code),
				OK:       !line.H.IsNegative(),
				CostCode: code,
				Column:   ColumnH.Key(),
			},
			VerificationCheck{
				Label:    fmt.Sprintf("G collapses to 0 when A < B for cost code %s", code),
				OK:       !line.A.LessThan(line.B) || line.G.IsZero(),
				CostCode: code,
				Column:   ColumnG.Key(),
			},
		)
	}

	for _, line := range result.Lines {
		if _, ok := known[line.CostCode]; !ok {
			checks = append(checks, VerificationCheck{
				Label:    fmt.Sprintf("Forecast line for cost code %s has a matching snapshot cost code", line.CostCode),
				CostCode: line.CostCode,
			})
		}
	}

	var footed Amounts
	for _, line := range result.Lines {
		footed = footed.Add(line.Amounts)
	}
	for _, c := range Columns {
		sum, total := footed.Get(c), result.Totals.Get(c)
		checks = append(checks, VerificationCheck{
			Label: fmt.Sprintf("Totals foot: Σlines.%s == totals.%s (%s vs %s)",
				c.Key(), c.Key(), format.Plain(sum), format.Plain(total)),
			OK:     sum.Equal(total),
			Column: c.Key(),
		})
	}

	return checks, nil
}

var formulas = map[Column]string{
	ColumnA:                 "original cost budget + posted PCI cost",
	ColumnB:                 "C - unposted SCO/OCO cost",
	ColumnC:                 "committed + spent outside commitment",
	ColumnCurrentPeriodCost: "current period actuals",
	ColumnD:                 "unposted internal PCI cost",
	ColumnE:                 "unposted external PCI cost",
	ColumnF:                 "override F or D + E",
	ColumnG:                 "0 if A < B else max(A - C, 0)",
	ColumnH:                 "max(F - advanced SCO cost, 0)",
	ColumnI:                 "C + G + H",
	ColumnJ:                 "original revenue budget + posted PCI revenue",
	ColumnK:                 "unposted PCI revenue",
	ColumnL:                 "override L or K",
	ColumnM:                 "J + L",
	ColumnN:                 "M - I",
}

func formula(c Column, opts Options) string {
	if c == ColumnI && opts.AlternateCostForecast {
		return "A + F"
	}
	return formulas[c]
}

// rederive recomputes one cost code straight from its records, sharing no
// code with the calculator pipeline.
func rederive(rec snapshot.CostCodeRecords, opts Options) Amounts {
	counts := func(co snapshot.ChangeOrder) bool {
		return co.Posted() || opts.IncludePending
	}
	sumCost := func(match func(snapshot.ChangeOrder) bool) decimal.Decimal {
		total := decimal.Zero
		for _, co := range rec.ChangeOrders {
			if counts(co) && match(co) {
				total = total.Add(co.CostImpact)
			}
		}
		return total
	}
	sumRevenue := func(match func(snapshot.ChangeOrder) bool) decimal.Decimal {
		total := decimal.Zero
		for _, co := range rec.ChangeOrders {
			if counts(co) && match(co) {
				total = total.Add(co.RevenueImpact)
			}
		}
		return total
	}
	isPCI := func(co snapshot.ChangeOrder) bool { return co.Kind == snapshot.KindPCI }
	postedPCI := func(co snapshot.ChangeOrder) bool { return isPCI(co) && co.Posted() }
	unpostedPCI := func(co snapshot.ChangeOrder) bool { return isPCI(co) && !co.Posted() }

	r := mathutil.Round
	var a Amounts
	a.A = r(rec.Baseline.OriginalCostBudget.Add(sumCost(postedPCI)))
	a.C = r(rec.Commitment.CommittedAmount.Add(rec.Commitment.SpentOutsideCommitment))
	a.B = r(a.C.Sub(sumCost(func(co snapshot.ChangeOrder) bool {
		return (co.Kind == snapshot.KindSCO || co.Kind == snapshot.KindOCO) && !co.Posted()
	})))
	a.CurrentPeriodCost = r(rec.Actuals.CurrentPeriodCost)
	a.D = r(sumCost(func(co snapshot.ChangeOrder) bool {
		return unpostedPCI(co) && co.Direction == snapshot.DirectionInternal
	}))
	a.E = r(sumCost(func(co snapshot.ChangeOrder) bool {
		return unpostedPCI(co) && co.Direction == snapshot.DirectionExternal
	}))

	if v, ok := rec.Override(snapshot.OverrideColumnF); ok {
		a.F = r(v)
	} else {
		a.F = r(a.D.Add(a.E))
	}

	if a.A.GreaterThanOrEqual(a.B) {
		a.G = r(decimal.Max(a.A.Sub(a.C), decimal.Zero))
	} else {
		a.G = decimal.Zero
	}

	advanced := sumCost(func(co snapshot.ChangeOrder) bool { return co.IsAdvancedSCO() })
	a.H = r(decimal.Max(a.F.Sub(advanced), decimal.Zero))

	if opts.AlternateCostForecast {
		a.I = r(a.A.Add(a.F))
	} else {
		a.I = r(a.C.Add(a.G).Add(a.H))
	}

	a.J = r(rec.Baseline.OriginalRevenueBudget.Add(sumRevenue(postedPCI)))
	a.K = r(sumRevenue(unpostedPCI))
	if v, ok := rec.Override(snapshot.OverrideColumnL); ok {
		a.L = r(v)
	} else {
		a.L = a.K
	}
	a.M = r(a.J.Add(a.L))
	a.N = r(a.M.Sub(a.I))
	return a
}

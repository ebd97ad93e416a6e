// Package forecast derives the CMiC-style contract forecast matrix for a
// project snapshot and verifies the derivation.
package forecast

import (
	"github.com/iwvelando/contract-forecast/internal/snapshot"
	"github.com/iwvelando/contract-forecast/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Options controls how a forecast is derived.
type Options struct {
	// IncludePending lets unposted change orders contribute to the pending
	// columns. When false they are treated as absent.
	IncludePending bool

	// AlternateCostForecast derives I as A + F instead of C + G + H.
	AlternateCostForecast bool
}

// Result is a computed forecast matrix.
type Result struct {
	ProjectID string
	Period    string
	Options   Options
	Lines     []ForecastLine
	Totals    TotalsLine
}

// Headers returns the column labels of the matrix.
func (r *Result) Headers() []string {
	return Headers()
}

// Line returns the line of a cost code, if present.
func (r *Result) Line(costCode string) (ForecastLine, bool) {
	for _, line := range r.Lines {
		if line.CostCode == costCode {
			return line, true
		}
	}
	return ForecastLine{}, false
}

// Compute derives the forecast matrix of a snapshot.
func Compute(snap *snapshot.ProjectSnapshot, includePending bool) (*Result, error) {
	return ComputeWithOptions(snap, Options{IncludePending: includePending})
}

// ComputeWithOptions derives the forecast matrix of a snapshot. The snapshot
// is validated in full before any formula runs; a malformed snapshot returns a
// *snapshot.DataIntegrityError or *snapshot.ConfigurationError.
func ComputeWithOptions(snap *snapshot.ProjectSnapshot, opts Options) (*Result, error) {
	grouped, err := snap.Group()
	if err != nil {
		return nil, err
	}

	result := &Result{
		ProjectID: snap.ProjectID,
		Period:    snap.Period,
		Options:   opts,
		Lines:     make([]ForecastLine, 0, len(grouped)),
	}
	for _, rec := range grouped {
		line := computeLine(rec, opts)
		result.Lines = append(result.Lines, line)
		result.Totals.Amounts = result.Totals.Add(line.Amounts)
	}
	return result, nil
}

// value is a column value that is either computed by its formula or supplied
// by a manual override. Downstream steps only ever see the resolved amount.
type value struct {
	amount     decimal.Decimal
	overridden bool
}

func computed(d decimal.Decimal) value {
	return value{amount: d}
}

func overridden(d decimal.Decimal) value {
	return value{amount: d, overridden: true}
}

// inputs are the per-cost-code sums the formulas read, already filtered by
// the inclusion mode.
type inputs struct {
	opts Options
	rec  snapshot.CostCodeRecords

	postedPCICost           decimal.Decimal
	postedPCIRevenue        decimal.Decimal
	unpostedInternalPCICost decimal.Decimal
	unpostedExternalPCICost decimal.Decimal
	unpostedPCIRevenue      decimal.Decimal
	unpostedSCOOCOCost      decimal.Decimal
	advancedSCOCost         decimal.Decimal
}

func gather(rec snapshot.CostCodeRecords, opts Options) *inputs {
	in := &inputs{opts: opts, rec: rec}
	for _, co := range rec.ChangeOrders {
		if !co.Posted() && !opts.IncludePending {
			continue
		}
		if co.IsAdvancedSCO() {
			in.advancedSCOCost = in.advancedSCOCost.Add(co.CostImpact)
		}
		switch {
		case co.Kind == snapshot.KindPCI && co.Posted():
			in.postedPCICost = in.postedPCICost.Add(co.CostImpact)
			in.postedPCIRevenue = in.postedPCIRevenue.Add(co.RevenueImpact)
		case co.Kind == snapshot.KindPCI:
			if co.Direction == snapshot.DirectionInternal {
				in.unpostedInternalPCICost = in.unpostedInternalPCICost.Add(co.CostImpact)
			} else {
				in.unpostedExternalPCICost = in.unpostedExternalPCICost.Add(co.CostImpact)
			}
			in.unpostedPCIRevenue = in.unpostedPCIRevenue.Add(co.RevenueImpact)
		case !co.Posted():
			in.unpostedSCOOCOCost = in.unpostedSCOOCOCost.Add(co.CostImpact)
		}
	}
	return in
}

// step finalizes one column from the inputs and the columns finalized
// before it.
type step struct {
	column Column
	name   string
	eval   func(in *inputs, done *Amounts) value
}

// pipeline lists the formula steps in evaluation order.
var pipeline = []step{
	{ColumnA, "current cost budget", func(in *inputs, _ *Amounts) value {
		return computed(in.rec.Baseline.OriginalCostBudget.Add(in.postedPCICost))
	}},
	{ColumnC, "spent/committed total", func(in *inputs, _ *Amounts) value {
		return computed(in.rec.Commitment.CommittedAmount.Add(in.rec.Commitment.SpentOutsideCommitment))
	}},
	{ColumnB, "spent/committed less advance SCOs", func(in *inputs, done *Amounts) value {
		return computed(done.C.Sub(in.unpostedSCOOCOCost))
	}},
	{ColumnCurrentPeriodCost, "current period cost", func(in *inputs, _ *Amounts) value {
		return computed(in.rec.Actuals.CurrentPeriodCost)
	}},
	{ColumnD, "unposted internal PCI cost budget", func(in *inputs, _ *Amounts) value {
		return computed(in.unpostedInternalPCICost)
	}},
	{ColumnE, "unposted external PCI cost budget", func(in *inputs, _ *Amounts) value {
		return computed(in.unpostedExternalPCICost)
	}},
	{ColumnF, "unposted PCI cost budget adjusted", func(in *inputs, done *Amounts) value {
		if v, ok := in.rec.Override(snapshot.OverrideColumnF); ok {
			return overridden(v)
		}
		return computed(done.D.Add(done.E))
	}},
	{ColumnG, "cost to complete", func(_ *inputs, done *Amounts) value {
		if done.A.LessThan(done.B) {
			return computed(decimal.Zero)
		}
		return computed(mathutil.ClampZero(done.A.Sub(done.C)))
	}},
	{ColumnH, "cost to complete unposted PCIs", func(in *inputs, done *Amounts) value {
		return computed(mathutil.ClampZero(done.F.Sub(in.advancedSCOCost)))
	}},
	{ColumnI, "cost forecast", func(in *inputs, done *Amounts) value {
		if in.opts.AlternateCostForecast {
			return computed(done.A.Add(done.F))
		}
		return computed(mathutil.Sum(done.C, done.G, done.H))
	}},
	{ColumnJ, "current revenue budget", func(in *inputs, _ *Amounts) value {
		return computed(in.rec.Baseline.OriginalRevenueBudget.Add(in.postedPCIRevenue))
	}},
	{ColumnK, "unposted PCI revenue budget", func(in *inputs, _ *Amounts) value {
		return computed(in.unpostedPCIRevenue)
	}},
	{ColumnL, "unposted PCI revenue budget adjusted", func(in *inputs, done *Amounts) value {
		if v, ok := in.rec.Override(snapshot.OverrideColumnL); ok {
			return overridden(v)
		}
		return computed(done.K)
	}},
	{ColumnM, "revenue forecast", func(_ *inputs, done *Amounts) value {
		return computed(done.J.Add(done.L))
	}},
	{ColumnN, "projected gain/loss", func(_ *inputs, done *Amounts) value {
		return computed(done.M.Sub(done.I))
	}},
}

// computeLine runs the pipeline for one cost code. Each column is rounded
// once when finalized and later steps read the rounded value.
func computeLine(rec snapshot.CostCodeRecords, opts Options) ForecastLine {
	in := gather(rec, opts)
	line := ForecastLine{
		CostCode: rec.CostCode.Code,
		Category: rec.CostCode.Category,
	}
	for _, s := range pipeline {
		v := s.eval(in, &line.Amounts)
		line.Set(s.column, mathutil.Round(v.amount))
		if v.overridden {
			line.Overridden = append(line.Overridden, s.column)
		}
	}
	return line
}

// EvaluationOrder describes the pipeline steps in the order they run.
func EvaluationOrder() []string {
	order := make([]string, 0, len(pipeline))
	for _, s := range pipeline {
		order = append(order, s.column.Key()+": "+s.name)
	}
	return order
}

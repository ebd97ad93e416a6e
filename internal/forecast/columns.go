package forecast

import (
	"github.com/shopspring/decimal"
)

// Column identifies one of the fifteen forecast matrix columns. Columns are
// numbered in presentation order, which matches Headers.
type Column int

const (
	ColumnA Column = iota
	ColumnB
	ColumnC
	ColumnCurrentPeriodCost
	ColumnD
	ColumnE
	ColumnF
	ColumnG
	ColumnH
	ColumnI
	ColumnJ
	ColumnK
	ColumnL
	ColumnM
	ColumnN

	columnCount
)

// Columns lists every column in presentation order.
var Columns = []Column{
	ColumnA, ColumnB, ColumnC, ColumnCurrentPeriodCost,
	ColumnD, ColumnE, ColumnF, ColumnG, ColumnH, ColumnI,
	ColumnJ, ColumnK, ColumnL, ColumnM, ColumnN,
}

var columnKeys = [columnCount]string{
	"A", "B", "C", "CurrentPeriodCost", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N",
}

var columnHeaders = [columnCount]string{
	"A. Current Cost Budget (Original Budget + Posted PCIs Thru Current Period)",
	"B. Spent/Committed (Less Advance SCOs) (C - SCOs Issued On Unposted PCI/OCO)",
	"C. Spent/Committed Total (Committed $ + $ Spent Outside Commitment)",
	"Current Period Cost",
	"D. Unposted Internal PCI Cost Budget",
	"E. Unposted External PCI Cost Budget",
	"F. Unposted Int & Ext PCI Cost Budget Adjusted (D+E if not overridden)",
	"G. Cost to Complete (A - C) unless A less than B, then (CTC = 0)",
	"H. Cost To Complete Unposted PCIs (F - Advanced SCOs)",
	"I. Cost Forecast (C + G + H) or (A + F if G not overridden)",
	"J. Current Revenue Budget (Original Budget + Posted PCIs Thru Current Period)",
	"K. Unposted PCI Revenue Budget",
	"L. Unposted PCI Revenue Budget Adjusted (K if not overridden)",
	"M. Revenue Forecast (J + L)",
	"N. Projected Gain/Loss (M - I)",
}

// Key returns the short identifier of the column ("A" through "N", or
// "CurrentPeriodCost").
func (c Column) Key() string {
	if c < 0 || c >= columnCount {
		return "?"
	}
	return columnKeys[c]
}

// Header returns the human-readable legend label of the column.
func (c Column) Header() string {
	if c < 0 || c >= columnCount {
		return ""
	}
	return columnHeaders[c]
}

// Headers returns the fixed, ordered list of column labels.
func Headers() []string {
	headers := make([]string, columnCount)
	copy(headers, columnHeaders[:])
	return headers
}

// Amounts holds one value per forecast column.
type Amounts struct {
	A                 decimal.Decimal
	B                 decimal.Decimal
	C                 decimal.Decimal
	CurrentPeriodCost decimal.Decimal
	D                 decimal.Decimal
	E                 decimal.Decimal
	F                 decimal.Decimal
	G                 decimal.Decimal
	H                 decimal.Decimal
	I                 decimal.Decimal
	J                 decimal.Decimal
	K                 decimal.Decimal
	L                 decimal.Decimal
	M                 decimal.Decimal
	N                 decimal.Decimal
}

func (a *Amounts) field(c Column) *decimal.Decimal {
	switch c {
	case ColumnA:
		return &a.A
	case ColumnB:
		return &a.B
	case ColumnC:
		return &a.C
	case ColumnCurrentPeriodCost:
		return &a.CurrentPeriodCost
	case ColumnD:
		return &a.D
	case ColumnE:
		return &a.E
	case ColumnF:
		return &a.F
	case ColumnG:
		return &a.G
	case ColumnH:
		return &a.H
	case ColumnI:
		return &a.I
	case ColumnJ:
		return &a.J
	case ColumnK:
		return &a.K
	case ColumnL:
		return &a.L
	case ColumnM:
		return &a.M
	case ColumnN:
		return &a.N
	}
	return nil
}

// Get returns the value of a column.
func (a Amounts) Get(c Column) decimal.Decimal {
	if f := a.field(c); f != nil {
		return *f
	}
	return decimal.Zero
}

// Set assigns the value of a column.
func (a *Amounts) Set(c Column, v decimal.Decimal) {
	if f := a.field(c); f != nil {
		*f = v
	}
}

// Values returns every column value in presentation order.
func (a Amounts) Values() []decimal.Decimal {
	values := make([]decimal.Decimal, 0, columnCount)
	for _, c := range Columns {
		values = append(values, a.Get(c))
	}
	return values
}

// Add returns the column-wise sum of a and b.
func (a Amounts) Add(b Amounts) Amounts {
	var sum Amounts
	for _, c := range Columns {
		sum.Set(c, a.Get(c).Add(b.Get(c)))
	}
	return sum
}

// ForecastLine is the derived forecast for one cost code.
type ForecastLine struct {
	CostCode   string
	Category   string
	Overridden []Column
	Amounts
}

// Label renders the cost code together with its category.
func (l ForecastLine) Label() string {
	if l.Category == "" {
		return l.CostCode
	}
	return l.CostCode + " - " + l.Category
}

// IsOverridden reports whether a manual override replaced the column.
func (l ForecastLine) IsOverridden(c Column) bool {
	for _, o := range l.Overridden {
		if o == c {
			return true
		}
	}
	return false
}

// TotalsLine is the column-wise sum of every ForecastLine of a project.
type TotalsLine struct {
	Amounts
}

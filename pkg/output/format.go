// Package output provides utilities for formatting and displaying forecast results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/iwvelando/contract-forecast/internal/forecast"
	"github.com/iwvelando/contract-forecast/pkg/constants"
	"github.com/iwvelando/contract-forecast/pkg/format"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TotalsLabel is the label of the totals row in every format.
const TotalsLabel = "Totals"

// overrideMarker flags a manually overridden value in the pretty matrix.
const overrideMarker = "*"

// Write renders a forecast in the requested format. v is optional; when
// present the pretty, JSON and XLSX formats include the verification checks.
func Write(w io.Writer, outputFormat string, result *forecast.Result, v *forecast.Verification) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		if err := PrettyFormat(w, result); err != nil {
			return err
		}
		if v != nil {
			_, _ = fmt.Fprintln(w)
			return VerificationFormat(w, v)
		}
		return nil
	case constants.OutputFormatCSV:
		return CsvFormat(w, result)
	case constants.OutputFormatJSON:
		return JSONFormat(w, result, v)
	case constants.OutputFormatXLSX:
		data, err := ExcelFormat(result, v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unsupported output format %q", outputFormat)
}

// PrettyFormat outputs a human-readable table of the forecast matrix with a
// column legend. Overridden values are suffixed with an asterisk.
func PrettyFormat(w io.Writer, result *forecast.Result) error {
	if result == nil {
		return fmt.Errorf("no forecast to render")
	}
	p := message.NewPrinter(language.English)

	mode := "posted and pending change orders"
	if !result.Options.IncludePending {
		mode = "posted change orders only"
	}
	_, _ = p.Fprintf(w, "--- Contract forecast for project %s ---\n", result.ProjectID)
	if result.Period != "" {
		_, _ = p.Fprintf(w, "Period: %s\n", result.Period)
	}
	_, _ = p.Fprintf(w, "Cost codes: %d (%s)\n", len(result.Lines), mode)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)

	header := table.Row{"Cost Code"}
	configs := []table.ColumnConfig{{Number: 1, Align: text.AlignLeft}}
	for i, c := range forecast.Columns {
		header = append(header, shortKey(c))
		configs = append(configs, table.ColumnConfig{Number: i + 2, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	for _, line := range result.Lines {
		row := table.Row{line.Label()}
		for _, c := range forecast.Columns {
			cell := format.NumericCurrency(line.Get(c))
			if line.IsOverridden(c) {
				cell += overrideMarker
			}
			row = append(row, cell)
		}
		t.AppendRow(row)
	}

	footer := table.Row{TotalsLabel}
	for _, v := range result.Totals.Values() {
		footer = append(footer, format.NumericCurrency(v))
	}
	t.AppendFooter(footer)
	t.Render()

	_, _ = fmt.Fprintf(w, "Cost forecast: %s  Revenue forecast: %s  Projected gain/loss: %s\n",
		format.Currency(result.Totals.Get(forecast.ColumnI)),
		format.Currency(result.Totals.Get(forecast.ColumnM)),
		format.Currency(result.Totals.Get(forecast.ColumnN)))

	_, _ = fmt.Fprintln(w, "Legend:")
	for _, c := range forecast.Columns {
		_, _ = fmt.Fprintf(w, "  %-4s %s\n", shortKey(c), c.Header())
	}
	_, _ = fmt.Fprintf(w, "  %s    manually overridden value\n", overrideMarker)
	return nil
}

func shortKey(c forecast.Column) string {
	if c == forecast.ColumnCurrentPeriodCost {
		return "Cur"
	}
	return c.Key()
}

// CsvFormat outputs in comma-separated value format: a "Cost Code" column
// followed by the column headers, one row per line and a trailing totals row.
// Amounts carry exactly two decimals and no separators.
func CsvFormat(w io.Writer, result *forecast.Result) error {
	if result == nil {
		return fmt.Errorf("no forecast to render")
	}
	cw := csv.NewWriter(w)

	if err := cw.Write(append([]string{"Cost Code"}, result.Headers()...)); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, line := range result.Lines {
		if err := cw.Write(csvRow(line.Label(), line.Amounts)); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", line.CostCode, err)
		}
	}
	if err := cw.Write(csvRow(TotalsLabel, result.Totals.Amounts)); err != nil {
		return fmt.Errorf("failed to write csv totals: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

func csvRow(label string, amounts forecast.Amounts) []string {
	row := make([]string, 0, len(forecast.Columns)+1)
	row = append(row, label)
	for _, v := range amounts.Values() {
		row = append(row, format.Plain(v))
	}
	return row
}

// VerificationFormat outputs the verification panel: every check with a pass
// or fail marker followed by the "k / n checks passed" summary.
func VerificationFormat(w io.Writer, v *forecast.Verification) error {
	if v == nil {
		return fmt.Errorf("no verification to render")
	}
	p := message.NewPrinter(language.English)

	_, _ = fmt.Fprintln(w, "--- Verification ---")
	for _, c := range v.Checks {
		marker := "PASS"
		if !c.OK {
			marker = "FAIL"
		}
		_, _ = fmt.Fprintf(w, "[%s] %s\n", marker, c.Label)
	}
	_, _ = p.Fprintf(w, "%d / %d checks passed\n", v.Passed(), len(v.Checks))
	if failed := len(v.Failed()); failed > 0 {
		_, _ = p.Fprintf(w, "%d checks failed\n", failed)
	}
	return nil
}

// Document is the JSON representation of a forecast.
type Document struct {
	ProjectID             string          `json:"projectId"`
	Period                string          `json:"period,omitempty"`
	IncludePending        bool            `json:"includePending"`
	AlternateCostForecast bool            `json:"alternateCostForecast,omitempty"`
	Headers               []string        `json:"headers"`
	Lines                 []DocumentLine  `json:"lines"`
	Totals                DocumentAmounts `json:"totals"`
	Verification          *DocumentChecks `json:"verification,omitempty"`
}

// DocumentLine is one cost code of a Document.
type DocumentLine struct {
	CostCode   string          `json:"costCode"`
	Category   string          `json:"category,omitempty"`
	Label      string          `json:"label"`
	Overridden []string        `json:"overridden,omitempty"`
	Values     DocumentAmounts `json:"values"`
}

// DocumentAmounts maps column keys to two-decimal amounts.
type DocumentAmounts map[string]string

// DocumentChecks is the verification section of a Document.
type DocumentChecks struct {
	Passed  int                          `json:"passed"`
	Total   int                          `json:"total"`
	Summary string                       `json:"summary"`
	Checks  []forecast.VerificationCheck `json:"checks"`
}

// NewDocument builds the JSON representation of a forecast. v is optional.
func NewDocument(result *forecast.Result, v *forecast.Verification) Document {
	doc := Document{
		ProjectID:             result.ProjectID,
		Period:                result.Period,
		IncludePending:        result.Options.IncludePending,
		AlternateCostForecast: result.Options.AlternateCostForecast,
		Headers:               result.Headers(),
		Lines:                 make([]DocumentLine, 0, len(result.Lines)),
		Totals:                documentAmounts(result.Totals.Amounts),
	}
	for _, line := range result.Lines {
		dl := DocumentLine{
			CostCode: line.CostCode,
			Category: line.Category,
			Label:    line.Label(),
			Values:   documentAmounts(line.Amounts),
		}
		for _, c := range line.Overridden {
			dl.Overridden = append(dl.Overridden, c.Key())
		}
		doc.Lines = append(doc.Lines, dl)
	}
	if v != nil {
		doc.Verification = &DocumentChecks{
			Passed:  v.Passed(),
			Total:   len(v.Checks),
			Summary: v.Summary(),
			Checks:  v.Checks,
		}
	}
	return doc
}

func documentAmounts(a forecast.Amounts) DocumentAmounts {
	out := make(DocumentAmounts, len(forecast.Columns))
	for _, c := range forecast.Columns {
		out[c.Key()] = format.Plain(a.Get(c))
	}
	return out
}

// JSONFormat outputs the forecast as an indented JSON Document.
func JSONFormat(w io.Writer, result *forecast.Result, v *forecast.Verification) error {
	if result == nil {
		return fmt.Errorf("no forecast to render")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(result, v)); err != nil {
		return fmt.Errorf("failed to encode forecast: %w", err)
	}
	return nil
}

// FileExtension returns the conventional file extension of an output format.
func FileExtension(outputFormat string) string {
	switch outputFormat {
	case constants.OutputFormatCSV, constants.OutputFormatJSON, constants.OutputFormatXLSX:
		return "." + outputFormat
	}
	return ".txt"
}

// ContentType returns the HTTP content type of an output format.
func ContentType(outputFormat string) string {
	switch outputFormat {
	case constants.OutputFormatCSV:
		return "text/csv; charset=utf-8"
	case constants.OutputFormatJSON:
		return "application/json"
	case constants.OutputFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/plain; charset=utf-8"
}

package logging

import (
	"fmt"
	"math"
	"strings"
)

// MissingValue stands in for values that were never measured.
const MissingValue = "-"

// MetricRow is one labelled line of a MetricTable. Values are pre-formatted
// so rows can mix integers, decimals and names.
type MetricRow struct {
	Label  string
	Values []string // one per header
	Unit   string
	Note   string // optional trailing remark
}

// MetricTable renders aligned columns: labels left-aligned, values
// right-aligned, then units and notes.
type MetricTable struct {
	Headers []string
	Rows    []MetricRow
}

// NewMetricTable returns an empty table with the given column headers.
func NewMetricTable(headers ...string) *MetricTable {
	return &MetricTable{Headers: headers}
}

// AddRow appends a row of pre-formatted values.
func (t *MetricTable) AddRow(label string, values []string, unit, note string) {
	t.Rows = append(t.Rows, MetricRow{Label: label, Values: values, Unit: unit, Note: note})
}

// AddMetric appends a single-value numeric row.
func (t *MetricTable) AddMetric(label string, value float64, decimals int, unit string) {
	t.AddRow(label, []string{formatMetric(value, decimals)}, unit, "")
}

// AddCount appends a single-value integer row.
func (t *MetricTable) AddCount(label string, n uint64) {
	t.AddRow(label, []string{fmt.Sprintf("%d", n)}, "", "")
}

// AddText appends a single-value text row; empty text shows as MissingValue.
func (t *MetricTable) AddText(label, text string) {
	t.AddRow(label, []string{text}, "", "")
}

func (t *MetricTable) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	labelWidth, unitWidth := 0, 0
	hasNote := false
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		labelWidth = max(labelWidth, len(row.Label))
		unitWidth = max(unitWidth, len(row.Unit))
		hasNote = hasNote || row.Note != ""
		for i := range widths {
			widths[i] = max(widths[i], len(cell(row, i)))
		}
	}

	var sb strings.Builder

	sb.WriteString(strings.Repeat(" ", labelWidth+2))
	for i, h := range t.Headers {
		fmt.Fprintf(&sb, "%*s  ", widths[i], h)
	}
	sb.WriteString("\n")

	for _, row := range t.Rows {
		fmt.Fprintf(&sb, "%-*s  ", labelWidth, row.Label)
		for i := range t.Headers {
			fmt.Fprintf(&sb, "%*s  ", widths[i], cell(row, i))
		}
		if unitWidth > 0 {
			fmt.Fprintf(&sb, "%-*s ", unitWidth, row.Unit)
		}
		if hasNote {
			sb.WriteString(row.Note)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func cell(row MetricRow, i int) string {
	if i < len(row.Values) && row.Values[i] != "" {
		return row.Values[i]
	}
	return MissingValue
}

// formatMetric formats a number to the given precision. NaN and Inf become
// MissingValue; tiny non-zero values switch to scientific notation.
func formatMetric(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	if value != 0 && math.Abs(value) < 0.0001 {
		return fmt.Sprintf("%.2e", value)
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// formatLevelDB converts a linear amplitude to dBFS. Zero is shown as
// "< -120" rather than -Inf.
func formatLevelDB(linear float64, decimals int) string {
	if math.IsNaN(linear) {
		return MissingValue
	}
	if linear <= 0 {
		return "< -120"
	}
	db := 20 * math.Log10(linear)
	if db < -120 {
		return "< -120"
	}
	return fmt.Sprintf("%.*f", decimals, db)
}

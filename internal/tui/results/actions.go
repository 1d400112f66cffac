package results

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/dashtools/internal/database"
)

// FormatValue renders a cell for display.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return t
	case []byte:
		if utf8.Valid(t) {
			return string(t)
		}
		return "\\x" + fmt.Sprintf("%x", t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func notify(msg string) tea.Cmd {
	return func() tea.Msg { return StatusNotifyMsg{Message: msg} }
}

// RowJSON encodes row as a JSON object with keys in column order.
func RowJSON(columns []string, row database.Row) (string, error) {
	var b strings.Builder
	b.WriteString("{")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(",")
		}
		key, err := json.Marshal(col)
		if err != nil {
			return "", err
		}
		val, err := json.Marshal(jsonValue(row[col]))
		if err != nil {
			return "", fmt.Errorf("column %s: %w", col, err)
		}
		b.Write(key)
		b.WriteString(":")
		b.Write(val)
	}
	b.WriteString("}")
	return b.String(), nil
}

func jsonValue(v any) any {
	if bs, ok := v.([]byte); ok {
		if utf8.Valid(bs) {
			return string(bs)
		}
		return base64.StdEncoding.EncodeToString(bs)
	}
	return v
}

func (m Model) copyRowJSON() tea.Cmd {
	row, ok := m.SelectedRow()
	if !ok {
		return notify("No row to copy")
	}
	s, err := RowJSON(m.result.Columns, row)
	if err != nil {
		return notify("Copy failed: " + err.Error())
	}
	if err := clipboard.WriteAll(s); err != nil {
		return notify("Copy failed: " + err.Error())
	}
	return notify("Copied row as JSON")
}

func (m Model) copyRowCSV() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.cells) {
		return notify("No row to copy")
	}
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(m.result.Columns)
	_ = w.Write(m.cells[m.cursor])
	w.Flush()
	if err := clipboard.WriteAll(b.String()); err != nil {
		return notify("Copy failed: " + err.Error())
	}
	return notify("Copied row as CSV")
}

// filterByRow puts a SELECT matching the selected row's first column in the
// editor. Only pages of table data know their table.
func (m Model) filterByRow() tea.Cmd {
	row, ok := m.SelectedRow()
	if !ok || m.page == nil || len(m.result.Columns) == 0 {
		return notify("Select a row of table data to filter")
	}
	query := FilterQuery(m.page.table, m.result.Columns[0], row[m.result.Columns[0]])
	return func() tea.Msg { return SetEditorQueryMsg{Query: query} }
}

// FilterQuery builds a SELECT of table where column equals v.
func FilterQuery(table, column string, v any) string {
	cond := database.QuoteIdent(column) + " = " + sqlLiteral(v)
	if v == nil {
		cond = database.QuoteIdent(column) + " IS NULL"
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s", database.QuoteIdent(table), cond)
}

func sqlLiteral(v any) string {
	switch t := v.(type) {
	case int64, float64:
		return FormatValue(t)
	case bool:
		return strings.ToUpper(strconv.FormatBool(t))
	default:
		return "'" + strings.ReplaceAll(FormatValue(t), "'", "''") + "'"
	}
}

func (m Model) exportCSVCmd() tea.Cmd {
	if m.result == nil {
		return nil
	}
	columns := m.result.Columns
	cells := m.cells
	name := "query"
	if m.page != nil {
		name = m.page.table
	}
	return func() tea.Msg {
		filename := fmt.Sprintf("dashtools_%s_%s.csv", name, time.Now().Format("20060102_150405"))

		f, err := os.Create(filename)
		if err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		defer f.Close()

		w := csv.NewWriter(f)
		_ = w.Write(columns)
		_ = w.WriteAll(cells)
		if err := w.Error(); err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: fmt.Sprintf("Exported %d rows to %s", len(cells), filename)}
	}
}

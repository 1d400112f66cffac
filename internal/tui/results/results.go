package results

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/dashtools/internal/database"
	"github.com/joacominatel/dashtools/internal/tui/theme"
)

const maxColWidth = 40

// page tracks where a table-data result sits in its table.
type page struct {
	table  string
	offset int
	limit  int
}

// Model is the results pane. It shows either a page of table data, which
// can be moved with n/p, or the result of an ad-hoc query.
type Model struct {
	result    *database.QueryResult
	cells     [][]string
	page      *page
	err       error
	width     int
	height    int
	focused   bool
	loading   bool
	cursor    int
	scrollY   int
	colWidths []int
}

func New() Model {
	return Model{}
}

func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *Model) SetFocused(f bool) {
	m.focused = f
}

func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetResult shows the result of an ad-hoc query.
func (m *Model) SetResult(r *database.QueryResult) {
	m.page = nil
	m.setResult(r)
}

// SetPage shows one page of table data.
func (m *Model) SetPage(table string, offset, limit int, r *database.QueryResult) {
	m.page = &page{table: table, offset: offset, limit: limit}
	m.setResult(r)
}

func (m *Model) setResult(r *database.QueryResult) {
	m.result = r
	m.err = nil
	m.cursor = 0
	m.scrollY = 0
	m.loading = false
	m.cells = make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		line := make([]string, len(r.Columns))
		for j, col := range r.Columns {
			line[j] = FormatValue(row[col])
		}
		m.cells[i] = line
	}
	m.calculateColumnWidths()
}

// SetError replaces the result with err.
func (m *Model) SetError(err error) {
	m.err = err
	m.result = nil
	m.cells = nil
	m.loading = false
}

// SelectedRow returns the row under the cursor.
func (m Model) SelectedRow() (database.Row, bool) {
	if m.result == nil || m.cursor < 0 || m.cursor >= len(m.result.Rows) {
		return nil, false
	}
	return m.result.Rows[m.cursor], true
}

func (m *Model) calculateColumnWidths() {
	if m.result == nil || len(m.result.Columns) == 0 {
		m.colWidths = nil
		return
	}

	m.colWidths = make([]int, len(m.result.Columns))
	for i, col := range m.result.Columns {
		m.colWidths[i] = lipgloss.Width(col)
	}
	for _, row := range m.cells {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > m.colWidths[i] {
				m.colWidths[i] = w
			}
		}
	}
	for i := range m.colWidths {
		m.colWidths[i] = min(max(m.colWidths[i], 1), maxColWidth)
	}
}

func (m Model) visibleRows() int {
	return max(1, m.height-4)
}

// Update handles key presses while the results pane has focus.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	rows := len(m.cells)
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < rows-1 {
			m.cursor++
		}
	case "pgup":
		m.cursor = max(0, m.cursor-m.visibleRows())
	case "pgdown":
		m.cursor = max(0, min(rows-1, m.cursor+m.visibleRows()))
	case "n":
		return m, m.nextPage()
	case "p":
		return m, m.prevPage()
	case "y":
		return m, m.copyRowJSON()
	case "c":
		return m, m.copyRowCSV()
	case "f":
		return m, m.filterByRow()
	case "e":
		return m, m.exportCSVCmd()
	}

	if m.cursor < m.scrollY {
		m.scrollY = m.cursor
	}
	if m.cursor >= m.scrollY+m.visibleRows() {
		m.scrollY = m.cursor - m.visibleRows() + 1
	}
	return m, nil
}

func (m Model) nextPage() tea.Cmd {
	if m.page == nil || m.result == nil {
		return nil
	}
	next := m.page.offset + m.page.limit
	if int64(next) >= m.result.Total {
		return notify("Last page")
	}
	p := PageMsg{Table: m.page.table, Offset: next, Limit: m.page.limit}
	return func() tea.Msg { return p }
}

func (m Model) prevPage() tea.Cmd {
	if m.page == nil {
		return nil
	}
	if m.page.offset == 0 {
		return notify("First page")
	}
	p := PageMsg{Table: m.page.table, Offset: max(0, m.page.offset-m.page.limit), Limit: m.page.limit}
	return func() tea.Msg { return p }
}

// View renders the results pane.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Results")

	switch {
	case m.loading:
		return title + "\n" + theme.StyleMuted.Render("  Loading...")
	case m.err != nil:
		return title + "\n" + theme.StyleError.Render("  Error: "+m.err.Error())
	case m.result == nil:
		return title + "\n" + theme.StyleMuted.Render("  Press s on a table or run a query")
	}

	header := title + "  " + theme.StyleMuted.Render(m.stats())
	if len(m.result.Columns) == 0 {
		return header + "\n" + theme.StyleMuted.Render("  No columns")
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.renderRow(m.result.Columns, true, false))
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())

	end := min(len(m.cells), m.scrollY+m.visibleRows())
	for i := m.scrollY; i < end; i++ {
		b.WriteString("\n")
		b.WriteString(m.renderRow(m.cells[i], false, i == m.cursor))
	}
	return b.String()
}

func (m Model) stats() string {
	d := m.result.Duration.Round(time.Microsecond)
	if m.page == nil {
		return fmt.Sprintf("%d row(s) | %s", m.result.RowCount, d)
	}
	if m.result.RowCount == 0 {
		return fmt.Sprintf("%s | 0 of %d | %s", m.page.table, m.result.Total, d)
	}
	return fmt.Sprintf("%s | %d-%d of %d | %s",
		m.page.table,
		m.page.offset+1,
		m.page.offset+m.result.RowCount,
		m.result.Total,
		d,
	)
}

func (m Model) renderRow(cells []string, isHeader, selected bool) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		width := 10
		if i < len(m.colWidths) {
			width = m.colWidths[i]
		}

		display := cell
		if lipgloss.Width(display) > width {
			runes := []rune(display)
			for len(runes) > 0 && lipgloss.Width(string(runes)) >= width {
				runes = runes[:len(runes)-1]
			}
			display = string(runes) + "…"
		}
		if pad := width - lipgloss.Width(display); pad > 0 {
			display += strings.Repeat(" ", pad)
		}

		if isHeader {
			display = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorPrimary).Render(display)
		}
		parts[i] = display
	}

	line := strings.Join(parts, " │ ")
	if selected && m.focused {
		return theme.StyleSelected.Render("> " + line)
	}
	return "  " + line
}

func (m Model) renderSeparator() string {
	parts := make([]string, len(m.colWidths))
	for i, w := range m.colWidths {
		parts[i] = strings.Repeat("─", w)
	}
	return "  " + lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Join(parts, "─┼─"))
}

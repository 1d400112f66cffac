package explorer

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/dashtools/internal/database"
	"github.com/joacominatel/dashtools/internal/tui/theme"
)

// RequestColumnsMsg asks the app to load the schema of Table.
type RequestColumnsMsg struct {
	Table string
}

// LoadDataMsg asks the app to load the first page of Table.
type LoadDataMsg struct {
	Table string
}

type tableNode struct {
	name     string
	columns  []database.Column
	loaded   bool
	expanded bool
}

// item is one visible line: a table, or a column of an expanded table.
type item struct {
	table  *tableNode
	column *database.Column
}

// Model lists the tables of the connected database.
type Model struct {
	tables  []*tableNode
	items   []item
	cursor  int
	width   int
	height  int
	focused bool
	loading bool
}

func New() Model {
	return Model{loading: true}
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

// SetTables replaces the table list. Expanded tables that still exist keep
// their state.
func (m *Model) SetTables(names []string) {
	prev := make(map[string]*tableNode, len(m.tables))
	for _, t := range m.tables {
		prev[t.name] = t
	}

	m.tables = make([]*tableNode, 0, len(names))
	for _, name := range names {
		if t, ok := prev[name]; ok {
			m.tables = append(m.tables, t)
			continue
		}
		m.tables = append(m.tables, &tableNode{name: name})
	}
	m.loading = false
	m.flatten()
}

// TableNames returns the listed table names in order.
func (m Model) TableNames() []string {
	names := make([]string, len(m.tables))
	for i, t := range m.tables {
		names[i] = t.name
	}
	return names
}

// SetColumns attaches schema columns to a table.
func (m *Model) SetColumns(table string, columns []database.Column) {
	for _, t := range m.tables {
		if t.name == table {
			t.columns = columns
			t.loaded = true
			break
		}
	}
	m.flatten()
}

// SelectedTable returns the table under the cursor, or the table owning the
// column under the cursor.
func (m Model) SelectedTable() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return "", false
	}
	return m.items[m.cursor].table.name, true
}

func (m *Model) flatten() {
	m.items = nil
	for _, t := range m.tables {
		m.items = append(m.items, item{table: t})
		if !t.expanded {
			continue
		}
		for i := range t.columns {
			m.items = append(m.items, item{table: t, column: &t.columns[i]})
		}
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

// Update handles key presses while the explorer has focus.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(0, len(m.items)-1)
	case "enter", "right", "l":
		return m, m.expand()
	case "left", "h":
		m.collapse()
	case "s":
		if table, ok := m.SelectedTable(); ok {
			return m, func() tea.Msg { return LoadDataMsg{Table: table} }
		}
	}
	return m, nil
}

func (m *Model) expand() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	it := m.items[m.cursor]
	if it.column != nil {
		return nil
	}

	t := it.table
	t.expanded = !t.expanded
	m.flatten()

	if t.expanded && !t.loaded {
		name := t.name
		return func() tea.Msg { return RequestColumnsMsg{Table: name} }
	}
	return nil
}

func (m *Model) collapse() {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return
	}
	t := m.items[m.cursor].table
	if !t.expanded {
		return
	}
	t.expanded = false
	m.flatten()
	for i, it := range m.items {
		if it.table == t && it.column == nil {
			m.cursor = i
			break
		}
	}
}

// View renders the explorer.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Tables")

	if m.loading {
		return title + "\n" + theme.StyleMuted.Render("  Loading...")
	}
	if len(m.items) == 0 {
		return title + "\n" + theme.StyleMuted.Render("  No tables")
	}

	visible := max(1, m.height-2)
	offset := 0
	if m.cursor >= visible {
		offset = m.cursor - visible + 1
	}

	lines := make([]string, 0, visible)
	for i := offset; i < len(m.items) && i < offset+visible; i++ {
		lines = append(lines, m.renderItem(m.items[i], i == m.cursor))
	}
	return title + "\n" + strings.Join(lines, "\n")
}

func (m Model) renderItem(it item, selected bool) string {
	var line string
	if it.column == nil {
		icon := "▶ "
		if it.table.expanded {
			icon = "▼ "
		}
		line = icon + it.table.name
	} else {
		col := it.column
		name := col.Name
		if col.IsPrimary {
			name = theme.StyleKey.Render("◆ ") + name
		} else {
			name = "  " + name
		}
		line = "  " + name + " " + theme.StyleMuted.Render(strings.ToLower(col.DataType))
	}

	if m.width > 4 && lipgloss.Width(line) > m.width-2 {
		runes := []rune(line)
		for len(runes) > 0 && lipgloss.Width(string(runes)) > m.width-4 {
			runes = runes[:len(runes)-1]
		}
		line = string(runes) + ".."
	}

	if selected && m.focused {
		return theme.StyleSelected.Render(line)
	}
	return line
}

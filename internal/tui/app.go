// Package tui is a terminal browser over the application service.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/dashtools/internal/app"
	"github.com/joacominatel/dashtools/internal/database"
	"github.com/joacominatel/dashtools/internal/tui/editor"
	"github.com/joacominatel/dashtools/internal/tui/explorer"
	"github.com/joacominatel/dashtools/internal/tui/results"
	"github.com/joacominatel/dashtools/internal/tui/statusbar"
	"github.com/joacominatel/dashtools/internal/tui/theme"
)

// Pane identifies a focusable area.
type Pane int

const (
	PaneExplorer Pane = iota
	PaneEditor
	PaneResults
)

func (p Pane) String() string {
	switch p {
	case PaneExplorer:
		return "explorer"
	case PaneEditor:
		return "editor"
	case PaneResults:
		return "results"
	default:
		return "unknown"
	}
}

type (
	tablesLoadedMsg struct {
		tables []string
		err    error
	}
	columnsLoadedMsg struct {
		table   string
		columns []database.Column
		err     error
	}
	pageLoadedMsg struct {
		table  string
		offset int
		limit  int
		result *database.QueryResult
		err    error
	}
	queryExecutedMsg struct {
		result *database.QueryResult
		err    error
	}
)

// Model is the top-level bubbletea model.
type Model struct {
	service    *app.Service
	explorer   explorer.Model
	editor     editor.Model
	results    results.Model
	statusbar  statusbar.Model
	activePane Pane
	width      int
	height     int
	showHelp   bool
}

// NewModel creates the top-level model for a connected service.
func NewModel(service *app.Service) Model {
	m := Model{
		service:   service,
		explorer:  explorer.New(),
		editor:    editor.New(),
		results:   results.New(),
		statusbar: statusbar.New(service.Backend().String(), service.DatabaseName()),
	}
	m.setFocus(PaneExplorer)
	return m
}

func (m Model) Init() tea.Cmd {
	return m.loadTablesCmd()
}

// Update routes messages to the focused pane and runs service calls.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tablesLoadedMsg:
		if msg.err != nil {
			m.explorer.SetLoading(false)
			m.statusbar.SetHealthy(false)
			m.statusbar.SetError("Failed to load tables: " + msg.err.Error())
			return m, nil
		}
		m.statusbar.SetHealthy(true)
		m.explorer.SetTables(msg.tables)
		m.editor.SetTableNames(msg.tables)
		return m, nil

	case columnsLoadedMsg:
		if msg.err != nil {
			m.statusbar.SetError("Failed to load columns: " + msg.err.Error())
			return m, nil
		}
		m.explorer.SetColumns(msg.table, msg.columns)
		return m, nil

	case pageLoadedMsg:
		if msg.err != nil {
			m.results.SetError(msg.err)
			m.statusbar.SetMessage("")
			return m, nil
		}
		m.results.SetPage(msg.table, msg.offset, msg.limit, msg.result)
		m.statusbar.SetMessage("")
		return m, nil

	case queryExecutedMsg:
		if msg.err != nil {
			m.results.SetError(msg.err)
			m.statusbar.SetMessage("")
			return m, nil
		}
		m.results.SetResult(msg.result)
		m.statusbar.SetMessage("")
		return m, nil

	case explorer.RequestColumnsMsg:
		return m, m.loadColumnsCmd(msg.Table)

	case explorer.LoadDataMsg:
		m.results.SetLoading(true)
		m.statusbar.SetMessage("Loading " + msg.Table + "...")
		return m, m.loadPageCmd(msg.Table, 0, app.DefaultPageSize)

	case results.PageMsg:
		m.results.SetLoading(true)
		return m, m.loadPageCmd(msg.Table, msg.Offset, msg.Limit)

	case results.SetEditorQueryMsg:
		m.editor.SetQuery(msg.Query)
		m.setFocus(PaneEditor)
		return m, nil

	case results.StatusNotifyMsg:
		m.statusbar.SetMessage(msg.Message)
		return m, nil

	case editor.ExecuteQueryMsg:
		m.results.SetLoading(true)
		m.statusbar.SetMessage("Executing query...")
		return m, m.executeQueryCmd(msg.Query)
	}

	return m.updateActive(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch msg.String() {
	case "?":
		if m.activePane != PaneEditor {
			m.showHelp = true
			return m, nil
		}
	case "q":
		if m.activePane != PaneEditor {
			return m, tea.Quit
		}
	case "r":
		if m.activePane == PaneExplorer {
			m.explorer.SetLoading(true)
			return m, m.loadTablesCmd()
		}
	case "tab":
		if m.activePane == PaneEditor && m.editor.CompletionActive() {
			break
		}
		if m.activePane == PaneEditor && len(editor.Completions(m.editor.Value(), m.explorer.TableNames())) > 0 {
			break
		}
		m.setFocus((m.activePane + 1) % 3)
		return m, nil
	case "shift+tab":
		m.setFocus((m.activePane + 2) % 3)
		return m, nil
	}

	return m.updateActive(msg)
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.activePane {
	case PaneExplorer:
		m.explorer, cmd = m.explorer.Update(msg)
	case PaneEditor:
		m.editor, cmd = m.editor.Update(msg)
	case PaneResults:
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(pane Pane) {
	m.activePane = pane
	m.explorer.SetFocused(pane == PaneExplorer)
	m.editor.SetFocused(pane == PaneEditor)
	m.results.SetFocused(pane == PaneResults)
	m.statusbar.SetActivePane(pane.String())
}

type dims struct {
	explorerWidth int
	rightWidth    int
	bodyHeight    int
	editorHeight  int
	resultsHeight int
}

func (m Model) dims() dims {
	var d dims
	d.explorerWidth = min(max(m.width/4, 22), 35)
	d.rightWidth = max(m.width-d.explorerWidth-1, 10)
	d.bodyHeight = max(m.height-3, 6)
	d.editorHeight = max(d.bodyHeight*35/100, 5)
	d.resultsHeight = max(d.bodyHeight-d.editorHeight-2, 3)
	return d
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	d := m.dims()
	m.explorer.SetSize(d.explorerWidth, d.bodyHeight)
	m.editor.SetSize(d.rightWidth, d.editorHeight)
	m.results.SetSize(d.rightWidth, d.resultsHeight)
	m.statusbar.SetWidth(m.width)
}

func (m Model) border(p Pane) lipgloss.Style {
	if m.activePane == p {
		return theme.StyleActiveBorder
	}
	return theme.StyleBorder
}

// Async commands

func (m Model) loadTablesCmd() tea.Cmd {
	service := m.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		tables, err := service.ListTables(ctx)
		return tablesLoadedMsg{tables: tables, err: err}
	}
}

func (m Model) loadColumnsCmd(table string) tea.Cmd {
	service := m.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		columns, err := service.TableSchema(ctx, table)
		return columnsLoadedMsg{table: table, columns: columns, err: err}
	}
}

func (m Model) loadPageCmd(table string, offset, limit int) tea.Cmd {
	service := m.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		result, err := service.TableData(ctx, table, limit, offset)
		return pageLoadedMsg{table: table, offset: offset, limit: limit, result: result, err: err}
	}
}

func (m Model) executeQueryCmd(query string) tea.Cmd {
	service := m.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		result, err := service.ExecuteQuery(ctx, query)
		return queryExecutedMsg{result: result, err: err}
	}
}

// View renders the whole screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.viewHelp()
	}

	d := m.dims()
	explorerView := m.border(PaneExplorer).
		Width(d.explorerWidth - 2).
		Height(d.bodyHeight).
		Render(m.explorer.View())
	editorView := m.border(PaneEditor).
		Width(d.rightWidth - 2).
		Height(d.editorHeight).
		Render(m.editor.View())
	resultsView := m.border(PaneResults).
		Width(d.rightWidth - 2).
		Height(d.resultsHeight).
		Render(m.results.View())

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		explorerView,
		lipgloss.JoinVertical(lipgloss.Left, editorView, resultsView),
	)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusbar.View())
}

func (m Model) viewHelp() string {
	section := lipgloss.NewStyle().Foreground(theme.ColorHighlight).Bold(true)
	key := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Width(16)
	line := func(k, desc string) string {
		return key.Render("  "+k) + theme.StyleMuted.Render(desc)
	}

	help := lipgloss.JoinVertical(lipgloss.Left,
		theme.StyleTitle.Render("dashtools - Keyboard Shortcuts"),
		"",
		section.Render("Global"),
		line("q / Ctrl+C", "Quit"),
		line("Tab", "Next pane"),
		line("Shift+Tab", "Previous pane"),
		line("?", "Toggle this help"),
		"",
		section.Render("Tables"),
		line("↑/k ↓/j", "Move"),
		line("Enter/→/l", "Show columns"),
		line("←/h", "Hide columns"),
		line("s", "Load table data"),
		line("r", "Reload tables"),
		"",
		section.Render("Query"),
		line("Ctrl+E / F5", "Run SELECT"),
		line("Ctrl+K", "Clear"),
		line("Ctrl+L", "Uppercase keywords"),
		line("Ctrl+P / Ctrl+N", "Previous / next query"),
		line("Tab", "Complete table name"),
		"",
		section.Render("Results"),
		line("↑/k ↓/j", "Select row"),
		line("n / p", "Next / previous page"),
		line("y", "Copy row as JSON"),
		line("c", "Copy row as CSV"),
		line("f", "Filter table by row"),
		line("e", "Export CSV"),
		"",
		theme.StyleMuted.Render("Press any key to close"),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, help)
}

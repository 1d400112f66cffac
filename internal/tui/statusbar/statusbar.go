package statusbar

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/dashtools/internal/tui/theme"
)

const hints = "s: Data │ Ctrl+E: Run │ Tab: Pane │ ?: Help │ q: Quit"

// Model is the status bar component.
type Model struct {
	width      int
	backend    string
	database   string
	healthy    bool
	activePane string
	message    string
	isError    bool
}

// New creates a status bar for the given backend and database.
func New(backend, database string) Model {
	return Model{
		backend:    backend,
		database:   database,
		healthy:    true,
		activePane: "explorer",
	}
}

func (m *Model) SetWidth(w int) {
	m.width = w
}

// SetHealthy switches the connection indicator.
func (m *Model) SetHealthy(ok bool) {
	m.healthy = ok
}

func (m *Model) SetActivePane(pane string) {
	m.activePane = pane
}

// SetMessage shows msg in place of the key hints until cleared.
func (m *Model) SetMessage(msg string) {
	m.message = msg
	m.isError = false
}

// SetError shows msg styled as an error.
func (m *Model) SetError(msg string) {
	m.message = msg
	m.isError = true
}

// View renders the status bar.
func (m Model) View() string {
	dot := lipgloss.NewStyle().Foreground(theme.ColorSuccess).Render("●")
	if !m.healthy {
		dot = lipgloss.NewStyle().Foreground(theme.ColorError).Render("●")
	}
	left := dot + " " + m.backend + ":" + m.database + " " +
		theme.StyleMuted.Render("["+m.activePane+"]")

	right := hints
	if m.message != "" {
		right = m.message
		if m.isError {
			right = theme.StyleError.Render(m.message)
		}
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if padding < 1 {
		padding = 1
	}

	return theme.StyleStatusBar.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

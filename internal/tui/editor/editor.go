package editor

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/dashtools/internal/tui/theme"
)

const historySize = 50

// ExecuteQueryMsg is sent when the user runs the editor content.
type ExecuteQueryMsg struct {
	Query string
}

var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true,
	"join": true, "inner": true, "outer": true, "left": true, "right": true,
	"cross": true, "on": true, "using": true, "not": true, "in": true,
	"is": true, "null": true, "like": true, "ilike": true, "glob": true,
	"order": true, "by": true, "group": true, "having": true,
	"limit": true, "offset": true, "as": true, "distinct": true,
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"between": true, "exists": true, "case": true, "when": true,
	"then": true, "else": true, "end": true, "with": true, "recursive": true,
	"union": true, "intersect": true, "except": true, "all": true,
	"asc": true, "desc": true, "nulls": true, "first": true, "last": true,
	"cast": true, "coalesce": true, "true": true, "false": true,
}

// tableContext lists keywords after which a table name is expected.
var tableContext = map[string]bool{
	"from": true, "join": true,
}

// Model is the read-only query editor.
type Model struct {
	textarea textarea.Model
	focused  bool

	tableNames  []string
	completions []string
	compIndex   int

	history []string
	histPos int
}

func New() Model {
	ta := textarea.New()
	ta.Placeholder = "SELECT * FROM ..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Prompt = "│ "
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = theme.StyleMuted
	ta.BlurredStyle.Placeholder = theme.StyleMuted
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorPrimary)
	ta.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorBorder)

	return Model{textarea: ta}
}

func (m *Model) SetSize(w, h int) {
	m.textarea.SetWidth(max(1, w-2))
	m.textarea.SetHeight(max(1, h-2))
}

func (m *Model) SetFocused(f bool) {
	m.focused = f
	if f {
		m.textarea.Focus()
	} else {
		m.textarea.Blur()
	}
}

// CompletionActive reports whether Tab is cycling completion candidates.
func (m Model) CompletionActive() bool {
	return len(m.completions) > 0
}

func (m Model) Value() string {
	return m.textarea.Value()
}

// SetQuery replaces the editor content.
func (m *Model) SetQuery(query string) {
	m.textarea.SetValue(query)
	m.cancelCompletion()
}

// SetTableNames sets the candidates for table completion.
func (m *Model) SetTableNames(names []string) {
	m.tableNames = names
}

// Update handles key presses while the editor has focus.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+e", "f5":
			query := strings.TrimSpace(m.textarea.Value())
			if query == "" {
				return m, nil
			}
			m.cancelCompletion()
			m.remember(query)
			return m, func() tea.Msg { return ExecuteQueryMsg{Query: query} }
		case "ctrl+k":
			m.textarea.Reset()
			m.cancelCompletion()
			return m, nil
		case "ctrl+l":
			m.textarea.SetValue(FormatKeywords(m.textarea.Value()))
			return m, nil
		case "ctrl+p":
			m.recall(-1)
			return m, nil
		case "ctrl+n":
			m.recall(1)
			return m, nil
		case "tab":
			if m.complete() {
				return m, nil
			}
		case "esc":
			if m.CompletionActive() {
				m.cancelCompletion()
				return m, nil
			}
		default:
			m.cancelCompletion()
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *Model) remember(query string) {
	if n := len(m.history); n == 0 || m.history[n-1] != query {
		m.history = append(m.history, query)
		if len(m.history) > historySize {
			m.history = m.history[len(m.history)-historySize:]
		}
	}
	m.histPos = len(m.history)
}

// recall moves through executed queries; moving past the newest clears the
// editor.
func (m *Model) recall(delta int) {
	if len(m.history) == 0 {
		return
	}
	m.histPos = min(max(m.histPos+delta, 0), len(m.history))
	if m.histPos == len(m.history) {
		m.textarea.Reset()
		return
	}
	m.textarea.SetValue(m.history[m.histPos])
}

// FormatKeywords uppercases SQL keywords outside quoted text.
func FormatKeywords(s string) string {
	var (
		out   strings.Builder
		word  strings.Builder
		quote rune
	)
	flush := func() {
		w := word.String()
		if sqlKeywords[strings.ToLower(w)] {
			w = strings.ToUpper(w)
		}
		out.WriteString(w)
		word.Reset()
	}

	for _, ch := range s {
		switch {
		case quote != 0:
			out.WriteRune(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			flush()
			quote = ch
			out.WriteRune(ch)
		case unicode.IsLetter(ch) || ch == '_' || (word.Len() > 0 && unicode.IsDigit(ch)):
			word.WriteRune(ch)
		default:
			flush()
			out.WriteRune(ch)
		}
	}
	flush()
	return out.String()
}

// complete starts or advances table name completion for the word before
// the cursor. It reports whether the key was consumed.
func (m *Model) complete() bool {
	val := m.textarea.Value()

	if len(m.completions) > 0 {
		prev := m.completions[m.compIndex]
		m.compIndex = (m.compIndex + 1) % len(m.completions)
		m.textarea.SetValue(strings.TrimSuffix(val, prev) + m.completions[m.compIndex])
		return true
	}

	matches := Completions(val, m.tableNames)
	if len(matches) == 0 {
		return false
	}
	m.completions = matches
	m.compIndex = 0
	m.textarea.SetValue(strings.TrimSuffix(val, lastWord(val)) + matches[0])
	return true
}

func (m *Model) cancelCompletion() {
	m.completions = nil
	m.compIndex = 0
}

// Completions returns the table names matching the partial word at the end
// of text, when that word follows FROM or JOIN.
func Completions(text string, tables []string) []string {
	partial := lastWord(text)
	if partial == "" {
		return nil
	}
	fields := strings.Fields(strings.TrimSuffix(text, partial))
	if len(fields) == 0 || !tableContext[strings.ToLower(fields[len(fields)-1])] {
		return nil
	}

	lower := strings.ToLower(partial)
	var matches []string
	for _, name := range tables {
		if strings.HasPrefix(strings.ToLower(name), lower) {
			matches = append(matches, name)
		}
	}
	return matches
}

func lastWord(s string) string {
	i := len(s)
	for i > 0 && isIdentByte(s[i-1]) {
		i--
	}
	return s[i:]
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// View renders the editor.
func (m Model) View() string {
	view := theme.StyleTitle.Render("Query") + "\n" + m.textarea.View()
	if len(m.completions) < 2 {
		return view
	}

	hint := make([]string, len(m.completions))
	for i, c := range m.completions {
		if i == m.compIndex {
			hint[i] = theme.StyleSelected.Render(c)
		} else {
			hint[i] = theme.StyleMuted.Render(c)
		}
	}
	return view + "\n " + theme.StyleMuted.Render("Tab: ") + strings.Join(hint, " │ ")
}

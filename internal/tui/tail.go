package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/apx-dev/apx/internal/logs"
)

// maxTailLines bounds the in-memory scrollback of the tail view.
const maxTailLines = 2000

var (
	prefixStyles = map[string]lipgloss.Style{
		"frontend": lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),  // cyan
		"backend":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),  // green
		"openapi":  lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),  // magenta
	}

	prefixLabels = map[string]string{
		"frontend": "[ui]",
		"backend":  "[be]",
		"openapi":  "[api]",
	}

	levelWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	levelErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	footerStyle     = lipgloss.NewStyle().Faint(true)
)

// entryMsg carries one streamed log entry into the model.
type entryMsg logs.Entry

// streamClosedMsg signals that the log stream ended.
type streamClosedMsg struct{}

// TailModel is the bubbletea model for the live log view.
type TailModel struct {
	entries <-chan logs.Entry
	lines   []string
	spin    spinner.Model
	width   int
	height  int
	closed  bool
}

// NewTailModel creates a tail view fed by entries.
func NewTailModel(entries <-chan logs.Entry) TailModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return TailModel{
		entries: entries,
		spin:    s,
	}
}

// Init starts the spinner and the first channel read.
func (m TailModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitForEntry())
}

// waitForEntry reads one entry off the stream.
func (m TailModel) waitForEntry() tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-m.entries
		if !ok {
			return streamClosedMsg{}
		}
		return entryMsg(entry)
	}
}

// Update handles key presses, window sizing and streamed entries.
func (m TailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case entryMsg:
		m.lines = append(m.lines, m.render(logs.Entry(msg)))
		if len(m.lines) > maxTailLines {
			m.lines = m.lines[len(m.lines)-maxTailLines:]
		}
		return m, m.waitForEntry()

	case streamClosedMsg:
		m.closed = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the visible tail of the stream plus a footer.
func (m TailModel) View() string {
	if m.closed {
		return ""
	}

	visible := m.lines
	if m.height > 2 && len(visible) > m.height-2 {
		visible = visible[len(visible)-(m.height-2):]
	}

	var b strings.Builder
	for _, line := range visible {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("%s following logs — q to quit", m.spin.View())))
	return b.String()
}

// render formats one entry with its process prefix and level color.
func (m TailModel) render(e logs.Entry) string {
	label, ok := prefixLabels[e.Process]
	if !ok {
		label = "[" + e.Process + "]"
	}
	prefix := label
	if style, ok := prefixStyles[e.Process]; ok {
		prefix = style.Render(label)
	}

	msg := e.Message
	switch strings.ToUpper(e.Level) {
	case "WARN":
		msg = levelWarnStyle.Render(msg)
	case "ERROR":
		msg = levelErrorStyle.Render(msg)
	}

	if e.Time.IsZero() {
		return fmt.Sprintf("%s %s", prefix, msg)
	}
	return fmt.Sprintf("%s %s %s", prefix, footerStyle.Render(e.Time.Format("15:04:05")), msg)
}

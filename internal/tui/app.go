package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	opTagStyle = lipgloss.NewStyle().
			Foreground(cyanColor)

	scheduledTagStyle = lipgloss.NewStyle().
				Foreground(successColor).
				Bold(true)
)

// App is the live session monitor's bubbletea model.
type App struct {
	client    *Client
	sessionID string

	status *SessionStatus
	online bool
	err    string

	trace  viewport.Model
	width  int
	height int
}

// New builds a monitor for sessionID, polling the daemon at addr.
func New(addr, sessionID string) *App {
	return &App{
		client:    NewClient(addr),
		sessionID: sessionID,
		trace:     viewport.New(80, 10),
	}
}

// Run starts the monitor's event loop.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.fetchStatus(), a.tickCmd())
}

type statusLoadedMsg struct {
	status *SessionStatus
}

type errMsg struct {
	err error
}

type tickMsg time.Time

func (a *App) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		status, err := a.client.GetSessionStatus(a.sessionID)
		if err != nil {
			return errMsg{err}
		}
		return statusLoadedMsg{status}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(1*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "r":
			return a, a.fetchStatus()
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.trace.Width = msg.Width - 4
		a.trace.Height = msg.Height - 10

	case statusLoadedMsg:
		a.online = true
		a.err = ""
		a.status = msg.status
		a.trace.SetContent(formatTrace(msg.status.Trace, a.trace.Width))

	case errMsg:
		a.online = false
		a.err = msg.err.Error()

	case tickMsg:
		return a, tea.Batch(a.fetchStatus(), a.tickCmd())
	}

	var cmd tea.Cmd
	a.trace, cmd = a.trace.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	daemonStatus := lipgloss.NewStyle().Foreground(successColor).Render("● DAEMON")
	if !a.online {
		daemonStatus = lipgloss.NewStyle().Foreground(errorColor).Render("○ DAEMON")
	}
	b.WriteString(titleStyle.Render("interleaved session monitor") + "  " + daemonStatus + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 1)) + "\n")

	if a.err != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(errorColor).Render("error: "+a.err) + "\n")
	}

	if a.status == nil {
		b.WriteString("\n  waiting for first status poll...\n")
	} else {
		b.WriteString(a.renderStatus())
	}

	b.WriteString("\n" + panelStyle.Render(a.trace.View()) + "\n")
	b.WriteString(statusBarStyle.Width(max(a.width, 1)).Render(" r:refresh | q:quit"))

	return b.String()
}

func (a *App) renderStatus() string {
	var b strings.Builder
	s := a.status

	attached := lipgloss.NewStyle().Foreground(warningColor).Render("detached")
	if s.Attached {
		attached = lipgloss.NewStyle().Foreground(successColor).Render("attached")
	}
	if s.Disabled {
		attached = lipgloss.NewStyle().Foreground(errorColor).Render("disabled")
	}

	b.WriteString(fmt.Sprintf("  session:   %s\n", s.SchedulerID))
	b.WriteString(fmt.Sprintf("  state:     %s | iteration %d\n", attached, s.Iteration))
	b.WriteString(fmt.Sprintf("  main op:   %s\n", opTagStyle.Render(s.MainOperationID)))
	b.WriteString(fmt.Sprintf("  scheduled: %s\n", scheduledTagStyle.Render(s.ScheduledOpID)))
	b.WriteString(fmt.Sprintf("  enabled:   %d operation(s)\n", len(s.EnabledOpIDs)))
	for _, id := range s.EnabledOpIDs {
		b.WriteString("    " + opTagStyle.Render(id) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("schedule trace:") + "\n")
	return b.String()
}

func formatTrace(csv string, width int) string {
	if csv == "" {
		return "(no decisions recorded yet)"
	}
	tokens := strings.Split(csv, ",")
	if width < 4 {
		width = 40
	}
	perLine := width / 6
	if perLine < 1 {
		perLine = 1
	}
	var lines []string
	for i := 0; i < len(tokens); i += perLine {
		end := i + perLine
		if end > len(tokens) {
			end = len(tokens)
		}
		lines = append(lines, strings.Join(tokens[i:end], ", "))
	}
	return strings.Join(lines, "\n")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

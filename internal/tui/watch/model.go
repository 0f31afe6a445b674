package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TimDavid1111/daily-automation/internal/runlog"
)

const (
	healthPollInterval = 5 * time.Second
	runsPollInterval   = 3 * time.Second
	runsFetchLimit     = 30
)

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	baseURL string

	width  int
	height int

	// State
	health    healthMsg
	connected bool
	lastCheck time.Time
	runs      []runlog.Record

	// UI state
	theme   Theme
	spinner spinner.Model

	// Error display
	lastError string
}

// New creates a new watch TUI model polling the given service base URL.
func New(baseURL string) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		theme:   NewDefaultTheme(),
		spinner: sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg { return fetchHealth(m.baseURL) },
		func() tea.Msg { return fetchRuns(m.baseURL, runsFetchLimit) },
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, tea.Batch(
				func() tea.Msg { return fetchHealth(m.baseURL) },
				func() tea.Msg { return fetchRuns(m.baseURL, runsFetchLimit) },
			)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case healthMsg:
		m.health = msg
		m.connected = true
		m.lastCheck = time.Now()
		m.lastError = ""
		return m, tea.Tick(healthPollInterval, func(t time.Time) tea.Msg {
			return fetchHealth(m.baseURL)
		})

	case runsMsg:
		m.runs = msg
		return m, tea.Tick(runsPollInterval, func(t time.Time) tea.Msg {
			return fetchRuns(m.baseURL, runsFetchLimit)
		})

	case errMsg:
		m.connected = false
		m.lastError = msg.Error()
		// Retry both polls after a short delay.
		return m, tea.Tick(healthPollInterval, func(t time.Time) tea.Msg {
			return fetchHealth(m.baseURL)
		})

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Connecting..."
	}

	header := m.renderHeader()
	runs := m.renderRuns()

	var errBar string
	if m.lastError != "" {
		errBar = m.theme.OutcomeFailed.Render(fmt.Sprintf(" ⚠ %s", m.lastError))
	}

	help := m.theme.Dim.Render(" [q] Quit • [r] Refresh")

	parts := []string{header, runs}
	if errBar != "" {
		parts = append(parts, errBar)
	}
	parts = append(parts, help)

	return lipgloss.NewStyle().Margin(1, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
}

// renderHeader shows connection status and which credentials are configured.
func (m Model) renderHeader() string {
	var status string
	if m.connected {
		status = m.theme.ConfigOK.Render("● " + m.health.Status)
	} else {
		status = m.theme.ConfigMissing.Render("● offline") + " " + m.spinner.View()
	}

	flags := strings.Join([]string{
		m.renderFlag("notion", m.health.NotionConfigured),
		m.renderFlag("claude", m.health.ClaudeConfigured),
		m.renderFlag("secret", m.health.WebhookSecretConfigured),
		m.renderFlag("parent", m.health.ParentPageConfigured),
		m.renderFlag("database", m.health.DatabaseConfigured),
	}, "  ")

	title := m.theme.Title.Render("daily-automation") + m.theme.Dim.Render(" "+m.baseURL)
	line := fmt.Sprintf("%s  %s\n%s", title, status, flags)

	return m.theme.Border.Width(m.width - 6).Padding(0, 1).Render(line)
}

func (m Model) renderFlag(name string, ok bool) string {
	if ok {
		return m.theme.ConfigOK.Render("✓ " + name)
	}
	return m.theme.ConfigMissing.Render("✗ " + name)
}

// renderRuns shows recent pipeline runs, newest first.
func (m Model) renderRuns() string {
	var b strings.Builder
	b.WriteString(m.theme.Header.Render(fmt.Sprintf("%-8s  %-26s  %-12s  %-10s  %s",
		"TIME", "EVENT", "OUTCOME", "DURATION", "DETAIL")))
	b.WriteString("\n")

	if len(m.runs) == 0 {
		b.WriteString(m.theme.Dim.Render("  no runs yet"))
	}

	maxRows := m.height - 10
	if maxRows < 1 {
		maxRows = 1
	}
	for i, r := range m.runs {
		if i >= maxRows {
			break
		}
		detail := r.PageURL
		if r.Error != "" {
			detail = r.Error
		}
		// Outcome is padded before styling; ANSI codes break %-12s.
		row := fmt.Sprintf("%-8s  %-26s  %s  %-10s  %s",
			r.StartedAt.Local().Format("15:04:05"),
			truncate(r.EventType, 26),
			m.theme.outcomeStyle(r.Outcome).Render(fmt.Sprintf("%-12s", r.Outcome)),
			fmt.Sprintf("%dms", r.DurationMS),
			truncate(detail, 48),
		)
		b.WriteString(row)
		b.WriteString("\n")
	}

	return m.theme.Border.Width(m.width - 6).Padding(0, 1).Render(b.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

// Package statsui provides the Bubble Tea run history browser.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/cuetask/internal/model"
	"github.com/verte-zerg/cuetask/internal/stats"
	"github.com/verte-zerg/cuetask/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	store  *store.Store
	filter model.RunFilter
	window int

	runs   []model.RunAggregate
	errMsg string

	runTable table.Model
	detail   viewport.Model
	report   *stats.Report

	width  int
	height int
}

// NewModel constructs a stats UI model and loads the run list.
func NewModel(st *store.Store, filter model.RunFilter, window int) *Model {
	if window < 1 {
		window = 1
	}
	m := &Model{
		store:  st,
		filter: filter,
		window: window,
		detail: viewport.New(0, 0),
	}
	m.runTable = table.New(
		table.WithColumns(runColumns()),
		table.WithFocused(true),
		table.WithHeight(1),
	)
	m.runTable.SetStyles(runTableStyles())
	m.refreshRuns()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderDetail()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		if m.report != nil {
			return m.updateDetail(msg)
		}
		switch msg.String() {
		case "enter":
			m.openSelected()
			return m, tea.ClearScreen
		case "r":
			m.refreshRuns()
			return m, nil
		case "g", "home":
			m.runTable.GotoTop()
			return m, nil
		case "G", "end":
			m.runTable.GotoBottom()
			return m, nil
		default:
			var cmd tea.Cmd
			m.runTable, cmd = m.runTable.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		m.report = nil
		return m, tea.ClearScreen
	case "=":
		m.window = nextCurveWindow(m.window)
		m.renderDetail()
		return m, nil
	case "-":
		m.window = prevCurveWindow(m.window)
		m.renderDetail()
		return m, nil
	case "g", "home":
		m.detail.GotoTop()
		return m, nil
	case "G", "end":
		m.detail.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(titleStyle.Render("X")) + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.detail.Width = m.width
	m.detail.Height = bodyHeight
	m.runTable.SetWidth(m.width)
	m.runTable.SetHeight(maxInt(1, bodyHeight-1))
}

func (m *Model) refreshRuns() {
	runs, err := m.store.ListRuns(context.Background(), m.filter)
	if err != nil {
		m.errMsg = err.Error()
		m.runs = nil
		m.runTable.SetRows(nil)
		return
	}
	m.errMsg = ""
	m.runs = runs
	m.runTable.SetRows(buildRunRows(runs))
}

func (m *Model) openSelected() {
	if len(m.runs) == 0 {
		return
	}
	idx := m.runTable.Cursor()
	if idx < 0 || idx >= len(m.runs) {
		return
	}
	report, err := stats.BuildReport(context.Background(), m.store, m.runs[idx].ID)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.report = &report
	m.renderDetail()
	m.detail.GotoTop()
}

func (m *Model) renderDetail() {
	if m.report == nil {
		return
	}
	var buf bytes.Buffer
	if err := m.report.Render(&buf, m.window); err != nil {
		m.detail.SetContent(fmt.Sprintf("Failed to render run: %v", err))
		return
	}
	m.detail.SetContent(strings.TrimRight(buf.String(), "\n"))
}

func (m *Model) renderHeader() string {
	title := "Runs"
	if m.report != nil {
		title = fmt.Sprintf("Run %s", shortID(m.report.Run.ID))
	}
	return padLines(titleStyle.Render(title), m.width) + "\n" + m.renderFilterSummary()
}

func (m *Model) renderFilterSummary() string {
	if m.report != nil {
		run := m.report.Run
		line := fmt.Sprintf("Participant: %s  started=%s  status=%s  window=%d",
			run.ParticipantID, run.StartedAt.Local().Format("2006-01-02 15:04"), run.Status, m.window)
		return headerStyle.Render(truncateLine(line, m.width))
	}
	participant := m.filter.ParticipantID
	if participant == "" {
		participant = "any"
	}
	since := "any"
	if m.filter.Since != nil {
		since = m.filter.Since.Format("2006-01-02")
	}
	last := "all"
	if m.filter.Last > 0 {
		last = strconv.Itoa(m.filter.Last)
	}
	summary := fmt.Sprintf("Filters: participant=%s  since=%s  last=%s", participant, since, last)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderBody() string {
	if m.report != nil {
		return m.detail.View()
	}
	if len(m.runs) == 0 {
		return "No runs found."
	}
	return tableMutedStyle.Render(m.runTable.View())
}

func (m *Model) renderFooter() string {
	help := "Scroll: up/down  Open: enter  Reload: r  Quit: q"
	if m.report != nil {
		help = "Scroll: up/down/pgup/pgdn  Window: -/=  Back: esc  Quit: q"
	}
	footer := headerStyle.Render(help)
	if m.errMsg != "" {
		footer += "\n" + errorStyle.Render(m.errMsg)
	}
	return footer
}

func runColumns() []table.Column {
	return []table.Column{
		{Title: "Started", Width: 16},
		{Title: "Participant", Width: 12},
		{Title: "Status", Width: 9},
		{Title: "Trials", Width: 6},
		{Title: "Accuracy", Width: 9},
		{Title: "Mean RT (ms)", Width: 12},
		{Title: "Run", Width: 8},
	}
}

func buildRunRows(runs []model.RunAggregate) []table.Row {
	rows := make([]table.Row, 0, len(runs))
	for _, run := range runs {
		acc := 0.0
		if run.Trials > 0 {
			acc = float64(run.Correct) / float64(run.Trials) * 100
		}
		rows = append(rows, table.Row{
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.ParticipantID,
			string(run.Status),
			strconv.Itoa(run.Trials),
			fmt.Sprintf("%.2f%%", acc),
			fmt.Sprintf("%.1f", run.MeanRTSec*1000),
			shortID(run.ID),
		})
	}
	return rows
}

func runTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

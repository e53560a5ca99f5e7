// Package tui provides the Bubble Tea presentation layer of the experiment.
package tui

import (
	"strings"
	"time"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/cuetask/internal/experiment"
	"github.com/verte-zerg/cuetask/internal/model"
)

// maxFPS is the highest tick rate used when measuring the frame rate.
const maxFPS = 120

type frameMsg struct {
	frame experiment.Frame
	ack   chan struct{}
}

type awaitMsg struct {
	keys  []string
	reply chan string
}

type calibrateMsg struct {
	window time.Duration
	reply  chan float64
}

type calibTickMsg time.Time

type calibration struct {
	start  time.Time
	window time.Duration
	ticks  int
	reply  chan float64
}

type frameStyles struct {
	fixation    lipgloss.Style
	stimulus    lipgloss.Style
	congruent   lipgloss.Style
	incongruent lipgloss.Style
	feedback    lipgloss.Style
	background  lipgloss.Color
}

func newFrameStyles(cfg model.Config) frameStyles {
	bg := lipgloss.Color(cfg.BackgroundColor)
	ring := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder(), true).
		Background(lipgloss.Color(cfg.CueFillColor)).
		Width(cfg.CueRadius * 4).
		Height(cfg.CueRadius * 2)
	return frameStyles{
		fixation:    lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.FixationColor)).Background(bg).Bold(true),
		stimulus:    lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.StimulusColor)).Background(bg).Bold(true),
		congruent:   ring.BorderForeground(lipgloss.Color(cfg.CueCongruentColor)),
		incongruent: ring.BorderForeground(lipgloss.Color(cfg.CueIncongruentColor)),
		feedback:    lipgloss.NewStyle().Foreground(lipgloss.Color(cfg.StimulusColor)).Background(bg).Bold(true),
		background:  bg,
	}
}

// Model implements the Bubble Tea experiment screen.
type Model struct {
	cfg      model.Config
	styles   frameStyles
	render   func(text string, width int) (string, error)
	onCancel func()
	size     *sizeBox
	now      func() time.Time

	width  int
	height int

	frame    experiment.Frame
	rendered string

	awaiting []string
	reply    chan string

	calib *calibration
}

// NewModel constructs the experiment screen. onCancel is called when the
// cancel key is pressed while no key wait accepts it.
func NewModel(cfg model.Config, onCancel func()) *Model {
	if onCancel == nil {
		onCancel = func() {}
	}
	return &Model{
		cfg:      cfg,
		styles:   newFrameStyles(cfg),
		render:   renderMarkdown,
		onCancel: onCancel,
		size:     &sizeBox{},
		now:      time.Now,
	}
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
		m.size.set(msg.Width, msg.Height)
		m.renderText()
		return m, nil
	case frameMsg:
		m.frame = msg.frame
		m.renderText()
		if msg.ack != nil {
			close(msg.ack)
		}
		return m, nil
	case awaitMsg:
		m.awaiting = msg.keys
		m.reply = msg.reply
		return m, nil
	case calibrateMsg:
		m.calib = &calibration{start: m.now(), window: msg.window, reply: msg.reply}
		return m, calibTick()
	case calibTickMsg:
		return m, m.handleCalibTick(time.Time(msg))
	case tea.KeyMsg:
		m.handleKey(msg)
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	key := keyName(msg)
	if msg.Type == tea.KeyCtrlC {
		m.onCancel()
		return
	}
	if m.accepts(key) {
		m.deliver(key)
		return
	}
	if key == m.cfg.CancelKey {
		m.onCancel()
	}
}

func (m *Model) accepts(key string) bool {
	for _, k := range m.awaiting {
		if k == key {
			return true
		}
	}
	return false
}

func (m *Model) deliver(key string) {
	if m.reply != nil {
		select {
		case m.reply <- key:
		default:
		}
	}
	m.awaiting = nil
	m.reply = nil
}

func (m *Model) handleCalibTick(at time.Time) tea.Cmd {
	c := m.calib
	if c == nil {
		return nil
	}
	c.ticks++
	elapsed := at.Sub(c.start)
	if elapsed < c.window {
		return calibTick()
	}
	rate := 0.0
	if elapsed > 0 {
		rate = float64(c.ticks) / elapsed.Seconds()
	}
	c.reply <- rate
	m.calib = nil
	return nil
}

func calibTick() tea.Cmd {
	return tea.Tick(time.Second/maxFPS, func(t time.Time) tea.Msg {
		return calibTickMsg(t)
	})
}

// View implements tea.Model.
func (m *Model) View() string {
	content := m.frameContent()
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content,
		lipgloss.WithWhitespaceBackground(m.styles.background))
}

func (m *Model) frameContent() string {
	switch m.frame.Kind {
	case experiment.FrameFixation:
		return m.styles.fixation.Render("+")
	case experiment.FrameCue:
		if m.frame.Congruent {
			return m.styles.congruent.Render("")
		}
		return m.styles.incongruent.Render("")
	case experiment.FrameStimulus:
		return lipgloss.JoinVertical(lipgloss.Center,
			m.styles.fixation.Render("+"),
			"",
			m.styles.stimulus.Render(m.frame.Stimulus),
		)
	case experiment.FrameFeedback:
		if m.frame.Correct {
			return m.styles.feedback.Render("Correct")
		}
		return m.styles.feedback.Render("Incorrect")
	case experiment.FrameInfo, experiment.FrameBreak:
		return m.rendered
	default:
		return ""
	}
}

func (m *Model) renderText() {
	if m.frame.Kind != experiment.FrameInfo && m.frame.Kind != experiment.FrameBreak {
		m.rendered = ""
		return
	}
	width := contentWidth(m.width)
	out, err := m.render(m.frame.Text, width)
	if err != nil {
		out = wrapText(m.frame.Text, width)
	}
	m.rendered = strings.TrimRight(out, "\n")
}

func contentWidth(width int) int {
	w := int(float64(width) * 0.70)
	if w < 20 {
		return 60
	}
	return w
}

// keyName maps key events to the names used in configs.
func keyName(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeySpace:
		return "space"
	case tea.KeyEsc:
		return "esc"
	case tea.KeyEnter:
		return "enter"
	case tea.KeyRunes:
		if len(msg.Runes) == 1 {
			if msg.Runes[0] == ' ' {
				return "space"
			}
			return string(unicode.ToLower(msg.Runes[0]))
		}
	}
	return msg.String()
}

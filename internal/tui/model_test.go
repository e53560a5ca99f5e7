package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/cuetask/internal/config"
	"github.com/verte-zerg/cuetask/internal/experiment"
)

func newTestModel(t *testing.T) (*Model, *int) {
	t.Helper()
	cancels := 0
	m := NewModel(config.Defaults(), func() { cancels++ })
	m.render = func(text string, _ int) (string, error) { return "md:" + text, nil }
	return m, &cancels
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestFrameMsgAcknowledges(t *testing.T) {
	m, _ := newTestModel(t)
	ack := make(chan struct{})
	m.Update(frameMsg{frame: experiment.Frame{Kind: experiment.FrameStimulus, Stimulus: "[][]ZMM"}, ack: ack})
	select {
	case <-ack:
	default:
		t.Fatalf("expected frame to be acknowledged")
	}
	view := m.View()
	if !strings.Contains(view, "+") || !strings.Contains(view, "[][]ZMM") {
		t.Fatalf("expected fixation and stimulus in view, got %q", view)
	}
}

func TestFrameViews(t *testing.T) {
	m, _ := newTestModel(t)
	cases := []struct {
		frame experiment.Frame
		want  string
	}{
		{experiment.Frame{Kind: experiment.FrameFixation}, "+"},
		{experiment.Frame{Kind: experiment.FrameFeedback, Correct: true}, "Correct"},
		{experiment.Frame{Kind: experiment.FrameFeedback}, "Incorrect"},
		{experiment.Frame{Kind: experiment.FrameInfo, Text: "hello"}, "md:hello"},
		{experiment.Frame{Kind: experiment.FrameBreak, Text: "rest"}, "md:rest"},
	}
	for _, tc := range cases {
		m.Update(frameMsg{frame: tc.frame})
		if view := m.View(); !strings.Contains(view, tc.want) {
			t.Fatalf("frame %d: expected %q in %q", tc.frame.Kind, tc.want, view)
		}
	}
	m.Update(frameMsg{frame: experiment.Frame{Kind: experiment.FrameBlank}})
	if view := strings.TrimSpace(m.View()); view != "" {
		t.Fatalf("expected blank view, got %q", view)
	}
}

func TestCueRingDiffersByCongruence(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(frameMsg{frame: experiment.Frame{Kind: experiment.FrameCue, Congruent: true}})
	congruent := m.View()
	m.Update(frameMsg{frame: experiment.Frame{Kind: experiment.FrameCue}})
	if congruent == "" || m.View() == "" {
		t.Fatalf("expected cue ring to render")
	}
	if !strings.Contains(congruent, "╭") {
		t.Fatalf("expected rounded border, got %q", congruent)
	}
}

func TestInfoFallsBackToPlainWrap(t *testing.T) {
	m, _ := newTestModel(t)
	m.render = func(string, int) (string, error) { return "", errors.New("boom") }
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	m.Update(frameMsg{frame: experiment.Frame{Kind: experiment.FrameInfo, Text: "one two three"}})
	if m.rendered != "one two three" {
		t.Fatalf("unexpected fallback render %q", m.rendered)
	}
}

func TestAwaitDeliversAcceptedKey(t *testing.T) {
	m, cancels := newTestModel(t)
	reply := make(chan string, 1)
	m.Update(awaitMsg{keys: []string{"z", "m", "esc"}, reply: reply})

	m.Update(runes("x"))
	select {
	case key := <-reply:
		t.Fatalf("unexpected key %q", key)
	default:
	}

	m.Update(runes("M"))
	if key := <-reply; key != "m" {
		t.Fatalf("expected m, got %q", key)
	}
	if m.awaiting != nil {
		t.Fatalf("expected wait to be cleared")
	}
	if *cancels != 0 {
		t.Fatalf("unexpected cancel")
	}
}

func TestUpperCaseConfiguredKeysReachTrial(t *testing.T) {
	cfg := config.Resolve(config.FileConfig{
		Experiment: config.ExperimentConfig{ReactionKeys: []string{"J", "K"}},
	})
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	m := NewModel(cfg, nil)
	for _, press := range []string{"J", "k"} {
		reply := make(chan string, 1)
		keys := append(append([]string(nil), cfg.ReactionKeys...), cfg.CancelKey)
		m.Update(awaitMsg{keys: keys, reply: reply})
		m.Update(runes(press))
		select {
		case key := <-reply:
			if key != strings.ToLower(press) {
				t.Fatalf("press %q delivered %q", press, key)
			}
		default:
			t.Fatalf("press %q was not delivered for keys %v", press, keys)
		}
	}
}

func TestCancelKeyDeliveredWhenAccepted(t *testing.T) {
	m, cancels := newTestModel(t)
	reply := make(chan string, 1)
	m.Update(awaitMsg{keys: []string{"space", "esc"}, reply: reply})
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if key := <-reply; key != "esc" {
		t.Fatalf("expected esc, got %q", key)
	}
	if *cancels != 0 {
		t.Fatalf("expected no context cancel, got %d", *cancels)
	}
}

func TestCancelKeyInterruptsWhenNotAwaited(t *testing.T) {
	m, cancels := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if *cancels != 1 {
		t.Fatalf("expected one cancel, got %d", *cancels)
	}
	reply := make(chan string, 1)
	m.Update(awaitMsg{keys: []string{"esc"}, reply: reply})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if *cancels != 2 {
		t.Fatalf("expected ctrl+c to cancel, got %d", *cancels)
	}
}

func TestKeyName(t *testing.T) {
	cases := []struct {
		msg  tea.KeyMsg
		want string
	}{
		{tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, "space"},
		{runes(" "), "space"},
		{tea.KeyMsg{Type: tea.KeyEsc}, "esc"},
		{tea.KeyMsg{Type: tea.KeyEnter}, "enter"},
		{runes("J"), "j"},
		{runes("z"), "z"},
	}
	for _, tc := range cases {
		if got := keyName(tc.msg); got != tc.want {
			t.Fatalf("keyName(%v) = %q, want %q", tc.msg, got, tc.want)
		}
	}
}

func TestCalibrationCountsTicks(t *testing.T) {
	m, _ := newTestModel(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return start }
	reply := make(chan float64, 1)
	_, cmd := m.Update(calibrateMsg{window: time.Second, reply: reply})
	if cmd == nil {
		t.Fatalf("expected tick command")
	}
	for i := 1; i <= 100; i++ {
		_, cmd = m.Update(calibTickMsg(start.Add(time.Duration(i) * 10 * time.Millisecond)))
		if i < 100 && cmd == nil {
			t.Fatalf("expected calibration to continue at tick %d", i)
		}
	}
	if cmd != nil {
		t.Fatalf("expected calibration to stop")
	}
	rate := <-reply
	if rate < 99.9 || rate > 100.1 {
		t.Fatalf("expected ~100 fps, got %f", rate)
	}
}

func TestWindowSizeRecorded(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if w, h := m.size.get(); w != 120 || h != 40 {
		t.Fatalf("unexpected size %dx%d", w, h)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("alpha beta gamma\n\ndelta", 11)
	want := "alpha beta\ngamma\n\ndelta"
	if got != want {
		t.Fatalf("unexpected wrap %q", got)
	}
	if wrapText("keep", 0) != "keep" {
		t.Fatalf("expected zero width to keep text")
	}
}

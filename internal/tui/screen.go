package tui

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/verte-zerg/cuetask/internal/experiment"
	"github.com/verte-zerg/cuetask/internal/model"
)

// ErrScreenClosed is returned when the screen stopped before a request
// completed.
var ErrScreenClosed = errors.New("screen closed")

// calibrationWindow is how long frame ticks are counted.
const calibrationWindow = time.Second

type sizeBox struct {
	width  atomic.Int32
	height atomic.Int32
}

func (b *sizeBox) set(w, h int) {
	b.width.Store(int32(w))
	b.height.Store(int32(h))
}

func (b *sizeBox) get() (int, int) {
	return int(b.width.Load()), int(b.height.Load())
}

// Screen drives a Bubble Tea program from the experiment goroutine. It
// implements experiment.Display, experiment.KeyWaiter and experiment.Meter.
type Screen struct {
	program *tea.Program
	model   *Model

	done    chan struct{}
	once    sync.Once
	runErr  error
	started atomic.Bool
}

var (
	_ experiment.Display   = (*Screen)(nil)
	_ experiment.KeyWaiter = (*Screen)(nil)
	_ experiment.Meter     = (*Screen)(nil)
)

// NewScreen builds a full-screen program for cfg. onCancel is invoked when
// the cancel key or ctrl+c interrupts a phase that accepts no keys.
func NewScreen(cfg model.Config, onCancel func(), opts ...tea.ProgramOption) *Screen {
	m := NewModel(cfg, onCancel)
	fps := cfg.FrameRate
	if fps <= 0 || fps > maxFPS {
		fps = maxFPS
	}
	options := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithFPS(fps)}, opts...)
	return &Screen{
		program: tea.NewProgram(m, options...),
		model:   m,
		done:    make(chan struct{}),
	}
}

// Start runs the program in the background.
func (s *Screen) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		_, err := s.program.Run()
		s.runErr = err
		close(s.done)
	}()
}

// Close stops the program and restores the terminal.
func (s *Screen) Close() error {
	if !s.started.Load() {
		return nil
	}
	s.once.Do(s.program.Quit)
	<-s.done
	if errors.Is(s.runErr, tea.ErrProgramKilled) {
		return nil
	}
	return s.runErr
}

// Present implements experiment.Display.
func (s *Screen) Present(ctx context.Context, frame experiment.Frame) error {
	ack := make(chan struct{})
	s.program.Send(frameMsg{frame: frame, ack: ack})
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrScreenClosed
	}
}

// WaitKey implements experiment.KeyWaiter.
func (s *Screen) WaitKey(ctx context.Context, keys []string) (string, error) {
	reply := make(chan string, 1)
	s.program.Send(awaitMsg{keys: keys, reply: reply})
	select {
	case key := <-reply:
		return key, nil
	case <-ctx.Done():
		s.program.Send(awaitMsg{})
		return "", ctx.Err()
	case <-s.done:
		return "", ErrScreenClosed
	}
}

// MeasureFrameRate implements experiment.Meter by counting ticks of the
// render loop.
func (s *Screen) MeasureFrameRate(ctx context.Context) (float64, error) {
	reply := make(chan float64, 1)
	s.program.Send(calibrateMsg{window: calibrationWindow, reply: reply})
	select {
	case rate := <-reply:
		return rate, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.done:
		return 0, ErrScreenClosed
	}
}

// ScreenSize implements experiment.Meter.
func (s *Screen) ScreenSize() (int, int) {
	if w, h := s.model.size.get(); w > 0 && h > 0 {
		return w, h
	}
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0
	}
	return w, h
}

// Package experiment runs the cued reaction-time task: the per-trial phase
// sequence, the training and main blocks, and the guaranteed results flush.
package experiment

import (
	"context"
	"time"

	"github.com/verte-zerg/cuetask/internal/model"
)

// FrameKind selects what the presentation layer draws.
type FrameKind int

const (
	FrameBlank FrameKind = iota
	FrameFixation
	FrameCue
	FrameStimulus
	FrameFeedback
	FrameInfo
	FrameBreak
)

// Frame is one screen the presentation layer renders.
type Frame struct {
	Kind FrameKind
	// Congruent selects the cue color.
	Congruent bool
	// Stimulus is drawn below the fixation mark.
	Stimulus string
	// Correct selects the training feedback text.
	Correct bool
	// Text is the body of info and break screens.
	Text string
}

// Display renders frames. Present returns once the frame is on screen.
type Display interface {
	Present(ctx context.Context, frame Frame) error
}

// KeyWaiter blocks until one of keys is pressed.
type KeyWaiter interface {
	WaitKey(ctx context.Context, keys []string) (string, error)
}

// Stopwatch measures reaction times on a monotonic clock.
type Stopwatch interface {
	Reset()
	Elapsed() time.Duration
}

// Sleeper holds the current frame for a fixed duration.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// StimulusSource draws trial specifications.
type StimulusSource interface {
	Generate(keys []string) model.TrialSpec
}

// TextSource resolves info-screen texts.
type TextSource interface {
	Text(name, insert string) (string, error)
}

type monotonic struct {
	start time.Time
}

// NewStopwatch returns a Stopwatch started now.
func NewStopwatch() Stopwatch {
	return &monotonic{start: time.Now()}
}

func (m *monotonic) Reset() {
	m.start = time.Now()
}

func (m *monotonic) Elapsed() time.Duration {
	return time.Since(m.start)
}

// TimerSleeper sleeps on a timer and wakes early when ctx is done.
type TimerSleeper struct{}

// Sleep implements Sleeper.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

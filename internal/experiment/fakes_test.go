package experiment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/verte-zerg/cuetask/internal/generator"
	"github.com/verte-zerg/cuetask/internal/messages"
	"github.com/verte-zerg/cuetask/internal/model"
	"github.com/verte-zerg/cuetask/internal/results"
)

type recorder struct {
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

type fakeDisplay struct {
	rec    *recorder
	frames []Frame
}

func (d *fakeDisplay) Present(ctx context.Context, frame Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.frames = append(d.frames, frame)
	d.rec.add("present %d %s", frame.Kind, frame.Stimulus)
	return nil
}

// fakeKeys answers info screens with space and reaction waits from a script.
type fakeKeys struct {
	rec      *recorder
	script   []string
	infoKeys []string
	waits    [][]string
}

func (k *fakeKeys) WaitKey(ctx context.Context, keys []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	k.waits = append(k.waits, keys)
	k.rec.add("wait")
	if keys[0] == ContinueKey {
		if len(k.infoKeys) > 0 {
			key := k.infoKeys[0]
			k.infoKeys = k.infoKeys[1:]
			return key, nil
		}
		return ContinueKey, nil
	}
	if len(k.script) == 0 {
		return keys[0], nil
	}
	key := k.script[0]
	k.script = k.script[1:]
	return key, nil
}

type fakeClock struct {
	rec     *recorder
	elapsed []time.Duration
	resets  int
}

func (c *fakeClock) Reset() {
	c.resets++
	c.rec.add("reset")
}

func (c *fakeClock) Elapsed() time.Duration {
	c.rec.add("elapsed")
	if len(c.elapsed) == 0 {
		return 400 * time.Millisecond
	}
	d := c.elapsed[0]
	c.elapsed = c.elapsed[1:]
	return d
}

// fakeSleeper records durations; hook may cancel the run at a given call.
type fakeSleeper struct {
	rec   *recorder
	calls []time.Duration
	hook  func(call int)
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	s.rec.add("sleep %s", d)
	if s.hook != nil {
		s.hook(len(s.calls) - 1)
	}
	return ctx.Err()
}

type scriptedStimuli struct {
	specs []model.TrialSpec
	next  int
}

func (s *scriptedStimuli) Generate(keys []string) model.TrialSpec {
	if s.next >= len(s.specs) {
		return spec(keys[0], keys[0], true)
	}
	sp := s.specs[s.next]
	s.next++
	return sp
}

func spec(target, dist string, neutralLeft bool) model.TrialSpec {
	t := upper(target)
	d := upper(dist)
	sp := model.TrialSpec{Target: target, Dist: dist, CueCongruent: target == dist}
	if neutralLeft {
		sp.EmptyStimulus = generator.Placeholder + generator.Hidden + d + d
		sp.FullStimulus = generator.Placeholder + t + d + d
	} else {
		sp.EmptyStimulus = d + d + generator.Hidden + generator.Placeholder
		sp.FullStimulus = d + d + t + generator.Placeholder
	}
	return sp
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

type memorySink struct {
	mu     sync.Mutex
	saves  int
	status model.RunStatus
	rows   []model.ResultRecord
}

func (m *memorySink) Save(ctx context.Context, status model.RunStatus, t *results.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.status = status
	m.rows = t.Records()
	return nil
}

type harness struct {
	rec     *recorder
	display *fakeDisplay
	keys    *fakeKeys
	clock   *fakeClock
	sleeper *fakeSleeper
	stimuli *scriptedStimuli
}

func newHarness() *harness {
	rec := &recorder{}
	return &harness{
		rec:     rec,
		display: &fakeDisplay{rec: rec},
		keys:    &fakeKeys{rec: rec},
		clock:   &fakeClock{rec: rec},
		sleeper: &fakeSleeper{rec: rec},
		stimuli: &scriptedStimuli{},
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Display: h.display,
		Keys:    h.keys,
		Clock:   h.clock,
		Sleep:   h.sleeper,
		Stimuli: h.stimuli,
		Texts:   messages.NewSource(""),
	}
}

func testConfig() model.Config {
	return model.Config{
		ReactionKeys:      []string{"j", "k"},
		CancelKey:         "esc",
		FixationMs:        500,
		CueMs:             200,
		BlankStimulusMs:   300,
		InterTrialBreakMs: 1000,
		InterSessionMs:    60000,
		TrainingTrials:    0,
		TrialsPerSession:  2,
		Sessions:          1,
		FrameRate:         60,
		CueRadius:         3,
	}
}

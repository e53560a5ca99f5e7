package experiment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerPhaseSequence(t *testing.T) {
	h := newHarness()
	h.stimuli.specs = append(h.stimuli.specs, spec("j", "k", true))
	h.keys.script = []string{"j"}
	h.clock.elapsed = []time.Duration{450 * time.Millisecond}

	outcome, err := NewRunner(testConfig(), h.deps()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"present 1 ",
		"sleep 500ms",
		"present 2 ",
		"sleep 200ms",
		"present 3 [][]_KK",
		"sleep 300ms",
		"present 3 [][]JKK",
		"reset",
		"wait",
		"elapsed",
		"present 0 ",
	}, h.rec.events)
	assert.False(t, h.display.frames[1].Congruent)
	assert.Equal(t, []string{"j", "k", "esc"}, h.keys.waits[0])
	assert.InDelta(t, 0.45, outcome.ReactionTime, 1e-9)
	assert.True(t, outcome.Correct)
	assert.False(t, outcome.CompliesWithDistractor)
	assert.Equal(t, "j", outcome.Target)
	assert.False(t, outcome.Hint)
}

func TestRunnerCongruentCue(t *testing.T) {
	h := newHarness()
	h.stimuli.specs = append(h.stimuli.specs, spec("k", "k", false))
	h.keys.script = []string{"j"}

	outcome, err := NewRunner(testConfig(), h.deps()).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, h.display.frames[1].Congruent)
	assert.True(t, outcome.Hint)
	assert.False(t, outcome.Correct)
	assert.False(t, outcome.CompliesWithDistractor)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name            string
		target, dist    string
		key             string
		correct, comply bool
	}{
		{"correct incongruent", "j", "k", "j", true, false},
		{"follows distractor", "j", "k", "k", false, true},
		{"correct congruent", "k", "k", "k", true, true},
		{"wrong congruent", "k", "k", "j", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Classify(spec(tc.target, tc.dist, true), tc.key, 0.3)
			assert.Equal(t, tc.correct, out.Correct)
			assert.Equal(t, tc.comply, out.CompliesWithDistractor)
			assert.Equal(t, tc.target == tc.dist, out.Hint)
		})
	}
	assert.Zero(t, Classify(spec("j", "k", true), "j", -0.1).ReactionTime)
}

func TestRunnerCancelKeyAtResponse(t *testing.T) {
	h := newHarness()
	h.keys.script = []string{"esc"}

	_, err := NewRunner(testConfig(), h.deps()).Run(context.Background())
	require.ErrorIs(t, err, ErrAborted)
	assert.NotContains(t, h.rec.events, "elapsed")
}

func TestRunnerCancelledDuringCue(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.sleeper.hook = func(call int) {
		if call == 1 {
			cancel()
		}
	}

	_, err := NewRunner(testConfig(), h.deps()).Run(ctx)
	require.ErrorIs(t, err, ErrAborted)
	assert.Len(t, h.sleeper.calls, 2)
	assert.Zero(t, h.clock.resets)
}

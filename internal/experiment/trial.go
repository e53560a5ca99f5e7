package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/verte-zerg/cuetask/internal/model"
)

// ErrAborted reports that the participant pressed the cancel key.
var ErrAborted = errors.New("experiment aborted by user")

// Runner executes single trials: fixation, cue, blank stimulus, then the
// full stimulus which waits for a response.
type Runner struct {
	cfg          model.Config
	display      Display
	keys         KeyWaiter
	watch        Stopwatch
	sleep        Sleeper
	stimuli      StimulusSource
	responseKeys []string
}

// NewRunner builds a Runner from the collaborators in deps.
func NewRunner(cfg model.Config, deps Deps) *Runner {
	responseKeys := make([]string, 0, len(cfg.ReactionKeys)+1)
	responseKeys = append(responseKeys, cfg.ReactionKeys...)
	responseKeys = append(responseKeys, cfg.CancelKey)
	return &Runner{
		cfg:          cfg,
		display:      deps.Display,
		keys:         deps.Keys,
		watch:        deps.Clock,
		sleep:        deps.Sleep,
		stimuli:      deps.Stimuli,
		responseKeys: responseKeys,
	}
}

// Run executes one trial. It returns ErrAborted when the cancel key ends the
// trial; no outcome is produced in that case.
func (r *Runner) Run(ctx context.Context) (model.TrialOutcome, error) {
	spec := r.stimuli.Generate(r.cfg.ReactionKeys)

	if err := r.hold(ctx, Frame{Kind: FrameFixation}, r.cfg.FixationMs); err != nil {
		return model.TrialOutcome{}, err
	}
	if err := r.hold(ctx, Frame{Kind: FrameCue, Congruent: spec.CueCongruent}, r.cfg.CueMs); err != nil {
		return model.TrialOutcome{}, err
	}
	if err := r.hold(ctx, Frame{Kind: FrameStimulus, Stimulus: spec.EmptyStimulus}, r.cfg.BlankStimulusMs); err != nil {
		return model.TrialOutcome{}, err
	}

	if err := r.display.Present(ctx, Frame{Kind: FrameStimulus, Stimulus: spec.FullStimulus}); err != nil {
		return model.TrialOutcome{}, interrupted(err)
	}
	r.watch.Reset()
	key, err := r.keys.WaitKey(ctx, r.responseKeys)
	if err != nil {
		return model.TrialOutcome{}, interrupted(err)
	}
	if key == r.cfg.CancelKey {
		return model.TrialOutcome{}, ErrAborted
	}
	rt := r.watch.Elapsed().Seconds()

	if err := r.display.Present(ctx, Frame{Kind: FrameBlank}); err != nil {
		return model.TrialOutcome{}, interrupted(err)
	}
	return Classify(spec, key, rt), nil
}

func (r *Runner) hold(ctx context.Context, frame Frame, ms int) error {
	if err := r.display.Present(ctx, frame); err != nil {
		return interrupted(err)
	}
	if err := r.sleep.Sleep(ctx, millis(ms)); err != nil {
		return interrupted(err)
	}
	return nil
}

// Classify scores a response. Correctness and distractor compliance are
// independent; both hold when target and distractor coincide.
func Classify(spec model.TrialSpec, key string, reactionTime float64) model.TrialOutcome {
	if reactionTime < 0 {
		reactionTime = 0
	}
	return model.TrialOutcome{
		ReactionTime:           reactionTime,
		Correct:                key == spec.Target,
		Target:                 spec.Target,
		Hint:                   spec.CueCongruent,
		CompliesWithDistractor: key == spec.Dist,
	}
}

// interrupted maps context cancellation to ErrAborted.
func interrupted(err error) error {
	if errors.Is(err, ErrAborted) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrAborted, err)
	}
	return err
}

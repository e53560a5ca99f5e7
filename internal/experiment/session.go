package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/verte-zerg/cuetask/internal/logging"
	"github.com/verte-zerg/cuetask/internal/messages"
	"github.com/verte-zerg/cuetask/internal/model"
	"github.com/verte-zerg/cuetask/internal/results"
)

// ContinueKey dismisses info screens.
const ContinueKey = "space"

// Deps groups the collaborators of a run.
type Deps struct {
	Display Display
	Keys    KeyWaiter
	Clock   Stopwatch
	Sleep   Sleeper
	Stimuli StimulusSource
	Texts   TextSource
	Logger  *slog.Logger
}

// TrialRunner runs one trial.
type TrialRunner interface {
	Run(ctx context.Context) (model.TrialOutcome, error)
}

// Controller drives the training block and the main block.
type Controller struct {
	cfg     model.Config
	trials  TrialRunner
	display Display
	keys    KeyWaiter
	sleep   Sleeper
	texts   TextSource
	logger  *slog.Logger
}

// NewController builds a Controller whose trials run through a Runner.
func NewController(cfg model.Config, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		cfg:     cfg,
		trials:  NewRunner(cfg, deps),
		display: deps.Display,
		keys:    deps.Keys,
		sleep:   deps.Sleep,
		texts:   deps.Texts,
		logger:  logger,
	}
}

// Run executes the whole experiment, appending main-block records to table.
// Whatever is in table is saved to sink on every exit path. A cancel key
// press yields RunAborted with a nil error.
func (c *Controller) Run(ctx context.Context, table *results.Table, sink results.Sink) (status model.RunStatus, err error) {
	saved := false
	defer func() {
		if saved {
			return
		}
		if r := recover(); r != nil {
			c.flush(ctx, model.RunFailed, table, sink)
			panic(r)
		}
		if serr := c.flush(ctx, status, table, sink); serr != nil {
			err = errors.Join(err, serr)
		}
	}()

	if err := c.ShowInfo(ctx, messages.BeforeTraining); err != nil {
		return c.stop(err)
	}
	if err := c.Training(ctx); err != nil {
		return c.stop(err)
	}
	if err := c.ShowInfo(ctx, messages.BeforeExperiment); err != nil {
		return c.stop(err)
	}
	if err := c.Main(ctx, table); err != nil {
		return c.stop(err)
	}

	saved = true
	if err := c.flush(ctx, model.RunCompleted, table, sink); err != nil {
		return model.RunFailed, err
	}
	if err := c.ShowInfo(ctx, messages.End); err != nil && !errors.Is(err, ErrAborted) {
		return model.RunCompleted, err
	}
	return model.RunCompleted, nil
}

// Training runs the practice trials with immediate feedback. Outcomes are
// discarded.
func (c *Controller) Training(ctx context.Context) error {
	for i := 0; i < c.cfg.TrainingTrials; i++ {
		outcome, err := c.trials.Run(ctx)
		if err != nil {
			return err
		}
		if err := c.display.Present(ctx, Frame{Kind: FrameFeedback, Correct: outcome.Correct}); err != nil {
			return interrupted(err)
		}
		if err := c.sleep.Sleep(ctx, millis(c.cfg.InterTrialBreakMs)); err != nil {
			return interrupted(err)
		}
		c.logger.Debug("training trial", "n", i+1, "correct", outcome.Correct, "rt", outcome.ReactionTime)
	}
	return nil
}

// Main runs every session and appends one record per trial to table.
func (c *Controller) Main(ctx context.Context, table *results.Table) error {
	for session := 0; session < c.cfg.Sessions; session++ {
		for i := 0; i < c.cfg.TrialsPerSession; i++ {
			outcome, err := c.trials.Run(ctx)
			if err != nil {
				return err
			}
			rec := table.Append(outcome)
			c.logger.Debug("trial",
				"session", session+1,
				"trial_no", rec.TrialNo,
				"rt", rec.ReactionTime,
				"correct", rec.Correct,
				"target", rec.Stimulus,
				"hint", rec.Hint,
				"complies", rec.CompliesWithDistractor,
			)
			if err := c.sleep.Sleep(ctx, millis(c.cfg.InterTrialBreakMs)); err != nil {
				return interrupted(err)
			}
		}
		if session+1 == c.cfg.Sessions {
			break
		}
		if err := c.showBreak(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ShowInfo displays a text screen and waits for the continue or cancel key.
func (c *Controller) ShowInfo(ctx context.Context, name string) error {
	text, err := c.texts.Text(name, "")
	if err != nil {
		c.logger.Error("problem with message reading", "name", name, "error", err)
		return err
	}
	if err := c.display.Present(ctx, Frame{Kind: FrameInfo, Text: text}); err != nil {
		return interrupted(err)
	}
	key, err := c.keys.WaitKey(ctx, []string{ContinueKey, c.cfg.CancelKey})
	if err != nil {
		return infoAborted(interrupted(err))
	}
	if key == c.cfg.CancelKey {
		return infoAborted(ErrAborted)
	}
	if err := c.display.Present(ctx, Frame{Kind: FrameBlank}); err != nil {
		return interrupted(err)
	}
	return nil
}

func (c *Controller) showBreak(ctx context.Context) error {
	text, err := c.texts.Text(messages.Break, "")
	if err != nil {
		c.logger.Error("problem with message reading", "name", messages.Break, "error", err)
		return err
	}
	if err := c.display.Present(ctx, Frame{Kind: FrameBreak, Text: text}); err != nil {
		return interrupted(err)
	}
	if err := c.sleep.Sleep(ctx, millis(c.cfg.InterSessionMs)); err != nil {
		return interrupted(err)
	}
	return nil
}

func (c *Controller) stop(err error) (model.RunStatus, error) {
	if errors.Is(err, ErrAborted) {
		msg := "Experiment finished by user! ESC pressed."
		if errors.Is(err, errInfoScreen) {
			msg = "Experiment finished by user on info screen! ESC pressed."
		}
		logging.Critical(c.logger, msg)
		return model.RunAborted, nil
	}
	logging.Critical(c.logger, "experiment failed", "error", err)
	return model.RunFailed, err
}

func (c *Controller) flush(ctx context.Context, status model.RunStatus, table *results.Table, sink results.Sink) error {
	table.ComputeFailTimes()
	if err := sink.Save(context.WithoutCancel(ctx), status, table); err != nil {
		c.logger.Error("failed to save results", "status", status, "rows", table.Len(), "error", err)
		return fmt.Errorf("failed to save results: %w", err)
	}
	c.logger.Info("results saved", "status", status, "rows", table.Len())
	return nil
}

var errInfoScreen = errors.New("on info screen")

func infoAborted(err error) error {
	if errors.Is(err, ErrAborted) {
		return fmt.Errorf("%w %w", err, errInfoScreen)
	}
	return err
}

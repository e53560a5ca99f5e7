package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/verte-zerg/cuetask/internal/logging"
)

// ErrFrameRate reports a measured frame rate below the configured minimum.
var ErrFrameRate = errors.New("insufficient frame rate")

// Meter reports properties of the presentation layer.
type Meter interface {
	MeasureFrameRate(ctx context.Context) (float64, error)
	ScreenSize() (width, height int)
}

// Preflight checks the frame rate before any trial runs and logs the screen
// geometry. A low frame rate is shown to the operator and ends the run.
func (c *Controller) Preflight(ctx context.Context, meter Meter) error {
	fps, err := meter.MeasureFrameRate(ctx)
	if err != nil {
		return interrupted(fmt.Errorf("failed to measure frame rate: %w", err))
	}
	measured := int(math.Round(fps))
	if measured < c.cfg.FrameRate {
		msg := fmt.Sprintf("Wrong no of frames detected: %d. Experiment terminated.", measured)
		logging.Critical(c.logger, msg, "expected", c.cfg.FrameRate)
		if err := c.display.Present(ctx, Frame{Kind: FrameInfo, Text: msg}); err == nil {
			_, _ = c.keys.WaitKey(ctx, []string{ContinueKey, c.cfg.CancelKey})
		}
		return fmt.Errorf("%w: measured %d, expected %d", ErrFrameRate, measured, c.cfg.FrameRate)
	}
	width, height := meter.ScreenSize()
	c.logger.Info("FRAME RATE", "fps", measured)
	c.logger.Info("SCREEN RES", "width", width, "height", height)
	return nil
}

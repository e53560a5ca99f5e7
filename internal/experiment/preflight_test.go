package experiment

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/cuetask/internal/logging"
)

type fakeMeter struct {
	fps float64
}

func (m fakeMeter) MeasureFrameRate(context.Context) (float64, error) { return m.fps, nil }

func (m fakeMeter) ScreenSize() (int, int) { return 120, 40 }

func TestPreflightLogsFrameRate(t *testing.T) {
	h := newHarness()
	var buf bytes.Buffer
	deps := h.deps()
	deps.Logger = logging.New(&buf, slog.LevelInfo)

	require.NoError(t, NewController(testConfig(), deps).Preflight(context.Background(), fakeMeter{fps: 59.6}))
	assert.Contains(t, buf.String(), "FRAME RATE")
	assert.Contains(t, buf.String(), "fps=60")
	assert.Contains(t, buf.String(), "width=120")
	assert.Empty(t, h.display.frames)
}

func TestPreflightRejectsLowFrameRate(t *testing.T) {
	h := newHarness()
	var buf bytes.Buffer
	deps := h.deps()
	deps.Logger = logging.New(&buf, slog.LevelInfo)

	err := NewController(testConfig(), deps).Preflight(context.Background(), fakeMeter{fps: 30})
	require.ErrorIs(t, err, ErrFrameRate)
	require.Len(t, h.display.frames, 1)
	assert.Equal(t, "Wrong no of frames detected: 30. Experiment terminated.", h.display.frames[0].Text)
	assert.Contains(t, buf.String(), "level=CRITICAL")
	assert.NotContains(t, buf.String(), "SCREEN RES")
}

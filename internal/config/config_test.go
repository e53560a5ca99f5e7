package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/cuetask/internal/model"
)

func TestLoadConfigMissingFile(t *testing.T) {
	fc, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	cfg := Resolve(fc)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadConfigTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[experiment]
reaction-keys = ["j", "k"]
fixation-ms = 250
sessions = 2
cue-congruent-color = "#00FF00"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	fc, err := LoadConfig(path)
	require.NoError(t, err)
	cfg := Resolve(fc)
	assert.Equal(t, []string{"j", "k"}, cfg.ReactionKeys)
	assert.Equal(t, 250, cfg.FixationMs)
	assert.Equal(t, 2, cfg.Sessions)
	assert.Equal(t, "#00FF00", cfg.CueCongruentColor)
	assert.Equal(t, Defaults().CueMs, cfg.CueMs)
}

func TestLoadConfigLegacyYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `REACTION_KEYS: ['j', 'k']
FIX_CROSS_TIME_MS: 500
QUE_TIME_MS: 200
STIM_EMPTY_MS: 150
EXPERIMENT_BREAK_TIME_MS: 1000
SESSION_BREAK_TIME_MS: 60000
TRAININGS_QUANTITY: 5
EXPERIMENTS_SESSIONS_QUANTITY: 4
EXPERIMENTS_QUANTITY: 30
FRAME_RATE: 60
QUE_RADIUS: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	fc, err := LoadConfig(path)
	require.NoError(t, err)
	cfg := Resolve(fc)
	assert.Equal(t, []string{"j", "k"}, cfg.ReactionKeys)
	assert.Equal(t, 150, cfg.BlankStimulusMs)
	assert.Equal(t, 5, cfg.TrainingTrials)
	assert.Equal(t, 4, cfg.Sessions)
	assert.Equal(t, 30, cfg.TrialsPerSession)
	assert.Equal(t, 4, cfg.CueRadius)
	require.NoError(t, Validate(cfg))
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[experiment\n"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *model.Config)
	}{
		{"negative duration", func(c *model.Config) { c.CueMs = -1 }},
		{"single key", func(c *model.Config) { c.ReactionKeys = []string{"j"} }},
		{"duplicate keys", func(c *model.Config) { c.ReactionKeys = []string{"j", "j"} }},
		{"multi-char key", func(c *model.Config) { c.ReactionKeys = []string{"j", "left"} }},
		{"cancel collides", func(c *model.Config) { c.CancelKey = "j"; c.ReactionKeys = []string{"j", "k"} }},
		{"zero frame rate", func(c *model.Config) { c.FrameRate = 0 }},
		{"frame rate above ceiling", func(c *model.Config) { c.FrameRate = MaxFrameRate + 1 }},
		{"upper-case key", func(c *model.Config) { c.ReactionKeys = []string{"J", "K"} }},
		{"space key", func(c *model.Config) { c.ReactionKeys = []string{" ", "k"} }},
		{"no sessions", func(c *model.Config) { c.Sessions = 0 }},
	}
	require.NoError(t, Validate(Defaults()))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestResolveLowercasesReactionKeys(t *testing.T) {
	fc := FileConfig{Experiment: ExperimentConfig{ReactionKeys: []string{"J", "K"}}}
	cfg := Resolve(fc)
	assert.Equal(t, []string{"j", "k"}, cfg.ReactionKeys)
	require.NoError(t, Validate(cfg))
}

func TestValidateAcceptsFrameRateCeiling(t *testing.T) {
	cfg := Defaults()
	cfg.FrameRate = MaxFrameRate
	require.NoError(t, Validate(cfg))
}

func TestTemplateDecodes(t *testing.T) {
	var fc FileConfig
	_, err := toml.Decode(Template(), &fc)
	require.NoError(t, err)
	assert.Empty(t, fc.Experiment.ReactionKeys)
}

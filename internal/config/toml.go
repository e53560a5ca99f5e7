// Package config provides configuration helpers and TOML/YAML parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Experiment ExperimentConfig `toml:"experiment"`
}

// ExperimentConfig maps experiment settings. The YAML names follow the
// legacy config.yaml layout, which is a flat mapping.
type ExperimentConfig struct {
	ReactionKeys      []string `toml:"reaction-keys" yaml:"REACTION_KEYS"`
	CancelKey         *string  `toml:"cancel-key" yaml:"CANCEL_KEY"`
	FixationMs        *int     `toml:"fixation-ms" yaml:"FIX_CROSS_TIME_MS"`
	CueMs             *int     `toml:"cue-ms" yaml:"QUE_TIME_MS"`
	BlankStimulusMs   *int     `toml:"blank-stimulus-ms" yaml:"STIM_EMPTY_MS"`
	InterTrialBreakMs *int     `toml:"trial-break-ms" yaml:"EXPERIMENT_BREAK_TIME_MS"`
	InterSessionMs    *int     `toml:"session-break-ms" yaml:"SESSION_BREAK_TIME_MS"`
	TrainingTrials    *int     `toml:"training-trials" yaml:"TRAININGS_QUANTITY"`
	Sessions          *int     `toml:"sessions" yaml:"EXPERIMENTS_SESSIONS_QUANTITY"`
	TrialsPerSession  *int     `toml:"trials-per-session" yaml:"EXPERIMENTS_QUANTITY"`
	FrameRate         *int     `toml:"frame-rate" yaml:"FRAME_RATE"`

	BackgroundColor     *string `toml:"background-color" yaml:"BACKGROUND_COLOR"`
	StimulusColor       *string `toml:"stimulus-color" yaml:"STIM_COLOR"`
	FixationColor       *string `toml:"fixation-color" yaml:"FIX_CROSS_COLOR"`
	CueCongruentColor   *string `toml:"cue-congruent-color" yaml:"QUE_CORRECT_COLOR"`
	CueIncongruentColor *string `toml:"cue-incongruent-color" yaml:"QUE_INCORRECT_COLOR"`
	CueFillColor        *string `toml:"cue-fill-color" yaml:"QUE_FILL_COLOR"`
	CueRadius           *int    `toml:"cue-radius" yaml:"QUE_RADIUS"`
}

// LoadConfig reads a config from the given path. Files ending in .yaml or
// .yml are decoded as a legacy flat YAML mapping. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	if isYAML(path) {
		return loadYAML(path)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func loadYAML(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to read config: %w", err)
	}
	var exp ExperimentConfig
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return FileConfig{Experiment: exp}, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

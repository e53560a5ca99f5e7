package config

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/verte-zerg/cuetask/internal/model"
)

// MaxFrameRate is the highest frame-rate the terminal screen can confirm.
const MaxFrameRate = 100

// Defaults returns the built-in experiment settings.
func Defaults() model.Config {
	return model.Config{
		ReactionKeys:        []string{"z", "m"},
		CancelKey:           "esc",
		FixationMs:          500,
		CueMs:               200,
		BlankStimulusMs:     300,
		InterTrialBreakMs:   1000,
		InterSessionMs:      60000,
		TrainingTrials:      10,
		TrialsPerSession:    40,
		Sessions:            3,
		FrameRate:           60,
		BackgroundColor:     "#1E1E1E",
		StimulusColor:       "#F0F0F0",
		FixationColor:       "#F0F0F0",
		CueCongruentColor:   "#52C41A",
		CueIncongruentColor: "#FF4D4F",
		CueFillColor:        "#1E1E1E",
		CueRadius:           3,
	}
}

// Resolve overlays file settings on top of the defaults.
func Resolve(fc FileConfig) model.Config {
	cfg := Defaults()
	exp := fc.Experiment
	if len(exp.ReactionKeys) > 0 {
		cfg.ReactionKeys = make([]string, 0, len(exp.ReactionKeys))
		for _, key := range exp.ReactionKeys {
			cfg.ReactionKeys = append(cfg.ReactionKeys, strings.ToLower(key))
		}
	}
	applyString(&cfg.CancelKey, exp.CancelKey)
	applyInt(&cfg.FixationMs, exp.FixationMs)
	applyInt(&cfg.CueMs, exp.CueMs)
	applyInt(&cfg.BlankStimulusMs, exp.BlankStimulusMs)
	applyInt(&cfg.InterTrialBreakMs, exp.InterTrialBreakMs)
	applyInt(&cfg.InterSessionMs, exp.InterSessionMs)
	applyInt(&cfg.TrainingTrials, exp.TrainingTrials)
	applyInt(&cfg.Sessions, exp.Sessions)
	applyInt(&cfg.TrialsPerSession, exp.TrialsPerSession)
	applyInt(&cfg.FrameRate, exp.FrameRate)
	applyString(&cfg.BackgroundColor, exp.BackgroundColor)
	applyString(&cfg.StimulusColor, exp.StimulusColor)
	applyString(&cfg.FixationColor, exp.FixationColor)
	applyString(&cfg.CueCongruentColor, exp.CueCongruentColor)
	applyString(&cfg.CueIncongruentColor, exp.CueIncongruentColor)
	applyString(&cfg.CueFillColor, exp.CueFillColor)
	applyInt(&cfg.CueRadius, exp.CueRadius)
	return cfg
}

func applyString(target, value *string) {
	if value == nil {
		return
	}
	*target = *value
}

func applyInt(target, value *int) {
	if value == nil {
		return
	}
	*target = *value
}

// Validate checks the resolved settings before any trial runs.
func Validate(cfg model.Config) error {
	durations := []struct {
		name  string
		value int
	}{
		{"fixation-ms", cfg.FixationMs},
		{"cue-ms", cfg.CueMs},
		{"blank-stimulus-ms", cfg.BlankStimulusMs},
		{"trial-break-ms", cfg.InterTrialBreakMs},
		{"session-break-ms", cfg.InterSessionMs},
		{"training-trials", cfg.TrainingTrials},
		{"trials-per-session", cfg.TrialsPerSession},
		{"sessions", cfg.Sessions},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%s must be >= 0", d.name)
		}
	}
	if cfg.TrialsPerSession > 0 && cfg.Sessions < 1 {
		return fmt.Errorf("sessions must be >= 1")
	}
	if cfg.FrameRate <= 0 || cfg.FrameRate > MaxFrameRate {
		return fmt.Errorf("frame-rate must be between 1 and %d", MaxFrameRate)
	}
	if cfg.CueRadius < 1 {
		return fmt.Errorf("cue-radius must be >= 1")
	}
	if cfg.CancelKey == "" {
		return fmt.Errorf("cancel-key must not be empty")
	}
	seen := make(map[string]struct{}, len(cfg.ReactionKeys))
	for _, key := range cfg.ReactionKeys {
		if utf8.RuneCountInString(key) != 1 {
			return fmt.Errorf("reaction key %q must be a single character", key)
		}
		r, _ := utf8.DecodeRuneInString(key)
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return fmt.Errorf("reaction key %q must be a printable, non-space character", key)
		}
		// Key presses are reported lower-cased.
		if unicode.ToLower(r) != r {
			return fmt.Errorf("reaction key %q must be lower-case", key)
		}
		if key == cfg.CancelKey {
			return fmt.Errorf("reaction key %q collides with cancel-key", key)
		}
		seen[key] = struct{}{}
	}
	if len(seen) < 2 {
		return fmt.Errorf("reaction-keys must contain at least 2 distinct keys")
	}
	return nil
}

// Template renders a commented TOML config with the default values.
func Template() string {
	d := Defaults()
	return fmt.Sprintf(`# cuetask configuration
# Uncomment a value to enable it. Durations are in milliseconds.

[experiment]
# reaction-keys = [%q, %q]     # Keys the participant answers with
# cancel-key = %q              # Aborts the run on any screen that accepts input
# fixation-ms = %d             # Fixation mark
# cue-ms = %d                  # Colored ring cue
# blank-stimulus-ms = %d       # Stimulus with the target hidden
# trial-break-ms = %d         # Pause between trials
# session-break-ms = %d      # Pause between sessions
# training-trials = %d          # Practice trials (not saved)
# sessions = %d                  # Main-block sessions
# trials-per-session = %d       # Trials in each session
# frame-rate = %d               # Minimum event-loop frame rate (at most %d)
# background-color = %q
# stimulus-color = %q
# fixation-color = %q
# cue-congruent-color = %q
# cue-incongruent-color = %q
# cue-fill-color = %q
# cue-radius = %d
`,
		d.ReactionKeys[0], d.ReactionKeys[1],
		d.CancelKey,
		d.FixationMs,
		d.CueMs,
		d.BlankStimulusMs,
		d.InterTrialBreakMs,
		d.InterSessionMs,
		d.TrainingTrials,
		d.Sessions,
		d.TrialsPerSession,
		d.FrameRate, MaxFrameRate,
		d.BackgroundColor,
		d.StimulusColor,
		d.FixationColor,
		d.CueCongruentColor,
		d.CueIncongruentColor,
		d.CueFillColor,
		d.CueRadius,
	)
}

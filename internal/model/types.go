// Package model defines shared data structures.
package model

import "time"

// Config defines experiment settings. Durations are in milliseconds.
type Config struct {
	ReactionKeys []string
	CancelKey    string

	FixationMs        int
	CueMs             int
	BlankStimulusMs   int
	InterTrialBreakMs int
	InterSessionMs    int

	TrainingTrials   int
	TrialsPerSession int
	Sessions         int

	FrameRate int

	BackgroundColor     string
	StimulusColor       string
	FixationColor       string
	CueCongruentColor   string
	CueIncongruentColor string
	CueFillColor        string
	CueRadius           int
}

// Participant identifies the person taking part in a run.
type Participant struct {
	Identifier string
	Sex        string
	Age        string
}

// ID returns the composed participant identifier.
func (p Participant) ID() string {
	return p.Identifier + p.Sex + p.Age
}

// TrialSpec is the randomized description of a single trial.
type TrialSpec struct {
	Target        string
	Dist          string
	CueCongruent  bool
	EmptyStimulus string
	FullStimulus  string
}

// TrialOutcome is the classified response to a single trial.
type TrialOutcome struct {
	ReactionTime           float64
	Correct                bool
	Target                 string
	Hint                   bool
	CompliesWithDistractor bool
}

// ResultRecord is one persisted main-block trial.
type ResultRecord struct {
	ParticipantID          string
	TrialNo                int
	ReactionTime           float64
	Correct                bool
	Stimulus               string
	Hint                   bool
	CompliesWithDistractor bool
	// FailTime is nil until the post-processor has run.
	FailTime *float64
}

// RunStatus is the terminal state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
	RunFailed    RunStatus = "failed"
)

// RunInfo describes a stored run.
type RunInfo struct {
	ID            string
	ParticipantID string
	StartedAt     time.Time
	EndedAt       time.Time
	Status        RunStatus
	ResultsPath   string
}

// RunAggregate summarizes a stored run for listings.
type RunAggregate struct {
	RunInfo
	Trials    int
	Correct   int
	MeanRTSec float64
}

// RunFilter defines filters for run listings.
type RunFilter struct {
	ParticipantID string
	Since         *time.Time
	Last          int
}

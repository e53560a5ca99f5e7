// Package results accumulates trial records and derives fail times.
package results

import (
	"github.com/verte-zerg/cuetask/internal/model"
)

// Header is the fixed first row of every results table.
var Header = []string{
	"Part ID",
	"Trial no",
	"Reaction time",
	"Correctness",
	"Stimulus",
	"Hint",
	"Complies with distractors",
	"Fail time",
}

// Table is the results sequence of one run. Trial numbers start at 1 and
// increase by one per appended record.
type Table struct {
	participantID string
	rows          []model.ResultRecord
}

// NewTable returns an empty table for a participant.
func NewTable(participantID string) *Table {
	return &Table{participantID: participantID}
}

// ParticipantID returns the participant the table belongs to.
func (t *Table) ParticipantID() string {
	return t.participantID
}

// Append records a main-block outcome under the next trial number.
func (t *Table) Append(outcome model.TrialOutcome) model.ResultRecord {
	rec := model.ResultRecord{
		ParticipantID:          t.participantID,
		TrialNo:                len(t.rows) + 1,
		ReactionTime:           outcome.ReactionTime,
		Correct:                outcome.Correct,
		Stimulus:               outcome.Target,
		Hint:                   outcome.Hint,
		CompliesWithDistractor: outcome.CompliesWithDistractor,
	}
	t.rows = append(t.rows, rec)
	return rec
}

// Len returns the number of records, excluding the header.
func (t *Table) Len() int {
	return len(t.rows)
}

// Records returns a copy of the records in trial order.
func (t *Table) Records() []model.ResultRecord {
	out := make([]model.ResultRecord, len(t.rows))
	copy(out, t.rows)
	return out
}

// ComputeFailTimes fills the fail time of every record in place.
func (t *Table) ComputeFailTimes() {
	ComputeFailTimes(t.rows)
}

// ComputeFailTimes sets each record's fail time: 0 for the first record and
// after a correct record, otherwise the record's own reaction time. Running it
// again yields the same values.
func ComputeFailTimes(rows []model.ResultRecord) {
	for i := range rows {
		v := 0.0
		if i > 0 && !rows[i-1].Correct {
			v = rows[i].ReactionTime
		}
		rows[i].FailTime = &v
	}
}

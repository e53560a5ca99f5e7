package results

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/cuetask/internal/model"
)

func outcome(rt float64, correct bool) model.TrialOutcome {
	return model.TrialOutcome{ReactionTime: rt, Correct: correct, Target: "j"}
}

func failTimes(rows []model.ResultRecord) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = *r.FailTime
	}
	return out
}

func TestTableNumbersTrialsContiguously(t *testing.T) {
	tbl := NewTable("abcM20")
	for i := 0; i < 6; i++ {
		tbl.Append(outcome(0.4, true))
	}
	for i, rec := range tbl.Records() {
		assert.Equal(t, i+1, rec.TrialNo)
		assert.Equal(t, "abcM20", rec.ParticipantID)
		assert.Nil(t, rec.FailTime)
	}
}

func TestComputeFailTimes(t *testing.T) {
	tbl := NewTable("p")
	tbl.Append(outcome(0.5, false))
	tbl.Append(outcome(0.6, true))
	tbl.Append(outcome(0.7, false))
	tbl.Append(outcome(0.8, false))
	tbl.Append(outcome(0.9, true))
	tbl.ComputeFailTimes()

	// First row is 0 even though it follows nothing.
	assert.Equal(t, []float64{0, 0.6, 0, 0.8, 0.9}, failTimes(tbl.Records()))
}

func TestComputeFailTimesScenario(t *testing.T) {
	tbl := NewTable("p")
	tbl.Append(model.TrialOutcome{ReactionTime: 0.41, Correct: true, Target: "j"})
	tbl.Append(model.TrialOutcome{ReactionTime: 0.52, Correct: false, Target: "k", Hint: true})
	tbl.Append(model.TrialOutcome{ReactionTime: 0.63, Correct: true, Target: "j"})
	tbl.ComputeFailTimes()
	assert.Equal(t, []float64{0, 0, 0.63}, failTimes(tbl.Records()))
}

func TestComputeFailTimesIdempotent(t *testing.T) {
	tbl := NewTable("p")
	tbl.Append(outcome(0.5, false))
	tbl.Append(outcome(0.6, false))
	tbl.Append(outcome(0.7, true))
	tbl.ComputeFailTimes()
	first := failTimes(tbl.Records())
	tbl.ComputeFailTimes()
	assert.Equal(t, first, failTimes(tbl.Records()))
	for _, row := range tbl.Records() {
		assert.Len(t, Row(row), len(Header))
	}
}

func TestWriteCSV(t *testing.T) {
	tbl := NewTable("annaK21")
	tbl.Append(model.TrialOutcome{ReactionTime: 0.5, Correct: true, Target: "j", Hint: false})
	tbl.Append(model.TrialOutcome{ReactionTime: 0.25, Correct: false, Target: "k", Hint: true, CompliesWithDistractor: true})
	tbl.ComputeFailTimes()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl.Records()))
	want := "Part ID,Trial no,Reaction time,Correctness,Stimulus,Hint,Complies with distractors,Fail time\n" +
		"annaK21,1,0.5,YES,j,RED,NO,0\n" +
		"annaK21,2,0.25,NO,k,GREEN,YES,0\n"
	assert.Equal(t, want, buf.String())

	parsed, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, tbl.Records(), parsed)
}

func TestReadCSVRejectsShortRows(t *testing.T) {
	_, err := ReadCSV(bytes.NewBufferString("h\np,1,0.5\n"))
	assert.Error(t, err)
}

func TestCSVFileSave(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVFile(dir, "p1M30")
	assert.Regexp(t, regexp.MustCompile(`p1M30_[1-9]\d\d_beh\.csv$`), sink.Path())

	tbl := NewTable("p1M30")
	tbl.Append(outcome(0.3, true))
	require.NoError(t, sink.Save(context.Background(), model.RunCompleted, tbl))
	tbl.Append(outcome(0.4, true))
	require.NoError(t, sink.Save(context.Background(), model.RunCompleted, tbl))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := ReadCSV(f)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

type failingSink struct{ err error }

func (f failingSink) Save(context.Context, model.RunStatus, *Table) error { return f.err }

func TestSinksJoinErrors(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	err := Sinks{failingSink{errA}, failingSink{nil}, failingSink{errB}}.Save(context.Background(), model.RunAborted, NewTable("p"))
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

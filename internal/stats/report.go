package stats

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/verte-zerg/cuetask/internal/model"
	"github.com/verte-zerg/cuetask/internal/results"
	"github.com/verte-zerg/cuetask/internal/store"
)

// Report contains precomputed data for rendering one run.
type Report struct {
	Run     model.RunInfo
	Trials  []model.ResultRecord
	Summary Summary
}

// BuildReport loads a stored run and summarizes it.
func BuildReport(ctx context.Context, st *store.Store, runID string) (Report, error) {
	run, err := st.GetRun(ctx, runID)
	if err != nil {
		return Report{}, err
	}
	trials, err := st.ListTrials(ctx, runID)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Run:     run,
		Trials:  trials,
		Summary: Summarize(trials),
	}, nil
}

// LoadCSVReport summarizes a results file written by a run.
func LoadCSVReport(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to open results: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close after reading.
			_ = cerr
		}
	}()
	rows, err := results.ReadCSV(f)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	run := model.RunInfo{ResultsPath: path}
	if len(rows) > 0 {
		run.ParticipantID = rows[0].ParticipantID
	}
	return Report{Run: run, Trials: rows, Summary: Summarize(rows)}, nil
}

// Render writes the summary, the reaction time curve and the trial table.
func (r Report) Render(w io.Writer, window int) error {
	if err := RenderSummary(w, r.Summary); err != nil {
		return err
	}
	if err := RenderCurve(w, r.Trials, window); err != nil {
		return err
	}
	return RenderTrialTable(w, r.Trials)
}

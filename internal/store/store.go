// Package store handles SQLite persistence of runs and their trials.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/cuetask/internal/model"
	"github.com/verte-zerg/cuetask/internal/results"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			participant_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			status TEXT NOT NULL,
			results_path TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trials (
			run_id TEXT NOT NULL,
			trial_no INTEGER NOT NULL,
			reaction_time REAL NOT NULL,
			correct INTEGER NOT NULL,
			stimulus TEXT NOT NULL,
			hint INTEGER NOT NULL,
			complies INTEGER NOT NULL,
			fail_time REAL,
			PRIMARY KEY (run_id, trial_no)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_participant ON runs(participant_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// SaveRun upserts a run and replaces its trial rows.
func (s *Store) SaveRun(ctx context.Context, run model.RunInfo, rows []model.ResultRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, participant_id, started_at, ended_at, status, results_path)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			ended_at = excluded.ended_at,
			status = excluded.status,
			results_path = excluded.results_path`,
		run.ID,
		run.ParticipantID,
		run.StartedAt.Format(time.RFC3339Nano),
		run.EndedAt.Format(time.RFC3339Nano),
		string(run.Status),
		run.ResultsPath,
	); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM trials WHERE run_id = ?`, run.ID); err != nil {
		return err
	}

	if len(rows) > 0 {
		var stmt *sql.Stmt
		stmt, err = tx.PrepareContext(ctx,
			`INSERT INTO trials (run_id, trial_no, reaction_time, correct, stimulus, hint, complies, fail_time)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, rec := range rows {
			var failTime any
			if rec.FailTime != nil {
				failTime = *rec.FailTime
			}
			if _, err = stmt.ExecContext(ctx, run.ID, rec.TrialNo, rec.ReactionTime, rec.Correct, rec.Stimulus, rec.Hint, rec.CompliesWithDistractor, failTime); err != nil {
				return err
			}
		}
	}

	err = tx.Commit()
	return err
}

// GetRun returns a single run by id.
func (s *Store) GetRun(ctx context.Context, id string) (model.RunInfo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, participant_id, started_at, ended_at, status, results_path FROM runs WHERE id = ?`, id)
	var info model.RunInfo
	var startedAt, endedAt, status string
	if err := row.Scan(&info.ID, &info.ParticipantID, &startedAt, &endedAt, &status, &info.ResultsPath); err != nil {
		if err == sql.ErrNoRows {
			return model.RunInfo{}, fmt.Errorf("run %q not found", id)
		}
		return model.RunInfo{}, err
	}
	if err := parseTimes(&info, startedAt, endedAt); err != nil {
		return model.RunInfo{}, err
	}
	info.Status = model.RunStatus(status)
	return info, nil
}

// ListRuns returns run aggregates ordered by start time.
func (s *Store) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.RunAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.ParticipantID != "" {
		clauses = append(clauses, "r.participant_id = ?")
		args = append(args, filter.ParticipantID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "r.started_at >= ?")
		args = append(args, filter.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT r.id, r.participant_id, r.started_at, r.ended_at, r.status, r.results_path,
		COUNT(t.trial_no), COALESCE(SUM(t.correct), 0), COALESCE(AVG(t.reaction_time), 0)
		FROM runs r
		LEFT JOIN trials t ON t.run_id = r.id
		WHERE %s
		GROUP BY r.id
		ORDER BY r.started_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunAggregate
	for rows.Next() {
		var agg model.RunAggregate
		var startedAt, endedAt, status string
		if err := rows.Scan(&agg.ID, &agg.ParticipantID, &startedAt, &endedAt, &status, &agg.ResultsPath,
			&agg.Trials, &agg.Correct, &agg.MeanRTSec); err != nil {
			return nil, err
		}
		if err := parseTimes(&agg.RunInfo, startedAt, endedAt); err != nil {
			return nil, err
		}
		agg.Status = model.RunStatus(status)
		runs = append(runs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.Last > 0 && len(runs) > filter.Last {
		runs = runs[len(runs)-filter.Last:]
	}
	return runs, nil
}

// ListTrials returns the trial rows of a run in trial order.
func (s *Store) ListTrials(ctx context.Context, runID string) ([]model.ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.trial_no, t.reaction_time, t.correct, t.stimulus, t.hint, t.complies, t.fail_time, r.participant_id
		 FROM trials t
		 JOIN runs r ON r.id = t.run_id
		 WHERE t.run_id = ?
		 ORDER BY t.trial_no ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.ResultRecord
	for rows.Next() {
		var rec model.ResultRecord
		var failTime sql.NullFloat64
		if err := rows.Scan(&rec.TrialNo, &rec.ReactionTime, &rec.Correct, &rec.Stimulus, &rec.Hint,
			&rec.CompliesWithDistractor, &failTime, &rec.ParticipantID); err != nil {
			return nil, err
		}
		if failTime.Valid {
			v := failTime.Float64
			rec.FailTime = &v
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parseTimes(info *model.RunInfo, startedAt, endedAt string) error {
	started, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return err
	}
	ended, err := time.Parse(time.RFC3339Nano, endedAt)
	if err != nil {
		return err
	}
	info.StartedAt = started
	info.EndedAt = ended
	return nil
}

// RunSink records every save of a results table as one run.
type RunSink struct {
	store *Store
	run   model.RunInfo
	now   func() time.Time
}

// NewRunSink returns a sink for a run starting now. The participant is taken
// from the saved table.
func NewRunSink(st *Store, resultsPath string) *RunSink {
	return &RunSink{
		store: st,
		run: model.RunInfo{
			ID:          NewRunID(),
			StartedAt:   time.Now(),
			Status:      model.RunRunning,
			ResultsPath: resultsPath,
		},
		now: time.Now,
	}
}

// RunID returns the identifier the run is stored under.
func (r *RunSink) RunID() string {
	return r.run.ID
}

// Save implements results.Sink.
func (r *RunSink) Save(ctx context.Context, status model.RunStatus, t *results.Table) error {
	run := r.run
	run.ParticipantID = t.ParticipantID()
	run.Status = status
	run.EndedAt = r.now()
	if err := r.store.SaveRun(ctx, run, t.Records()); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	return nil
}

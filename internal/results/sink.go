package results

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/cuetask/internal/model"
)

// Sink persists a finished or interrupted results table.
type Sink interface {
	Save(ctx context.Context, status model.RunStatus, t *Table) error
}

// Sinks saves to every sink in order and joins their errors.
type Sinks []Sink

// Save implements Sink.
func (s Sinks) Save(ctx context.Context, status model.RunStatus, t *Table) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Save(ctx, status, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CSVFile writes the table to <dir>/<participant>_<NNN>_beh.csv. The suffix is
// drawn once, so repeated saves overwrite the same file.
type CSVFile struct {
	path string
}

// NewCSVFile picks the output path for a participant.
func NewCSVFile(dir, participantID string) *CSVFile {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return NewCSVFileWithSuffix(dir, participantID, 100+rnd.Intn(900))
}

// NewCSVFileWithSuffix uses a fixed numeric suffix.
func NewCSVFileWithSuffix(dir, participantID string, suffix int) *CSVFile {
	name := fmt.Sprintf("%s_%d_beh.csv", participantID, suffix)
	return &CSVFile{path: filepath.Join(dir, name)}
}

// Path returns the output file path.
func (f *CSVFile) Path() string {
	return f.path
}

// Save implements Sink.
func (f *CSVFile) Save(_ context.Context, _ model.RunStatus, t *Table) error {
	return WriteFile(f.path, t.Records())
}

// WriteFile atomically writes a results table to path.
func WriteFile(path string, rows []model.ResultRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create results dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "results-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp results: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	writer := bufio.NewWriter(tmpFile)
	if err := WriteCSV(writer, rows); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush results: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close results: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

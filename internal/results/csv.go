package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/verte-zerg/cuetask/internal/model"
)

const (
	yes   = "YES"
	no    = "NO"
	green = "GREEN"
	red   = "RED"
)

// Row formats a record as a table row. A record without a fail time yields
// seven columns.
func Row(rec model.ResultRecord) []string {
	row := []string{
		rec.ParticipantID,
		strconv.Itoa(rec.TrialNo),
		formatFloat(rec.ReactionTime),
		yesNo(rec.Correct),
		rec.Stimulus,
		hint(rec.Hint),
		yesNo(rec.CompliesWithDistractor),
	}
	if rec.FailTime != nil {
		row = append(row, formatFloat(*rec.FailTime))
	}
	return row
}

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, rows []model.ResultRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, rec := range rows {
		if err := cw.Write(Row(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a results table written by WriteCSV.
func ReadCSV(r io.Reader) ([]model.ResultRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("results table is empty")
	}
	rows := make([]model.ResultRecord, 0, len(all)-1)
	for i, line := range all[1:] {
		rec, err := parseRow(line)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func parseRow(line []string) (model.ResultRecord, error) {
	if len(line) < 7 || len(line) > 8 {
		return model.ResultRecord{}, fmt.Errorf("expected 7 or 8 columns, got %d", len(line))
	}
	trialNo, err := strconv.Atoi(line[1])
	if err != nil {
		return model.ResultRecord{}, fmt.Errorf("invalid trial number: %w", err)
	}
	rt, err := strconv.ParseFloat(line[2], 64)
	if err != nil {
		return model.ResultRecord{}, fmt.Errorf("invalid reaction time: %w", err)
	}
	rec := model.ResultRecord{
		ParticipantID:          line[0],
		TrialNo:                trialNo,
		ReactionTime:           rt,
		Correct:                line[3] == yes,
		Stimulus:               line[4],
		Hint:                   line[5] == green,
		CompliesWithDistractor: line[6] == yes,
	}
	if len(line) == 8 {
		ft, err := strconv.ParseFloat(line[7], 64)
		if err != nil {
			return model.ResultRecord{}, fmt.Errorf("invalid fail time: %w", err)
		}
		rec.FailTime = &ft
	}
	return rec, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func yesNo(v bool) string {
	if v {
		return yes
	}
	return no
}

func hint(congruent bool) string {
	if congruent {
		return green
	}
	return red
}

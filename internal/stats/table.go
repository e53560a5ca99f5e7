package stats

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/cuetask/internal/model"
)

// trialColumn describes one column of the per-trial table. Numeric columns
// are right-aligned.
type trialColumn struct {
	title   string
	numeric bool
	cell    func(model.ResultRecord) string
}

var trialColumns = []trialColumn{
	{"Trial", true, func(r model.ResultRecord) string { return strconv.Itoa(r.TrialNo) }},
	{"RT (ms)", true, func(r model.ResultRecord) string { return millisCell(r.ReactionTime) }},
	{"Correct", false, func(r model.ResultRecord) string { return yesNo(r.Correct) }},
	{"Target", false, func(r model.ResultRecord) string { return r.Stimulus }},
	{"Cue", false, func(r model.ResultRecord) string { return cueName(r.Hint) }},
	{"Distractor", false, func(r model.ResultRecord) string { return yesNo(r.CompliesWithDistractor) }},
	{"Fail (ms)", true, func(r model.ResultRecord) string {
		if r.FailTime == nil {
			return "-"
		}
		return millisCell(*r.FailTime)
	}},
}

// RenderTrialTable prints one line per trial.
func RenderTrialTable(w io.Writer, rows []model.ResultRecord) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No trials recorded.")
		return err
	}
	for _, line := range trialTableLines(rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// trialTableLines returns the header line followed by one line per record,
// with columns sized to their widest cell in terminal cells.
func trialTableLines(rows []model.ResultRecord) []string {
	cells := make([][]string, len(rows))
	widths := make([]int, len(trialColumns))
	for i, col := range trialColumns {
		widths[i] = runewidth.StringWidth(col.title)
	}
	for r, rec := range rows {
		cells[r] = make([]string, len(trialColumns))
		for i, col := range trialColumns {
			cell := col.cell(rec)
			cells[r][i] = cell
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	headers := make([]string, len(trialColumns))
	for i, col := range trialColumns {
		headers[i] = col.title
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, joinCells(headers, widths))
	for _, row := range cells {
		lines = append(lines, joinCells(row, widths))
	}
	return lines
}

func joinCells(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(' ')
		}
		pad := strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell))
		if trialColumns[i].numeric {
			b.WriteString(pad + cell)
			continue
		}
		b.WriteString(cell + pad)
	}
	return b.String()
}

func millisCell(seconds float64) string {
	return fmt.Sprintf("%.0f", seconds*1000)
}

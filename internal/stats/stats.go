// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/cuetask/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates the trials of one run.
type Summary struct {
	Trials        int
	Correct       int
	Errors        int
	Accuracy      float64
	MeanRT        float64
	MeanRTCorrect float64
	// Cue effect: incongruent minus congruent mean RT over correct trials.
	MeanRTCongruent   float64
	MeanRTIncongruent float64
	CueEffect         float64
	// DistractorRate is the share of errors that followed the distractor.
	DistractorRate float64
	// MeanFailTime averages the non-zero fail times.
	MeanFailTime float64
	FailTrials   int
}

// Summarize computes run-level metrics.
func Summarize(rows []model.ResultRecord) Summary {
	var s Summary
	s.Trials = len(rows)
	if s.Trials == 0 {
		return s
	}
	var sumRT, sumCorrect, sumCong, sumIncong, sumFail float64
	var nCong, nIncong, complies int
	for _, r := range rows {
		sumRT += r.ReactionTime
		if r.Correct {
			s.Correct++
			sumCorrect += r.ReactionTime
			if r.Hint {
				sumCong += r.ReactionTime
				nCong++
			} else {
				sumIncong += r.ReactionTime
				nIncong++
			}
		} else if r.CompliesWithDistractor {
			complies++
		}
		if r.FailTime != nil && *r.FailTime > 0 {
			sumFail += *r.FailTime
			s.FailTrials++
		}
	}
	s.Errors = s.Trials - s.Correct
	s.Accuracy = float64(s.Correct) / float64(s.Trials)
	s.MeanRT = sumRT / float64(s.Trials)
	s.MeanRTCorrect = mean(sumCorrect, s.Correct)
	s.MeanRTCongruent = mean(sumCong, nCong)
	s.MeanRTIncongruent = mean(sumIncong, nIncong)
	if nCong > 0 && nIncong > 0 {
		s.CueEffect = s.MeanRTIncongruent - s.MeanRTCongruent
	}
	s.DistractorRate = mean(float64(complies), s.Errors)
	s.MeanFailTime = mean(sumFail, s.FailTrials)
	return s
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// ReactionTimes returns the reaction time series in trial order.
func ReactionTimes(rows []model.ResultRecord) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.ReactionTime
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the metrics of one run.
func RenderSummary(w io.Writer, s Summary) error {
	if s.Trials == 0 {
		_, err := fmt.Fprintln(w, "No trials recorded.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Trials: %d", s.Trials),
		fmt.Sprintf("Accuracy: %.2f%% (%d errors)", s.Accuracy*100, s.Errors),
		fmt.Sprintf("Mean RT: %.0f ms", s.MeanRT*1000),
		fmt.Sprintf("Mean RT (correct): %.0f ms", s.MeanRTCorrect*1000),
		fmt.Sprintf("Green cue: %.0f ms  Red cue: %.0f ms  Effect: %+.0f ms",
			s.MeanRTCongruent*1000, s.MeanRTIncongruent*1000, s.CueEffect*1000),
		fmt.Sprintf("Errors following distractor: %.2f%%", s.DistractorRate*100),
		fmt.Sprintf("Mean fail time: %.0f ms over %d trials", s.MeanFailTime*1000, s.FailTrials),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurve prints a moving-average reaction time sparkline.
func RenderCurve(w io.Writer, rows []model.ResultRecord, window int) error {
	if len(rows) == 0 {
		return nil
	}
	curve := MovingAverage(ReactionTimes(rows), window)
	if _, err := fmt.Fprintf(w, "Reaction time (window %d)\n", window); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, Sparkline(curve)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func cueName(congruent bool) string {
	if congruent {
		return "green"
	}
	return "red"
}

// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/keydrill/internal/model"
)

const sparkChars = " .:-=+*#%@"

// WPM converts correct characters over elapsed time into words per minute,
// counting five characters per word.
func WPM(correct int, elapsed time.Duration) float64 {
	minutes := elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	return (float64(correct) / 5.0) / minutes
}

// SessionMetrics computes WPM, CPM, and accuracy (fraction) for a session.
func SessionMetrics(correct, incorrect int, durationMs int64) (wpm, cpm, accuracy float64) {
	if durationMs <= 0 {
		return 0, 0, 0
	}
	elapsed := time.Duration(durationMs) * time.Millisecond
	wpm = WPM(correct, elapsed)
	cpm = float64(correct) / elapsed.Minutes()
	den := float64(correct + incorrect)
	if den > 0 {
		accuracy = float64(correct) / den
	}
	return wpm, cpm, accuracy
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		den := float64(i + 1)
		if i >= window {
			sum -= values[i-window]
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
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	last := len(sparkChars) - 1
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round((v - minVal) / (maxVal - minVal) * float64(last)))
		idx = max(0, min(idx, last))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// KeyDifficulty scores an aggregate as errorRate*0.7 + (avgDelayMs/500)*0.3.
// A key without attempts scores 1.
func KeyDifficulty(agg model.KeyAggregate) float64 {
	if agg.Attempts == 0 {
		return 1
	}
	errRate := float64(agg.Errors) / float64(agg.Attempts)
	var delay float64
	if agg.DelayCount > 0 {
		delay = float64(agg.DelaySumMs) / float64(agg.DelayCount)
	}
	return errRate*0.7 + (delay/500)*0.3
}

// RenderSummary prints a summary of sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalWPM, totalCPM, totalAcc, bestWPM float64
	var unlocked []string
	for _, s := range sessions {
		wpm, cpm, acc := SessionMetrics(s.Correct, s.Incorrect, s.DurationMs)
		totalWPM += wpm
		totalCPM += cpm
		totalAcc += acc
		bestWPM = math.Max(bestWPM, wpm)
		if s.UnlockedKey != "" {
			unlocked = append(unlocked, s.UnlockedKey)
		}
	}
	count := float64(len(sessions))
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Avg WPM: %.2f", totalWPM/count),
		fmt.Sprintf("Best WPM: %.2f", bestWPM),
		fmt.Sprintf("Avg CPM: %.2f", totalCPM/count),
		fmt.Sprintf("Avg Accuracy: %.2f%%", (totalAcc/count)*100),
	}
	if len(unlocked) > 0 {
		lines = append(lines, fmt.Sprintf("Unlocked: %s", strings.Join(unlocked, " ")))
	}
	lines = append(lines, "")
	return writeLines(w, lines)
}

// RenderCurves prints learning curves for WPM and accuracy.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window int) error {
	return RenderCurvesWithSize(w, sessions, window, 0, defaultPlotHeight, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, sessions []model.SessionAggregate, window, totalWidth, height int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	wpms := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		wpm, _, acc := SessionMetrics(s.Correct, s.Incorrect, s.DurationMs)
		wpms[i] = wpm
		accs[i] = acc * 100
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "WPM", Values: MovingAverage(wpms, window)},
		{Name: "Accuracy", Values: MovingAverage(accs, window)},
	}, plotWidth(totalWidth), height, useColor)
}

// RenderKeyTable prints per-key aggregates, hardest first.
func RenderKeyTable(w io.Writer, aggs []model.KeyAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No key stats found.")
		return err
	}
	rows := make([]model.KeyAggregate, len(aggs))
	copy(rows, aggs)
	sort.Slice(rows, func(i, j int) bool {
		di, dj := KeyDifficulty(rows[i]), KeyDifficulty(rows[j])
		if di == dj {
			return rows[i].Key < rows[j].Key
		}
		return di > dj
	})

	headers := []string{"Key", "Difficulty", "Accuracy", "Avg Delay (ms)", "Hits", "Errors"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		acc := 0.0
		if r.Attempts > 0 {
			acc = float64(r.Hits) / float64(r.Attempts)
		}
		delay := 0.0
		if r.DelayCount > 0 {
			delay = float64(r.DelaySumMs) / float64(r.DelayCount)
		}
		tableRows = append(tableRows, []string{
			KeyLabel(r.Key),
			fmt.Sprintf("%.3f", KeyDifficulty(r)),
			fmt.Sprintf("%.2f%%", acc*100),
			fmt.Sprintf("%.1f", delay),
			fmt.Sprintf("%d", r.Hits),
			fmt.Sprintf("%d", r.Errors),
		})
	}
	lines := append([]string{"Per-Key (Windowed)"}, FormatTable(headers, tableRows, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true})...)
	return writeLines(w, append(lines, ""))
}

// RenderPairTable prints pairs with at least minTotal observations, highest
// error rate first.
func RenderPairTable(w io.Writer, aggs []model.PairAggregate, minTotal, top int) error {
	rows := make([]model.PairAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Hits+agg.Errors >= minTotal {
			rows = append(rows, agg)
		}
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No pair stats found.")
		return err
	}
	sort.Slice(rows, func(i, j int) bool {
		ri, rj := pairErrorRate(rows[i]), pairErrorRate(rows[j])
		if ri == rj {
			return rows[i].Pair < rows[j].Pair
		}
		return ri > rj
	})
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	headers := []string{"Pair", "Error Rate", "Hits", "Errors"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			PairLabel(r.Pair),
			fmt.Sprintf("%.2f%%", pairErrorRate(r)*100),
			fmt.Sprintf("%d", r.Hits),
			fmt.Sprintf("%d", r.Errors),
		})
	}
	lines := append([]string{"Weak Pairs (Windowed)"}, FormatTable(headers, tableRows, map[int]bool{1: true, 2: true, 3: true})...)
	return writeLines(w, append(lines, ""))
}

// RenderKeyCurves prints per-key learning curves.
func RenderKeyCurves(w io.Writer, sessions []model.SessionAggregate, perSession map[string]map[string]model.KeyAggregate, keys []string, window int) error {
	return RenderKeyCurvesWithSize(w, sessions, perSession, keys, window, 0, defaultPlotHeight, false)
}

// RenderKeyCurvesWithSize prints per-key learning curves sized to a given total width.
func RenderKeyCurvesWithSize(w io.Writer, sessions []model.SessionAggregate, perSession map[string]map[string]model.KeyAggregate, keys []string, window, totalWidth, height int, useColor bool) error {
	if len(keys) == 0 || len(sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Per-Key Curves"); err != nil {
		return err
	}
	for _, key := range keys {
		accSeries := make([]float64, len(sessions))
		delaySeries := make([]float64, len(sessions))
		for i, s := range sessions {
			agg, ok := perSession[s.SessionID][key]
			if !ok {
				continue
			}
			if agg.Attempts > 0 {
				accSeries[i] = float64(agg.Hits) / float64(agg.Attempts) * 100
			}
			if agg.DelayCount > 0 {
				delaySeries[i] = float64(agg.DelaySumMs) / float64(agg.DelayCount)
			}
		}
		if err := PlotSeriesWithColor(w, fmt.Sprintf("Key %s", KeyLabel(key)), []Series{
			{Name: "Accuracy", Values: MovingAverage(accSeries, window)},
			{Name: "Delay", Values: MovingAverage(delaySeries, window)},
		}, plotWidth(totalWidth), height, useColor); err != nil {
			return err
		}
	}
	return nil
}

// TopKeysByFrequency returns the n most attempted keys.
func TopKeysByFrequency(aggs []model.KeyAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	items := make([]model.KeyAggregate, len(aggs))
	copy(items, aggs)
	sort.Slice(items, func(i, j int) bool {
		if items[i].Attempts == items[j].Attempts {
			return items[i].Key < items[j].Key
		}
		return items[i].Attempts > items[j].Attempts
	})
	n = min(n, len(items))
	out := make([]string, 0, n)
	for _, item := range items[:n] {
		out = append(out, item.Key)
	}
	return out
}

// KeyLabel renders a key for tables, spelling out the space key.
func KeyLabel(key string) string {
	if key == " " {
		return "<space>"
	}
	return key
}

// PairLabel renders a pair for tables, showing spaces as a middle dot.
func PairLabel(pair string) string {
	return strings.ReplaceAll(pair, " ", "·")
}

func pairErrorRate(agg model.PairAggregate) float64 {
	total := agg.Hits + agg.Errors
	if total == 0 {
		return 0
	}
	return float64(agg.Errors) / float64(total)
}

func plotWidth(totalWidth int) int {
	if totalWidth <= 0 {
		return 0
	}
	return PlotWidthFor(totalWidth)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

package statsui

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/keydrill/internal/model"
	"github.com/verte-zerg/keydrill/internal/proficiency"
	"github.com/verte-zerg/keydrill/internal/stats"
)

func (m *Model) initTables() {
	m.keyTable = newTable([]table.Column{
		{Title: "Key", Width: 9},
		{Title: "Accuracy", Width: 9},
		{Title: "Avg Delay (ms)", Width: 15},
		{Title: "Hits", Width: 6},
		{Title: "Errors", Width: 6},
		{Title: "Difficulty", Width: 10},
	})
	m.pairTable = newTable([]table.Column{
		{Title: "Pair", Width: 6},
		{Title: "Error Rate", Width: 10},
		{Title: "Hits", Width: 6},
		{Title: "Errors", Width: 6},
		{Title: "Total", Width: 6},
	})
}

func newTable(columns []table.Column) table.Model {
	t := table.New(table.WithColumns(columns), table.WithHeight(1))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.Padding(0, 1).PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	t.SetStyles(styles)
	return t
}

// keyRows lists keys hardest first.
func keyRows(aggs []model.KeyAggregate) []table.Row {
	sorted := append([]model.KeyAggregate(nil), aggs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := stats.KeyDifficulty(sorted[i]), stats.KeyDifficulty(sorted[j])
		if di == dj {
			return sorted[i].Key < sorted[j].Key
		}
		return di > dj
	})
	rows := make([]table.Row, 0, len(sorted))
	for _, agg := range sorted {
		acc := 0.0
		if agg.Attempts > 0 {
			acc = float64(agg.Hits) / float64(agg.Attempts) * 100
		}
		delay := 0.0
		if agg.DelayCount > 0 {
			delay = float64(agg.DelaySumMs) / float64(agg.DelayCount)
		}
		rows = append(rows, table.Row{
			stats.KeyLabel(agg.Key),
			fmt.Sprintf("%.2f%%", acc),
			fmt.Sprintf("%.1f", delay),
			fmt.Sprintf("%d", agg.Hits),
			fmt.Sprintf("%d", agg.Errors),
			fmt.Sprintf("%.3f", stats.KeyDifficulty(agg)),
		})
	}
	return rows
}

// pairRows lists pairs with enough observations, highest error rate first.
func pairRows(aggs []model.PairAggregate) []table.Row {
	kept := make([]model.PairAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Hits+agg.Errors >= proficiency.DefaultMinPairTotal {
			kept = append(kept, agg)
		}
	}
	rate := func(agg model.PairAggregate) float64 {
		return float64(agg.Errors) / float64(agg.Hits+agg.Errors)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		ri, rj := rate(kept[i]), rate(kept[j])
		if ri == rj {
			return kept[i].Pair < kept[j].Pair
		}
		return ri > rj
	})
	rows := make([]table.Row, 0, len(kept))
	for _, agg := range kept {
		rows = append(rows, table.Row{
			stats.PairLabel(agg.Pair),
			fmt.Sprintf("%.1f%%", rate(agg)*100),
			fmt.Sprintf("%d", agg.Hits),
			fmt.Sprintf("%d", agg.Errors),
			fmt.Sprintf("%d", agg.Hits+agg.Errors),
		})
	}
	return rows
}

func renderOverview(sessions []model.SessionAggregate, window, width int) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}
	var totalWPM, totalAcc, bestWPM float64
	unlocked := 0
	for _, s := range sessions {
		wpm, _, acc := stats.SessionMetrics(s.Correct, s.Incorrect, s.DurationMs)
		totalWPM += wpm
		totalAcc += acc
		bestWPM = max(bestWPM, wpm)
		if s.UnlockedKey != "" {
			unlocked++
		}
	}
	count := float64(len(sessions))
	cards := []string{
		metricCard("Sessions", fmt.Sprintf("%d", len(sessions))),
		metricCard("Avg WPM", fmt.Sprintf("%.1f", totalWPM/count)),
		metricCard("Best WPM", fmt.Sprintf("%.1f", bestWPM)),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", totalAcc/count*100)),
		metricCard("Unlocks", fmt.Sprintf("%d", unlocked)),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		summary = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2]),
			lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4]),
		)
	}

	var buf bytes.Buffer
	if err := stats.RenderCurvesWithSize(&buf, sessions, window, width, plotHeight, true); err != nil {
		return summary + "\n\n" + fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(summary+"\n\n"+buf.String(), "\n")
}

func metricCard(label, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func renderKeyCurves(sessions []model.SessionAggregate, keys []string, perSession map[string]map[string]model.KeyAggregate, window, width int, errMsg string) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}
	if errMsg != "" {
		return fmt.Sprintf("Failed to load key curves: %s", errMsg)
	}
	if len(keys) == 0 {
		return "No keys selected. Press Enter to set keys."
	}
	header := headerStyle.Render("Keys: " + joinKeys(keys))
	var buf bytes.Buffer
	if err := stats.RenderKeyCurvesWithSize(&buf, sessions, perSession, keys, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render key curves: %v", err)
	}
	return strings.TrimRight(header+"\n"+buf.String(), "\n")
}

// joinKeys is the inverse of stats.ParseKeys.
func joinKeys(keys []string) string {
	out := make([]string, len(keys))
	for i, k := range keys {
		if k == " " {
			k = "space"
		}
		out[i] = k
	}
	return strings.Join(out, ",")
}

func sameKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	return (n/5 + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func modalWidth(width int) int {
	return max(40, min(width-4, 80))
}

func modalInnerWidth(width int) int {
	// 2 border + 4 padding
	return max(10, modalWidth(width)-6)
}

func padLine(line string, width int) string {
	if w := lipgloss.Width(line); w < width {
		return line + strings.Repeat(" ", width-w)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

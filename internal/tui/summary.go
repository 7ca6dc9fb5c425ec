package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/keydrill/internal/session"
	"github.com/verte-zerg/keydrill/internal/stats"
)

func renderSummary(sum *session.Summary) string {
	lines := []string{
		titleStyle.Render("Line complete"),
		"",
		fmt.Sprintf("Average WPM  %.1f", sum.AverageWPM),
		fmt.Sprintf("Final WPM    %.1f", sum.FinalWPM),
		fmt.Sprintf("Accuracy     %.1f%%", sum.Accuracy),
		fmt.Sprintf("Errors       %d of %d", sum.Errors, sum.TotalChars),
		fmt.Sprintf("Time         %.1fs", sum.Duration().Seconds()),
	}
	if spark := stats.Sparkline(sum.WPMSamples); spark != "" {
		lines = append(lines, "WPM trend    "+spark)
	}
	if sum.UnlockedKey != 0 {
		lines = append(lines, "", noticeStyle.Render(fmt.Sprintf("New key unlocked: %s", strings.ToUpper(string(sum.UnlockedKey)))))
	}

	if len(sum.WeakKeys) > 0 {
		rows := make([][]string, 0, len(sum.WeakKeys))
		for _, k := range sum.WeakKeys {
			rows = append(rows, []string{
				stats.KeyLabel(string(k.Key)),
				fmt.Sprintf("%.2f", k.Difficulty),
				fmt.Sprintf("%.0f%%", k.ErrorRate*100),
				fmt.Sprintf("%d", k.Attempts),
			})
		}
		lines = append(lines, "", "Weak keys")
		lines = append(lines, stats.FormatTable([]string{"Key", "Score", "Errors", "Tries"}, rows, map[int]bool{1: true, 2: true, 3: true})...)
	}
	if len(sum.WeakPairs) > 0 {
		rows := make([][]string, 0, len(sum.WeakPairs))
		for _, p := range sum.WeakPairs {
			rows = append(rows, []string{
				stats.PairLabel(p.Pair),
				fmt.Sprintf("%.0f%%", p.ErrorRate*100),
				fmt.Sprintf("%d", p.Total),
			})
		}
		lines = append(lines, "", "Weak pairs")
		lines = append(lines, stats.FormatTable([]string{"Pair", "Errors", "Seen"}, rows, map[int]bool{1: true, 2: true})...)
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

package tui

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/keydrill/internal/proficiency"
	"github.com/verte-zerg/keydrill/internal/session"
)

var keyboardRows = []string{"qwertyuiop", "asdfghjkl", "zxcvbnm"}

var bandStyles = map[proficiency.Band]lipgloss.Style{
	proficiency.BandLocked: lipgloss.NewStyle().Foreground(lipgloss.Color("#3A3A3A")),
	proficiency.BandNormal: lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")),
	proficiency.BandShaky:  lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")),
	proficiency.BandWeak:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true),
}

// renderKeyboard draws a QWERTY layout colored by proficiency band, with the
// next expected key underlined.
func renderKeyboard(snap session.Snapshot) string {
	var next rune
	if line := []rune(snap.Line); snap.State == session.StateActive && snap.Cursor < len(line) {
		next = unicode.ToLower(line[snap.Cursor])
	}
	rows := make([]string, 0, len(keyboardRows))
	for i, row := range keyboardRows {
		cells := make([]string, 0, len(row))
		for _, r := range row {
			style := bandStyles[snap.Bands[r]]
			if r == next {
				style = style.Underline(true)
			}
			cells = append(cells, style.Render(strings.ToUpper(string(r))))
		}
		rows = append(rows, strings.Repeat(" ", i)+strings.Join(cells, " "))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

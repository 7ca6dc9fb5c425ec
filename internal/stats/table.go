package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// FormatTable lays out rows under headers with columns padded to display
// width. Columns in rightAlignCols are right aligned. Short rows are padded
// with empty cells.
func FormatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	all := rows
	if len(headers) > 0 {
		all = append([][]string{headers}, rows...)
	}
	widths := columnWidths(all)
	if len(widths) == 0 {
		return nil
	}

	lines := make([]string, len(all))
	cells := make([]string, len(widths))
	for i, row := range all {
		for col, width := range widths {
			var cell string
			if col < len(row) {
				cell = row[col]
			}
			if rightAlignCols[col] {
				cells[col] = runewidth.FillLeft(cell, width)
			} else {
				cells[col] = runewidth.FillRight(cell, width)
			}
		}
		lines[i] = strings.Join(cells, " ")
	}
	return lines
}

func columnWidths(rows [][]string) []int {
	var widths []int
	for _, row := range rows {
		for col, cell := range row {
			if col == len(widths) {
				widths = append(widths, 0)
			}
			widths[col] = max(widths[col], runewidth.StringWidth(cell))
		}
	}
	return widths
}

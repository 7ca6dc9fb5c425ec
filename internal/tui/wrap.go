package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// wrongSpace marks a space that was mistyped.
const wrongSpace = '•'

type glyph struct {
	text  string
	width int
	space bool
}

// renderLine styles each rune of line against input. cursor is -1 once the
// line is complete.
func renderLine(line, input []rune, cursor int) []glyph {
	wordStart, wordEnd := currentWord(line, cursor)
	out := make([]glyph, 0, len(line))
	for i, want := range line {
		shown := want
		style := pendingStyle
		switch {
		case i < len(input) && input[i] == want:
			style = correctStyle
		case i < len(input):
			style = incorrectStyle
			if want == ' ' {
				shown = wrongSpace
			}
		case i >= wordStart && i < wordEnd:
			style = currentWordStyle
		}
		if i == cursor && i >= len(input) {
			style = style.Underline(true)
		}
		out = append(out, glyph{
			text:  style.Render(string(shown)),
			width: runewidth.RuneWidth(shown),
			space: want == ' ',
		})
	}
	return out
}

// currentWord returns the bounds of the word at or after cursor. A cursor
// past every word selects the last one.
func currentWord(line []rune, cursor int) (int, int) {
	if cursor < 0 {
		cursor = 0
	}
	start, end := -1, -1
	for i := 0; i <= len(line); i++ {
		inWord := i < len(line) && line[i] != ' '
		switch {
		case inWord && start < 0:
			start = i
		case !inWord && start >= 0:
			end = i
			if cursor < end {
				return start, end
			}
			start = -1
		}
	}
	if end < 0 {
		return 0, 0
	}
	lastStart := end
	for lastStart > 0 && line[lastStart-1] != ' ' {
		lastStart--
	}
	return lastStart, end
}

// wrapGlyphs breaks glyphs into lines of at most width cells, preferring to
// break at spaces. The breaking space is dropped.
func wrapGlyphs(glyphs []glyph, width int) string {
	if width <= 0 {
		return joinGlyphs(glyphs)
	}
	var lines []string
	var line []glyph
	lineWidth := 0
	for _, g := range glyphs {
		if lineWidth+g.width > width && len(line) > 0 {
			cut := len(line)
			rest := []glyph(nil)
			for i := len(line) - 1; i >= 0; i-- {
				if line[i].space {
					cut = i
					rest = append(rest, line[i+1:]...)
					break
				}
			}
			lines = append(lines, joinGlyphs(line[:cut]))
			line = rest
			lineWidth = 0
			for _, r := range rest {
				lineWidth += r.width
			}
		}
		line = append(line, g)
		lineWidth += g.width
	}
	lines = append(lines, joinGlyphs(line))
	return strings.Join(lines, "\n")
}

func joinGlyphs(glyphs []glyph) string {
	var b strings.Builder
	for _, g := range glyphs {
		b.WriteString(g.text)
	}
	return b.String()
}

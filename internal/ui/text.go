package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Width is the display width of s in terminal cells.
func Width(s string) int { return runewidth.StringWidth(s) }

// PadRight pads s with spaces to width cells. It never truncates.
func PadRight(s string, width int) string {
	if w := Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// Truncate cuts s to width cells, marking the cut with an ellipsis. A
// non-positive width leaves s alone.
func Truncate(s string, width int) string {
	if width <= 0 || Width(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

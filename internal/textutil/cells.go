package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

const DefaultTabWidth = 4

// Cell is one screen cell of a laid-out document line. Offset is the byte
// offset in the document of the rune the cell was produced from; a tab or a
// labelled formatting rune produces several cells with the same offset.
type Cell struct {
	Rune   rune
	Comb   []rune
	Offset int
	Width  int
}

// LayoutLine turns line into screen cells. base is the document offset of
// the line's first byte. Tabs expand to the next multiple of tabWidth and
// control or invisible formatting runes are replaced by visible stand-ins.
func LayoutLine(line string, base, tabWidth int) []Cell {
	cells := make([]Cell, 0, len(line))
	column := 0
	for i := 0; i < len(line); {
		ru, size := utf8.DecodeRuneInString(line[i:])
		offset := base + i
		i += size

		switch {
		case ru == '\t' && tabWidth > 0:
			spaces := tabWidth - (column % tabWidth)
			for n := 0; n < spaces; n++ {
				cells = append(cells, Cell{Rune: ' ', Offset: offset, Width: 1})
			}
			column += spaces
			continue
		case requiresSanitization(ru):
			for _, label := range sanitizeRune(ru) {
				w := runeWidth(label)
				cells = append(cells, Cell{Rune: label, Offset: offset, Width: w})
				column += w
			}
			continue
		}

		if runewidth.RuneWidth(ru) == 0 && len(cells) > 0 && ru >= 0x300 {
			last := &cells[len(cells)-1]
			last.Comb = append(last.Comb, ru)
			continue
		}
		w := runeWidth(ru)
		cells = append(cells, Cell{Rune: ru, Offset: offset, Width: w})
		column += w
	}
	return cells
}

// DisplayWidth reports the printable width of text accounting for wide runes.
func DisplayWidth(text string) int {
	width := 0
	for _, ru := range text {
		width += runeWidth(ru)
	}
	return width
}

// Truncate clips text to maxWidth columns, ending with an ellipsis when
// anything was cut.
func Truncate(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if DisplayWidth(text) <= maxWidth {
		return text
	}
	const ellipsis = '…'
	available := maxWidth - runeWidth(ellipsis)
	var b strings.Builder
	width := 0
	for _, ru := range text {
		w := runeWidth(ru)
		if width+w > available {
			break
		}
		b.WriteRune(ru)
		width += w
	}
	b.WriteRune(ellipsis)
	return b.String()
}

func runeWidth(ru rune) int {
	w := runewidth.RuneWidth(ru)
	if w <= 0 {
		return 1
	}
	return w
}

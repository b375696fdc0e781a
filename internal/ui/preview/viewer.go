// Package preview shows a document in the terminal with every candidate of
// a resolved selection marked and one of them focused.
package preview

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/kk-code-lab/spanmark/internal/anchor"
	"github.com/kk-code-lab/spanmark/internal/textutil"
)

type lineRange struct {
	start, end int
}

// Viewer renders one resolved selection. It owns no terminal setup; the
// caller creates, initializes and finalizes the screen.
type Viewer struct {
	screen tcell.Screen
	theme  Theme
	title  string

	doc      string
	lines    []lineRange
	spans    []anchor.Span
	focus    int
	top      int
	stripped bool
}

// New builds a viewer for doc. The focused candidate starts at the span
// the resolution picked.
func New(screen tcell.Screen, doc string, res anchor.Resolution, title string) *Viewer {
	v := &Viewer{
		screen:   screen,
		theme:    DefaultTheme(),
		title:    title,
		doc:      doc,
		lines:    splitLines(doc),
		stripped: res.Stripped,
	}
	for _, c := range res.Candidates {
		v.spans = append(v.spans, c.Span())
	}
	if len(v.spans) == 0 && res.Span.Len() > 0 {
		v.spans = append(v.spans, res.Span)
	}
	for i, s := range v.spans {
		if s == res.Span {
			v.focus = i
			break
		}
	}
	return v
}

// Focused returns the span currently focused, or false if there are no
// candidates.
func (v *Viewer) Focused() (anchor.Span, bool) {
	if len(v.spans) == 0 {
		return anchor.Span{}, false
	}
	return v.spans[v.focus], true
}

// Run draws and handles events until the user accepts a candidate (Enter)
// or leaves (q, Esc, Ctrl-C). accepted is false when the user left.
func (v *Viewer) Run() (span anchor.Span, accepted bool) {
	v.reveal()
	v.Draw()
	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return anchor.Span{}, false
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			v.screen.Sync()
		case *tcell.EventKey:
			done, ok := v.HandleKey(ev)
			if done {
				if !ok {
					return anchor.Span{}, false
				}
				return v.Focused()
			}
		}
		v.Draw()
	}
}

// HandleKey applies one key press. done reports that the viewer should
// close; accepted that it closes on the focused candidate.
func (v *Viewer) HandleKey(ev *tcell.EventKey) (done, accepted bool) {
	page := v.bodyHeight()
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true, false
	case tcell.KeyEnter:
		_, ok := v.Focused()
		return true, ok
	case tcell.KeyUp:
		v.scroll(-1)
	case tcell.KeyDown:
		v.scroll(1)
	case tcell.KeyPgUp:
		v.scroll(-page)
	case tcell.KeyPgDn:
		v.scroll(page)
	case tcell.KeyHome:
		v.top = 0
	case tcell.KeyEnd:
		v.scroll(len(v.lines))
	case tcell.KeyTab:
		v.cycle(1)
	case tcell.KeyBacktab:
		v.cycle(-1)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return true, false
		case 'j':
			v.scroll(1)
		case 'k':
			v.scroll(-1)
		case 'n':
			v.cycle(1)
		case 'N', 'p':
			v.cycle(-1)
		}
	}
	return false, false
}

func (v *Viewer) cycle(delta int) {
	if len(v.spans) == 0 {
		return
	}
	v.focus = (v.focus + delta + len(v.spans)) % len(v.spans)
	v.reveal()
}

func (v *Viewer) scroll(delta int) {
	v.top += delta
	if maxTop := len(v.lines) - v.bodyHeight(); v.top > maxTop {
		v.top = maxTop
	}
	if v.top < 0 {
		v.top = 0
	}
}

// reveal scrolls so the first line of the focused span is on screen,
// centering it when it was off screen.
func (v *Viewer) reveal() {
	span, ok := v.Focused()
	if !ok {
		return
	}
	line := v.lineAt(span.Start)
	height := v.bodyHeight()
	if line >= v.top && line < v.top+height {
		return
	}
	v.top = line - height/2
	v.scroll(0)
}

func (v *Viewer) bodyHeight() int {
	_, h := v.screen.Size()
	if h <= 1 {
		return 1
	}
	return h - 1
}

func (v *Viewer) lineAt(offset int) int {
	for i, l := range v.lines {
		if offset <= l.end {
			return i
		}
	}
	return len(v.lines) - 1
}

// Draw renders the visible lines and the status bar.
func (v *Viewer) Draw() {
	v.screen.Clear()
	width, height := v.screen.Size()
	gutterWidth := len(strconv.Itoa(len(v.lines))) + 2
	focused, hasFocus := v.Focused()

	for row := 0; row < height-1; row++ {
		idx := v.top + row
		if idx >= len(v.lines) {
			break
		}
		l := v.lines[idx]
		marker := ' '
		if hasFocus && focused.Start <= l.end && focused.End > l.start {
			marker = '>'
		}
		gutter := fmt.Sprintf("%*d%c", gutterWidth-1, idx+1, marker)
		v.drawString(0, row, width, gutter, v.theme.Gutter)

		x := gutterWidth
		for _, cell := range textutil.LayoutLine(v.doc[l.start:l.end], l.start, textutil.DefaultTabWidth) {
			if x+cell.Width > width {
				break
			}
			v.screen.SetContent(x, row, cell.Rune, cell.Comb, v.styleAt(cell.Offset))
			x += cell.Width
		}
	}
	v.drawStatus(width, height-1)
	v.screen.Show()
}

func (v *Viewer) styleAt(offset int) tcell.Style {
	if span, ok := v.Focused(); ok && offset >= span.Start && offset < span.End {
		return v.theme.Focused
	}
	for _, s := range v.spans {
		if offset >= s.Start && offset < s.End {
			return v.theme.Candidate
		}
	}
	return v.theme.Text
}

func (v *Viewer) drawStatus(width, y int) {
	if y < 0 {
		return
	}
	var parts []string
	if v.title != "" {
		parts = append(parts, textutil.SanitizeTerminalText(v.title))
	}
	if span, ok := v.Focused(); ok {
		parts = append(parts, fmt.Sprintf("%d/%d  %d..%d", v.focus+1, len(v.spans), span.Start, span.End))
	} else {
		parts = append(parts, "no match")
	}
	if v.stripped {
		parts = append(parts, "via visible text")
	}
	if textutil.HasFormattingRunes(v.doc) {
		parts = append(parts, "invisible characters shown as ⟪…⟫")
	}
	parts = append(parts, "n/N next  ⏎ accept  q quit")
	status := textutil.Truncate(strings.Join(parts, "  |  "), width)

	for x := 0; x < width; x++ {
		v.screen.SetContent(x, y, ' ', nil, v.theme.Status)
	}
	v.drawString(0, y, width, status, v.theme.Status)
}

func (v *Viewer) drawString(x, y, maxX int, text string, style tcell.Style) int {
	for _, ru := range text {
		w := textutil.DisplayWidth(string(ru))
		if x+w > maxX {
			break
		}
		v.screen.SetContent(x, y, ru, nil, style)
		x += w
	}
	return x
}

func splitLines(doc string) []lineRange {
	var lines []lineRange
	start := 0
	for i := 0; i < len(doc); i++ {
		if doc[i] == '\n' {
			end := i
			if end > start && doc[end-1] == '\r' {
				end--
			}
			lines = append(lines, lineRange{start: start, end: end})
			start = i + 1
		}
	}
	return append(lines, lineRange{start: start, end: len(doc)})
}

package preview

import "github.com/gdamore/tcell/v2"

// Theme holds the styles the viewer draws with.
type Theme struct {
	Text      tcell.Style
	Gutter    tcell.Style
	Candidate tcell.Style
	Focused   tcell.Style
	Status    tcell.Style
}

// DefaultTheme returns the default color scheme.
func DefaultTheme() Theme {
	base := tcell.StyleDefault
	return Theme{
		Text:      base,
		Gutter:    base.Foreground(tcell.ColorLightSlateGray),
		Candidate: base.Background(tcell.Color238).Foreground(tcell.Color252),
		Focused:   base.Background(tcell.Color220).Foreground(tcell.ColorBlack),
		Status:    base.Background(tcell.Color33).Foreground(tcell.ColorWhite),
	}
}

package anchor

// Projection is the visible-text rendering of a raw document together with
// the offset of every kept byte in the raw source.
type Projection struct {
	Text string
	Map  []int
}

// RawOffset translates a stripped offset back into the raw document.
// Offsets at or past the end of the projection map to one past the last
// kept byte.
func (p Projection) RawOffset(stripped int) int {
	if len(p.Map) == 0 {
		return 0
	}
	if stripped < 0 {
		return p.Map[0]
	}
	if stripped >= len(p.Map) {
		return p.Map[len(p.Map)-1] + 1
	}
	return p.Map[stripped]
}

// Span is a half-open byte range in a raw document.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

// Candidate is one occurrence of a snippet in the raw document.
type Candidate struct {
	Start int
	End   int
	Text  string
	Score float64
}

func (c Candidate) Span() Span { return Span{Start: c.Start, End: c.End} }

// Selection describes what the reader selected in the rendered view.
// Context is only consulted when HasContext is set.
type Selection struct {
	Snippet    string
	Context    string
	HasContext bool
	Occurrence int
}

// NewSelection builds a Selection with a context string.
func NewSelection(snippet, context string, occurrence int) Selection {
	return Selection{
		Snippet:    snippet,
		Context:    context,
		HasContext: true,
		Occurrence: occurrence,
	}
}

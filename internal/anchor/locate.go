package anchor

import (
	"regexp"
	"strings"
)

// whitespaceRun matches what a renderer may collapse into a single space,
// including the non-breaking spaces browsers put into copied selections.
const whitespaceRun = `[\s\p{Zs}]+`

var whitespaceRunRe = regexp.MustCompile(whitespaceRun)

// SnippetPattern compiles a pattern that matches snippet literally except
// that every whitespace run matches any non-empty run of whitespace. Invalid
// UTF-8 in snippet is replaced with U+FFFD before compiling.
func SnippetPattern(snippet string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(strings.ToValidUTF8(snippet, "\uFFFD"))
	return regexp.MustCompile(whitespaceRunRe.ReplaceAllLiteralString(escaped, whitespaceRun))
}

// Candidates returns every occurrence of snippet in raw, in source order.
// The exact pass runs on the raw text; only when it finds nothing is the
// stripped projection searched and its matches mapped back.
func Candidates(raw, snippet string) []Candidate {
	candidates, _ := findCandidates(raw, snippet)
	return candidates
}

func findCandidates(raw, snippet string) ([]Candidate, bool) {
	if snippet == "" {
		return nil, false
	}
	re := SnippetPattern(snippet)

	var candidates []Candidate
	for _, loc := range re.FindAllStringIndex(raw, -1) {
		if loc[1] <= loc[0] {
			continue
		}
		candidates = append(candidates, Candidate{Start: loc[0], End: loc[1], Text: raw[loc[0]:loc[1]]})
	}
	if len(candidates) > 0 {
		return candidates, false
	}

	proj := Strip(raw)
	for _, loc := range re.FindAllStringIndex(proj.Text, -1) {
		if loc[1] <= loc[0] {
			continue
		}
		start := proj.Map[loc[0]]
		// Stripped bytes map one to one onto raw bytes, so the byte after
		// the last matched one closes the span without pulling in markup
		// that follows the match.
		end := proj.Map[loc[1]-1] + 1
		candidates = append(candidates, Candidate{Start: start, End: end, Text: raw[start:end]})
	}
	return candidates, true
}

// Locate resolves a rendered selection to a span of raw. It reports false
// when the snippet occurs neither in raw nor in its stripped projection.
func Locate(raw string, sel Selection) (Span, bool) {
	res, ok := Resolve(raw, sel)
	if !ok {
		return Span{}, false
	}
	return res.Span, true
}

// Resolution is the full outcome of a locate call, kept for callers that
// report or preview the competing candidates.
type Resolution struct {
	Span       Span
	Candidates []Candidate
	Valid      []Candidate
	Stripped   bool
}

// Resolve runs the locate algorithm and returns the chosen span together
// with the candidates it was chosen from.
func Resolve(raw string, sel Selection) (Resolution, bool) {
	candidates, stripped := findCandidates(raw, sel.Snippet)
	if len(candidates) == 0 {
		return Resolution{Stripped: stripped}, false
	}
	res := Resolution{Candidates: candidates, Stripped: stripped}

	if !sel.HasContext {
		res.Span = candidates[0].Span()
		return res, true
	}

	Rank(raw, candidates, sel.Context)
	res.Valid = FilterValid(candidates)
	if len(res.Valid) == 0 {
		res.Span = candidates[0].Span()
		return res, true
	}
	pick := res.Valid[0]
	if sel.Occurrence >= 0 && sel.Occurrence < len(res.Valid) {
		pick = res.Valid[sel.Occurrence]
	}
	res.Span = pick.Span()
	return res, true
}

// LineBounds returns the raw line enclosing [start, end): from just after
// the previous newline to just before the next one.
func LineBounds(raw string, start, end int) (int, int) {
	lineStart := strings.LastIndexByte(raw[:start], '\n') + 1
	lineEnd := len(raw)
	if idx := strings.IndexByte(raw[end:], '\n'); idx >= 0 {
		lineEnd = end + idx
	}
	return lineStart, lineEnd
}

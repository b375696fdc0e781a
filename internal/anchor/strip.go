package anchor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type visibleKind int

const (
	// visibleDrop contributes nothing to the projection.
	visibleDrop visibleKind = iota
	// visibleScan rescans the visible range with the full rule list.
	visibleScan
	// visibleVerbatim copies the visible range unchanged.
	visibleVerbatim
)

// ruleMatch reports a construct starting at a scan position. start and end
// delimit the visible part, relative to the scan position.
type ruleMatch struct {
	consumed int
	start    int
	end      int
	kind     visibleKind
}

type stripRule struct {
	name  string
	lead  string
	match func(raw string, i, hi int) (ruleMatch, bool)
}

// Rules are tried in order; the first rule that matches at a position wins.
var stripRules = []stripRule{
	regexRule("embed", "!", `^!\[\[([^\]|\n]+)(?:\|([^\]\n]+))?\]\]`, visibleScan),
	regexRule("ref-image", "!", `^!\[([^\]\n]*)\]\[[^\]\n]*\]`, visibleScan),
	regexRule("image", "!", `^!\[([^\]\n]*)\]\([^)\n]*\)`, visibleScan),
	regexRule("ref-link", "[", `^\[([^\]\n]+)\]\[[^\]\n]*\]`, visibleScan),
	regexRule("link", "[", `^\[([^\]\n]+)\]\([^)\n]*\)`, visibleScan),
	regexRule("wikilink", "[", `^\[\[([^\]|\n]+)(?:\|([^\]\n]+))?\]\]`, visibleScan),
	regexRule("footnote", "[", `^\[\^([^\]\s]+)\]`, visibleVerbatim),
	regexRule("block-math", "$", `^\$\$([\s\S]+?)\$\$`, visibleVerbatim),
	regexRule("inline-math", "$", `^\$([^\s$](?:[^$\n]*?[^\s$])?)\$`, visibleVerbatim),
	regexRule("comment", "%", `^%%[\s\S]*?%%`, visibleDrop),
	{name: "code", lead: "`", match: matchCodeSpan},
	regexRule("autolink", "<", `^<([a-zA-Z][a-zA-Z0-9+.-]*://[^\s<>]+|[^\s<>@]+@[^\s<>@]+\.[^\s<>@]+)>`, visibleVerbatim),
	regexRule("html-comment", "<", `^<!--[\s\S]*?-->`, visibleDrop),
	regexRule("tag", "<", `^</?[a-zA-Z][a-zA-Z0-9-]*(?:\s[^<>]*)?/?>`, visibleDrop),
	regexRule("escape", `\`, "^\\\\([!-/:-@\\[-`{-~])", visibleVerbatim),
	{name: "emphasis", lead: "*_~=", match: matchDelimiter},
}

var ruleLeads [256]bool

func init() {
	for _, rule := range stripRules {
		for i := 0; i < len(rule.lead); i++ {
			ruleLeads[rule.lead[i]] = true
		}
	}
}

// regexRule builds a rule from an anchored pattern. The visible part is the
// last non-empty capture group among the first two, which gives aliases
// priority over names for the bracket forms.
func regexRule(name, lead, pattern string, kind visibleKind) stripRule {
	re := regexp.MustCompile(pattern)
	return stripRule{
		name: name,
		lead: lead,
		match: func(raw string, i, hi int) (ruleMatch, bool) {
			loc := re.FindStringSubmatchIndex(raw[i:hi])
			if loc == nil || loc[1] == 0 {
				return ruleMatch{}, false
			}
			m := ruleMatch{consumed: loc[1], kind: kind}
			if kind == visibleDrop {
				return m, true
			}
			m.start, m.end = loc[2], loc[3]
			if len(loc) >= 6 && loc[4] >= 0 && loc[5] > loc[4] {
				m.start, m.end = loc[4], loc[5]
			}
			if m.start < 0 {
				m.start, m.end = 0, 0
			}
			return m, true
		},
	}
}

func matchCodeSpan(raw string, i, hi int) (ruleMatch, bool) {
	src := raw[i:hi]
	count := countRepeat(src, '`')
	end := findClosingBackticks(src[count:], count)
	if end == -1 {
		// An unclosed run is literal text; keep all of it so the next
		// backtick is not mistaken for an opener.
		return ruleMatch{consumed: count, start: 0, end: count, kind: visibleVerbatim}, true
	}
	return ruleMatch{
		consumed: count + end + count,
		start:    count,
		end:      count + end,
		kind:     visibleVerbatim,
	}, true
}

func findClosingBackticks(s string, count int) int {
	for i := 0; i < len(s); i++ {
		if s[i] != '`' {
			continue
		}
		run := countRepeat(s[i:], '`')
		if run == count {
			return i
		}
		i += run - 1
	}
	return -1
}

func countRepeat(s string, target byte) int {
	n := 0
	for n < len(s) && s[n] == target {
		n++
	}
	return n
}

// matchDelimiter drops emphasis runs. An underscore run between two word
// runes is intraword and stays literal.
func matchDelimiter(raw string, i, hi int) (ruleMatch, bool) {
	c := raw[i]
	run := countRepeat(raw[i:hi], c)
	switch c {
	case '*':
		if run > 3 {
			run = 3
		}
	case '_':
		if isWordRuneBefore(raw, i) && isWordRuneAt(raw, i+run, hi) {
			return ruleMatch{}, false
		}
		if run > 3 {
			run = 3
		}
	case '~', '=':
		if run < 2 {
			return ruleMatch{}, false
		}
		run = 2
	default:
		return ruleMatch{}, false
	}
	return ruleMatch{consumed: run, kind: visibleDrop}, true
}

func isWordRuneBefore(s string, i int) bool {
	if i <= 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isWordRuneAt(s string, i, hi int) bool {
	if i >= hi {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:hi])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

type stripper struct {
	raw string
	out strings.Builder
	pos []int
}

// Strip builds the visible-text projection of raw. Every byte of the
// projection records the raw offset it was copied from.
func Strip(raw string) Projection {
	s := &stripper{raw: raw, pos: make([]int, 0, len(raw))}
	s.out.Grow(len(raw))
	s.scan(0, len(raw))
	return Projection{Text: s.out.String(), Map: s.pos}
}

func (s *stripper) scan(lo, hi int) {
	i := lo
	for i < hi {
		if ruleLeads[s.raw[i]] {
			if m, ok := s.matchAt(i, hi); ok {
				switch m.kind {
				case visibleScan:
					s.scan(i+m.start, i+m.end)
				case visibleVerbatim:
					s.keep(i+m.start, i+m.end)
				}
				i += m.consumed
				continue
			}
		}
		_, size := utf8.DecodeRuneInString(s.raw[i:hi])
		s.keep(i, i+size)
		i += size
	}
}

func (s *stripper) matchAt(i, hi int) (ruleMatch, bool) {
	c := s.raw[i]
	for _, rule := range stripRules {
		if strings.IndexByte(rule.lead, c) < 0 {
			continue
		}
		if m, ok := rule.match(s.raw, i, hi); ok {
			return m, true
		}
	}
	return ruleMatch{}, false
}

func (s *stripper) keep(lo, hi int) {
	s.out.WriteString(s.raw[lo:hi])
	for i := lo; i < hi; i++ {
		s.pos = append(s.pos, i)
	}
}

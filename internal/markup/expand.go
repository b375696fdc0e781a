package markup

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kk-code-lab/spanmark/internal/anchor"
)

// Longer delimiters first so "**" is absorbed whole instead of as two "*".
var (
	openDelimiters  = []string{"**", "==", "~~", "[[", "*", "_", "["}
	closeDelimiters = []string{"</mark>", "**", "==", "~~", "]]", "*", "_", "]"}
)

var markOpenTag = regexp.MustCompile(`^<mark(?:\s[^<>]*)?>$`)

// Expand grows span outward while it touches markup delimiters, so that a
// selection just inside an existing marker absorbs the marker instead of
// nesting a new one inside it.
func Expand(doc string, span anchor.Span) anchor.Span {
	span, _, _ = expand(doc, span)
	return span
}

// expand also returns the absorbed openers and closers, innermost first.
func expand(doc string, span anchor.Span) (anchor.Span, []string, []string) {
	var opens, closes []string
	for {
		n, m := openerBefore(doc, span.Start), closerAfter(doc, span.End)
		if n == 0 && m == 0 {
			return span, opens, closes
		}
		if n > 0 {
			opens = append(opens, doc[span.Start-n:span.Start])
			span.Start -= n
		}
		if m > 0 {
			closes = append(closes, doc[span.End:span.End+m])
			span.End += m
		}
	}
}

func openerBefore(doc string, pos int) int {
	before := doc[:pos]
	if strings.HasSuffix(before, ">") {
		if idx := strings.LastIndex(before, "<mark"); idx >= 0 && markOpenTag.MatchString(before[idx:]) {
			return pos - idx
		}
	}
	for _, d := range openDelimiters {
		if !strings.HasSuffix(before, d) {
			continue
		}
		if d == "_" && endsWithWordRune(before[:len(before)-1]) {
			continue
		}
		return len(d)
	}
	return 0
}

func closerAfter(doc string, pos int) int {
	after := doc[pos:]
	for _, d := range closeDelimiters {
		if !strings.HasPrefix(after, d) {
			continue
		}
		if d == "_" && startsWithWordRune(after[1:]) {
			continue
		}
		return len(d)
	}
	return 0
}

// An underscore between letters or digits is part of the word, not emphasis.
func endsWithWordRune(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return isWordRune(r)
}

func startsWithWordRune(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

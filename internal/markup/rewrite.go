package markup

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/kk-code-lab/spanmark/internal/anchor"
)

var (
	paragraphBreak = regexp.MustCompile(`\n(?:[ \t]*\n)+`)

	// Indent, blockquote markers, then at most one of heading hashes or a
	// list marker with an optional task checkbox.
	structuralPrefix = regexp.MustCompile(`^[ \t]*(?:>[ \t]?)*[ \t]*(?:#{1,6}[ \t]+|(?:[-*+]|\d+[.)])[ \t]+(?:\[[ xX]\][ \t]+)?)?`)

	markTag     = regexp.MustCompile(`</?mark(?:\s[^<>]*)?>`)
	italicStar  = regexp.MustCompile(`(^|[^\w*])\*([^\s*](?:[^*\n]*[^\s*])?)\*($|[^\w*])`)
	italicUnder = regexp.MustCompile(`(^|[^\w])_([^\s_](?:[^_\n]*[^\s_])?)_($|[^\w])`)

	// Paired markers hug their content, so "a == b" and "2 ** 3" stay put.
	highlightPair = regexp.MustCompile(`==([^\s=](?:[^\n]*?[^\s=])?)==`)
	boldPair      = regexp.MustCompile(`\*\*([^\s*](?:[^\n]*?[^\s*])?)\*\*`)
	strikePair    = regexp.MustCompile(`~~([^\s~](?:[^\n]*?[^\s~])?)~~`)
)

const pairReplacer = "${1}${2}${3}"

// spanEdges describes how the rewritten text sits in its document.
type spanEdges struct {
	midLine bool     // text starts after the beginning of a line
	opens   []string // delimiters absorbed in front, outermost first
	closes  []string // delimiters absorbed behind, outermost first
}

// Apply expands span over touching delimiters, rewrites the covered text
// and returns the new document with the span of the rewritten text.
func Apply(doc string, span anchor.Span, opts Options) (string, anchor.Span) {
	grown, opens, closes := expand(doc, span)
	slices.Reverse(opens)
	slices.Reverse(closes)
	edges := spanEdges{
		midLine: grown.Start > 0 && doc[grown.Start-1] != '\n',
		opens:   opens,
		closes:  closes,
	}
	replaced := rewrite(doc[grown.Start:grown.End], opts, edges)
	out := doc[:grown.Start] + replaced + doc[grown.End:]
	return out, anchor.Span{Start: grown.Start, End: grown.Start + len(replaced)}
}

// Rewrite applies opts to every non-blank line of text. Paragraph breaks
// and blank lines are kept byte for byte. Text is treated as starting at
// the beginning of a line.
func Rewrite(text string, opts Options) string {
	return rewrite(text, opts, spanEdges{})
}

func rewrite(text string, opts Options, edges spanEdges) string {
	breaks := paragraphBreak.FindAllStringIndex(text, -1)
	var b strings.Builder
	b.Grow(len(text) + 16)
	last := 0
	for i := 0; i <= len(breaks); i++ {
		end := len(text)
		if i < len(breaks) {
			end = breaks[i][0]
		}
		paraEdges := edges
		if i > 0 {
			paraEdges.midLine, paraEdges.opens = false, nil
		}
		if i < len(breaks) {
			paraEdges.closes = nil
		}
		b.WriteString(rewriteParagraph(text[last:end], opts, paraEdges))
		if i < len(breaks) {
			b.WriteString(text[breaks[i][0]:breaks[i][1]])
			last = breaks[i][1]
		}
	}
	return b.String()
}

func rewriteParagraph(paragraph string, opts Options, edges spanEdges) string {
	lines := strings.Split(paragraph, "\n")
	for i, line := range lines {
		lineEdges := edges
		if i > 0 {
			lineEdges.midLine, lineEdges.opens = false, nil
		}
		if i < len(lines)-1 {
			lineEdges.closes = nil
		}
		lines[i] = rewriteLine(line, opts, lineEdges)
	}
	return strings.Join(lines, "\n")
}

// rewriteLine rewrites a single line, keeping its structural prefix in
// front of any tags and markup.
func rewriteLine(line string, opts Options, edges spanEdges) string {
	if strings.TrimSpace(line) == "" {
		return line
	}
	prefix, content := "", line
	if !edges.midLine {
		prefix, content = SplitPrefix(line)
	}
	if opts.Mode != ModeTag {
		content = StripMarkers(content, opts.Mode)
		content = trimAbsorbed(content, opts.Mode, edges)
	}
	if opts.Mode == ModeRemove {
		return prefix + content
	}

	lead, core, trail := splitOuterSpace(content)
	if core == "" {
		return line
	}
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(lead)
	for _, tag := range opts.tagTokens(core) {
		b.WriteString(tag)
		b.WriteByte(' ')
	}
	openMark, closeMark := opts.wrap()
	b.WriteString(openMark)
	b.WriteString(core)
	b.WriteString(closeMark)
	b.WriteString(trail)
	return b.String()
}

// SplitPrefix separates the structural prefix (indent, quote markers,
// heading hashes, list bullet or number, checkbox) from the line content.
func SplitPrefix(line string) (string, string) {
	n := len(structuralPrefix.FindString(line))
	return line[:n], line[n:]
}

// StripMarkers removes existing paired markup from content. Remove mode
// only takes out highlights; every other mode also clears bold and italic
// so the new wrap does not nest inside old emphasis.
func StripMarkers(content string, mode Mode) string {
	content = markTag.ReplaceAllString(content, "")
	content = highlightPair.ReplaceAllString(content, "${1}")
	if mode == ModeRemove {
		return content
	}
	content = boldPair.ReplaceAllString(content, "${1}")
	content = replaceUntilStable(italicStar, content)
	content = replaceUntilStable(italicUnder, content)
	if mode == ModeStrike {
		content = strikePair.ReplaceAllString(content, "${1}")
	}
	return content
}

func strips(mode Mode, delim string) bool {
	switch delim {
	case "==":
		return true
	case "**", "*", "_":
		return mode != ModeRemove
	case "~~":
		return mode == ModeStrike
	}
	return false
}

// trimAbsorbed drops absorbed delimiters left at the line edges after
// paired stripping, which happens when their partner is on another line.
// Mark tags are already gone and delimiters the mode keeps stay in place.
func trimAbsorbed(content string, mode Mode, edges spanEdges) string {
	pos := 0
	for _, d := range edges.opens {
		if strings.HasPrefix(d, "<") {
			continue
		}
		if !strings.HasPrefix(content[pos:], d) {
			break
		}
		if strips(mode, d) {
			content = content[:pos] + content[pos+len(d):]
		} else {
			pos += len(d)
		}
	}
	end := len(content)
	for _, d := range edges.closes {
		if strings.HasPrefix(d, "<") {
			continue
		}
		if end < pos || !strings.HasSuffix(content[pos:end], d) {
			break
		}
		if strips(mode, d) {
			content = content[:end-len(d)] + content[end:]
		}
		end -= len(d)
	}
	return content
}

// replaceUntilStable reapplies re because adjacent pairs share the boundary
// character a single pass consumes.
func replaceUntilStable(re *regexp.Regexp, s string) string {
	for i := 0; i < len(s); i++ {
		next := re.ReplaceAllString(s, pairReplacer)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func splitOuterSpace(s string) (string, string, string) {
	core := strings.TrimLeftFunc(s, unicode.IsSpace)
	lead := s[:len(s)-len(core)]
	trimmed := strings.TrimRightFunc(core, unicode.IsSpace)
	return lead, trimmed, core[len(trimmed):]
}

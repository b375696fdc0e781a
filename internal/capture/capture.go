// Package capture derives a selection description from rendered HTML the
// way a document viewer does from its live DOM: the visible text of the
// smallest block around the selection, and that block's rank among blocks
// of the same tag with identical text.
package capture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kk-code-lab/spanmark/internal/anchor"
	"github.com/kk-code-lab/spanmark/internal/diag"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNotFound reports that the snippet does not occur in the rendered text.
var ErrNotFound = errors.New("selection not found in rendered html")

func init() {
	diag.RegisterNotFound(ErrNotFound)
}

var blockElements = map[atom.Atom]struct{}{
	atom.Address:    {},
	atom.Article:    {},
	atom.Aside:      {},
	atom.Blockquote: {},
	atom.Body:       {},
	atom.Dd:         {},
	atom.Details:    {},
	atom.Div:        {},
	atom.Dl:         {},
	atom.Dt:         {},
	atom.Figcaption: {},
	atom.Figure:     {},
	atom.Footer:     {},
	atom.H1:         {},
	atom.H2:         {},
	atom.H3:         {},
	atom.H4:         {},
	atom.H5:         {},
	atom.H6:         {},
	atom.Header:     {},
	atom.Li:         {},
	atom.Main:       {},
	atom.Nav:        {},
	atom.Ol:         {},
	atom.P:          {},
	atom.Pre:        {},
	atom.Section:    {},
	atom.Summary:    {},
	atom.Table:      {},
	atom.Td:         {},
	atom.Th:         {},
	atom.Tr:         {},
	atom.Ul:         {},
}

var skippedElements = map[atom.Atom]struct{}{
	atom.Head:     {},
	atom.Script:   {},
	atom.Style:    {},
	atom.Template: {},
	atom.Noscript: {},
}

type textRun struct {
	node       *html.Node
	start, end int
}

// flattened is the rendered text with a newline between blocks, so a
// selection crossing blocks still matches the whitespace-tolerant pattern.
type flattened struct {
	text strings.Builder
	runs []textRun
}

func (f *flattened) breakLine() {
	s := f.text.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		f.text.WriteByte('\n')
	}
}

func (f *flattened) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		if _, skip := skippedElements[n.DataAtom]; skip {
			return
		}
	}
	if n.Type == html.TextNode {
		start := f.text.Len()
		f.text.WriteString(n.Data)
		f.runs = append(f.runs, textRun{node: n, start: start, end: f.text.Len()})
		return
	}
	block := isBlock(n)
	if block {
		f.breakLine()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		f.walk(c)
	}
	if block {
		f.breakLine()
	}
}

func (f *flattened) runAt(pos int) *html.Node {
	for _, run := range f.runs {
		if pos >= run.start && pos < run.end {
			return run.node
		}
	}
	return nil
}

// FromHTML finds the nth (zero-based) rendered occurrence of snippet in
// document and describes it as a Selection.
func FromHTML(document, snippet string, nth int) (anchor.Selection, error) {
	snippet = strings.TrimSpace(snippet)
	if snippet == "" {
		return anchor.Selection{}, ErrNotFound
	}
	root, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return anchor.Selection{}, fmt.Errorf("parse rendered html: %w", err)
	}

	var flat flattened
	flat.walk(root)
	text := flat.text.String()

	if nth < 0 {
		nth = 0
	}
	matches := anchor.SnippetPattern(snippet).FindAllStringIndex(text, nth+1)
	if len(matches) <= nth {
		return anchor.Selection{}, ErrNotFound
	}
	loc := matches[nth]

	first := flat.runAt(loc[0])
	last := flat.runAt(loc[1] - 1)
	if first == nil || last == nil {
		return anchor.Selection{}, ErrNotFound
	}

	block := enclosingBlock(first)
	for block != nil && !contains(block, last) {
		block = enclosingBlock(block.Parent)
	}
	if block == nil {
		return anchor.Selection{Snippet: snippet}, nil
	}

	context := TextContent(block)
	return anchor.NewSelection(snippet, context, ordinal(root, block, context)), nil
}

// TextContent concatenates every text node under n, like the DOM property.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			if _, skip := skippedElements[n.DataAtom]; skip {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}

func isBlock(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	_, ok := blockElements[n.DataAtom]
	return ok
}

func enclosingBlock(n *html.Node) *html.Node {
	for ; n != nil; n = n.Parent {
		if isBlock(n) {
			return n
		}
	}
	return nil
}

func contains(ancestor, n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == ancestor {
			return true
		}
	}
	return false
}

// ordinal counts the blocks before target, in document order, that share
// its tag and its text.
func ordinal(root, target *html.Node, context string) int {
	count := 0
	found := false
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if found {
			return
		}
		if n == target {
			found = true
			return
		}
		if n.Type == html.ElementNode && n.Data == target.Data && TextContent(n) == context {
			count++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	return count
}

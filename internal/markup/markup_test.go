package markup

import (
	"strings"
	"testing"

	"github.com/kk-code-lab/spanmark/internal/anchor"
)

func spanOf(t *testing.T, doc, text string) anchor.Span {
	t.Helper()
	idx := strings.Index(doc, text)
	if idx < 0 {
		t.Fatalf("%q not found in %q", text, doc)
	}
	return anchor.Span{Start: idx, End: idx + len(text)}
}

func TestExpandAbsorbsTouchingDelimiters(t *testing.T) {
	tests := []struct {
		doc, inner, want string
	}{
		{"a **bold** b", "bold", "**bold**"},
		{"x ==**a**== y", "a", "==**a**=="},
		{`x <mark style="background: red;">hi</mark> y`, "hi", `<mark style="background: red;">hi</mark>`},
		{"see [[Page]] now", "Page", "[[Page]]"},
		{"plain words", "words", "words"},
		{"a ~~gone~~ b", "gone", "~~gone~~"},
	}

	for _, tt := range tests {
		got := Expand(tt.doc, spanOf(t, tt.doc, tt.inner))
		if text := tt.doc[got.Start:got.End]; text != tt.want {
			t.Errorf("Expand(%q, %q) = %q, want %q", tt.doc, tt.inner, text, tt.want)
		}
	}
}

func TestExpandStopsAtDocumentEdges(t *testing.T) {
	doc := "**x**"
	got := Expand(doc, anchor.Span{Start: 2, End: 3})
	if got.Start != 0 || got.End != len(doc) {
		t.Fatalf("Expand = %+v, want whole document", got)
	}
}

func TestRewriteHighlightKeepsStructuralPrefix(t *testing.T) {
	opts := Options{Mode: ModeHighlight}
	tests := []struct {
		in, want string
	}{
		{"- item one", "- ==item one=="},
		{"## Title **x**", "## ==Title x=="},
		{"- [ ] task", "- [ ] ==task=="},
		{"  * [x] done", "  * [x] ==done=="},
		{"> quote", "> ==quote=="},
		{"> > - nested", "> > - ==nested=="},
		{"12. step", "12. ==step=="},
		{"*a* and **b**", "==a and b=="},
		{" foo ", " ==foo== "},
		{"snake_case", "==snake_case=="},
		{"#tag not heading", "==#tag not heading=="},
	}

	for _, tt := range tests {
		if got := Rewrite(tt.in, opts); got != tt.want {
			t.Errorf("Rewrite(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRewriteParagraphsAndBlankLines(t *testing.T) {
	in := "one\ntwo\n\n  \nthree"
	want := "==one==\n==two==\n\n  \n==three=="
	if got := Rewrite(in, Options{Mode: ModeHighlight}); got != want {
		t.Fatalf("Rewrite = %q, want %q", got, want)
	}
}

func TestRewriteColorAndEmphasisModes(t *testing.T) {
	tests := []struct {
		opts Options
		in   string
		want string
	}{
		{Options{Mode: ModeColor, Color: "#ff0"}, "text", `<mark style="background: #ff0;">text</mark>`},
		{Options{Mode: ModeColor}, "text", "<mark>text</mark>"},
		{Options{Mode: ModeColor, Color: "red", MarkTemplate: `<mark class="%s">`}, "- text", `- <mark class="red">text</mark>`},
		{Options{Mode: ModeBold}, "==old== text", "**old text**"},
		{Options{Mode: ModeItalic}, "- text", "- *text*"},
		{Options{Mode: ModeStrike}, "~~a~~ b", "~~a b~~"},
	}

	for _, tt := range tests {
		if got := Rewrite(tt.in, tt.opts); got != tt.want {
			t.Errorf("Rewrite(%q, %s) = %q, want %q", tt.in, tt.opts.Mode, got, tt.want)
		}
	}
}

func TestRewriteTagsAfterPrefix(t *testing.T) {
	opts := Options{Mode: ModeHighlight, Tags: []string{"review", "#todo", " "}, TagPrefix: "#"}
	if got := Rewrite("- item", opts); got != "- #review #todo ==item==" {
		t.Fatalf("Rewrite = %q", got)
	}

	tagOnly := Options{Mode: ModeTag, Tags: []string{"review"}, TagPrefix: "#"}
	once := Rewrite("- **item**", tagOnly)
	if once != "- #review **item**" {
		t.Fatalf("tag mode = %q", once)
	}
	if twice := Rewrite(once, tagOnly); twice != once {
		t.Fatalf("tag mode not idempotent: %q -> %q", once, twice)
	}
}

func TestRewriteRemoveOnlyStripsHighlights(t *testing.T) {
	in := `- ==item== and <mark style="background: red;">x</mark> **keep** *this*`
	want := "- item and x **keep** *this*"
	if got := Rewrite(in, Options{Mode: ModeRemove}); got != want {
		t.Fatalf("Rewrite remove = %q, want %q", got, want)
	}
}

func TestRewriteRemoveIsIdempotent(t *testing.T) {
	lines := []string{"- item one", "## heading *x*", "plain", ""}
	for _, line := range lines {
		once := Rewrite(line, Options{Mode: ModeRemove})
		if once != line {
			t.Fatalf("remove changed unhighlighted line %q -> %q", line, once)
		}
		if twice := Rewrite(once, Options{Mode: ModeRemove}); twice != once {
			t.Fatalf("second remove changed %q -> %q", once, twice)
		}
	}
}

func TestApplyHighlightsLocatedOccurrence(t *testing.T) {
	doc := "- item one\n- item one\n- item one"
	span, ok := anchor.Locate(doc, anchor.NewSelection("item one", "item one", 1))
	if !ok {
		t.Fatalf("locate failed")
	}
	out, rewritten := Apply(doc, span, Options{Mode: ModeHighlight})
	want := "- item one\n- ==item one==\n- item one"
	if out != want {
		t.Fatalf("Apply = %q, want %q", out, want)
	}
	if out[rewritten.Start:rewritten.End] != "==item one==" {
		t.Fatalf("rewritten span covers %q", out[rewritten.Start:rewritten.End])
	}
}

func TestApplyInsideExistingHighlightDoesNotNest(t *testing.T) {
	doc := "x ==foo== y"
	out, _ := Apply(doc, spanOf(t, doc, "foo"), Options{Mode: ModeHighlight})
	if out != doc {
		t.Fatalf("Apply = %q, want unchanged %q", out, doc)
	}
}

func TestApplyAfterStrippedLocate(t *testing.T) {
	doc := "- *one* two"
	span, ok := anchor.Locate(doc, anchor.Selection{Snippet: "one two"})
	if !ok {
		t.Fatalf("locate failed")
	}
	out, _ := Apply(doc, span, Options{Mode: ModeHighlight})
	if out != "- ==one two==" {
		t.Fatalf("Apply = %q", out)
	}
}

func TestRemoveThenRelocate(t *testing.T) {
	doc := "- ==item one==\n- item two"
	span, ok := anchor.Locate(doc, anchor.NewSelection("item one", "item one", 0))
	if !ok {
		t.Fatalf("locate failed")
	}
	out, _ := Apply(doc, span, Options{Mode: ModeRemove})
	if out != "- item one\n- item two" {
		t.Fatalf("remove = %q", out)
	}

	again, ok := anchor.Locate(out, anchor.NewSelection("item one", "item one", 0))
	if !ok {
		t.Fatalf("relocate failed")
	}
	lineStart, lineEnd := anchor.LineBounds(out, again.Start, again.End)
	line := out[lineStart:lineEnd]
	if strings.Contains(line, "==") || strings.Contains(line, "<mark") {
		t.Fatalf("highlight markers remain in %q", line)
	}
}

func TestApplyKeepsIntrawordUnderscores(t *testing.T) {
	doc := "snake_case and other_name here"
	out, _ := Apply(doc, spanOf(t, doc, "case and other"), Options{Mode: ModeHighlight})
	if want := "snake_==case and other==_name here"; out != want {
		t.Fatalf("Apply = %q, want %q", out, want)
	}

	if got := Expand(doc, spanOf(t, doc, "case")); doc[got.Start:got.End] != "case" {
		t.Fatalf("Expand absorbed intraword underscore: %q", doc[got.Start:got.End])
	}
	italic := "an _em_ word"
	if got := Expand(italic, spanOf(t, italic, "em")); italic[got.Start:got.End] != "_em_" {
		t.Fatalf("Expand(%q) = %q", italic, italic[got.Start:got.End])
	}
}

func TestApplyMidLineHasNoStructuralPrefix(t *testing.T) {
	tests := []struct {
		doc, sel, want string
	}{
		{"see version 2. Next step", "2. Next step", "see version ==2. Next step=="},
		{"use - as a dash", "- as a dash", "use ==- as a dash=="},
		{"2. Next step", "2. Next step", "2. ==Next step=="},
		{"intro\n- item", "- item", "intro\n- ==item=="},
	}

	for _, tt := range tests {
		out, _ := Apply(tt.doc, spanOf(t, tt.doc, tt.sel), Options{Mode: ModeHighlight})
		if out != tt.want {
			t.Errorf("Apply(%q, %q) = %q, want %q", tt.doc, tt.sel, out, tt.want)
		}
	}
}

func TestStripMarkersOnlyPairs(t *testing.T) {
	tests := []struct {
		mode    Mode
		in, want string
	}{
		{ModeRemove, "if a == b then", "if a == b then"},
		{ModeRemove, "x ==y== and a == b", "x y and a == b"},
		{ModeHighlight, "2 ** 3", "2 ** 3"},
		{ModeHighlight, "**a** and 2 ** 3", "a and 2 ** 3"},
		{ModeHighlight, "***x***", "x"},
		{ModeHighlight, "a === b === c", "a === b === c"},
		{ModeStrike, "~~a~~ ~ b", "a ~ b"},
	}

	for _, tt := range tests {
		if got := StripMarkers(tt.in, tt.mode); got != tt.want {
			t.Errorf("StripMarkers(%q, %s) = %q, want %q", tt.in, tt.mode, got, tt.want)
		}
	}
}

func TestApplyKeepsUnpairedOperators(t *testing.T) {
	doc := "if a == b then"
	out, _ := Apply(doc, spanOf(t, doc, "a == b"), Options{Mode: ModeRemove})
	if out != doc {
		t.Fatalf("remove = %q, want unchanged", out)
	}

	doc = "calc 2 ** 3 now"
	out, _ = Apply(doc, spanOf(t, doc, "2 ** 3"), Options{Mode: ModeHighlight})
	if out != "calc ==2 ** 3== now" {
		t.Fatalf("highlight = %q", out)
	}
}

func TestApplyAcrossLinesTrimsAbsorbedMarkers(t *testing.T) {
	doc := "==line one\nline two=="
	sel := spanOf(t, doc, "line one\nline two")

	out, _ := Apply(doc, sel, Options{Mode: ModeHighlight})
	if out != "==line one==\n==line two==" {
		t.Fatalf("highlight = %q", out)
	}
	out, _ = Apply(doc, sel, Options{Mode: ModeRemove})
	if out != "line one\nline two" {
		t.Fatalf("remove = %q", out)
	}

	nested := "**==a\nb==**"
	out, _ = Apply(nested, spanOf(t, nested, "a\nb"), Options{Mode: ModeRemove})
	if out != "**a\nb**" {
		t.Fatalf("remove nested = %q", out)
	}
}

func TestApplyKeepsLiteralDelimiterInsideBold(t *testing.T) {
	doc := "a **_init** b"
	out, _ := Apply(doc, spanOf(t, doc, "_init"), Options{Mode: ModeHighlight})
	if out != "a ==_init== b" {
		t.Fatalf("Apply = %q", out)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" Highlight "); err != nil || m != ModeHighlight {
		t.Fatalf("ParseMode = %q, %v", m, err)
	}
	if _, err := ParseMode("sparkle"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

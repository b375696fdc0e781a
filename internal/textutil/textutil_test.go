package textutil

import (
	"strings"
	"testing"
)

func TestLayoutLineKeepsByteOffsets(t *testing.T) {
	cells := LayoutLine("a\t\u00e9", 10, 4)
	// 'a', three spaces for the tab, 'é'
	if len(cells) != 5 {
		t.Fatalf("got %d cells: %+v", len(cells), cells)
	}
	wantOffsets := []int{10, 11, 11, 11, 12}
	for i, c := range cells {
		if c.Offset != wantOffsets[i] {
			t.Errorf("cell %d offset = %d, want %d", i, c.Offset, wantOffsets[i])
		}
	}
	if cells[4].Rune != '\u00e9' {
		t.Fatalf("last rune = %q", cells[4].Rune)
	}
}

func TestLayoutLineWideAndCombining(t *testing.T) {
	cells := LayoutLine("日e\u0301", 0, DefaultTabWidth)
	if len(cells) != 2 {
		t.Fatalf("got %d cells: %+v", len(cells), cells)
	}
	if cells[0].Width != 2 {
		t.Fatalf("wide rune width = %d", cells[0].Width)
	}
	if cells[1].Rune != 'e' || len(cells[1].Comb) != 1 || cells[1].Offset != 3 {
		t.Fatalf("combining cell = %+v", cells[1])
	}
}

func TestLayoutLineLabelsFormattingRunes(t *testing.T) {
	cells := LayoutLine("a\u200bb\x1b", 0, DefaultTabWidth)
	var b strings.Builder
	for _, c := range cells {
		b.WriteRune(c.Rune)
	}
	if b.String() != "a⟪ZWSP⟫b?" {
		t.Fatalf("layout text = %q", b.String())
	}
	if cells[len(cells)-2].Rune != 'b' || cells[len(cells)-2].Offset != 4 {
		t.Fatalf("offset after label = %+v", cells[len(cells)-2])
	}
}

func TestDisplayWidthAndTruncate(t *testing.T) {
	if got := DisplayWidth("a日b"); got != 4 {
		t.Fatalf("DisplayWidth = %d, want 4", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate kept text = %q", got)
	}
	if got := Truncate("abcdefgh", 5); got != "abcd…" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Fatalf("Truncate to zero = %q", got)
	}
}

func TestSanitizeTerminalText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"safe-file.md", "safe-file.md"},
		{"bad\x1b[31m\npath", "bad?[31m path"},
		{"a\tb", "a b"},
		{"x\u202ey", "x⟪RLO⟫y"},
	}
	for _, tt := range tests {
		if got := SanitizeTerminalText(tt.in); got != tt.want {
			t.Errorf("SanitizeTerminalText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if HasFormattingRunes("plain") || !HasFormattingRunes("hi\u2067") {
		t.Fatalf("HasFormattingRunes misreported")
	}
}

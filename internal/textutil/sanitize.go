package textutil

import "strings"

var formattingRuneLabels = map[rune]string{
	0x061C: "⟪ALM⟫",
	0x200B: "⟪ZWSP⟫",
	0x200C: "⟪ZWNJ⟫",
	0x200D: "⟪ZWJ⟫",
	0x200E: "⟪LRM⟫",
	0x200F: "⟪RLM⟫",
	0x202A: "⟪LRE⟫",
	0x202B: "⟪RLE⟫",
	0x202C: "⟪PDF⟫",
	0x202D: "⟪LRO⟫",
	0x202E: "⟪RLO⟫",
	0x2028: "⟪LSEP⟫",
	0x2029: "⟪PSEP⟫",
	0x00AD: "⟪SHY⟫",
	0x2060: "⟪WJ⟫",
	0x2066: "⟪LRI⟫",
	0x2067: "⟪RLI⟫",
	0x2068: "⟪FSI⟫",
	0x2069: "⟪PDI⟫",
	0xFEFF: "⟪BOM⟫",
}

// SanitizeTerminalText makes text safe to print on one terminal line:
// line breaks and tabs become spaces, other control runes become '?', and
// invisible formatting runes are labelled.
func SanitizeTerminalText(text string) string {
	if !strings.ContainsFunc(text, func(r rune) bool { return r == '\t' || requiresSanitization(r) }) {
		return text
	}
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\t':
			b.WriteByte(' ')
		case requiresSanitization(r):
			b.WriteString(string(sanitizeRune(r)))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HasFormattingRunes reports whether text contains bidi or zero-width formatting runes.
func HasFormattingRunes(text string) bool {
	return strings.ContainsFunc(text, isFormattingRune)
}

func requiresSanitization(r rune) bool {
	if r == '\t' {
		return false
	}
	return isFormattingRune(r) || r < 0x20 || r == 0x7f
}

func sanitizeRune(r rune) []rune {
	if label, ok := formattingRuneLabels[r]; ok {
		return []rune(label)
	}
	if r == '\n' || r == '\r' {
		return []rune{' '}
	}
	return []rune{'?'}
}

func isFormattingRune(r rune) bool {
	_, ok := formattingRuneLabels[r]
	return ok
}

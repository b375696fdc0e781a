package app

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const diffContextLines = 2

// Diff renders a line-oriented diff of before and after: removed lines
// start with "-", added lines with "+", unchanged context lines with a
// space, and skipped unchanged stretches collapse to a single "@@" line.
// Identical inputs give an empty string.
func Diff(before, after string) string {
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for i, d := range diffs {
		chunk := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			writeLines(&out, "-", chunk)
		case diffmatchpatch.DiffInsert:
			writeLines(&out, "+", chunk)
		case diffmatchpatch.DiffEqual:
			writeContext(&out, chunk, i > 0, i < len(diffs)-1)
		}
	}
	return out.String()
}

func writeContext(out *strings.Builder, chunk []string, afterChange, beforeChange bool) {
	head, tail := 0, 0
	if afterChange {
		head = diffContextLines
	}
	if beforeChange {
		tail = diffContextLines
	}
	if head+tail >= len(chunk) {
		writeLines(out, " ", chunk)
		return
	}
	writeLines(out, " ", chunk[:head])
	out.WriteString("@@\n")
	writeLines(out, " ", chunk[len(chunk)-tail:])
}

func writeLines(out *strings.Builder, prefix string, lines []string) {
	for _, line := range lines {
		out.WriteString(prefix)
		out.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			out.WriteString("\n\\ No newline at end of file\n")
		}
	}
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

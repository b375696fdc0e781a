package anchor

import (
	"strings"
	"unicode/utf8"
)

const (
	// ExactScore is returned by Similarity for identical strings. It is far
	// above any blended score so an exact line always sets the threshold.
	ExactScore = 1000.0
	// ValidThreshold is the fraction of the best score a candidate needs to
	// stay in the valid set.
	ValidThreshold = 0.85

	tokenWeight  = 0.7
	lengthWeight = 0.3
	lengthDecay  = 0.1
)

// CollapseWhitespace folds every whitespace run into one space and trims.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Similarity scores how alike two block texts are: ExactScore when equal,
// otherwise a blend of token-set Jaccard overlap and a length term.
func Similarity(a, b string) float64 {
	if a == b {
		return ExactScore
	}
	jaccard := tokenJaccard(strings.Fields(a), strings.Fields(b))
	diff := utf8.RuneCountInString(a) - utf8.RuneCountInString(b)
	if diff < 0 {
		diff = -diff
	}
	lengthTerm := 1 / (1 + lengthDecay*float64(diff))
	return tokenWeight*jaccard + lengthWeight*lengthTerm
}

func tokenJaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, tok := range a {
		setA[tok] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, tok := range b {
		setB[tok] = struct{}{}
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Rank scores each candidate's enclosing raw line against context.
func Rank(raw string, candidates []Candidate, context string) {
	clean := CollapseWhitespace(context)
	for i := range candidates {
		lineStart, lineEnd := LineBounds(raw, candidates[i].Start, candidates[i].End)
		block := CollapseWhitespace(raw[lineStart:lineEnd])
		candidates[i].Score = Similarity(block, clean)
	}
}

// FilterValid keeps, in order, the candidates scoring at least
// ValidThreshold of the best score.
func FilterValid(candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0].Score
	for _, c := range candidates[1:] {
		if c.Score > best {
			best = c.Score
		}
	}
	threshold := best * ValidThreshold

	valid := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= threshold {
			valid = append(valid, c)
		}
	}
	return valid
}

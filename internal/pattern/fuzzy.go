package pattern

import "strings"

// Bonus constants for the fuzzy scoring algorithm. These values are exact
// and their ratios matter more than their absolute magnitude: a match must
// always outscore a non-match, an exact match must always outscore a
// partial one, and a match at the start of the candidate (or of a word
// inside it) should be preferred over one buried in the middle.
const (
	bonusMatch           = 50_000
	bonusExact           = 1_000
	bonusStart           = 10
	bonusStartWord       = 5
	bonusCandidateLength = -1
	bonusLength          = -10
	bonusNbHoles         = -30
)

// maxHolesForLen mirrors the original's short-pattern hole allowance table:
// for very short patterns a single hole is disproportionately punishing, so
// small patterns are granted a larger hole budget than the general
// len*4/7 formula would give them.
var maxHolesForLen = [...]int{0, 0, 1, 2, 3, 3, 4, 4, 4}

func maxHoles(patternLen int) int {
	if patternLen < len(maxHolesForLen) {
		return maxHolesForLen[patternLen]
	}
	return patternLen * 4 / 7
}

// FuzzyPattern implements broot's fuzzy subsequence scoring: pattern chars
// must appear, in order, anywhere in the candidate string, and the score
// rewards contiguous runs, start-of-string and start-of-word matches, and
// short candidates, while penalizing the gaps ("holes") between matched
// chars.
type FuzzyPattern struct {
	lowered []rune
}

// NewFuzzy compiles a fuzzy pattern. The pattern is matched case
// insensitively, mirroring the original's lowercasing of both sides.
func NewFuzzy(pat string) *FuzzyPattern {
	return &FuzzyPattern{lowered: []rune(strings.ToLower(pat))}
}

func (p *FuzzyPattern) String() string {
	return string(p.lowered)
}

// Score returns the match score for candidate, or 0 if the pattern doesn't
// match as a subsequence at all.
func (p *FuzzyPattern) Score(candidate string) int {
	if len(p.lowered) == 0 {
		return 0
	}
	cand := []rune(strings.ToLower(candidate))
	best := 0
	for start := 0; start < len(cand); start++ {
		// Only positions where the first pattern rune sits can begin a
		// match; anything else would score identically to a later start.
		if cand[start] != p.lowered[0] {
			continue
		}
		if s := p.scoreStartingAt(cand, start); s > best {
			best = s
		}
	}
	return best
}

// scoreStartingAt finds the best-scoring way to match the pattern as a
// subsequence of cand beginning the search at index start, greedily
// preferring the earliest occurrence of each successive pattern rune. A
// match whose hole count exceeds the pattern's allowance is rejected
// outright, not merely penalized.
func (p *FuzzyPattern) scoreStartingAt(cand []rune, start int) int {
	pi := 0
	var matchIdx []int
	for ci := start; ci < len(cand) && pi < len(p.lowered); ci++ {
		if cand[ci] == p.lowered[pi] {
			matchIdx = append(matchIdx, ci)
			pi++
		}
	}
	if pi < len(p.lowered) {
		return 0
	}

	score := bonusMatch
	exact := len(matchIdx) == len(cand)
	if exact {
		score += bonusExact
	}
	if matchIdx[0] == 0 {
		score += bonusStart
	} else if isWordBoundary(cand, matchIdx[0]) {
		score += bonusStartWord
	}

	// A candidate matched in full keeps its whole exact bonus: the length
	// penalties only rank partial matches against each other.
	if !exact {
		score += bonusCandidateLength * len(cand)
		span := matchIdx[len(matchIdx)-1] - matchIdx[0] + 1
		score += bonusLength * span
	}

	holes := 0
	for i := 1; i < len(matchIdx); i++ {
		if matchIdx[i] != matchIdx[i-1]+1 {
			holes++
		}
	}
	if holes > maxHoles(len(p.lowered)) {
		return 0
	}
	score += bonusNbHoles * holes
	if score < 1 {
		score = 1
	}
	return score
}

func isWordBoundary(s []rune, i int) bool {
	if i == 0 {
		return true
	}
	prev := s[i-1]
	return prev == '_' || prev == '-' || prev == ' '
}

package palette

import (
	"sort"
	"strings"
)

// MatchRange is a half-open [Start, End) byte range of a match within an
// entry's name, used by the view to highlight the matched characters.
type MatchRange struct {
	Start int
	End   int
}

// Scoring weights for FuzzyMatch. Consecutive runs and word-boundary
// starts dominate raw character count so "sf" prefers "stage-file" over
// "transfer".
const (
	charScore        = 10
	consecutiveBonus = 15
	wordStartBonus   = 20

	nameWeight = 3
	keyWeight  = 2
	descWeight = 1

	layerBoostCurrent = 30
	layerBoostPlugin  = 15
)

// FuzzyMatch scores query as a case-insensitive subsequence of target.
// Returns 0 and nil ranges when query is empty or not a subsequence.
func FuzzyMatch(query, target string) (int, []MatchRange) {
	if query == "" {
		return 0, nil
	}
	q := strings.ToLower(query)
	t := strings.ToLower(target)

	score := 0
	prevMatched := -2
	var positions []int

	ti := 0
	for _, qc := range q {
		found := -1
		for i := ti; i < len(t); i++ {
			if rune(t[i]) == qc {
				found = i
				break
			}
		}
		if found < 0 {
			return 0, nil
		}
		score += charScore
		if found == prevMatched+1 {
			score += consecutiveBonus
		}
		if isWordStart(t, found) {
			score += wordStartBonus
		}
		positions = append(positions, found)
		prevMatched = found
		ti = found + 1
	}

	return score, mergePositions(positions)
}

// isWordStart reports whether position i begins a word in s: the first
// character, or one following a separator.
func isWordStart(s string, i int) bool {
	if i == 0 {
		return true
	}
	return strings.ContainsRune("-_ ./+", rune(s[i-1]))
}

// mergePositions collapses adjacent match positions into ranges.
func mergePositions(positions []int) []MatchRange {
	if len(positions) == 0 {
		return nil
	}
	var ranges []MatchRange
	start := positions[0]
	end := positions[0] + 1
	for _, p := range positions[1:] {
		if p == end {
			end++
			continue
		}
		ranges = append(ranges, MatchRange{Start: start, End: end})
		start, end = p, p+1
	}
	ranges = append(ranges, MatchRange{Start: start, End: end})
	return ranges
}

// ScoreEntry scores entry against query across its name, key, and
// description (name weighted highest), adds a layer boost so the current
// mode's commands rank above plugin-wide and global ones, and records the
// name's match ranges for highlighting. An empty query zeroes the score.
func ScoreEntry(entry *PaletteEntry, query string) {
	entry.Score = 0
	entry.MatchRanges = nil
	if query == "" {
		return
	}

	nameScore, nameRanges := FuzzyMatch(query, entry.Name)
	keyScore, _ := FuzzyMatch(query, entry.Key)
	descScore, _ := FuzzyMatch(query, entry.Description)

	best := nameScore * nameWeight
	if s := keyScore * keyWeight; s > best {
		best = s
	}
	if s := descScore * descWeight; s > best {
		best = s
	}
	if best == 0 {
		return
	}

	switch entry.Layer {
	case LayerCurrentMode:
		best += layerBoostCurrent
	case LayerPlugin:
		best += layerBoostPlugin
	}

	entry.Score = best
	if nameScore > 0 {
		entry.MatchRanges = nameRanges
	}
}

// SortEntries orders entries by score descending, then layer (current
// mode first), then name.
func SortEntries(entries []PaletteEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Layer != entries[j].Layer {
			return entries[i].Layer < entries[j].Layer
		}
		return entries[i].Name < entries[j].Name
	})
}

// FilterEntries scores every entry against query and returns the matches
// sorted best-first. An empty query returns every entry in layer order.
func FilterEntries(entries []PaletteEntry, query string) []PaletteEntry {
	result := make([]PaletteEntry, 0, len(entries))
	for _, e := range entries {
		ScoreEntry(&e, query)
		if query != "" && e.Score <= 0 {
			continue
		}
		result = append(result, e)
	}
	SortEntries(result)
	return result
}

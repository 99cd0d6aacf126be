// Package pattern implements the name/path/content matchers used to filter
// and score tree lines, and the small boolean expression language
// ("n/main and not c/foo") that composes them.
package pattern

import (
	"io"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/exp/mmap"
)

// Kind identifies which field and algorithm an atomic pattern targets.
type Kind int

const (
	KindNameExact Kind = iota
	KindNameFuzzy
	KindNameRegex
	KindNameTokens
	KindPathExact
	KindPathFuzzy
	KindPathRegex
	KindPathTokens
	KindContentExact
	KindContentRegex
	KindNone
)

// Pattern is implemented by every atomic and composite matcher. Score
// returns 0 for "no match"; any positive value means a match, with larger
// scores ranking higher in the tree display.
type Pattern interface {
	// Score evaluates the pattern against one tree line. name is the base
	// file name, path is the full path relative to the tree root.
	Score(name, path string) int
	// NeedsContent reports whether this pattern (or one of its operands)
	// requires reading file content, which is a far more expensive check
	// than the name/path based ones and is deferred accordingly.
	NeedsContent() bool
	String() string
}

// --- atomic name/path matchers ---

type exactPattern struct {
	kind Kind
	needle string
}

func newExact(kind Kind, needle string) *exactPattern {
	return &exactPattern{kind: kind, needle: strings.ToLower(needle)}
}

func (p *exactPattern) NeedsContent() bool { return false }
func (p *exactPattern) String() string     { return p.needle }

func (p *exactPattern) Score(name, path string) int {
	target := p.target(name, path)
	if strings.Contains(strings.ToLower(target), p.needle) {
		return bonusMatch + bonusExact - len(target)
	}
	return 0
}

func (p *exactPattern) target(name, path string) string {
	if p.kind == KindPathExact {
		return path
	}
	return name
}

type fuzzyPattern struct {
	kind Kind
	fp   *FuzzyPattern
}

func newFuzzyMatcher(kind Kind, pat string) *fuzzyPattern {
	return &fuzzyPattern{kind: kind, fp: NewFuzzy(pat)}
}

func (p *fuzzyPattern) NeedsContent() bool { return false }
func (p *fuzzyPattern) String() string     { return p.fp.String() }

func (p *fuzzyPattern) Score(name, path string) int {
	if p.kind == KindPathFuzzy {
		return p.fp.Score(path)
	}
	return p.fp.Score(name)
}

type regexPattern struct {
	kind Kind
	re   *regexp2.Regexp
	src  string
}

// newRegexMatcher compiles a regex matcher. flags is a subset of "i"
// (case-insensitive) and "U" (regexp2's Unicode option; greediness is not
// swapped), the suffix syntax accepted after a closing slash in the
// command grammar.
func newRegexMatcher(kind Kind, src, flags string) (*regexPattern, error) {
	var opts regexp2.RegexOptions = regexp2.RE2
	if strings.Contains(flags, "i") {
		opts |= regexp2.IgnoreCase
	}
	if strings.Contains(flags, "U") {
		opts |= regexp2.Unicode
	}
	re, err := regexp2.Compile(src, opts)
	if err != nil {
		return nil, err
	}
	return &regexPattern{kind: kind, re: re, src: src}, nil
}

func (p *regexPattern) NeedsContent() bool { return p.kind == KindContentRegex }
func (p *regexPattern) String() string     { return "/" + p.src + "/" }

func (p *regexPattern) Score(name, path string) int {
	if p.kind == KindContentRegex {
		// Scored by ScoreContent; see ContentScorer.
		return 0
	}
	target := name
	if p.kind == KindPathRegex {
		target = path
	}
	// A regex either matches or it doesn't; unlike fuzzy matching there is
	// no quality gradient to encode, so every match scores 1.
	ok, _ := p.re.MatchString(target)
	if ok {
		return 1
	}
	return 0
}

// ScoreContent scores a content-regex pattern against a memory-mapped
// file's bytes, returning the score of the first matching line, or 0 if no
// line matches.
func (p *regexPattern) ScoreContent(data []byte) int {
	for _, line := range splitLines(data) {
		if ok, _ := p.re.MatchString(line); ok {
			return bonusMatch
		}
	}
	return 0
}

type tokensPattern struct {
	kind   Kind
	tokens []string
}

func newTokens(kind Kind, raw string) *tokensPattern {
	return &tokensPattern{kind: kind, tokens: strings.Fields(strings.ToLower(raw))}
}

func (p *tokensPattern) NeedsContent() bool { return false }
func (p *tokensPattern) String() string     { return strings.Join(p.tokens, " ") }

func (p *tokensPattern) Score(name, path string) int {
	target := strings.ToLower(name)
	if p.kind == KindPathTokens {
		target = strings.ToLower(path)
	}
	score := 0
	for _, tok := range p.tokens {
		s := NewFuzzy(tok).Score(target)
		if s == 0 {
			return 0
		}
		score += s
	}
	return score
}

type contentExactPattern struct {
	needle string
}

func newContentExact(needle string) *contentExactPattern {
	return &contentExactPattern{needle: needle}
}

func (p *contentExactPattern) NeedsContent() bool { return true }
func (p *contentExactPattern) String() string     { return p.needle }
func (p *contentExactPattern) Score(name, path string) int { return 0 }

// ScoreContent scans data line by line for a literal, case-sensitive match.
func (p *contentExactPattern) ScoreContent(data []byte) int {
	for _, line := range splitLines(data) {
		if strings.Contains(line, p.needle) {
			return bonusMatch
		}
	}
	return 0
}

// ContentScorer is implemented by patterns whose real score requires
// reading the file's bytes; Score alone always returns 0 for them so that
// a composite doesn't do unnecessary I/O on the fast path.
type ContentScorer interface {
	ScoreContent(data []byte) int
}

// ScoreWithContent evaluates p, memory-mapping path for content patterns
// only when needed. The needle size must not exceed the file size; an
// empty or unreadable file is NotSuitable and scores 0 rather than erroring,
// matching the best-effort nature of a tree filter.
func ScoreWithContent(p Pattern, name, path string) int {
	if !p.NeedsContent() {
		return p.Score(name, path)
	}
	cs, ok := p.(ContentScorer)
	if !ok {
		return p.Score(name, path)
	}
	r, err := mmap.Open(path)
	if err != nil {
		return 0
	}
	defer r.Close()
	if r.Len() == 0 {
		return 0
	}
	data := make([]byte, r.Len())
	if _, err := r.ReadAt(data, 0); err != nil && err != io.EOF {
		return 0
	}
	return cs.ScoreContent(data)
}

// splitLines is a small newline splitter over already-mapped bytes, kept
// separate from bufio.Scanner since the data is already fully resident
// (mapped) rather than streamed.
func splitLines(data []byte) []string {
	return strings.Split(string(data), "\n")
}

type nonePattern struct{}

func (nonePattern) NeedsContent() bool         { return false }
func (nonePattern) String() string             { return "" }
func (nonePattern) Score(name, path string) int { return 1 }

// None is the always-matches, zero-information pattern used when no
// filter has been typed yet.
var None Pattern = nonePattern{}

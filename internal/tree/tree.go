// Package tree holds the flat, display-ready representation of a file
// tree: the Tree itself, its TreeLine rows, and the options controlling
// what's shown and how lines sort.
package tree

import (
	"os"
	"strings"
	"time"

	"github.com/arbor-tui/arbor/internal/filesum"
	"github.com/arbor-tui/arbor/internal/gitstatus"
)

// LineType distinguishes the kinds of rows a tree can contain.
type LineType int

const (
	LineDir LineType = iota
	LineFile
	LineSymLinkToFile
	LineSymLinkToDir
	LinePruning // "N unlisted" placeholder line when children were trimmed
)

// Line is one row of a flattened tree: a file or directory at a known
// depth, with whatever metadata has been resolved for it so far.
type Line struct {
	Path  string
	Name  string
	Depth int
	Type  LineType

	Unlisted int // for LinePruning: how many siblings were trimmed

	GitIgnored bool // matched a gitignore rule; only present when ShowGitIgnored surfaced it

	Score int // pattern match score, 0 if unfiltered or unmatched

	Size     *filesum.Sum
	ModTime  time.Time
	Mode     os.FileMode
	GitStat  gitstatus.LineStatus

	HasUnlistedChild bool
}

// IsDir reports whether the line represents a directory (including a
// symlink pointing at one).
func (l *Line) IsDir() bool {
	return l.Type == LineDir || l.Type == LineSymLinkToDir
}

// SelectionKind narrows what kind of entry a Selection points at, used by
// verbs that only apply to one kind (e.g. "cd" requires a directory).
type SelectionKind int

const (
	SelectionAny SelectionKind = iota
	SelectionFile
	SelectionDirectory
)

// Selection is the externally visible handle on "whatever line is
// currently selected", passed to verb invocation and to the command
// parser's {file}/{directory} placeholder substitution.
type Selection struct {
	Path  string
	Kind  SelectionKind
	IsExe bool
	Line  uint32
}

// Selection builds a Selection describing line l at row index idx.
func (l *Line) Selection(idx int) Selection {
	kind := SelectionFile
	if l.IsDir() {
		kind = SelectionDirectory
	}
	return Selection{
		Path:  l.Path,
		Kind:  kind,
		IsExe: l.Mode&0111 != 0,
		Line:  uint32(idx),
	}
}

// SortKind selects the ordering applied to sibling lines. None leaves the
// builder's natural case-folded name order in place; every other kind
// forces a single-level display (spec's depth expansion is disabled
// beyond level 1 once a sort other than None is active).
type SortKind int

const (
	SortNone SortKind = iota
	SortCount
	SortDate
	SortSize
	SortTypeDirsFirst
	SortTypeDirsLast
)

// Directive says how a special path is treated regardless of the usual
// hidden/gitignore filters.
type Directive int

const (
	DirectiveDefault Directive = iota
	DirectiveAlways            // always listed, even when hidden or git-ignored
	DirectiveNever             // never listed
)

// SpecialPath binds a path prefix to its Directive; the longest matching
// prefix wins.
type SpecialPath struct {
	Prefix    string
	Directive Directive
}

// DirectiveFor returns the directive of the longest prefix matching path.
func DirectiveFor(specials []SpecialPath, path string) Directive {
	best := -1
	d := DirectiveDefault
	for _, sp := range specials {
		if len(sp.Prefix) > best && strings.HasPrefix(path, sp.Prefix) {
			best = len(sp.Prefix)
			d = sp.Directive
		}
	}
	return d
}

// Options controls what a Tree shows and how it's ordered, mirroring the
// toggles exposed on the panel's status line.
type Options struct {
	ShowHidden     bool
	ShowGitIgnored bool
	OnlyFolders    bool
	ShowSizes      bool
	ShowCounts     bool
	ShowDates      bool
	ShowPermissions bool
	ShowGitStatus  bool
	ShowRootFs     bool // annotate the root line with its filesystem's device and usage
	TrimRoot       bool
	Sort           SortKind
	Reverse        bool
	TargetedSize   int // roughly how many lines the builder should aim to fill
	MaxMatches     int // ceiling on accepted matches; past it the build stops gathering and returns a partial tree, 0 = unlimited

	SpecialPaths []SpecialPath // per-prefix listing overrides from configuration
}

// DefaultOptions matches broot's out-of-the-box behavior: hidden files and
// git-ignored paths are hidden, everything else shown, lines ordered by
// the builder's natural case-folded name order (Sort: None).
func DefaultOptions() Options {
	return Options{
		ShowHidden:   false,
		Sort:         SortNone,
		TargetedSize: 200,
	}
}

// Tree is the flattened, ready-to-render result of a build: root plus an
// ordered slice of Lines in display order (parents before children,
// siblings in build order).
type Tree struct {
	Root    string
	Lines   []*Line
	Options Options

	Selection int // index into Lines of the currently selected row
	ScrollTop int // index of the first visible row

	// Interrupted is set when the build that produced this Tree was cut
	// short by a dam observer reporting a pending event; callers should
	// treat the result as a best-effort snapshot and usually discard it
	// in favor of whatever tree they already had.
	Interrupted bool

	// TooManyMatches is set when the pattern matched more than
	// Options.MaxMatches candidates and the builder gave up rather than
	// keep gathering; MatchLimit echoes the limit that was hit.
	TooManyMatches bool
	MatchLimit     int
}

// NewTree wraps a root path and an already-ordered slice of lines.
func NewTree(root string, lines []*Line, opts Options) *Tree {
	return &Tree{Root: root, Lines: lines, Options: opts}
}

// scrollMargin is the number of rows of context kept visible above and
// below the selection whenever possible.
const scrollMargin = 3

// MoveSelection moves the selection by delta rows, skipping over
// non-selectable Pruning lines, then re-centers the scroll viewport with a
// 3-line margin. When cycle is true, motion wraps around the ends of the
// line list instead of clamping.
func (t *Tree) MoveSelection(delta int, pageHeight int, cycle bool) {
	if len(t.Lines) == 0 {
		return
	}
	step := 1
	if delta < 0 {
		step = -1
	}
	remaining := delta * step // abs(delta)
	pos := t.Selection
	for remaining > 0 {
		next := pos + step
		if next < 0 || next >= len(t.Lines) {
			if !cycle {
				break
			}
			if next < 0 {
				next = len(t.Lines) - 1
			} else {
				next = 0
			}
		}
		pos = next
		if t.Lines[pos].Type != LinePruning {
			remaining--
		}
	}
	t.Selection = pos
	t.EnsureVisible(pageHeight)
}

// TryScroll moves the viewport by dy rows without moving the selection,
// then nudges the selection back into view if the scroll left it outside
// the viewport; no scroll margin is kept here.
func (t *Tree) TryScroll(dy, pageHeight int) {
	t.ScrollTop += dy
	maxTop := len(t.Lines) - pageHeight
	if maxTop < 0 {
		maxTop = 0
	}
	if t.ScrollTop < 0 {
		t.ScrollTop = 0
	}
	if t.ScrollTop > maxTop {
		t.ScrollTop = maxTop
	}
	if t.Selection < t.ScrollTop {
		t.Selection = t.ScrollTop
	}
	if t.Selection >= t.ScrollTop+pageHeight {
		t.Selection = t.ScrollTop + pageHeight - 1
	}
}

// TrySelectPath moves the selection to the line matching path, returning
// whether it was found.
func (t *Tree) TrySelectPath(path string) bool {
	for i, l := range t.Lines {
		if l.Path == path {
			t.Selection = i
			return true
		}
	}
	return false
}

// TrySelectBestMatch selects the highest-scoring line, breaking ties in
// favor of the shallowest depth. Returns false if no line has a score.
func (t *Tree) TrySelectBestMatch() bool {
	best := -1
	bestScore := 0
	for i, l := range t.Lines {
		if l.Score <= 0 {
			continue
		}
		if best == -1 || l.Score > bestScore || (l.Score == bestScore && l.Depth < t.Lines[best].Depth) {
			best = i
			bestScore = l.Score
		}
	}
	if best == -1 {
		return false
	}
	t.Selection = best
	return true
}

// TrySelectFirst moves the selection to the first selectable line.
func (t *Tree) TrySelectFirst() bool {
	for i, l := range t.Lines {
		if l.Type != LinePruning {
			t.Selection = i
			return true
		}
	}
	return false
}

// TrySelectLast moves the selection to the last selectable line.
func (t *Tree) TrySelectLast() bool {
	for i := len(t.Lines) - 1; i >= 0; i-- {
		if t.Lines[i].Type != LinePruning {
			t.Selection = i
			return true
		}
	}
	return false
}

// Selected returns the currently selected line, or nil if the tree is
// empty.
func (t *Tree) Selected() *Line {
	if t.Selection < 0 || t.Selection >= len(t.Lines) {
		return nil
	}
	return t.Lines[t.Selection]
}

// CurrentSelection returns the Selection handle for the selected row, the
// zero Selection if the tree is empty.
func (t *Tree) CurrentSelection() Selection {
	l := t.Selected()
	if l == nil {
		return Selection{}
	}
	return l.Selection(t.Selection)
}

// EnsureVisible adjusts ScrollTop so the selection is within [0, height)
// with a scrollMargin-line margin when the tree is long enough to afford one.
func (t *Tree) EnsureVisible(height int) {
	if height <= 0 {
		return
	}
	margin := scrollMargin
	if height <= margin*2 {
		margin = 0
	}
	if t.Selection-margin < t.ScrollTop {
		t.ScrollTop = t.Selection - margin
	}
	if t.Selection+margin >= t.ScrollTop+height {
		t.ScrollTop = t.Selection + margin - height + 1
	}
	if t.ScrollTop < 0 {
		t.ScrollTop = 0
	}
	maxTop := len(t.Lines) - height
	if maxTop < 0 {
		maxTop = 0
	}
	if t.ScrollTop > maxTop {
		t.ScrollTop = maxTop
	}
}

// VisibleLines returns the slice of lines currently scrolled into view.
func (t *Tree) VisibleLines(height int) []*Line {
	if height <= 0 || len(t.Lines) == 0 {
		return nil
	}
	end := t.ScrollTop + height
	if end > len(t.Lines) {
		end = len(t.Lines)
	}
	return t.Lines[t.ScrollTop:end]
}

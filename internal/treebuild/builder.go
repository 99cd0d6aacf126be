// Package treebuild grows a flattened tree.Tree from a root directory,
// breadth-first and depth-unbounded, under a line budget: it keeps
// gathering candidate lines until either the filesystem is exhausted, a
// wall-clock cutoff is hit, or it has collected enough candidates to trim
// down to the target size with headroom for scoring to matter.
package treebuild

import (
	"container/heap"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arbor-tui/arbor/internal/gitstatus"
	"github.com/arbor-tui/arbor/internal/pattern"
	"github.com/arbor-tui/arbor/internal/tree"
)

// notLong bounds how long a single build is allowed to keep exploring the
// filesystem before it settles for what it has, so a single pathological
// directory (a build artifact with a million files) doesn't hang the UI.
const notLong = 900 * time.Millisecond

// bid is the arena index of a gathered line; children reference their
// parent by bid rather than by pointer, so trimming a subtree is just
// decrementing a counter rather than unlinking a graph.
type bid int

type bline struct {
	id       bid
	parentID bid
	hasParent bool

	path  string
	name  string
	depth int
	isDir bool
	isSymlink bool
	symlinkDir bool

	score        int
	ignoreChain  *gitstatus.IgnoreChain
	gitIgnored   bool

	nbKeptChildren int
	unlisted       int
}

// Builder grows one tree from a root, given the matching pattern and
// display options in effect.
type Builder struct {
	root    string
	pat     pattern.Pattern
	opts    tree.Options
	repo    *gitstatus.Repo // nil if root isn't in a repository

	// Observer, when set, is polled once per gather iteration (one
	// directory's worth of children). A true return aborts the gather
	// phase early, the same "dam reports an event" termination priority
	// the BFS gather honors above the line-budget and wallclock cutoffs.
	Observer func() bool

	arena       []*bline
	interrupted bool

	matchedCount   int
	tooManyMatches bool
	matchLimit     int
}

// WithObserver attaches a non-blocking interrupt check and returns b for
// chaining, e.g. treebuild.New(root, pat, opts).WithObserver(obs).Build().
func (b *Builder) WithObserver(obs func() bool) *Builder {
	b.Observer = obs
	return b
}

// New builds a Builder for root. pat may be pattern.None to mean
// "unfiltered".
func New(root string, pat pattern.Pattern, opts tree.Options) *Builder {
	if pat == nil {
		pat = pattern.None
	}
	repo, _ := gitstatus.Discover(root)
	return &Builder{root: root, pat: pat, opts: opts, repo: repo}
}

// Build runs the full two-phase algorithm (gather then trim) and returns
// a ready-to-display tree.Tree.
func (b *Builder) Build() *tree.Tree {
	b.gather()
	kept := b.trimExcess(b.opts.TargetedSize)
	lines := b.takeAsTree(kept)
	if b.opts.ShowSizes || b.opts.ShowCounts || b.opts.Sort == tree.SortSize || b.opts.Sort == tree.SortCount {
		AttachSizes(lines)
	}
	sortLines(lines, b.opts.Sort)
	t := tree.NewTree(b.root, lines, b.opts)
	t.Interrupted = b.interrupted
	t.TooManyMatches = b.tooManyMatches
	t.MatchLimit = b.matchLimit
	return t
}

// makeLine turns one directory entry into a candidate bline, scoring it
// against the active pattern and deciding whether it survives the
// hidden/only-folders/gitignore filters. It returns nil for an entry that
// should not appear at all (filtered out, not merely low-scoring).
func (b *Builder) makeLine(parent *bline, name string, depth int, chain *gitstatus.IgnoreChain) *bline {
	path := name
	if parent != nil {
		path = filepath.Join(parent.path, name)
	} else {
		path = filepath.Join(b.root, name)
	}
	directive := tree.DirectiveFor(b.opts.SpecialPaths, path)
	if directive == tree.DirectiveNever {
		return nil
	}
	if !b.opts.ShowHidden && strings.HasPrefix(name, ".") && directive != tree.DirectiveAlways {
		return nil
	}
	info, err := os.Lstat(path)
	if err != nil {
		return nil
	}
	isSymlink := info.Mode()&os.ModeSymlink != 0
	isDir := info.IsDir()
	symlinkDir := false
	if isSymlink {
		if target, terr := os.Stat(path); terr == nil {
			symlinkDir = target.IsDir()
		}
	}
	if b.opts.OnlyFolders && !isDir && !symlinkDir {
		return nil
	}
	ignored := chain.Ignores(name)
	if ignored && !b.opts.ShowGitIgnored && directive != tree.DirectiveAlways {
		return nil
	}

	score := b.scoreLine(name, path, depth)
	if pattern.HasRealScore(b.pat) && score == 0 && !(isDir || symlinkDir) {
		// Non-matching leaves are dropped outright; directories are kept
		// provisionally since a descendant might still match.
		return nil
	}

	line := &bline{
		path: path, name: name, depth: depth,
		isDir: isDir, isSymlink: isSymlink, symlinkDir: symlinkDir,
		score: score, ignoreChain: chain, gitIgnored: ignored,
	}
	if parent != nil {
		line.parentID = parent.id
		line.hasParent = true
	}
	return line
}

// scoreLine applies a small depth bonus (shallower matches rank higher)
// atop the raw pattern score, matching the "depth doping" used by the
// original BFS builder so the root's immediate children aren't drowned
// out by a deep match with an otherwise identical score.
func (b *Builder) scoreLine(name, path string, depth int) int {
	s := pattern.ScoreWithContent(b.pat, name, path)
	if s == 0 {
		return 0
	}
	depthBonus := 10_000 - depth
	if depthBonus < 0 {
		depthBonus = 0
	}
	return s + depthBonus
}

// gather performs the breadth-first walk: it keeps a queue of directories
// still open for expansion and a queue of directories discovered at the
// next depth level, switching levels only once the current one is
// exhausted, so shallow matches are always discovered before the cutoff
// forces a stop.
func (b *Builder) gather() {
	start := time.Now()
	optimalSize := b.opts.TargetedSize
	if pattern.HasRealScore(b.pat) {
		optimalSize *= 10
	}

	rootLine := &bline{id: 0, path: b.root, name: filepath.Base(b.root), depth: 0, isDir: true}
	b.arena = append(b.arena, rootLine)

	openDirs := []*bline{rootLine}
	var nextLevel []*bline

	for len(openDirs) > 0 || len(nextLevel) > 0 {
		if b.Observer != nil && b.Observer() {
			b.interrupted = true
			break
		}
		if b.tooManyMatches {
			break
		}
		if len(openDirs) == 0 {
			openDirs, nextLevel = nextLevel, nil
		}
		if len(b.arena) >= optimalSize && pattern.HasRealScore(b.pat) {
			break
		}
		if time.Since(start) > notLong {
			break
		}
		dir := openDirs[0]
		openDirs = openDirs[1:]

		children := b.loadChildren(dir)
		for _, c := range children {
			c.id = bid(len(b.arena))
			b.arena = append(b.arena, c)
			dir.nbKeptChildren++

			if c.score > 0 && pattern.HasRealScore(b.pat) {
				b.matchedCount++
				if b.opts.MaxMatches > 0 && b.matchedCount > b.opts.MaxMatches {
					b.tooManyMatches = true
					b.matchLimit = b.opts.MaxMatches
				}
			}

			expand := c.isDir || c.symlinkDir
			if expand && b.opts.Sort != tree.SortNone && c.depth >= 1 {
				// A sort other than None forces a flat, single-level
				// display: the builder never expands past the root's
				// direct children once one is active.
				expand = false
			}
			if expand {
				nextLevel = append(nextLevel, c)
			}
		}
	}

	b.propagateMatches()
}

// loadChildren reads one directory's entries, sorted the way broot orders
// siblings (case-insensitive name, directories and files interleaved),
// and turns each into a candidate bline.
func (b *Builder) loadChildren(dir *bline) []*bline {
	entries, err := os.ReadDir(dir.path)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	// Stable so that names equal under case folding keep ReadDir's
	// byte order (AA.txt before aa.txt).
	sort.SliceStable(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	chain := dir.ignoreChain
	if chain == nil {
		chain = gitstatus.Root()
	}
	chain = chain.Descend(dir.path)

	var out []*bline
	for _, name := range names {
		c := b.makeLine(dir, name, dir.depth+1, chain)
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// propagateMatches walks the arena from the end backward so that any
// directory with a matching descendant inherits a nonzero score too —
// otherwise a deeply-matching leaf would be trimmed away along with its
// zero-scored ancestors.
func (b *Builder) propagateMatches() {
	if !pattern.HasRealScore(b.pat) {
		return
	}
	for i := len(b.arena) - 1; i >= 1; i-- {
		line := b.arena[i]
		if line.score > 0 && line.hasParent {
			parent := b.arena[line.parentID]
			if parent.score == 0 {
				parent.score = 1
			}
		}
	}
}

// sortableID orders arena entries by ascending score for the trim
// min-heap: the lowest-scoring survivor is always the first one evicted
// when the arena exceeds budget.
type sortableID struct {
	id    bid
	score int
}

type scoreHeap []sortableID

func (h scoreHeap) Len() int            { return len(h) }
func (h scoreHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h scoreHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *scoreHeap) Push(x any)         { *h = append(*h, x.(sortableID)) }
func (h *scoreHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// trimExcess drops the lowest-scoring leaves until the arena fits within
// targetSize, incrementing each evicted line's parent's unlisted counter
// so the display can show "N unlisted" rather than silently vanishing
// entries.
func (b *Builder) trimExcess(targetSize int) []bid {
	alive := make(map[bid]bool, len(b.arena))
	for _, l := range b.arena {
		alive[l.id] = true
	}
	if len(alive) <= targetSize {
		return sortedAliveIDs(alive)
	}

	h := &scoreHeap{}
	heap.Init(h)
	for _, l := range b.arena {
		if l.id == 0 {
			continue // never trim the root
		}
		if b.isLeafOrEmptyDir(l) {
			heap.Push(h, sortableID{id: l.id, score: l.score})
		}
	}

	for len(alive) > targetSize && h.Len() > 0 {
		victim := heap.Pop(h).(sortableID)
		if !alive[victim.id] {
			continue
		}
		line := b.arena[victim.id]
		delete(alive, victim.id)
		if line.hasParent {
			parent := b.arena[line.parentID]
			parent.nbKeptChildren--
			parent.unlisted++
			if parent.nbKeptChildren == 0 && parent.id != 0 {
				heap.Push(h, sortableID{id: parent.id, score: parent.score})
			}
		}
	}
	return sortedAliveIDs(alive)
}

func (b *Builder) isLeafOrEmptyDir(l *bline) bool {
	return l.nbKeptChildren == 0
}

func sortedAliveIDs(alive map[bid]bool) []bid {
	ids := make([]bid, 0, len(alive))
	for id := range alive {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// takeAsTree converts the surviving arena entries into display-ordered
// tree.Line values, depth-first so the UI sees each directory immediately
// followed by its children.
func (b *Builder) takeAsTree(kept []bid) []*tree.Line {
	aliveSet := make(map[bid]bool, len(kept))
	for _, id := range kept {
		aliveSet[id] = true
	}
	childrenOf := make(map[bid][]bid)
	for _, id := range kept {
		l := b.arena[id]
		if l.hasParent {
			childrenOf[l.parentID] = append(childrenOf[l.parentID], id)
		}
	}

	var out []*tree.Line
	var walk func(id bid)
	walk = func(id bid) {
		l := b.arena[id]
		out = append(out, b.toTreeLine(l))
		kids := childrenOf[id]
		for _, cid := range kids {
			walk(cid)
		}
		if l.unlisted > 0 && len(kids) > 0 {
			b.convertLastToPruning(out, l, kids)
		}
	}
	walk(0)
	return out
}

// convertLastToPruning rewrites a partially-listed directory's last kept
// child into the "N unlisted" placeholder, counting the replaced child
// itself among the unlisted. The rewrite is skipped when the last child
// still has kept descendants of its own (its subtree must stay navigable)
// or is the best-scoring sibling (the match the user is after must never
// be hidden behind a count).
func (b *Builder) convertLastToPruning(out []*tree.Line, parent *bline, kids []bid) {
	lastID := kids[len(kids)-1]
	last := b.arena[lastID]
	if last.nbKeptChildren > 0 {
		return
	}
	if last.score > 0 {
		// Only the unique best-scoring sibling is exempt; among equal
		// scores the placeholder wins, since hiding one of N identical
		// matches behind a count loses nothing.
		uniqueBest := true
		for _, cid := range kids {
			if cid != lastID && b.arena[cid].score >= last.score {
				uniqueBest = false
				break
			}
		}
		if uniqueBest {
			return
		}
	}
	pl := out[len(out)-1]
	pl.Type = tree.LinePruning
	pl.Unlisted = parent.unlisted + 1
}

func (b *Builder) toTreeLine(l *bline) *tree.Line {
	lt := tree.LineFile
	switch {
	case l.isDir:
		lt = tree.LineDir
	case l.isSymlink && l.symlinkDir:
		lt = tree.LineSymLinkToDir
	case l.isSymlink:
		lt = tree.LineSymLinkToFile
	}
	line := &tree.Line{
		Path:             l.path,
		Name:             l.name,
		Depth:            l.depth,
		Type:             lt,
		Score:            l.score,
		GitIgnored:       l.gitIgnored,
		HasUnlistedChild: l.unlisted > 0,
	}
	if info, err := os.Lstat(l.path); err == nil {
		line.ModTime = info.ModTime()
		line.Mode = info.Mode()
	}
	if b.repo != nil {
		line.GitStat = b.repo.StatusFor(l.path)
	}
	return line
}

// sortLines reorders the root's direct children in place according to
// kind, leaving the root line (index 0) fixed. Since a non-None sort
// already restricted gather() to a single level, there are no deeper
// descendants to worry about disturbing.
func sortLines(lines []*tree.Line, kind tree.SortKind) {
	if kind == tree.SortNone || len(lines) <= 1 {
		return
	}
	children := lines[1:]
	sort.SliceStable(children, func(i, j int) bool {
		a, b := children[i], children[j]
		switch kind {
		case tree.SortSize:
			if as, bs := lineBytes(a), lineBytes(b); as != bs {
				return as > bs
			}
		case tree.SortCount:
			if ac, bc := lineCount(a), lineCount(b); ac != bc {
				return ac > bc
			}
		case tree.SortDate:
			if !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.After(b.ModTime)
			}
		case tree.SortTypeDirsFirst:
			if ad, bd := a.IsDir(), b.IsDir(); ad != bd {
				return ad
			}
		case tree.SortTypeDirsLast:
			if ad, bd := a.IsDir(), b.IsDir(); ad != bd {
				return !ad
			}
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

func lineBytes(l *tree.Line) uint64 {
	if l.Size == nil {
		return 0
	}
	return l.Size.Bytes
}

func lineCount(l *tree.Line) uint64 {
	if l.Size == nil {
		return 0
	}
	return l.Size.Count
}

// Package gitstatus resolves per-path git status flags and whole-tree
// summaries (branch name, number of changed files, clean flag) used to
// decorate tree lines and drive the git status panel.
package gitstatus

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	gogitplumbing "github.com/go-git/go-git/v5/plumbing"
)

// LineStatus is a bitmask of the git states that can apply to one path.
type LineStatus uint8

const (
	StatusNone LineStatus = 0
	StatusNew  LineStatus = 1 << iota
	StatusModified
	StatusDeleted
	StatusRenamed
	StatusConflict
	StatusIgnored
)

// Repo wraps an open repository and a cached worktree status, refreshed on
// demand rather than per-query, since `git status` over a big tree is not
// cheap.
type Repo struct {
	repo *git.Repository
	root string

	status git.Status
}

// Discover walks up from path looking for a repository root. It returns
// nil, nil (not an error) when path is not inside a repo at all, since
// "no git here" is an expected, common outcome for a tree browser.
func Discover(path string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if err == git.ErrRepositoryNotExists {
			return nil, nil
		}
		return nil, err
	}
	wt, err := r.Worktree()
	if err != nil {
		return nil, err
	}
	return &Repo{repo: r, root: wt.Filesystem.Root()}, nil
}

// Root returns the worktree root of the discovered repository.
func (r *Repo) Root() string { return r.root }

// Refresh recomputes the cached worktree status. Callers debounce this
// themselves (typically on file-watch events) rather than calling it per
// keystroke.
func (r *Repo) Refresh() error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return err
	}
	st, err := wt.Status()
	if err != nil {
		return err
	}
	r.status = st
	return nil
}

// StatusFor returns the status flags for path (relative to the repo root
// or absolute; both are normalized).
func (r *Repo) StatusFor(path string) LineStatus {
	rel := path
	if filepath.IsAbs(path) {
		if p, err := filepath.Rel(r.root, path); err == nil {
			rel = p
		}
	}
	rel = filepath.ToSlash(rel)
	fs, ok := r.status[rel]
	if !ok {
		return StatusNone
	}
	return fromPorcelain(fs.Staging) | fromPorcelain(fs.Worktree)
}

func fromPorcelain(code git.StatusCode) LineStatus {
	switch code {
	case git.Untracked:
		return StatusNew
	case git.Modified:
		return StatusModified
	case git.Deleted:
		return StatusDeleted
	case git.Renamed:
		return StatusRenamed
	case git.UpdatedButUnmerged:
		return StatusConflict
	default:
		return StatusNone
	}
}

// Summary is the tree-wide git information shown in a panel's status bar.
// Summarize does not count line insertions or deletions: Insertions and
// Deletions stay zero.
type Summary struct {
	Branch       string
	Insertions   int
	Deletions    int
	FilesChanged int
	Clean        bool
}

// Summarize builds a Summary from the current cached status plus HEAD.
func (r *Repo) Summarize() (Summary, error) {
	head, err := r.repo.Head()
	var branch string
	if err == nil {
		branch = shortBranchName(head.Name())
	}
	changed := 0
	for range r.status {
		changed++
	}
	return Summary{
		Branch:       branch,
		FilesChanged: changed,
		Clean:        r.status.IsClean(),
	}, nil
}

func shortBranchName(ref gogitplumbing.ReferenceName) string {
	s := ref.String()
	return strings.TrimPrefix(s, "refs/heads/")
}

// HasAny reports whether any of the given flags are set.
func (s LineStatus) HasAny(flags LineStatus) bool { return s&flags != 0 }

package gitstatus

import (
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreChain is a stack of compiled .gitignore matchers, one per
// directory level from the tree root down to the current directory. The
// tree builder pushes a new link as it descends into each directory that
// carries its own .gitignore, and children inherit every ancestor's rules
// the way git itself does.
type IgnoreChain struct {
	links []*gitignore.GitIgnore
}

// Root returns an empty chain to start a build from.
func Root() *IgnoreChain {
	return &IgnoreChain{}
}

// Descend returns a new chain for a child directory dirPath, adding a link
// for dirPath's own .gitignore file if one exists. The receiver is left
// unmodified so sibling directories can each descend independently.
func (c *IgnoreChain) Descend(dirPath string) *IgnoreChain {
	gi, err := gitignore.CompileIgnoreFile(filepath.Join(dirPath, ".gitignore"))
	if err != nil || gi == nil {
		return c
	}
	next := make([]*gitignore.GitIgnore, len(c.links), len(c.links)+1)
	copy(next, c.links)
	next = append(next, gi)
	return &IgnoreChain{links: next}
}

// Ignores reports whether relPath (relative to whatever directory level
// compiled each link) is excluded by any ancestor's .gitignore.
func (c *IgnoreChain) Ignores(name string) bool {
	for _, gi := range c.links {
		if gi.MatchesPath(name) {
			return true
		}
	}
	return false
}

package treebuild

import (
	"github.com/arbor-tui/arbor/internal/filesum"
	"github.com/arbor-tui/arbor/internal/tree"
)

// sizeEngine is shared across every build so its hard-link dedup set and
// the package-level directory cache both pay off across repeated rebuilds
// of the same tree, not just within one.
var sizeEngine = filesum.New(4)

// ConfigureSizeEngine resizes the shared worker pool to the configured
// thread count; zero or negative keeps the default. Meant to be called
// once at startup, before any build runs.
func ConfigureSizeEngine(threads int) {
	if threads > 0 {
		sizeEngine = filesum.New(threads)
	}
}

// AttachSizes fills in each line's Size with its aggregate byte count,
// entry count, and newest modification time: directories through the
// cached recursive sum, files through a direct stat. Left to callers to
// invoke since walking every subtree is far more expensive than a plain
// listing and most builds don't need it.
func AttachSizes(lines []*tree.Line) {
	for _, l := range lines {
		l.Size = lineSum(l)
	}
}

func lineSum(l *tree.Line) *filesum.Sum {
	var s filesum.Sum
	if l.IsDir() {
		s = sizeEngine.ComputeDirCached(l.Path)
	} else {
		s = sizeEngine.ComputeFile(l.Path)
	}
	return &s
}

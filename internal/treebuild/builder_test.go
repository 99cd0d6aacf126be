package treebuild

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/arbor-tui/arbor/internal/pattern"
	"github.com/arbor-tui/arbor/internal/tree"
)

func TestBuildFlatDirectory(t *testing.T) {
	root := t.TempDir()
	mustTouch(t, filepath.Join(root, "a.txt"))
	mustTouch(t, filepath.Join(root, "b.txt"))
	os.Mkdir(filepath.Join(root, "sub"), 0o755)
	mustTouch(t, filepath.Join(root, "sub", "c.txt"))

	b := New(root, nil, tree.DefaultOptions())
	tr := b.Build()

	if len(tr.Lines) < 4 {
		t.Fatalf("expected at least 4 lines (root implicit + 3 entries), got %d", len(tr.Lines))
	}
	names := map[string]bool{}
	for _, l := range tr.Lines {
		names[l.Name] = true
	}
	for _, want := range []string{"a.txt", "b.txt", "sub"} {
		if !names[want] {
			t.Fatalf("expected %q among built lines: %v", want, names)
		}
	}
}

func TestBuildOrdersSiblingsCaseInsensitively(t *testing.T) {
	root := t.TempDir()
	mustTouch(t, filepath.Join(root, "BB.md"))
	mustTouch(t, filepath.Join(root, "aa.txt"))
	mustTouch(t, filepath.Join(root, "AA.txt"))

	tr := New(root, nil, tree.DefaultOptions()).Build()

	if len(tr.Lines) != 4 {
		t.Fatalf("expected root + 3 entries, got %d lines", len(tr.Lines))
	}
	if tr.Selection != 0 {
		t.Fatalf("expected the root selected initially, got %d", tr.Selection)
	}
	want := []string{"AA.txt", "aa.txt", "BB.md"}
	for i, name := range want {
		if tr.Lines[i+1].Name != name {
			t.Fatalf("expected %v at positions 1..3, got %q at %d", want, tr.Lines[i+1].Name, i+1)
		}
	}
}

func TestBuildHidesDotfilesByDefault(t *testing.T) {
	root := t.TempDir()
	mustTouch(t, filepath.Join(root, ".hidden"))
	mustTouch(t, filepath.Join(root, "visible.txt"))

	b := New(root, nil, tree.DefaultOptions())
	tr := b.Build()

	for _, l := range tr.Lines {
		if l.Name == ".hidden" {
			t.Fatalf("expected .hidden to be filtered out")
		}
	}
}

func TestBuildSortBySizeRestrictsToSingleLevel(t *testing.T) {
	root := t.TempDir()
	os.Mkdir(filepath.Join(root, "sub"), 0o755)
	mustTouch(t, filepath.Join(root, "sub", "nested.txt"))
	mustTouch(t, filepath.Join(root, "top.txt"))

	opts := tree.DefaultOptions()
	opts.Sort = tree.SortSize
	b := New(root, nil, opts)
	tr := b.Build()

	for _, l := range tr.Lines {
		if l.Depth > 1 {
			t.Fatalf("expected no line deeper than 1 once a sort is active, got %q at depth %d", l.Name, l.Depth)
		}
	}
}

func TestBuildSortBySizeOrdersLargestFirst(t *testing.T) {
	root := t.TempDir()
	write := func(name string, n int) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(root, name), make([]byte, n), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Block-sized multiples so on-disk sizes differ even on filesystems
	// with 4 KiB blocks, and names chosen so alphabetical order differs
	// from size order.
	write("aaa.bin", 10*4096)
	write("bbb.bin", 30*4096)
	write("ccc.bin", 20*4096)

	opts := tree.DefaultOptions()
	opts.Sort = tree.SortSize
	tr := New(root, nil, opts).Build()

	want := []string{"bbb.bin", "ccc.bin", "aaa.bin"}
	if len(tr.Lines) != 4 {
		t.Fatalf("expected root + 3 files, got %d", len(tr.Lines))
	}
	for i, name := range want {
		if tr.Lines[i+1].Name != name {
			t.Fatalf("expected size-descending order %v, got %q at %d", want, tr.Lines[i+1].Name, i+1)
		}
	}
}

func TestBuildAttachesSizesWhenShowSizesEnabled(t *testing.T) {
	root := t.TempDir()
	mustTouch(t, filepath.Join(root, "a.txt"))

	opts := tree.DefaultOptions()
	opts.ShowSizes = true
	b := New(root, nil, opts)
	tr := b.Build()

	for _, l := range tr.Lines {
		if l.Name == "a.txt" && l.Size == nil {
			t.Fatal("expected a.txt's Size to be attached when ShowSizes is set")
		}
	}
}

func TestBuildLeavesSizesNilWhenNotRequested(t *testing.T) {
	root := t.TempDir()
	mustTouch(t, filepath.Join(root, "a.txt"))

	b := New(root, nil, tree.DefaultOptions())
	tr := b.Build()

	for _, l := range tr.Lines {
		if l.Size != nil {
			t.Fatalf("expected no Size to be attached without ShowSizes/ShowCounts/a size-based sort, got %+v on %q", l.Size, l.Name)
		}
	}
}

func TestBuildSpecialPathDirectives(t *testing.T) {
	root := t.TempDir()
	mustTouch(t, filepath.Join(root, ".env"))
	mustTouch(t, filepath.Join(root, "secret.txt"))
	mustTouch(t, filepath.Join(root, "kept.txt"))

	opts := tree.DefaultOptions()
	opts.SpecialPaths = []tree.SpecialPath{
		{Prefix: filepath.Join(root, ".env"), Directive: tree.DirectiveAlways},
		{Prefix: filepath.Join(root, "secret"), Directive: tree.DirectiveNever},
	}
	tr := New(root, nil, opts).Build()

	names := map[string]bool{}
	for _, l := range tr.Lines {
		names[l.Name] = true
	}
	if !names[".env"] {
		t.Fatal("expected an Always directive to surface a hidden file")
	}
	if names["secret.txt"] {
		t.Fatal("expected a Never directive to drop the file")
	}
	if !names["kept.txt"] {
		t.Fatal("expected an unaffected file to stay listed")
	}
}

func TestBuildTooManyMatches(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"apple.txt", "apricot.txt", "avocado.txt"} {
		mustTouch(t, filepath.Join(root, name))
	}

	pat, err := pattern.Parse("a")
	if err != nil {
		t.Fatal(err)
	}
	opts := tree.DefaultOptions()
	opts.MaxMatches = 1
	b := New(root, pat, opts)
	tr := b.Build()

	if !tr.TooManyMatches {
		t.Fatal("expected TooManyMatches to be set")
	}
	if tr.MatchLimit != 1 {
		t.Fatalf("expected MatchLimit 1, got %d", tr.MatchLimit)
	}
}

func TestBuildTrimsToTargetedSize(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 100; i++ {
		mustTouch(t, filepath.Join(root, fmt.Sprintf("doc_%03d.txt", i)))
	}

	pat, err := pattern.Parse("doc")
	if err != nil {
		t.Fatal(err)
	}
	opts := tree.DefaultOptions()
	opts.TargetedSize = 20
	tr := New(root, pat, opts).Build()

	if len(tr.Lines) > 20 {
		t.Fatalf("expected at most 20 lines after trim, got %d", len(tr.Lines))
	}
	if len(tr.Lines) < 10 {
		t.Fatalf("expected the trim to keep close to the budget, got %d lines", len(tr.Lines))
	}
	matched := 0
	for _, l := range tr.Lines[1:] {
		if l.Type != tree.LinePruning && l.Score <= 0 {
			t.Fatalf("expected only matching lines to survive, %q has score %d", l.Name, l.Score)
		}
		if l.Type != tree.LinePruning {
			matched++
		}
	}
	if matched == 0 {
		t.Fatal("expected matching lines to survive the trim")
	}
}

func TestBuildMarksPrunedDirectories(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		mustTouch(t, filepath.Join(root, fmt.Sprintf("f_%02d.txt", i)))
	}

	opts := tree.DefaultOptions()
	opts.TargetedSize = 10
	tr := New(root, nil, opts).Build()

	var pruning *tree.Line
	for _, l := range tr.Lines {
		if l.Type == tree.LinePruning {
			pruning = l
		}
	}
	if pruning == nil {
		t.Fatal("expected a pruning placeholder once children were trimmed")
	}
	if pruning.Unlisted < 2 {
		t.Fatalf("expected unlisted >= 2 on the pruning line, got %d", pruning.Unlisted)
	}
	if !tr.Lines[0].HasUnlistedChild {
		t.Fatal("expected the root to be flagged as partially listed")
	}
}

func mustTouch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

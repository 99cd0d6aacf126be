package tree

import "testing"

func sampleTree() *Tree {
	lines := []*Line{
		{Path: "/r", Name: "r", Depth: 0, Type: LineDir},
		{Path: "/r/a", Name: "a", Depth: 1, Type: LineFile},
		{Path: "/r/b", Name: "b", Depth: 1, Type: LinePruning, Unlisted: 3},
		{Path: "/r/c", Name: "c", Depth: 1, Type: LineFile},
		{Path: "/r/d", Name: "d", Depth: 1, Type: LineDir},
		{Path: "/r/d/e", Name: "e", Depth: 2, Type: LineFile},
	}
	return NewTree("/r", lines, DefaultOptions())
}

func TestInvariants(t *testing.T) {
	tr := sampleTree()
	if len(tr.Lines) == 0 {
		t.Fatal("tree must never be empty")
	}
	if tr.Lines[0].Depth != 0 {
		t.Fatal("line 0 must be the root")
	}
	if tr.Selection < 0 || tr.Selection >= len(tr.Lines) {
		t.Fatalf("selection %d out of range", tr.Selection)
	}
	for _, l := range tr.Lines[1:] {
		found := false
		for _, p := range tr.Lines {
			if p.Depth == l.Depth-1 {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("line %s at depth %d has no possible parent", l.Path, l.Depth)
		}
	}
	for _, l := range tr.Lines {
		if l.Type == LinePruning && l.Unlisted < 2 {
			t.Fatalf("pruning line %s carries unlisted=%d, want >= 2", l.Path, l.Unlisted)
		}
	}
}

func TestMoveSelectionSkipsPruningLines(t *testing.T) {
	tr := sampleTree()
	tr.Selection = 1
	tr.MoveSelection(1, 10, false)
	if tr.Selection != 3 {
		t.Fatalf("expected selection to land past the pruning line at 3, got %d", tr.Selection)
	}
	tr.MoveSelection(-1, 10, false)
	if tr.Selection != 1 {
		t.Fatalf("expected selection back at 1, got %d", tr.Selection)
	}
}

func TestMoveSelectionClampsWithoutCycle(t *testing.T) {
	tr := sampleTree()
	tr.Selection = len(tr.Lines) - 1
	tr.MoveSelection(5, 10, false)
	if tr.Selection != len(tr.Lines)-1 {
		t.Fatalf("expected clamped selection, got %d", tr.Selection)
	}
}

func TestMoveSelectionCycles(t *testing.T) {
	tr := sampleTree()
	tr.Selection = len(tr.Lines) - 1
	tr.MoveSelection(1, 10, true)
	if tr.Selection != 0 {
		t.Fatalf("expected wrap to the root, got %d", tr.Selection)
	}
	tr.MoveSelection(-1, 10, true)
	if tr.Selection != len(tr.Lines)-1 {
		t.Fatalf("expected wrap to the last line, got %d", tr.Selection)
	}
}

func TestEnsureVisibleKeepsMargin(t *testing.T) {
	lines := []*Line{{Path: "/r", Depth: 0, Type: LineDir}}
	for i := 0; i < 50; i++ {
		lines = append(lines, &Line{Path: "/r/f", Depth: 1, Type: LineFile})
	}
	tr := NewTree("/r", lines, DefaultOptions())

	tr.Selection = 30
	tr.EnsureVisible(10)
	if tr.Selection-tr.ScrollTop < 3 {
		t.Fatalf("expected 3 lines of margin above, scrollTop=%d selection=%d", tr.ScrollTop, tr.Selection)
	}
	if tr.Selection >= tr.ScrollTop+10-3 {
		t.Fatalf("expected 3 lines of margin below, scrollTop=%d selection=%d", tr.ScrollTop, tr.Selection)
	}
}

func TestTryScrollClampsAndNudgesSelection(t *testing.T) {
	lines := []*Line{{Path: "/r", Depth: 0, Type: LineDir}}
	for i := 0; i < 20; i++ {
		lines = append(lines, &Line{Path: "/r/f", Depth: 1, Type: LineFile})
	}
	tr := NewTree("/r", lines, DefaultOptions())

	tr.TryScroll(100, 10)
	if tr.ScrollTop != len(tr.Lines)-10 {
		t.Fatalf("expected scroll clamped to the last page, got %d", tr.ScrollTop)
	}
	if tr.Selection < tr.ScrollTop {
		t.Fatalf("expected selection nudged into view, got %d < %d", tr.Selection, tr.ScrollTop)
	}
	tr.TryScroll(-100, 10)
	if tr.ScrollTop != 0 {
		t.Fatalf("expected scroll clamped to 0, got %d", tr.ScrollTop)
	}
}

func TestTrySelectBestMatchPrefersShallowerOnTie(t *testing.T) {
	tr := sampleTree()
	tr.Lines[5].Score = 40 // depth 2
	tr.Lines[3].Score = 40 // depth 1
	tr.Lines[1].Score = 10
	if !tr.TrySelectBestMatch() {
		t.Fatal("expected a best match")
	}
	if tr.Selection != 3 {
		t.Fatalf("expected the shallower of two equal scores, got line %d", tr.Selection)
	}
}

func TestTrySelectPath(t *testing.T) {
	tr := sampleTree()
	if !tr.TrySelectPath("/r/d/e") {
		t.Fatal("expected path to be found")
	}
	if tr.Selection != 5 {
		t.Fatalf("expected selection 5, got %d", tr.Selection)
	}
	if tr.TrySelectPath("/nope") {
		t.Fatal("expected a missing path to report false")
	}
}

func TestTrySelectFirstLastSkipPruning(t *testing.T) {
	lines := []*Line{
		{Path: "/r", Depth: 0, Type: LineDir},
		{Path: "/r/a", Depth: 1, Type: LineFile},
		{Path: "/r/z", Depth: 1, Type: LinePruning, Unlisted: 2},
	}
	tr := NewTree("/r", lines, DefaultOptions())
	tr.TrySelectLast()
	if tr.Selection != 1 {
		t.Fatalf("expected the last selectable line, got %d", tr.Selection)
	}
	tr.TrySelectFirst()
	if tr.Selection != 0 {
		t.Fatalf("expected the root, got %d", tr.Selection)
	}
}

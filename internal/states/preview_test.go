package states

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arbor-tui/arbor/internal/preview"
)

func TestNewPreviewOnDirQueuesAsyncBuild(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPreview(dir)
	if !p.pending {
		t.Fatal("expected a directory preview to start pending")
	}
	cmd := p.InitCmd()
	if cmd == nil {
		t.Fatal("expected InitCmd to return a non-nil command for a pending directory preview")
	}

	msg := cmd()
	ready, ok := msg.(previewReadyMsg)
	if !ok {
		t.Fatalf("expected previewReadyMsg, got %T", msg)
	}
	if ready.preview.Kind != preview.KindDir {
		t.Fatalf("expected KindDir, got %v", ready.preview.Kind)
	}

	p.OnPendingTask(msg)
	if p.pending {
		t.Fatal("expected pending to clear once the async result lands")
	}
	if p.content.Kind != preview.KindDir {
		t.Fatalf("expected content to be replaced by the async result, got %v", p.content.Kind)
	}
}

func TestNewPreviewOnFileDoesNotQueueAsyncBuild(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPreview(path)
	if p.pending {
		t.Fatal("expected a file preview to build inline, not pending")
	}
	if p.InitCmd() != nil {
		t.Fatal("expected InitCmd to be nil when nothing is pending")
	}
}

func TestOnPendingTaskDiscardsStaleGeneration(t *testing.T) {
	dir := t.TempDir()
	p := NewPreview(dir)
	cmd := p.InitCmd()
	msg := cmd()

	p.generation++ // simulate a Refresh happening before the async result arrives
	p.OnPendingTask(msg)
	if !p.pending {
		t.Fatal("expected a stale-generation result to be discarded, leaving pending set")
	}
}

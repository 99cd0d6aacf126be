package gitstatus

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHasAny(t *testing.T) {
	s := StatusModified | StatusNew
	if !s.HasAny(StatusNew) {
		t.Fatalf("expected StatusNew to be set")
	}
	if s.HasAny(StatusDeleted) {
		t.Fatalf("did not expect StatusDeleted to be set")
	}
}

func TestIgnoreChainDescend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	chain := Root().Descend(dir)
	if !chain.Ignores("debug.log") {
		t.Fatalf("expected *.log to be ignored")
	}
	if chain.Ignores("main.go") {
		t.Fatalf("did not expect main.go to be ignored")
	}
}

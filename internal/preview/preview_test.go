package preview

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildZeroLen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	p := Build(path, 80, 24, false)
	if p.Kind != KindZeroLen {
		t.Fatalf("expected KindZeroLen, got %v", p.Kind)
	}
}

func TestBuildDir(t *testing.T) {
	dir := t.TempDir()
	p := Build(dir, 80, 24, false)
	if p.Kind != KindDir {
		t.Fatalf("expected KindDir, got %v", p.Kind)
	}
}

func TestBuildPlaceholderDirSkipsSizeWalk(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := BuildPlaceholder(dir, 80, 24, false)
	if p.Kind != KindDir {
		t.Fatalf("expected KindDir, got %v", p.Kind)
	}
	if strings.Contains(p.Body, "B") {
		t.Fatalf("expected placeholder body to omit a computed size, got %q", p.Body)
	}
}

func TestBuildPlaceholderFileMatchesBuild(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	if err := os.WriteFile(path, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := BuildPlaceholder(path, 80, 24, false)
	if p.Kind != KindText {
		t.Fatalf("expected KindText for a non-directory placeholder, got %v", p.Kind)
	}
}

func TestBuildText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	if err := os.WriteFile(path, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := Build(path, 80, 24, false)
	if p.Kind != KindText {
		t.Fatalf("expected KindText, got %v", p.Kind)
	}
}

func TestSummarizeTtyRecording(t *testing.T) {
	data := "{\"version\":2,\"width\":80,\"height\":24}\n[0.1, \"o\", \"hi\"]\n"
	s := summarizeTtyRecording(data)
	if s == "" {
		t.Fatalf("expected a non-empty summary")
	}
}

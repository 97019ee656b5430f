package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "internal", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(nested, "thing.go")
	if err := os.WriteFile(file, []byte("package deep\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := DetectProjectRoot(file); got != root {
		t.Errorf("DetectProjectRoot(%q) = %q, want %q", file, got, root)
	}
	if got := DetectProjectRoot(nested); got != root {
		t.Errorf("DetectProjectRoot(%q) = %q, want %q", nested, got, root)
	}
}

func TestDetectProjectRoot_NoMarker(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "plain")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	// Without a marker anywhere up the tree, the starting directory wins.
	// The temp dir's ancestors may contain markers on some machines, so
	// only assert the result is a prefix of the input.
	got := DetectProjectRoot(sub)
	if rel, err := filepath.Rel(got, sub); err != nil || rel == ".." {
		t.Errorf("DetectProjectRoot(%q) = %q, not an ancestor", sub, got)
	}
}

package session

import (
	"os"
	"path/filepath"
)

// projectMarkers are files or directories whose presence marks a
// workspace root, checked in priority order.
var projectMarkers = []string{
	"go.mod",
	"Cargo.toml",
	"package.json",
	"pyproject.toml",
	"setup.py",
	".git",
}

// DetectProjectRoot walks up from the given path looking for a project
// marker. It returns the directory containing the first marker found, or
// the starting directory when nothing matches.
func DetectProjectRoot(path string) string {
	dir := path
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		dir = filepath.Dir(path)
	}
	start := dir

	for {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

package core

import (
	"os"
	"path/filepath"
	"strings"
)

// FindRepoRoot returns the root directory of the repo containing the given directory, and the
// path of that directory relative to it. The root is identified by a .bladeconfig file.
func FindRepoRoot(dir string) (root, initialDir string, found bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", "", false
	}
	initial := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err == nil {
			rel := strings.TrimLeft(strings.TrimPrefix(initial, dir), string(filepath.Separator))
			if rel == "" {
				rel = RootDir
			}
			return dir, filepath.ToSlash(rel), true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", false
		}
		dir = parent
	}
}

// MustFindRepoRoot is like FindRepoRoot but dies if there's no repo.
func MustFindRepoRoot(dir string) (string, string) {
	root, initial, found := FindRepoRoot(dir)
	if !found {
		log.Fatalf("Couldn't locate the repo root. Are you sure you're inside a blade repo? (there should be a %s file at its root)", ConfigFileName)
	}
	return root, initial
}

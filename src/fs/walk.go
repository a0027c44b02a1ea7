package fs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
)

// Walk implements an equivalent to filepath.Walk.
// It's implemented over github.com/karrick/godirwalk but the provided interface doesn't use that
// to make it a little easier to handle.
func Walk(rootPath string, callback func(name string, isDir bool) error) error {
	// Compatibility with filepath.Walk which allows passing a file as the root argument.
	if info, err := os.Lstat(rootPath); err != nil {
		return err
	} else if !info.IsDir() {
		return callback(rootPath, false)
	}
	return godirwalk.Walk(rootPath, &godirwalk.Options{
		Callback: func(name string, info *godirwalk.Dirent) error {
			return callback(name, info.IsDir())
		},
	})
}

// FindBuildFiles returns the directories below root (relative to root, '.' for root itself)
// that contain a file with the given name. Hidden directories and any in excludes
// (also relative to root) are skipped. The result is in lexical order.
func FindBuildFiles(root, buildFileName string, excludes ...string) ([]string, error) {
	dirs := []string{}
	err := Walk(root, func(name string, isDir bool) error {
		rel, err := filepath.Rel(root, name)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if isDir {
			if rel != "." && (strings.HasPrefix(filepath.Base(name), ".") || isExcluded(rel, excludes)) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Base(name) == buildFileName {
			dirs = append(dirs, filepath.ToSlash(filepath.Dir(rel)))
		}
		return nil
	})
	sort.Strings(dirs)
	return dirs, err
}

func isExcluded(dir string, excludes []string) bool {
	for _, ex := range excludes {
		if dir == ex || strings.HasPrefix(dir, ex+"/") {
			return true
		}
	}
	return false
}

// Package clean removes what blade has generated.
package clean

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/plzbuild/blade/src/cli/logging"
	"github.com/plzbuild/blade/src/core"
	"github.com/plzbuild/blade/src/ninja"
)

var log = logging.Log

// Clean removes the entire build directory.
func Clean(state *core.BuildState) error {
	return clean(repoPath(state, state.BuildDir()))
}

// Targets removes the outputs of the given targets along with their ninja fragments,
// so they'll be regenerated next time.
func Targets(state *core.BuildState, keys []core.TargetKey) error {
	for _, key := range keys {
		target, err := state.Graph.Lookup(key, nil)
		if err != nil {
			return err
		} else if target.IsSystemLibrary() {
			continue
		}
		if err := cleanTarget(state, target); err != nil {
			return err
		}
	}
	return nil
}

func cleanTarget(state *core.BuildState, target *core.Target) error {
	files, err := target.TargetFiles()
	if err != nil {
		return err
	}
	fragment, hash := ninja.FragmentFiles(target)
	files = append(files, fragment, hash)
	log.Debug("Cleaning %s", target)
	for _, file := range files {
		if err := clean(repoPath(state, file)); err != nil {
			return err
		}
	}
	return nil
}

// clean removes a generated path if it exists. It's checked uncached since blade writes these.
func clean(path string) error {
	if _, err := os.Lstat(path); err == nil {
		log.Info("Cleaning path %s", path)
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("Failed to clean path %s: %w", path, err)
		}
	}
	return nil
}

func repoPath(state *core.BuildState, p string) string {
	if state.RepoRoot == "" {
		return p
	}
	return filepath.Join(state.RepoRoot, p)
}

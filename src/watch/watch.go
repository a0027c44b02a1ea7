// Package watch provides a filesystem watcher that regenerates the ninja files when a BUILD
// file or source of the watched targets changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/plzbuild/blade/src/cli/logging"
	"github.com/plzbuild/blade/src/core"
	"github.com/plzbuild/blade/src/query"
)

var log = logging.Log

const debounceInterval = 50 * time.Millisecond

// Watch watches the BUILD files and sources of the given targets and everything they depend on,
// calling rebuild whenever one of them changes. It returns once the context is done.
func Watch(ctx context.Context, state *core.BuildState, keys []core.TargetKey, rebuild func()) error {
	w, err := newWatcher(state, keys)
	if err != nil {
		return err
	}
	defer w.Close()
	// Drop a message here so they know when it's actually ready to go.
	fmt.Println("And now my watch begins...")
	w.run(ctx, rebuild)
	return nil
}

type watcher struct {
	*fsnotify.Watcher
	files map[string]struct{}
}

// newWatcher sets up watches on everything the given targets are generated from.
func newWatcher(state *core.BuildState, keys []core.TargetKey) (*watcher, error) {
	deps, err := query.Deps(state, keys)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("Error setting up watcher: %w", err)
	}
	w := &watcher{Watcher: fw, files: map[string]struct{}{}}
	dirs := map[string]struct{}{}
	add := func(file string) error {
		file = filepath.Join(state.RepoRoot, file)
		w.files[file] = struct{}{}
		dir := filepath.Dir(file)
		if _, present := dirs[dir]; present {
			return nil
		}
		dirs[dir] = struct{}{}
		log.Debug("Adding watch on %s", dir)
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("Failed to add watch on %s: %w", dir, err)
		}
		return nil
	}
	if err := add(core.ConfigFileName); err != nil {
		w.Close()
		return nil, err
	}
	for _, key := range append(deps, keys...) {
		target := state.Graph.Target(key)
		if target == nil || target.IsSystemLibrary() {
			continue
		}
		files := []string{target.SourceLocation.File}
		for _, src := range target.Srcs {
			files = append(files, target.SourceFilePath(src))
		}
		for _, file := range files {
			if err := add(file); err != nil {
				w.Close()
				return nil, err
			}
		}
	}
	log.Notice("Watching %d files in %d directories", len(w.files), len(dirs))
	return w, nil
}

// run calls rebuild whenever a watched file changes, until the context is done.
func (w *watcher) run(ctx context.Context, rebuild func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if _, present := w.files[event.Name]; !present || event.Op == fsnotify.Chmod {
				log.Debug("Skipping notification for %s", event.Name)
				continue
			}
			log.Info("Event: %s", event)
			// Quick debounce; poll and discard all events for the next brief period.
		outer:
			for {
				select {
				case <-w.Events:
				case <-time.After(debounceInterval):
					break outer
				}
			}
			rebuild()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Error("Error watching files: %s", err)
		}
	}
}

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plzbuild/blade/src/core"
	"github.com/plzbuild/blade/src/targets"
)

var utilKey = core.TargetKey{Dir: "lib/util", Name: "util"}

func newState(t *testing.T) *core.BuildState {
	root := t.TempDir()
	for _, file := range []string{core.ConfigFileName, "base/BUILD", "base/base.cc", "lib/util/BUILD", "lib/util/util.cc", "other/BUILD"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.Dir(file)), 0775))
		require.NoError(t, os.WriteFile(filepath.Join(root, file), nil, 0644))
	}
	state := core.NewDefaultBuildState()
	state.RepoRoot = root
	add := func(dir string, args core.TargetArgs) {
		args.Type = targets.CcLibraryType
		args.Location = core.SourceLocation{File: dir + "/BUILD", Line: 1}
		state.SetCurrentDir(dir)
		_, err := targets.New(state, args)
		require.NoError(t, err)
	}
	add("base", core.TargetArgs{Name: "base", Srcs: []string{"base.cc"}})
	add("lib/util", core.TargetArgs{Name: "util", Srcs: []string{"util.cc"}, Deps: []string{"//base:base", "#pthread"}})
	add("other", core.TargetArgs{Name: "other"})
	return state
}

func TestNewWatcher(t *testing.T) {
	state := newState(t)
	w, err := newWatcher(state, []core.TargetKey{utilKey})
	require.NoError(t, err)
	defer w.Close()
	root := state.RepoRoot
	assert.Equal(t, map[string]struct{}{
		filepath.Join(root, core.ConfigFileName): {},
		filepath.Join(root, "base/BUILD"):        {},
		filepath.Join(root, "base/base.cc"):      {},
		filepath.Join(root, "lib/util/BUILD"):    {},
		filepath.Join(root, "lib/util/util.cc"):  {},
	}, w.files)
}

func TestNewWatcherMissingTarget(t *testing.T) {
	state := newState(t)
	_, err := newWatcher(state, []core.TargetKey{{Dir: "lib/util", Name: "wibble"}})
	assert.Error(t, err)
}

func TestRebuildOnChange(t *testing.T) {
	state := newState(t)
	w, err := newWatcher(state, []core.TargetKey{utilKey})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rebuilds := make(chan struct{}, 10)
	done := make(chan struct{})
	go func() {
		w.run(ctx, func() { rebuilds <- struct{}{} })
		close(done)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(state.RepoRoot, "base/base.cc"), []byte("int x;"), 0644))
	select {
	case <-rebuilds:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for rebuild")
	}
	cancel()
	<-done
}

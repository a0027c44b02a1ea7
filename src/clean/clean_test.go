package clean

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plzbuild/blade/src/core"
	"github.com/plzbuild/blade/src/fs"
	"github.com/plzbuild/blade/src/ninja"
	"github.com/plzbuild/blade/src/targets"
)

var (
	baseKey = core.TargetKey{Dir: "base", Name: "base"}
	utilKey = core.TargetKey{Dir: "lib/util", Name: "util"}
)

// newState returns a state with two libraries whose ninja files have been generated.
func newState(t *testing.T) *core.BuildState {
	state := core.NewDefaultBuildState()
	state.RepoRoot = t.TempDir()
	// Something looking for the build dir before it exists mustn't stop it being cleaned.
	assert.False(t, fs.PathExists(filepath.Join(state.RepoRoot, state.BuildDir())))
	add := func(dir string, args core.TargetArgs) {
		args.Type = targets.CcLibraryType
		args.Location = core.SourceLocation{File: dir + "/BUILD", Line: 1}
		state.SetCurrentDir(dir)
		_, err := targets.New(state, args)
		require.NoError(t, err)
	}
	add("base", core.TargetArgs{Name: "base", Srcs: []string{"base.cc"}})
	add("lib/util", core.TargetArgs{Name: "util", Srcs: []string{"util.cc"}, Deps: []string{"//base:base", "#pthread"}})
	require.NoError(t, ninja.Write(state, []core.TargetKey{utilKey}))
	return state
}

func TestClean(t *testing.T) {
	state := newState(t)
	buildDir := filepath.Join(state.RepoRoot, state.BuildDir())
	assert.DirExists(t, buildDir)
	require.NoError(t, Clean(state))
	assert.NoDirExists(t, buildDir)
	// Cleaning again is fine.
	assert.NoError(t, Clean(state))
}

func TestTargets(t *testing.T) {
	state := newState(t)
	util := state.Graph.TargetOrDie(utilKey)
	utilFragment, utilHash := ninja.FragmentFiles(util)
	baseFragment, _ := ninja.FragmentFiles(state.Graph.TargetOrDie(baseKey))
	assert.FileExists(t, filepath.Join(state.RepoRoot, utilFragment))

	require.NoError(t, Targets(state, []core.TargetKey{utilKey, {Dir: core.SystemLibraryDir, Name: "pthread"}}))
	assert.NoFileExists(t, filepath.Join(state.RepoRoot, utilFragment))
	assert.NoFileExists(t, filepath.Join(state.RepoRoot, utilHash))
	assert.FileExists(t, filepath.Join(state.RepoRoot, baseFragment))
	assert.FileExists(t, filepath.Join(state.RepoRoot, state.BuildDir(), "build.ninja"))
}

func TestTargetsNotFound(t *testing.T) {
	state := newState(t)
	assert.Error(t, Targets(state, []core.TargetKey{{Dir: "base", Name: "wibble"}}))
}

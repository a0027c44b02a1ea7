package ninja

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plzbuild/blade/src/core"
	"github.com/plzbuild/blade/src/targets"
)

var utilKey = core.TargetKey{Dir: "lib/util", Name: "util"}

// newState creates a state rooted at root with a library, and another one depending on it.
func newState(t *testing.T, root string, config *core.Configuration, baseSrcs, utilSrcs []string) *core.BuildState {
	if config == nil {
		config = core.DefaultConfiguration()
	}
	state := core.NewBuildState(config)
	state.RepoRoot = root
	add := func(dir string, args core.TargetArgs) {
		args.Type = targets.CcLibraryType
		args.Location = core.SourceLocation{File: dir + "/BUILD", Line: 1}
		state.SetCurrentDir(dir)
		_, err := targets.New(state, args)
		require.NoError(t, err)
	}
	add("base", core.TargetArgs{Name: "base", Srcs: baseSrcs})
	add("lib/util", core.TargetArgs{Name: "util", Srcs: utilSrcs, Deps: []string{"//base:base", "#pthread"}})
	return state
}

func readGenerated(t *testing.T, root, name string) string {
	b, err := os.ReadFile(filepath.Join(root, name))
	require.NoError(t, err)
	return string(b)
}

func TestWrite(t *testing.T) {
	root := t.TempDir()
	state := newState(t, root, nil, []string{"base.cc"}, []string{"util.cc"})
	require.NoError(t, Write(state, []core.TargetKey{utilKey}))
	assert.EqualValues(t, 2, state.Stats.FragmentsWritten.Load())

	main := readGenerated(t, root, "build64_release/build.ninja")
	assert.Contains(t, main, "ninja_required_version = 1.7\n")
	assert.Contains(t, main, "builddir = build64_release\n")
	assert.Contains(t, main, "cppflags = -pipe -Wall -O2\n")
	assert.Contains(t, main, "rule cxx\n    command = $cxx -o $out -MMD -MF $out.d $cppflags $extra_cppflags -c $in\n")
	assert.Contains(t, main, "rule stamp\n")
	assert.Contains(t, main, "subninja build64_release/base/base.ninja\nsubninja build64_release/lib/util/util.ninja\n")
	assert.Contains(t, main, "\ndefault build64_release/lib/util/libutil.a\n")
	assert.NotContains(t, main, "pthread")

	assert.Equal(t, "# cc_library base:base, declared at base/BUILD:1\n\n"+
		"build build64_release/base/base.objs/base.o: cxx base/base.cc\n\n"+
		"build build64_release/base/libbase.a: ar build64_release/base/base.objs/base.o\n\n",
		readGenerated(t, root, "build64_release/base/base.ninja"))

	util := state.Graph.TargetOrDie(utilKey)
	hash, err := util.RuleHashString()
	require.NoError(t, err)
	assert.Equal(t, hash, readGenerated(t, root, "build64_release/lib/util/util.ninja.hash"))
}

func TestWriteIsIncremental(t *testing.T) {
	root := t.TempDir()
	state := newState(t, root, nil, []string{"base.cc"}, []string{"util.cc"})
	require.NoError(t, Write(state, []core.TargetKey{utilKey}))

	// Nothing has changed.
	state = newState(t, root, nil, []string{"base.cc"}, []string{"util.cc"})
	require.NoError(t, Write(state, []core.TargetKey{utilKey}))
	assert.EqualValues(t, 0, state.Stats.FragmentsWritten.Load())

	// Only the target that changed is rewritten.
	state = newState(t, root, nil, []string{"base.cc"}, []string{"util.cc", "extra.cc"})
	require.NoError(t, Write(state, []core.TargetKey{utilKey}))
	assert.EqualValues(t, 1, state.Stats.FragmentsWritten.Load())
	assert.Contains(t, readGenerated(t, root, "build64_release/lib/util/util.ninja"), "extra.o")

	// Changing a dependency rewrites everything that depends on it too.
	state = newState(t, root, nil, []string{"base.cc", "more.cc"}, []string{"util.cc", "extra.cc"})
	require.NoError(t, Write(state, []core.TargetKey{utilKey}))
	assert.EqualValues(t, 2, state.Stats.FragmentsWritten.Load())
}

func TestWriteRegeneratesMissingFragments(t *testing.T) {
	root := t.TempDir()
	state := newState(t, root, nil, []string{"base.cc"}, []string{"util.cc"})
	require.NoError(t, Write(state, nil))
	require.NoError(t, os.Remove(filepath.Join(root, "build64_release/base/base.ninja")))

	state = newState(t, root, nil, []string{"base.cc"}, []string{"util.cc"})
	require.NoError(t, Write(state, nil))
	assert.EqualValues(t, 1, state.Stats.FragmentsWritten.Load())
	assert.FileExists(t, filepath.Join(root, "build64_release/base/base.ninja"))
}

func TestWriteConfigChange(t *testing.T) {
	root := t.TempDir()
	state := newState(t, root, nil, []string{"base.cc"}, []string{"util.cc"})
	require.NoError(t, Write(state, nil))

	config := core.DefaultConfiguration()
	config.Cc.GenerateDynamic = true
	state = newState(t, root, config, []string{"base.cc"}, []string{"util.cc"})
	require.NoError(t, Write(state, nil))
	assert.EqualValues(t, 2, state.Stats.FragmentsWritten.Load())
	assert.Contains(t, readGenerated(t, root, "build64_release/lib/util/util.ninja"), "libutil.so")
}

func TestWriteMissingTarget(t *testing.T) {
	root := t.TempDir()
	state := newState(t, root, nil, []string{"base.cc"}, []string{"util.cc"})
	err := Write(state, []core.TargetKey{{Dir: "lib/util", Name: "utill"}})
	assert.Error(t, err)
}

func TestWriteDependencyMovesDirectory(t *testing.T) {
	root := t.TempDir()
	serverKey := core.TargetKey{Dir: "app", Name: "server"}
	load := func(dep string) *core.BuildState {
		state := core.NewDefaultBuildState()
		state.RepoRoot = root
		for _, dir := range []string{"a", "b"} {
			state.SetCurrentDir(dir)
			_, err := targets.New(state, core.TargetArgs{Name: "lib", Type: targets.CcLibraryType, Srcs: []string{"lib.cc"}})
			require.NoError(t, err)
		}
		state.SetCurrentDir("app")
		_, err := targets.New(state, core.TargetArgs{Name: "server", Type: targets.CcBinaryType, Srcs: []string{"server.cc"}, Deps: []string{dep}})
		require.NoError(t, err)
		return state
	}
	state := load("//a:lib")
	require.NoError(t, Write(state, []core.TargetKey{serverKey}))
	assert.Contains(t, readGenerated(t, root, "build64_release/app/server.ninja"), "build64_release/a/liblib.a")

	state = load("//b:lib")
	require.NoError(t, Write(state, []core.TargetKey{serverKey}))
	assert.EqualValues(t, 1, state.Stats.FragmentsWritten.Load())
	fragment := readGenerated(t, root, "build64_release/app/server.ninja")
	assert.Contains(t, fragment, "build64_release/b/liblib.a")
	assert.NotContains(t, fragment, "build64_release/a/liblib.a")
}

func TestWriteEscapesPaths(t *testing.T) {
	root := t.TempDir()
	state := core.NewDefaultBuildState()
	state.RepoRoot = root
	state.SetCurrentDir("base")
	_, err := targets.New(state, core.TargetArgs{Name: "my lib", Type: targets.CcLibraryType, Srcs: []string{"lib.cc"}})
	require.NoError(t, err)
	require.NoError(t, Write(state, []core.TargetKey{{Dir: "base", Name: "my lib"}}))

	main := readGenerated(t, root, "build64_release/build.ninja")
	assert.Contains(t, main, "subninja build64_release/base/my$ lib.ninja\n")
	assert.Contains(t, main, "default build64_release/base/libmy$ lib.a\n")
	assert.FileExists(t, filepath.Join(root, "build64_release/base/my lib.ninja"))
}

package query

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plzbuild/blade/src/core"
	"github.com/plzbuild/blade/src/targets"
)

var (
	baseKey   = core.TargetKey{Dir: "base", Name: "base"}
	utilKey   = core.TargetKey{Dir: "lib/util", Name: "util"}
	serverKey = core.TargetKey{Dir: "app", Name: "server"}
	otherKey  = core.TargetKey{Dir: "other", Name: "x"}
)

func newState(t *testing.T) *core.BuildState {
	state := core.NewDefaultBuildState()
	add := func(dir string, args core.TargetArgs) {
		state.SetCurrentDir(dir)
		_, err := targets.New(state, args)
		require.NoError(t, err)
	}
	add("base", core.TargetArgs{Name: "base", Type: targets.CcLibraryType, Srcs: []string{"base.cc"}})
	add("lib/util", core.TargetArgs{Name: "util", Type: targets.CcLibraryType, Srcs: []string{"util.cc"}, Deps: []string{"//base:base", "#pthread"}})
	add("app", core.TargetArgs{Name: "server", Type: targets.CcBinaryType, Srcs: []string{"main.cc"}, Deps: []string{"//lib/util:util"}})
	add("other", core.TargetArgs{Name: "x", Type: targets.FilegroupType, Deps: []string{"//base:base"}})
	return state
}

func TestDeps(t *testing.T) {
	state := newState(t)
	deps, err := Deps(state, []core.TargetKey{serverKey})
	require.NoError(t, err)
	assert.Equal(t, []core.TargetKey{{Dir: core.SystemLibraryDir, Name: "pthread"}, baseKey, utilKey}, deps)

	deps, err = Deps(state, []core.TargetKey{baseKey})
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestDependents(t *testing.T) {
	state := newState(t)
	dependents, err := Dependents(state, []core.TargetKey{baseKey})
	require.NoError(t, err)
	assert.Equal(t, []core.TargetKey{serverKey, utilKey, otherKey}, dependents)

	dependents, err = Dependents(state, []core.TargetKey{serverKey, otherKey})
	require.NoError(t, err)
	assert.Empty(t, dependents)
}

func TestDepsMissingTarget(t *testing.T) {
	state := newState(t)
	_, err := Deps(state, []core.TargetKey{{Dir: "app", Name: "sever"}})
	assert.Error(t, err)
	_, err = Dependents(state, []core.TargetKey{{Dir: "app", Name: "sever"}})
	assert.Error(t, err)
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, []core.TargetKey{{Dir: core.SystemLibraryDir, Name: "pthread"}, baseKey}))
	assert.Equal(t, "#:pthread\nbase:base\n", buf.String())
}

func TestDump(t *testing.T) {
	state := newState(t)
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, state, []core.TargetKey{utilKey, otherKey}))

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Equal(t, 2, len(records))
	assert.Equal(t, "util", records[0]["name"])
	assert.Equal(t, "lib/util", records[0]["path"])
	assert.Equal(t, "cc_library", records[0]["type"])
	assert.Equal(t, []interface{}{"base:base", "#:pthread"}, records[0]["deps"])
	assert.Equal(t, "PUBLIC", records[0]["visibility"])
	assert.Equal(t, "build64_release/lib/util/libutil.a", records[0]["default_target"])
	assert.Equal(t, "filegroup", records[1]["type"])
	assert.Equal(t, "build64_release/other/x", records[1]["default_target"])
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVisibleTarget(t *testing.T, state *BuildState, dir, name string, visibility []string) *Target {
	state.SetCurrentDir(dir)
	target, err := NewTarget(state, TargetArgs{
		Name:       name,
		Type:       "test_rule",
		Visibility: visibility,
		Location:   SourceLocation{File: dir + "/BUILD", Line: 3},
	}, &testKind{})
	require.NoError(t, err)
	return target
}

func TestEmptyVisibility(t *testing.T) {
	state := NewDefaultBuildState()
	newVisibleTarget(t, state, "lib", "private", []string{})
	sibling := mustTarget(t, state, "lib", "sibling", nil, []string{":private"}, nil)
	outsider := mustTarget(t, state, "app", "server", nil, []string{"//lib:private"}, nil)
	below := mustTarget(t, state, "lib/sub", "below", nil, []string{"//lib:private"}, nil)

	assert.NoError(t, sibling.CheckDependencyVisibility(state.Graph))
	err := outsider.CheckDependencyVisibility(state.Graph)
	var verr *VisibilityError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, TargetKey{"app", "server"}, verr.From)
	assert.Equal(t, TargetKey{"lib", "private"}, verr.To)
	assert.Equal(t, "app/BUILD:1 error: server: app:server is not allowed to depend on lib:private because of its visibility", err.Error())
	assert.Error(t, below.CheckDependencyVisibility(state.Graph))
}

func TestPublicVisibility(t *testing.T) {
	state := NewDefaultBuildState()
	explicit := newVisibleTarget(t, state, "lib", "explicit", []string{PublicVisibility})
	implicit := newVisibleTarget(t, state, "lib", "implicit", nil)
	assert.True(t, explicit.Visibility.Public)
	assert.True(t, implicit.Visibility.Public)
	for _, dir := range []string{"app", "lib/sub", "."} {
		target := mustTarget(t, state, dir, "user", nil, []string{"//lib:explicit", "//lib:implicit"}, nil)
		assert.NoError(t, target.CheckDependencyVisibility(state.Graph))
	}
}

func TestExplicitVisibility(t *testing.T) {
	state := NewDefaultBuildState()
	newVisibleTarget(t, state, "lib", "util", []string{"//app:server", "//app:server", "tools:gen"})
	lib := state.Graph.Target(TargetKey{"lib", "util"})
	assert.Equal(t, []TargetKey{{"app", "server"}, {"lib/tools", "gen"}}, lib.Visibility.Keys)

	server := mustTarget(t, state, "app", "server", nil, []string{"//lib:util"}, nil)
	client := mustTarget(t, state, "app", "client", nil, []string{"//lib:util"}, nil)
	gen := mustTarget(t, state, "lib/tools", "gen", nil, []string{"//lib:util"}, nil)
	assert.True(t, server.CanSee(lib))
	assert.False(t, client.CanSee(lib))
	assert.True(t, gen.CanSee(lib))
	assert.NoError(t, server.CheckDependencyVisibility(state.Graph))
	assert.Error(t, client.CheckDependencyVisibility(state.Graph))
}

func TestBadVisibility(t *testing.T) {
	state := NewDefaultBuildState()
	state.SetCurrentDir("lib")
	_, err := NewTarget(state, TargetArgs{Name: "util", Visibility: []string{"//app"}}, &testKind{})
	var ferr *FormatError
	assert.ErrorAs(t, err, &ferr)
}

func TestVisibilityOfMissingDep(t *testing.T) {
	state := NewDefaultBuildState()
	target := mustTarget(t, state, "app", "server", nil, []string{"//lib:util"}, nil)
	var lerr *LookupError
	assert.ErrorAs(t, target.CheckDependencyVisibility(state.Graph), &lerr)
}

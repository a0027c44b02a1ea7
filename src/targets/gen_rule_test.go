package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plzbuild/blade/src/core"
)

func TestGenRule(t *testing.T) {
	state := core.NewDefaultBuildState()
	newTarget(t, state, "tools", core.TargetArgs{Name: "protoc", Type: CcBinaryType, Srcs: []string{"protoc.cc"}})
	msg := newTarget(t, state, "proto", core.TargetArgs{
		Name: "msg",
		Type: GenRuleType,
		Srcs: []string{"msg.proto"},
		Extra: map[string]interface{}{
			"outs": []string{"msg.pb.h", "msg.pb.cc"},
			"cmd":  "$(location //tools:protoc) --cpp_out=$OUT_DIR $SRCS",
		},
	})
	assert.Equal(t, []core.TargetKey{{Dir: "tools", Name: "protoc"}}, msg.Deps())

	rules, err := msg.GetRules()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"build build64_release/proto/msg.pb.h build64_release/proto/msg.pb.cc: gen proto/msg.proto | build64_release/tools/protoc",
		"  cmd = build64_release/tools/protoc --cpp_out=build64_release/proto proto/msg.proto",
		"  description = COMMAND proto:msg",
		"",
	}, rules)

	f, err := msg.TargetFile("")
	assert.NoError(t, err)
	assert.Equal(t, "build64_release/proto/msg.pb.h", f)
	f, err = msg.TargetFile("msg.pb.cc")
	assert.NoError(t, err)
	assert.Equal(t, "build64_release/proto/msg.pb.cc", f)
	assert.Equal(t, GenRuleOutputs{Outs: []string{"build64_release/proto/msg.pb.h", "build64_release/proto/msg.pb.cc"}},
		msg.Kind.(*GenRule).Outputs)
}

func TestGenRuleVariables(t *testing.T) {
	state := core.NewDefaultBuildState()
	target := newTarget(t, state, "data", core.TargetArgs{
		Name: "gen",
		Type: GenRuleType,
		Srcs: []string{"in file.txt"},
		Extra: map[string]interface{}{
			"outs": "out.txt",
			"cmd":  "cat $FIRST_SRC > $FIRST_OUT && echo ${HOME} $SRC_DIR $BUILD_DIR",
		},
	})
	rules, err := target.GetRules()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"build build64_release/data/out.txt: gen data/in$ file.txt",
		"  cmd = cat 'data/in file.txt' > build64_release/data/out.txt && echo $${HOME} data build64_release",
		"  description = COMMAND data:gen",
		"",
	}, rules)
}

func TestGenRuleMissingLocation(t *testing.T) {
	state := core.NewDefaultBuildState()
	newTarget(t, state, "tools", core.TargetArgs{Name: "headers", Type: CcLibraryType, Srcs: []string{"a.h"}})
	target := newTarget(t, state, "gen", core.TargetArgs{
		Name:  "x",
		Type:  GenRuleType,
		Extra: map[string]interface{}{"outs": "x", "cmd": "$(location //tools:headers so) > $OUTS"},
	})
	_, err := target.GetRules()
	assert.Error(t, err)
}

func TestGenRuleBadArgs(t *testing.T) {
	for _, extra := range []map[string]interface{}{
		{"cmd": "true"},
		{"outs": []string{"x"}},
		{"outs": []string{"x"}, "cmd": "  "},
		{"outs": []string{"../x"}, "cmd": "true"},
		{"outs": []string{"/x"}, "cmd": "true"},
		{"outs": []string{"./x"}, "cmd": "true"},
		{"outs": []string{"x"}, "cmd": "$(location a:b:c)"},
	} {
		state := core.NewDefaultBuildState()
		state.SetCurrentDir("gen")
		_, err := New(state, core.TargetArgs{Name: "x", Type: GenRuleType, Extra: extra})
		assert.Error(t, err, "%v", extra)
	}
}

func TestFilegroup(t *testing.T) {
	state := core.NewDefaultBuildState()
	newTarget(t, state, "proto", core.TargetArgs{
		Name:  "msg",
		Type:  GenRuleType,
		Extra: map[string]interface{}{"outs": "msg.h", "cmd": "touch $OUTS"},
	})
	fg := newTarget(t, state, "include", core.TargetArgs{
		Name: "headers",
		Type: FilegroupType,
		Srcs: []string{"a.h", "b.h"},
		Deps: []string{"//proto:msg"},
	})
	rules, err := fg.GetRules()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"build build64_release/include/headers: phony include/a.h include/b.h build64_release/proto/msg.h",
		"",
	}, rules)
	assert.True(t, fg.AllowDuplicateSources())
}

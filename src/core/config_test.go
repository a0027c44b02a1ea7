package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	filename := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(filename, []byte(contents), 0644))
	return filename
}

func TestDefaultConfiguration(t *testing.T) {
	config := DefaultConfiguration()
	assert.NoError(t, config.validate())
	assert.Equal(t, DuplicateSourceWarning, config.Global.DuplicatedSourceAction)
	assert.Equal(t, "build64_release", config.Global.BuildDir)
	assert.Equal(t, []string{"-pipe", "-Wall", "-O2"}, config.CppFlags())
	assert.Empty(t, config.LinkFlags())
}

func TestReadConfigFiles(t *testing.T) {
	filename := writeConfig(t, `
[blade]
version = ">=0.1"
numthreads = 4

[global]
duplicatedsourceaction = error
builddir = out

[cc]
cppflags = -O2 -g
linkflags = -static
implicitdeps = "#pthread"
implicitdeps = //thirdparty/tcmalloc:tcmalloc
generatedynamic = true
`)
	config, err := ReadConfigFiles([]string{filename, filename + ".local"})
	require.NoError(t, err)
	assert.Equal(t, ">=0.1", config.Blade.Version)
	assert.Equal(t, 4, config.Blade.NumThreads)
	assert.Equal(t, "BUILD", config.Blade.BuildFileName)
	assert.Equal(t, DuplicateSourceError, config.Global.DuplicatedSourceAction)
	assert.Equal(t, "out", config.Global.BuildDir)
	assert.Equal(t, 600, config.Global.TestTimeout)
	assert.Equal(t, []string{"-O2", "-g"}, config.CppFlags())
	assert.Equal(t, []string{"-static"}, config.LinkFlags())
	assert.Equal(t, []string{"#pthread", "//thirdparty/tcmalloc:tcmalloc"}, config.Cc.ImplicitDeps)
	assert.True(t, config.Cc.GenerateDynamic)
}

func TestReadConfigFilesInvalid(t *testing.T) {
	_, err := ReadConfigFiles([]string{writeConfig(t, "[blade]\nnumthreads = 0\n")})
	assert.Error(t, err)
	_, err = ReadConfigFiles([]string{writeConfig(t, "[nope]\nwibble = 1\n")})
	assert.Error(t, err)
}

func TestCheckVersion(t *testing.T) {
	config := DefaultConfiguration()
	assert.NoError(t, config.CheckVersion("0.9.0"), "no constraint")
	config.Blade.Version = ">=0.1, <1.0"
	assert.NoError(t, config.CheckVersion("0.9.0"))
	assert.Error(t, config.CheckVersion("1.2.0"))
	config.Blade.Version = "not a version"
	assert.Error(t, config.CheckVersion("0.9.0"))
}

func TestGetConfigItem(t *testing.T) {
	config := DefaultConfiguration()
	v, err := config.GetConfigItem("global", "duplicatedsourceaction")
	assert.NoError(t, err)
	assert.Equal(t, DuplicateSourceWarning, v)
	v, err = config.GetConfigItem("Global", "TestTimeout")
	assert.NoError(t, err)
	assert.Equal(t, 600, v)
	_, err = config.GetConfigItem("global", "wibble")
	assert.Error(t, err)
	_, err = config.GetConfigItem("wibble", "builddir")
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	config := DefaultConfiguration()
	assert.NoError(t, config.ApplyOverrides(map[string]string{
		"global.builddir":    "out",
		"cc.generatedynamic": "yes",
		"blade.numthreads":   "3",
		"cc.implicitdeps":    "#a,#b",
	}))
	assert.Equal(t, "out", config.Global.BuildDir)
	assert.True(t, config.Cc.GenerateDynamic)
	assert.Equal(t, 3, config.Blade.NumThreads)
	assert.Equal(t, []string{"#a", "#b"}, config.Cc.ImplicitDeps)
}

func TestApplyOverridesErrors(t *testing.T) {
	for _, overrides := range []map[string]string{
		{"nope": "x"},
		{"foo.bar": "x"},
		{"blade.wibble": "x"},
		{"blade.numthreads": "many"},
		{"blade.numthreads": "0"},
		{"global.builddir": "/tmp/out"},
		{"cc.cppflags": `-DNAME="unterminated`},
	} {
		assert.Error(t, DefaultConfiguration().ApplyOverrides(overrides), "%v", overrides)
	}
}

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigOverrides(t *testing.T) {
	var o ConfigOverrides
	assert.NoError(t, o.UnmarshalFlag("global.duplicatedsourceaction=error"))
	assert.NoError(t, o.UnmarshalFlag("cc.cppflags = -O2 -g"))
	assert.Equal(t, ConfigOverrides{
		"global.duplicatedsourceaction": "error",
		"cc.cppflags":                   "-O2 -g",
	}, o)
}

func TestConfigOverridesBadFormat(t *testing.T) {
	var o ConfigOverrides
	assert.Error(t, o.UnmarshalFlag("duplicatedsourceaction=error"))
	assert.Error(t, o.UnmarshalFlag("global.duplicatedsourceaction"))
}

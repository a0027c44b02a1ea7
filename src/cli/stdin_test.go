package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadWords(t *testing.T) {
	words, err := ReadWords(strings.NewReader("//app:server\n  lib/...\t:client\n\n"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"//app:server", "lib/...", ":client"}, words)
}

func TestReadWordsEmpty(t *testing.T) {
	words, err := ReadWords(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, words)
}

func TestStdinStringsWithoutStdin(t *testing.T) {
	s := StdinStrings{"app:server", "lib:util"}
	assert.Equal(t, []string{"app:server", "lib:util"}, s.Get())
}

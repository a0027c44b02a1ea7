package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	haystack := []string{"app:server", "app:servers", "lib/util:helper", "app:client"}
	assert.Equal(t, []string{"app:server", "app:servers"}, Suggest("app:srever", haystack, 3))
	assert.Empty(t, Suggest("proto:msg", haystack, 2))
}

func TestPrettyPrintSuggestion(t *testing.T) {
	haystack := []string{"app:server", "app:servers", "app:serve"}
	assert.Equal(t, "\nMaybe you meant app:server , app:servers or app:serve ?",
		PrettyPrintSuggestion("app:server", haystack, 1))
	assert.Equal(t, "", PrettyPrintSuggestion("zzz", haystack, 1))
}

func TestPrettyPrintSuggestionLimit(t *testing.T) {
	haystack := []string{"lib:a1", "lib:a2", "lib:a3", "lib:a4", "lib:a5", "lib:a6"}
	assert.Equal(t, "\nMaybe you meant lib:a1 , lib:a2 , lib:a3 , lib:a4 or lib:a5 ?",
		PrettyPrintSuggestion("lib:a", haystack, 1))
}

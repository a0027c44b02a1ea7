package cli

import (
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// maxSuggestions is the most alternatives we'll offer in one message.
const maxSuggestions = 5

// Suggest returns the items in haystack within maxDistance edits of needle, closest first.
// Items that are equally close keep their order in haystack.
func Suggest(needle string, haystack []string, maxDistance int) []string {
	type candidate struct {
		s    string
		dist int
	}
	r := []rune(needle)
	candidates := []candidate{}
	for _, s := range haystack {
		if s == "" {
			continue
		}
		if dist := levenshtein.DistanceForStrings(r, []rune(s), levenshtein.DefaultOptions); dist <= maxDistance {
			candidates = append(candidates, candidate{s: s, dist: dist})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
	ret := make([]string, len(candidates))
	for i, c := range candidates {
		ret[i] = c.s
	}
	return ret
}

// PrettyPrintSuggestion formats the closest matches for needle as a "did you mean" message to
// append to an error. It's empty if nothing was close enough.
func PrettyPrintSuggestion(needle string, haystack []string, maxDistance int) string {
	options := Suggest(needle, haystack, maxDistance)
	if len(options) == 0 {
		return ""
	} else if len(options) > maxSuggestions {
		options = options[:maxSuggestions]
	}
	var sb strings.Builder
	sb.WriteString("\nMaybe you meant ")
	for i, o := range options {
		if i == len(options)-1 && i > 0 {
			sb.WriteString(" or ")
		} else if i > 0 {
			sb.WriteString(" , ") // The space before the comma lets you select the target by double-clicking it.
		}
		sb.WriteString(o)
	}
	sb.WriteString(" ?")
	return sb.String()
}

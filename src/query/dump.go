// Package query implements the introspection commands, which print information about
// the loaded targets instead of generating build files for them.
package query

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/plzbuild/blade/src/core"
)

// Dump writes the attributes of the given targets to w as a JSON array.
// Rules are generated first so the records include the targets' outputs.
func Dump(w io.Writer, state *core.BuildState, keys []core.TargetKey) error {
	records := make([]map[string]interface{}, 0, len(keys))
	for _, key := range keys {
		target, err := state.Graph.Lookup(key, nil)
		if err != nil {
			return err
		} else if _, err := target.GetRules(); err != nil {
			return err
		}
		records = append(records, target.Dump())
	}
	b, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("Failed to serialise targets: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

package query

import (
	"fmt"
	"io"
	"sort"

	"github.com/plzbuild/blade/src/core"
)

// Deps returns all the transitive dependencies of the given targets, sorted.
// System libraries are included; the targets themselves aren't unless another one depends on them.
func Deps(state *core.BuildState, keys []core.TargetKey) ([]core.TargetKey, error) {
	return closure(state, keys, func(target *core.Target) []core.TargetKey {
		return target.ExpandedDeps()
	})
}

// Dependents returns all the targets that transitively depend on the given ones, sorted.
// Only targets that have been loaded are considered.
func Dependents(state *core.BuildState, keys []core.TargetKey) ([]core.TargetKey, error) {
	return closure(state, keys, func(target *core.Target) []core.TargetKey {
		dependents := state.Graph.Dependents(target.Key)
		ret := make([]core.TargetKey, len(dependents))
		for i, t := range dependents {
			ret[i] = t.Key
		}
		return ret
	})
}

// closure walks the graph breadth-first from keys along the edges given by next.
func closure(state *core.BuildState, keys []core.TargetKey, next func(*core.Target) []core.TargetKey) ([]core.TargetKey, error) {
	seen := map[core.TargetKey]bool{}
	queue := []core.TargetKey{}
	for _, key := range keys {
		target, err := state.Graph.Lookup(key, nil)
		if err != nil {
			return nil, err
		}
		queue = append(queue, next(target)...)
	}
	ret := core.TargetKeys{}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		if seen[key] {
			continue
		}
		seen[key] = true
		ret = append(ret, key)
		target, err := state.Graph.Lookup(key, nil)
		if err != nil {
			return nil, err
		}
		queue = append(queue, next(target)...)
	}
	sort.Sort(ret)
	return ret, nil
}

// Print writes the given keys to w, one per line.
func Print(w io.Writer, keys []core.TargetKey) error {
	for _, key := range keys {
		if _, err := fmt.Fprintln(w, key); err != nil {
			return err
		}
	}
	return nil
}

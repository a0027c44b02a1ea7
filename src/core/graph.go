// Representation of the target database.
// Targets are added as BUILD files are evaluated and never removed; the graph
// they form through their dependencies is assumed to be a DAG.

package core

import (
	"sort"

	"github.com/plzbuild/blade/src/cli"
	"github.com/plzbuild/blade/src/cmap"
)

// maxSuggestionDistance is how different a key can be from a missing one and still be suggested.
const maxSuggestionDistance = 3

// A TargetDatabase contains all the loaded targets, keyed by their TargetKey.
type TargetDatabase struct {
	targets *cmap.Map[TargetKey, *Target]
}

// NewTargetDatabase constructs and returns a new, empty TargetDatabase.
func NewTargetDatabase() *TargetDatabase {
	return &TargetDatabase{
		targets: cmap.New[TargetKey, *Target](cmap.DefaultShardCount, hashKey),
	}
}

func hashKey(key TargetKey) uint64 {
	return cmap.XXHashes(key.Dir, key.Name)
}

// Add adds a new target to the database. It's an error if one already exists with the same key.
func (db *TargetDatabase) Add(target *Target) error {
	if !db.targets.Add(target.Key, target) {
		existing := db.Target(target.Key)
		return target.formatError("Target %s is already defined at %s", target.Key, existing.SourceLocation)
	}
	return nil
}

// addIfAbsent adds the target unless one with the same key exists.
func (db *TargetDatabase) addIfAbsent(target *Target) bool {
	return db.targets.Add(target.Key, target)
}

// Target retrieves a target by key, or nil if it doesn't exist.
func (db *TargetDatabase) Target(key TargetKey) *Target {
	return db.targets.Get(key)
}

// Lookup retrieves a target that from depends on. It returns a LookupError if it doesn't exist.
// from may be nil if the reference didn't come from a target.
func (db *TargetDatabase) Lookup(key TargetKey, from *Target) (*Target, error) {
	if t := db.Target(key); t != nil {
		return t, nil
	}
	err := &LookupError{Key: key, Suggestion: db.suggest(key)}
	if from != nil {
		err.From = from.Key
		err.Location = from.SourceLocation
	}
	return nil, err
}

// TargetOrDie retrieves a target by key. Dies if the target doesn't exist.
func (db *TargetDatabase) TargetOrDie(key TargetKey) *Target {
	target, err := db.Lookup(key, nil)
	if err != nil {
		log.Fatalf("%s", err)
	}
	return target
}

// suggest produces a "did you mean" message for a key that isn't in the database.
func (db *TargetDatabase) suggest(key TargetKey) string {
	return cli.PrettyPrintSuggestion(key.String(), TargetKeys(db.Keys()).Strings(), maxSuggestionDistance)
}

// Len returns the number of targets in the database.
func (db *TargetDatabase) Len() int {
	return db.targets.Len()
}

// AllTargets returns a consistently ordered slice of all the targets in the database.
func (db *TargetDatabase) AllTargets() []*Target {
	targets := db.targets.Values()
	sort.Slice(targets, func(i, j int) bool { return targets[i].Key.Less(targets[j].Key) })
	return targets
}

// Keys returns the keys of all targets, sorted.
func (db *TargetDatabase) Keys() []TargetKey {
	targets := db.AllTargets()
	ret := make([]TargetKey, len(targets))
	for i, t := range targets {
		ret[i] = t.Key
	}
	return ret
}

// TargetsInDir returns all the targets declared directly in the given directory, sorted.
func (db *TargetDatabase) TargetsInDir(dir string) []*Target {
	ret := []*Target{}
	for _, t := range db.AllTargets() {
		if t.Key.Dir == dir {
			ret = append(ret, t)
		}
	}
	return ret
}

// Expand returns the keys of all targets matching the given pattern, sorted.
// A key that isn't a pattern is returned as-is, whether or not it exists.
func (db *TargetDatabase) Expand(pattern TargetKey) []TargetKey {
	if !pattern.IsPattern() {
		return []TargetKey{pattern}
	}
	ret := []TargetKey{}
	for _, t := range db.AllTargets() {
		if !t.IsSystemLibrary() && pattern.Includes(t.Key) {
			ret = append(ret, t.Key)
		}
	}
	return ret
}

// Dependents returns the targets that directly depend on the given one, sorted.
func (db *TargetDatabase) Dependents(key TargetKey) []*Target {
	ret := []*Target{}
	for _, t := range db.AllTargets() {
		if containsKey(t.expandedDeps, key) {
			ret = append(ret, t)
		}
	}
	return ret
}

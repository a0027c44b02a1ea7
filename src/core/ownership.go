package core

import (
	"path"
	"strings"
	"sync"
)

// sourceOwner is the current claimant of a source file.
type sourceOwner struct {
	key             TargetKey
	allowDuplicates bool
}

// A SourceRegistry records which target owns each source file in the repo.
// It is used to ensure that a source file occurs in exactly one target, apart from
// targets that explicitly allow sharing their sources (eg. filegroups).
// One registry belongs to each BuildState; it's safe for concurrent use.
type SourceRegistry struct {
	action string
	owners map[string]sourceOwner
	mutex  sync.Mutex
}

// NewSourceRegistry creates a new registry. action is one of the DuplicateSource* values and
// decides what happens when two targets that disallow duplicates claim the same file.
func NewSourceRegistry(action string) *SourceRegistry {
	return &SourceRegistry{
		action: action,
		owners: map[string]sourceOwner{},
	}
}

// Owner returns the current owner of a source file, which is given relative to the repo root.
func (r *SourceRegistry) Owner(src string) (TargetKey, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	owner, present := r.owners[path.Clean(src)]
	return owner.key, present
}

// Len returns the number of claimed source files.
func (r *SourceRegistry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.owners)
}

// Claim checks the sources of a target and claims each of them for it.
func (r *SourceRegistry) Claim(target *Target) error {
	if err := checkSourcePaths(target); err != nil {
		return err
	}
	allow := target.AllowDuplicateSources()
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, s := range target.Srcs {
		src := path.Join(target.Key.Dir, s)
		existing, present := r.owners[src]
		if !present {
			r.owners[src] = sourceOwner{key: target.Key, allowDuplicates: allow}
			continue
		}
		if existing.key == target.Key {
			continue
		}
		// Always keep the target which disallows duplicate sources in the map.
		if existing.allowDuplicates {
			if !allow {
				r.owners[src] = sourceOwner{key: target.Key}
			}
			continue
		} else if allow {
			continue
		}
		err := &ConflictError{Source: src, Owners: [2]TargetKey{existing.key, target.Key}}
		switch r.action {
		case DuplicateSourceError:
			return err
		case DuplicateSourceWarning:
			log.Warning("%s", err)
		}
	}
	return nil
}

// checkSourcePaths rejects duplicated, absolute or escaping source paths.
func checkSourcePaths(target *Target) error {
	seen := make(map[string]struct{}, len(target.Srcs))
	var dups []string
	for _, s := range target.Srcs {
		clean := path.Clean(s)
		if _, present := seen[clean]; present {
			dups = append(dups, s)
		}
		seen[clean] = struct{}{}
	}
	if len(dups) > 0 {
		return target.formatError("Duplicate source file paths: %s", strings.Join(dups, ", "))
	}
	for _, s := range target.Srcs {
		if s == "" || strings.HasPrefix(s, "/") || escapes(s) {
			return target.formatError("Invalid source file path: %s. can only be relative path, and must "+
				"be in current directory or subdirectories", s)
		}
	}
	return nil
}

// escapes returns true if any component of the path is "..".
func escapes(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

package core

import (
	"path"
	"strings"

	"github.com/plzbuild/blade/src/cli/logging"
)

var log = logging.Log

// RootDir is the directory of targets declared in the BUILD file at the repo root.
const RootDir = "."

// SystemLibraryDir is the pseudo-directory that every system library lives in.
const SystemLibraryDir = "#"

// AllTargetsName is the wildcard name meaning every target directly in a directory.
const AllTargetsName = "*"

// AllSubpackagesName is the wildcard name meaning every target in a directory and below it.
const AllSubpackagesName = "..."

// A TargetKey identifies a target, eg. lib/util:helper corresponds to
// TargetKey{Dir: "lib/util", Name: "helper"}.
// Keys are always normalised; the root directory is "." and system libraries live in "#".
type TargetKey struct {
	Dir  string
	Name string
}

// String returns the canonical dir:name form of the key.
func (key TargetKey) String() string {
	return key.Dir + ":" + key.Name
}

// IsSystemLibrary returns true if the key refers to a system library.
func (key TargetKey) IsSystemLibrary() bool {
	return key.Dir == SystemLibraryDir
}

// IsAllTargets returns true if the key is the dir:* pattern.
func (key TargetKey) IsAllTargets() bool {
	return key.Name == AllTargetsName
}

// IsAllSubpackages returns true if the key is the dir:... pattern.
func (key TargetKey) IsAllSubpackages() bool {
	return key.Name == AllSubpackagesName
}

// IsPattern returns true if the key is one of the wildcard patterns rather than a single target.
func (key TargetKey) IsPattern() bool {
	return key.IsAllTargets() || key.IsAllSubpackages()
}

// Includes returns true if this key, taken as a pattern, covers the other one.
// A non-pattern key only includes itself.
func (key TargetKey) Includes(that TargetKey) bool {
	switch {
	case key.IsAllSubpackages():
		return key.Dir == RootDir || that.Dir == key.Dir || strings.HasPrefix(that.Dir, key.Dir+"/")
	case key.IsAllTargets():
		return that.Dir == key.Dir
	default:
		return key == that
	}
}

// Less orders keys by directory then name.
func (key TargetKey) Less(that TargetKey) bool {
	if key.Dir == that.Dir {
		return key.Name < that.Name
	}
	return key.Dir < that.Dir
}

// TargetKeys makes slices of keys sortable.
type TargetKeys []TargetKey

func (slice TargetKeys) Len() int {
	return len(slice)
}
func (slice TargetKeys) Less(i, j int) bool {
	return slice[i].Less(slice[j])
}
func (slice TargetKeys) Swap(i, j int) {
	slice[i], slice[j] = slice[j], slice[i]
}

// Strings returns the canonical forms of all the keys.
func (slice TargetKeys) Strings() []string {
	ret := make([]string, len(slice))
	for i, key := range slice {
		ret[i] = key.String()
	}
	return ret
}

// NormalizeOne converts a target from its command line form into canonical form, dir:name.
//
// dir is relative to the repo root, which is written as '.'.
// name is the target name for dir:name, '*' for a bare dir and '...' for dir/...
func NormalizeOne(target, workingDir string) (string, error) {
	if strings.HasPrefix(target, "//") {
		target = target[2:]
	} else if strings.HasPrefix(target, "/") {
		return "", &FormatError{Msg: "Invalid target \"" + target + "\" starting from root path"}
	} else if workingDir != RootDir && workingDir != "" {
		target = workingDir + "/" + target
	}
	var dir, name string
	if idx := strings.LastIndexByte(target, ':'); idx != -1 {
		dir, name = target[:idx], target[idx+1:]
	} else if strings.HasSuffix(target, AllSubpackagesName) {
		dir, name = strings.TrimSuffix(target, AllSubpackagesName), AllSubpackagesName
	} else {
		dir, name = target, AllTargetsName
	}
	return path.Clean(dir) + ":" + name, nil
}

// Normalize converts a list of command line targets into canonical form.
// Order is preserved and nothing is deduplicated.
func Normalize(targets []string, workingDir string) ([]string, error) {
	ret := make([]string, len(targets))
	for i, target := range targets {
		t, err := NormalizeOne(target, workingDir)
		if err != nil {
			return nil, err
		}
		ret[i] = t
	}
	return ret, nil
}

// ParseTargetKey parses the canonical dir:name form back into a key.
func ParseTargetKey(canonical string) (TargetKey, error) {
	idx := strings.LastIndexByte(canonical, ':')
	if idx == -1 {
		return TargetKey{}, &FormatError{Msg: "Invalid target key \"" + canonical + "\", should be dir:name"}
	}
	dir, name := canonical[:idx], canonical[idx+1:]
	if name == "" {
		return TargetKey{}, &FormatError{Msg: "Invalid target key \"" + canonical + "\", empty name"}
	}
	if dir != SystemLibraryDir {
		dir = path.Clean(dir)
	}
	return TargetKey{Dir: dir, Name: name}, nil
}

// ParseTargetKeys normalises a list of command line targets and parses them into keys.
func ParseTargetKeys(targets []string, workingDir string) ([]TargetKey, error) {
	normalized, err := Normalize(targets, workingDir)
	if err != nil {
		return nil, err
	}
	ret := make([]TargetKey, len(normalized))
	for i, n := range normalized {
		if ret[i], err = ParseTargetKey(n); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

package core

import (
	"path"
	"regexp"
	"strings"
)

// locationRe matches location references, eg. $(location //path:name) or $(location :name jar).
var locationRe = regexp.MustCompile(`\$\(location\s+(\S*:\S+)(\s+\w*)?\)`)

// A LocationReference is a $(location ...) found inside a string attribute.
//
// Location references make it possible to refer to the build output of another target.
// Targets that produce more than one output can be qualified with an output type:
//
//	$(location //path:name)      # default output
//	$(location //path:name so)   # shared library output
type LocationReference struct {
	// Ref is the target reference as written.
	Ref string
	// OutputType is the requested output, empty for the default one.
	OutputType string
	// Start and End are the byte offsets of the whole reference in the string.
	Start, End int
}

// FindLocationReferences returns all the location references in a string.
func FindLocationReferences(s string) []LocationReference {
	matches := locationRe.FindAllStringSubmatchIndex(s, -1)
	ret := make([]LocationReference, len(matches))
	for i, m := range matches {
		ret[i] = LocationReference{Ref: s[m[2]:m[3]], Start: m[0], End: m[1]}
		if m[4] != -1 {
			ret[i].OutputType = strings.TrimSpace(s[m[4]:m[5]])
		}
	}
	return ret
}

// AddLocationReference resolves a location reference and adds the referenced target as a
// dependency of this one; a location reference is always a build dependency even if it
// wasn't declared in deps. It returns the key of the referenced target and the output type.
func (target *Target) AddLocationReference(ref LocationReference) (TargetKey, string, error) {
	key, err := target.unifyDep(ref.Ref)
	if err != nil {
		return TargetKey{}, "", err
	}
	target.addExpandedDep(key)
	target.addDep(key)
	return key, ref.OutputType, nil
}

// ResolveLocations adds dependencies for every location reference in the given string.
// Kinds call this at construction for any attribute that may contain them.
func (target *Target) ResolveLocations(s string) error {
	for _, ref := range FindLocationReferences(s) {
		if _, _, err := target.AddLocationReference(ref); err != nil {
			return err
		}
	}
	return nil
}

// ExpandLocations replaces every location reference in the string with the path of the
// output it refers to. This generates rules for the referenced targets if needed.
func (target *Target) ExpandLocations(s string) (string, error) {
	refs := FindLocationReferences(s)
	if len(refs) == 0 {
		return s, nil
	}
	var sb strings.Builder
	last := 0
	for _, ref := range refs {
		key, outputType, err := target.AddLocationReference(ref)
		if err != nil {
			return "", err
		}
		dep, err := target.state.Graph.Lookup(key, target)
		if err != nil {
			return "", err
		}
		file, err := dep.TargetFile(outputType)
		if err != nil {
			return "", err
		} else if file == "" {
			return "", target.formatError("Location reference %s: %s has no output of type %q", ref.Ref, key, outputType)
		}
		sb.WriteString(s[last:ref.Start])
		sb.WriteString(file)
		last = ref.End
	}
	sb.WriteString(s[last:])
	return sb.String(), nil
}

// AddHardcodeLibraries adds dependencies that weren't declared in the BUILD file, typically
// ones coming from configuration. They are written as #name or [//]path:name and only
// go into the expanded dependencies.
func (target *Target) AddHardcodeLibraries(refs []string) error {
	for _, ref := range refs {
		key, err := target.convertStringToKey(ref)
		if err != nil {
			return err
		}
		if key.IsSystemLibrary() {
			target.state.addSystemLibrary(key.Name)
		}
		target.addExpandedDep(key)
	}
	return nil
}

// convertStringToKey converts a string like thirdparty/gtest:gtest or #pthread to a key.
func (target *Target) convertStringToKey(s string) (TargetKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") && len(s) > 1 {
		return TargetKey{Dir: SystemLibraryDir, Name: s[1:]}, nil
	}
	if dir, name, found := strings.Cut(s, ":"); found && !strings.Contains(name, ":") && name != "" {
		dir = strings.TrimPrefix(strings.TrimSpace(dir), "//")
		return TargetKey{Dir: path.Clean(dir), Name: strings.TrimSpace(name)}, nil
	}
	return TargetKey{}, target.formatError("Invalid target lib format: %q, should be \"#lib_name\" or \"//lib_path:lib_name\"", s)
}

// checkFormat does some basic format checks on a dep or visibility reference.
func (target *Target) checkFormat(ref string) error {
	if ref == "" {
		return target.formatError("Invalid format, empty reference")
	} else if strings.Count(ref, ":") > 1 {
		return target.formatError("Invalid format %s, missing ',' between labels?", ref)
	}
	return nil
}

// unifyDep converts a dependency reference into a key.
// The forms accepted are :name, //path:name, path:name (relative to the target's directory) and #name.
func (target *Target) unifyDep(dep string) (TargetKey, error) {
	if err := target.checkFormat(dep); err != nil {
		return TargetKey{}, err
	}
	switch {
	case strings.HasPrefix(dep, ":"):
		return target.keyOrError(dep, path.Clean(target.Key.Dir), dep[1:])
	case strings.HasPrefix(dep, "//"):
		dir, name, found := strings.Cut(dep[2:], ":")
		if !found {
			return TargetKey{}, target.formatError("Wrong format in %s, missing ':'", dep)
		}
		return target.keyOrError(dep, path.Clean(dir), name)
	case strings.HasPrefix(dep, "#"):
		// System libraries don't have an entry in any BUILD file so we add them to the database here.
		key, err := target.keyOrError(dep, SystemLibraryDir, dep[1:])
		if err == nil {
			target.state.addSystemLibrary(key.Name)
		}
		return key, err
	default:
		dir, name, found := strings.Cut(dep, ":")
		if !found {
			return TargetKey{}, target.formatError("Wrong format in %s, missing ':'", dep)
		} else if escapes(dir) {
			return TargetKey{}, target.formatError("Don't use '..' in path: %s", dep)
		}
		return target.keyOrError(dep, path.Join(target.Key.Dir, dir), name)
	}
}

func (target *Target) keyOrError(dep, dir, name string) (TargetKey, error) {
	if name == "" || strings.ContainsRune(name, '/') {
		return TargetKey{}, target.formatError("Invalid target name in %s", dep)
	}
	return TargetKey{Dir: dir, Name: name}, nil
}

// initDeps resolves the dependencies declared in the BUILD file.
func (target *Target) initDeps(deps []string) error {
	for _, d := range deps {
		key, err := target.unifyDep(d)
		if err != nil {
			return err
		}
		target.addExpandedDep(key)
		target.addDep(key)
	}
	return nil
}

// initVisibility resolves the visibility declared in the BUILD file.
// Visibility takes references in the same form as deps; the default is PUBLIC.
// Targets in the same directory can always see each other, whatever this says.
func (target *Target) initVisibility(visibility []string) error {
	if visibility == nil || (len(visibility) == 1 && visibility[0] == PublicVisibility) {
		target.Visibility = Visibility{Public: true}
		return nil
	}
	target.Visibility = Visibility{Keys: []TargetKey{}}
	for _, v := range visibility {
		key, err := target.unifyDep(v)
		if err != nil {
			return err
		}
		if !containsKey(target.Visibility.Keys, key) {
			target.Visibility.Keys = append(target.Visibility.Keys, key)
		}
	}
	return nil
}

func (target *Target) addDep(key TargetKey) {
	if !containsKey(target.deps, key) {
		target.deps = append(target.deps, key)
	}
}

func (target *Target) addExpandedDep(key TargetKey) {
	if !containsKey(target.expandedDeps, key) {
		target.expandedDeps = append(target.expandedDeps, key)
	}
}

func containsKey(keys []TargetKey, key TargetKey) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

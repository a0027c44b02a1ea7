package core

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/plzbuild/blade/src/fs"
)

// PublicVisibility is the visibility string that makes a target visible to everything.
const PublicVisibility = "PUBLIC"

// A Kind supplies the behaviour of a concrete type of target (cc_library, gen_rule etc).
// The Target holds everything common to all kinds; the kind holds its own typed attributes.
type Kind interface {
	// AllowDuplicateSources returns true if the kind may share source files with other targets.
	AllowDuplicateSources() bool
	// GenerateRules writes the ninja build statements for the target.
	// It's called at most once per target, via Target.GetRules.
	GenerateRules(target *Target, w *RuleWriter) error
}

// A Dumper is a Kind that has attributes of its own to include in Target.Dump.
type Dumper interface {
	DumpFields() map[string]interface{}
}

// A HashFactorer is a Kind that wants to control which of its attributes contribute to the rule hash.
// Kinds that don't implement it contribute their DumpFields.
type HashFactorer interface {
	HashFactors(target *Target) map[string]interface{}
}

// TargetArgs are the common arguments every target is declared with in a BUILD file.
type TargetArgs struct {
	Name string
	Type string
	Srcs []string
	Deps []string
	// Visibility of the target; nil means public.
	Visibility []string
	Location   SourceLocation
	// ImplicitDeps are dependencies added by the kind rather than declared, eg. #pthread.
	ImplicitDeps []string
	// Extra holds any keyword arguments that weren't recognised by the kind.
	Extra map[string]interface{}
}

// Visibility determines which targets are allowed to depend on a target.
type Visibility struct {
	Public bool
	Keys   []TargetKey
}

// A Target is a named, typed build unit with sources and dependencies.
//
// Its key, type and sources are fixed once constructed, as are its dependencies apart from the
// ones added by location references. Output files are recorded as rules are generated.
type Target struct {
	Key            TargetKey
	Type           string
	Srcs           []string
	Visibility     Visibility
	SourceLocation SourceLocation
	TestTimeout    int
	Kind           Kind

	// deduplicated dependency keys, in declaration order.
	deps []TargetKey
	// deps plus implicitly added ones, eg. system libraries from configuration.
	expandedDeps []TargetKey

	state   *BuildState
	outputs outputs
	hash    hashCache
	rules   ruleCache
}

// outputs records the files built by a target itself. One target may produce several
// outputs (eg. a static and a shared library), each identified by a label.
type outputs struct {
	files       map[string][]string
	defaultFile string
}

// NewTarget creates and registers a new target in the given state.
// The target's directory is the state's current directory.
func NewTarget(state *BuildState, args TargetArgs, kind Kind) (*Target, error) {
	target := &Target{
		Key:            TargetKey{Dir: state.CurrentDir(), Name: args.Name},
		Type:           args.Type,
		Srcs:           args.Srcs,
		SourceLocation: args.Location,
		TestTimeout:    state.Config.Global.TestTimeout,
		Kind:           kind,
		Visibility:     Visibility{Public: true},
		state:          state,
	}
	if err := target.checkName(); err != nil {
		return nil, err
	} else if err := target.checkExtraArgs(args.Extra); err != nil {
		return nil, err
	} else if err := state.Sources.Claim(target); err != nil {
		return nil, err
	}
	target.checkSourcesExist()
	if err := target.initDeps(args.Deps); err != nil {
		return nil, err
	} else if err := target.AddHardcodeLibraries(args.ImplicitDeps); err != nil {
		return nil, err
	} else if err := target.initVisibility(args.Visibility); err != nil {
		return nil, err
	}
	if err := state.RegisterTarget(target); err != nil {
		return nil, err
	}
	return target, nil
}

// String returns the canonical dir:name form of the target.
func (target *Target) String() string {
	return target.Key.String()
}

// Name returns the name of the target within its directory.
func (target *Target) Name() string {
	return target.Key.Name
}

// Dir returns the directory of the target, relative to the repo root.
func (target *Target) Dir() string {
	return target.Key.Dir
}

// Deps returns the deduplicated dependencies of this target, in declaration order.
func (target *Target) Deps() []TargetKey {
	return target.deps
}

// ExpandedDeps returns the dependencies of this target including implicit ones.
func (target *Target) ExpandedDeps() []TargetKey {
	return target.expandedDeps
}

// AllowDuplicateSources returns true if the target may share its source files with others.
func (target *Target) AllowDuplicateSources() bool {
	return target.Kind != nil && target.Kind.AllowDuplicateSources()
}

// State returns the build state the target was created in.
func (target *Target) State() *BuildState {
	return target.state
}

// Dump returns all the attributes of the target as a map, eg. for serialising to JSON.
func (target *Target) Dump() map[string]interface{} {
	ret := target.data()
	ret["type"] = target.Type
	ret["path"] = target.Key.Dir
	ret["name"] = target.Key.Name
	ret["srcs"] = nonNil(target.Srcs)
	ret["deps"] = TargetKeys(target.deps).Strings()
	if target.Visibility.Public {
		ret["visibility"] = PublicVisibility
	} else {
		ret["visibility"] = TargetKeys(target.Visibility.Keys).Strings()
	}
	files := make(map[string][]string, len(target.outputs.files))
	for label, paths := range target.outputs.files {
		files[label] = paths
	}
	ret["targets"] = files
	ret["default_target"] = target.outputs.defaultFile
	return ret
}

// data returns the kind-specific attributes of the target.
func (target *Target) data() map[string]interface{} {
	ret := map[string]interface{}{"test_timeout": target.TestTimeout}
	if d, ok := target.Kind.(Dumper); ok {
		for k, v := range d.DumpFields() {
			ret[k] = v
		}
	}
	return ret
}

// SourceFilePath returns the path of a source file relative to the repo root.
func (target *Target) SourceFilePath(name string) string {
	return path.Join(target.Key.Dir, name)
}

// TargetFilePath returns the path of a file under this target's directory in the build dir.
func (target *Target) TargetFilePath(name string) string {
	return path.Join(target.state.BuildDir(), target.Key.Dir, name)
}

// AddTargetFile records an output file built by this target under the given label.
// The first file added becomes the default output unless one has been set.
func (target *Target) AddTargetFile(label string, paths ...string) {
	if target.outputs.files == nil {
		target.outputs.files = map[string][]string{}
	}
	target.outputs.files[label] = append(target.outputs.files[label], paths...)
	if target.outputs.defaultFile == "" && len(paths) > 0 {
		target.outputs.defaultFile = paths[0]
	}
}

// AddDefaultTargetFile records an output file and makes it the default one,
// ie. the one that's referenced when no label is given.
func (target *Target) AddDefaultTargetFile(label, path string) {
	target.outputs.defaultFile = path
	target.AddTargetFile(label, path)
}

// TargetFile returns the output file for the given label, or the default output if the label is empty.
// Rules are generated first if they haven't been yet, since that's when outputs are recorded.
// The result is empty if the target has no such output.
func (target *Target) TargetFile(label string) (string, error) {
	if _, err := target.GetRules(); err != nil {
		return "", err
	}
	if label == "" {
		return target.outputs.defaultFile, nil
	}
	return strings.Join(target.outputs.files[label], " "), nil
}

// TargetFiles returns all the files built by the target itself, sorted.
func (target *Target) TargetFiles() ([]string, error) {
	if _, err := target.GetRules(); err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	ret := []string{}
	for _, paths := range target.outputs.files {
		for _, p := range paths {
			if _, present := seen[p]; !present {
				seen[p] = struct{}{}
				ret = append(ret, p)
			}
		}
	}
	sort.Strings(ret)
	return ret, nil
}

// Debug logs a debug message prefixed with the target's location and name.
func (target *Target) Debug(msg string, args ...interface{}) {
	log.Debug("%s", target.format("debug", msg, args))
}

// Info logs an informational message prefixed with the target's location and name.
func (target *Target) Info(msg string, args ...interface{}) {
	log.Info("%s", target.format("info", msg, args))
}

// Warning logs a warning prefixed with the target's location and name.
func (target *Target) Warning(msg string, args ...interface{}) {
	log.Warning("%s", target.format("warning", msg, args))
}

// Error logs an error prefixed with the target's location and name.
func (target *Target) Error(msg string, args ...interface{}) {
	log.Error("%s", target.format("error", msg, args))
}

func (target *Target) format(level, msg string, args []interface{}) string {
	return prefix(target.SourceLocation, level, target.Key.Name) + fmt.Sprintf(msg, args...)
}

// formatError returns a FormatError about this target.
func (target *Target) formatError(msg string, args ...interface{}) *FormatError {
	return &FormatError{
		Location: target.SourceLocation,
		Target:   target.Key.Name,
		Msg:      fmt.Sprintf(msg, args...),
	}
}

func (target *Target) checkName() error {
	if target.Key.Name == "" {
		return target.formatError("Target name must not be empty")
	} else if strings.ContainsRune(target.Key.Name, '/') {
		return target.formatError("Invalid target name, should not contain dir part")
	} else if target.Key.IsPattern() || strings.ContainsRune(target.Key.Name, ':') {
		return target.formatError("Invalid target name %q", target.Key.Name)
	}
	return nil
}

func (target *Target) checkExtraArgs(extra map[string]interface{}) error {
	if len(extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return target.formatError("Unrecognized options %s", strings.Join(keys, ", "))
}

// checkSourcesExist warns about declared sources that aren't on disk.
func (target *Target) checkSourcesExist() {
	root := target.state.RepoRoot
	if root == "" {
		return
	}
	for _, src := range target.Srcs {
		if !fs.PathExists(path.Join(root, target.Key.Dir, src)) {
			target.Warning("Source file %s not found", src)
		}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

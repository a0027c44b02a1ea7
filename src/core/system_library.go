package core

// SystemLibraryType is the type of the targets representing system libraries.
const SystemLibraryType = "system_library"

// systemLibrary is the kind of a library that's known only by name, eg. #pthread.
// It has no sources, no dependencies and nothing to build.
type systemLibrary struct{}

func (systemLibrary) AllowDuplicateSources() bool { return false }

func (systemLibrary) GenerateRules(target *Target, w *RuleWriter) error { return nil }

// newSystemLibrary creates a system library target. It isn't registered anywhere.
func newSystemLibrary(state *BuildState, name string) *Target {
	return &Target{
		Key:         TargetKey{Dir: SystemLibraryDir, Name: name},
		Type:        SystemLibraryType,
		Srcs:        []string{},
		Visibility:  Visibility{Public: true},
		TestTimeout: state.Config.Global.TestTimeout,
		Kind:        systemLibrary{},
		state:       state,
	}
}

// IsSystemLibrary returns true if the target is a system library.
func (target *Target) IsSystemLibrary() bool {
	return target.Key.IsSystemLibrary()
}

package core

import (
	"path"
	"sync/atomic"
)

// BuildState is passed about to track the current state of the build.
// It's the context targets are constructed in: it owns the target database and the
// source registry, and knows which directory is currently being evaluated.
type BuildState struct {
	// Configuration options
	Config *Configuration
	// All the targets we know about
	Graph *TargetDatabase
	// Ownership of source files
	Sources *SourceRegistry
	// Root of the repository on disk. If empty, source files aren't checked for existence.
	RepoRoot string
	// Statistics about what's been done so far.
	Stats Stats
	// Directory of the BUILD file currently being evaluated.
	currentDir string
}

// Stats counts things that happened during the build, for reporting.
type Stats struct {
	BuildFiles     atomic.Int64
	TargetsAdded   atomic.Int64
	SystemLibs     atomic.Int64
	RulesGenerated atomic.Int64
	// Ninja fragments that were rewritten because their targets changed.
	FragmentsWritten atomic.Int64
}

// NewBuildState constructs and returns a new BuildState with the given config.
func NewBuildState(config *Configuration) *BuildState {
	return &BuildState{
		Config:     config,
		Graph:      NewTargetDatabase(),
		Sources:    NewSourceRegistry(config.Global.DuplicatedSourceAction),
		currentDir: RootDir,
	}
}

// NewDefaultBuildState creates a BuildState for the default configuration.
// It's useful for tests etc that don't need to customise anything about it.
func NewDefaultBuildState() *BuildState {
	return NewBuildState(DefaultConfiguration())
}

// CurrentDir returns the directory of the BUILD file currently being evaluated.
func (state *BuildState) CurrentDir() string {
	return state.currentDir
}

// SetCurrentDir sets the directory that newly created targets belong to.
func (state *BuildState) SetCurrentDir(dir string) {
	state.currentDir = path.Clean(dir)
}

// WithDir runs f with the current directory set to dir, restoring it afterwards.
func (state *BuildState) WithDir(dir string, f func() error) error {
	previous := state.currentDir
	state.SetCurrentDir(dir)
	defer func() { state.currentDir = previous }()
	return f()
}

// BuildDir returns the root of the build output directory, relative to the repo root.
func (state *BuildState) BuildDir() string {
	return state.Config.Global.BuildDir
}

// RegisterTarget adds an already constructed target to the database.
func (state *BuildState) RegisterTarget(target *Target) error {
	if err := state.Graph.Add(target); err != nil {
		return err
	}
	state.Stats.TargetsAdded.Add(1)
	return nil
}

// addSystemLibrary adds a system library to the database if it isn't already there.
func (state *BuildState) addSystemLibrary(name string) {
	if state.Graph.addIfAbsent(newSystemLibrary(state, name)) {
		state.Stats.SystemLibs.Add(1)
	}
}

func (state *BuildState) rulesGenerated(target *Target) {
	state.Stats.RulesGenerated.Add(1)
}

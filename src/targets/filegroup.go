package targets

import "github.com/plzbuild/blade/src/core"

// FilegroupType is the type of filegroup targets.
const FilegroupType = "filegroup"

// A Filegroup gives a name to a set of files; depending on it depends on all of them.
// Its sources may also belong to other targets.
type Filegroup struct{}

func newFilegroup(state *core.BuildState, args core.TargetArgs) (*core.Target, error) {
	return core.NewTarget(state, args, &Filegroup{})
}

// AllowDuplicateSources implements core.Kind.
func (fg *Filegroup) AllowDuplicateSources() bool {
	return true
}

// GenerateRules implements core.Kind.
func (fg *Filegroup) GenerateRules(target *core.Target, w *core.RuleWriter) error {
	deps, err := depOutputs(target)
	if err != nil {
		return err
	}
	out := target.TargetFilePath(target.Name())
	w.Build("phony", []string{core.EscapePath(out)}, append(sourcePaths(target), escapePaths(deps)...), nil)
	target.AddDefaultTargetFile("phony", out)
	return nil
}

package core

// CanSee returns true if target can depend on the given dependency.
func (target *Target) CanSee(dep *Target) bool {
	// Targets are always visible to other targets in the same directory.
	if target.Key.Dir == dep.Key.Dir {
		return true
	} else if dep.Visibility.Public {
		return true
	}
	return containsKey(dep.Visibility.Keys, target.Key)
}

// CheckDependencyVisibility checks that all dependencies of this target are visible to it.
// Returns an error if not, or nil if all's well.
func (target *Target) CheckDependencyVisibility(graph *TargetDatabase) error {
	for _, key := range target.deps {
		dep, err := graph.Lookup(key, target)
		if err != nil {
			return err
		} else if !target.CanSee(dep) {
			return &VisibilityError{Location: target.SourceLocation, From: target.Key, To: dep.Key}
		}
	}
	return nil
}

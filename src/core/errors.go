package core

import (
	"fmt"
	"strings"
)

// A SourceLocation identifies where in a BUILD file something was declared.
type SourceLocation struct {
	File string
	Line int
}

func (loc SourceLocation) String() string {
	if loc.Line > 0 {
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	}
	return loc.File
}

// IsZero returns true if the location is unknown.
func (loc SourceLocation) IsZero() bool {
	return loc.File == ""
}

// prefix formats the leading part of a message about a target, eg. "app/BUILD:3 error: server: ".
func prefix(loc SourceLocation, level, name string) string {
	if loc.IsZero() {
		return fmt.Sprintf("%s: %s: ", level, name)
	}
	return fmt.Sprintf("%s %s: %s: ", loc, level, name)
}

// A FormatError is raised for malformed references, source paths or target names.
// The graph can't be trusted after one of these so callers treat it as fatal.
type FormatError struct {
	Location SourceLocation
	Target   string
	Msg      string
}

func (err *FormatError) Error() string {
	if err.Target == "" {
		return err.Msg
	}
	return prefix(err.Location, "error", err.Target) + err.Msg
}

// A ConflictError is raised when two targets that both disallow duplicate sources claim the same file.
type ConflictError struct {
	Source string
	Owners [2]TargetKey
}

func (err *ConflictError) Error() string {
	return fmt.Sprintf("Source file %s belongs to {%s, %s}", err.Source, err.Owners[0], err.Owners[1])
}

// A VisibilityError is raised when a target depends on something that isn't visible to it.
type VisibilityError struct {
	Location SourceLocation
	From, To TargetKey
}

func (err *VisibilityError) Error() string {
	return prefix(err.Location, "error", err.From.Name) +
		fmt.Sprintf("%s is not allowed to depend on %s because of its visibility", err.From, err.To)
}

// A LookupError is raised when a target refers to a key that doesn't exist in the database.
type LookupError struct {
	Location   SourceLocation
	From, Key  TargetKey
	Suggestion string
}

func (err *LookupError) Error() string {
	msg := fmt.Sprintf("Target %s is not found", err.Key)
	if err.From != (TargetKey{}) {
		msg = prefix(err.Location, "error", err.From.Name) + fmt.Sprintf("%s depends on %s which is not found", err.From, err.Key)
	}
	return msg + err.Suggestion
}

// A CycleError is raised when the dependency graph turns out not to be acyclic.
type CycleError struct {
	Chain []TargetKey
}

func (err *CycleError) Error() string {
	return "Dependency cycle found:\n" + TargetKeys(err.Chain).chain() +
		" \nSorry, but you'll have to refactor your BUILD files to avoid this cycle."
}

// newCycleError builds the error for a cycle that closes on key, trimming the
// part of the chain that leads up to it.
func newCycleError(chain []TargetKey, key TargetKey) *CycleError {
	for i, k := range chain {
		if k == key {
			cycle := append([]TargetKey{}, chain[i:]...)
			return &CycleError{Chain: append(cycle, key)}
		}
	}
	return &CycleError{Chain: append(append([]TargetKey{}, chain...), key)}
}

func (slice TargetKeys) chain() string {
	return strings.Join(slice.Strings(), "\n -> ")
}

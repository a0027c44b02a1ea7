// Package targets implements the concrete kinds of target that can be declared in BUILD files.
package targets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/plzbuild/blade/src/cli"
	"github.com/plzbuild/blade/src/cli/logging"
	"github.com/plzbuild/blade/src/core"
)

var log = logging.Log

// A Builder constructs a target of one kind from the arguments of a BUILD file call.
// Anything in args.Extra that the builder doesn't consume is rejected by core.NewTarget.
type Builder func(state *core.BuildState, args core.TargetArgs) (*core.Target, error)

var builders = map[string]Builder{
	CcLibraryType: newCcLibrary,
	CcBinaryType:  newCcBinary,
	GenRuleType:   newGenRule,
	FilegroupType: newFilegroup,
}

// Types returns the names of all the kinds of target, sorted.
func Types() []string {
	ret := make([]string, 0, len(builders))
	for t := range builders {
		ret = append(ret, t)
	}
	sort.Strings(ret)
	return ret
}

// New constructs a target of the kind named by args.Type in the state's current directory.
func New(state *core.BuildState, args core.TargetArgs) (*core.Target, error) {
	builder, present := builders[args.Type]
	if !present {
		return nil, &core.FormatError{
			Location: args.Location,
			Target:   args.Name,
			Msg:      "Unknown target type " + args.Type + cli.PrettyPrintSuggestion(args.Type, Types(), 4),
		}
	}
	extra := make(map[string]interface{}, len(args.Extra))
	for k, v := range args.Extra {
		extra[k] = v
	}
	args.Extra = extra
	log.Debug("Creating %s %s:%s", args.Type, state.CurrentDir(), args.Name)
	return builder(state, args)
}

func argError(args *core.TargetArgs, msg string, a ...interface{}) error {
	return &core.FormatError{Location: args.Location, Target: args.Name, Msg: fmt.Sprintf(msg, a...)}
}

// popString removes a string argument from args.Extra, returning def if it isn't present.
func popString(args *core.TargetArgs, name, def string) (string, error) {
	v, present := args.Extra[name]
	if !present {
		return def, nil
	}
	delete(args.Extra, name)
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", argError(args, "%s should be a string, was %T", name, v)
}

// popStrings removes a list argument from args.Extra. A single string is accepted as a list of one.
func popStrings(args *core.TargetArgs, name string) ([]string, error) {
	v, present := args.Extra[name]
	if !present {
		return nil, nil
	}
	delete(args.Extra, name)
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	}
	return nil, argError(args, "%s should be a list of strings, was %T", name, v)
}

// popBool removes a boolean argument from args.Extra, returning def if it isn't present.
func popBool(args *core.TargetArgs, name string, def bool) (bool, error) {
	v, present := args.Extra[name]
	if !present {
		return def, nil
	}
	delete(args.Extra, name)
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, argError(args, "%s should be True or False, was %T", name, v)
}

// escapeNinja escapes a string for use in a ninja variable value.
func escapeNinja(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

func escapePaths(paths []string) []string {
	ret := make([]string, len(paths))
	for i, p := range paths {
		ret[i] = core.EscapePath(p)
	}
	return ret
}

// depOutputs returns the default outputs of the target's expanded dependencies, skipping system
// libraries and anything that doesn't build a file.
func depOutputs(target *core.Target) ([]string, error) {
	ret := []string{}
	for _, key := range target.ExpandedDeps() {
		if key.IsSystemLibrary() {
			continue
		}
		dep, err := target.State().Graph.Lookup(key, target)
		if err != nil {
			return nil, err
		}
		f, err := dep.TargetFile("")
		if err != nil {
			return nil, err
		} else if f != "" {
			ret = append(ret, f)
		}
	}
	return ret, nil
}

package core

import (
	"sort"
	"strings"
)

var pathEscaper = strings.NewReplacer("$", "$$", " ", "$ ", ":", "$:")

// EscapePath escapes a path for use in a ninja build statement, or in a subninja or default line.
func EscapePath(s string) string {
	return pathEscaper.Replace(s)
}

// ruleCache is the memoised output of a target's rule generation.
type ruleCache struct {
	lines      []string
	err        error
	done       bool
	generating bool
}

// GetRules returns the ninja build statements for this target.
// The kind generates them on the first call; later calls return the same slice.
func (target *Target) GetRules() ([]string, error) {
	if target.rules.done {
		return target.rules.lines, target.rules.err
	} else if target.rules.generating {
		return nil, &CycleError{Chain: []TargetKey{target.Key, target.Key}}
	}
	target.rules.generating = true
	w := &RuleWriter{}
	err := target.Kind.GenerateRules(target, w)
	target.rules = ruleCache{lines: w.Lines(), err: err, done: true}
	if err == nil {
		target.state.rulesGenerated(target)
	}
	return target.rules.lines, target.rules.err
}

// BuildOptions are the optional parts of a ninja build statement.
type BuildOptions struct {
	ImplicitOutputs []string
	ImplicitDeps    []string
	OrderOnlyDeps   []string
	Variables       map[string]string
}

// A RuleWriter accumulates the ninja build statements of one target.
type RuleWriter struct {
	lines []string
}

// WriteRule appends a single line.
func (w *RuleWriter) WriteRule(line string) {
	w.lines = append(w.lines, line)
}

// Build appends a build statement, eg.
//
//	build out.o | out.d: cc in.cc | gen.h || order.stamp
//	  cppflags = -O2
//
// followed by an empty line to improve readability.
func (w *RuleWriter) Build(rule string, outputs, inputs []string, opts *BuildOptions) {
	if opts == nil {
		opts = &BuildOptions{}
	}
	outs := append([]string{}, outputs...)
	if len(opts.ImplicitOutputs) > 0 {
		outs = append(outs, "|")
		outs = append(outs, opts.ImplicitOutputs...)
	}
	ins := append([]string{}, inputs...)
	if len(opts.ImplicitDeps) > 0 {
		ins = append(ins, "|")
		ins = append(ins, opts.ImplicitDeps...)
	}
	if len(opts.OrderOnlyDeps) > 0 {
		ins = append(ins, "||")
		ins = append(ins, opts.OrderOnlyDeps...)
	}
	line := "build " + strings.Join(outs, " ") + ": " + rule
	if len(ins) > 0 {
		line += " " + strings.Join(ins, " ")
	}
	w.WriteRule(line)

	names := make([]string, 0, len(opts.Variables))
	for name := range opts.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if v := opts.Variables[name]; v != "" {
			w.WriteRule("  " + name + " = " + v)
		} else {
			w.WriteRule("  " + name + " =")
		}
	}
	w.WriteRule("")
}

// Lines returns everything written so far.
func (w *RuleWriter) Lines() []string {
	return w.lines
}

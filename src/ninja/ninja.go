// Package ninja writes the loaded target graph out as ninja build files.
//
// The top-level build.ninja in the build directory holds the toolchain variables and rule
// definitions, and includes one fragment per target. A fragment is only rewritten when the
// rule hash of its target changes (or the configuration does), so regenerating after a small
// edit touches few files.
package ninja

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"

	"github.com/plzbuild/blade/src/cli/logging"
	"github.com/plzbuild/blade/src/core"
	"github.com/plzbuild/blade/src/fs"
)

var log = logging.Log

// RequiredVersion is the minimum version of ninja that can read what we write.
const RequiredVersion = "1.7"

const (
	mainFile       = "build.ninja"
	fragmentSuffix = ".ninja"
	hashSuffix     = ".ninja.hash"
	configHashFile = ".blade_config.hash"
)

// Write writes build.ninja and the fragments of every target that's been loaded.
// The default outputs of the given targets become ninja's default targets.
func Write(state *core.BuildState, keys []core.TargetKey) error {
	configHash, err := hashConfig(state.Config)
	if err != nil {
		return err
	}
	configHashPath := buildDirPath(state, configHashFile)
	configChanged := readFile(state, configHashPath) != configHash
	if configChanged {
		log.Debug("Configuration has changed, regenerating all targets")
	}

	w := &writer{}
	writeHeader(w, state)
	before := state.Stats.FragmentsWritten.Load()
	targets := 0
	for _, target := range state.Graph.AllTargets() {
		if target.IsSystemLibrary() {
			continue
		}
		fragment, err := writeFragment(state, target, configChanged)
		if err != nil {
			return err
		}
		w.Subninja(core.EscapePath(fragment))
		targets++
	}
	w.BlankLine()
	defaults, err := defaultOutputs(state, keys)
	if err != nil {
		return err
	}
	w.Default(defaults...)

	mainPath := buildDirPath(state, mainFile)
	if _, err := writeFile(state, mainPath, w.String()); err != nil {
		return err
	}
	log.Info("Generated %s (%s), %d of %d targets changed", mainPath, humanize.Bytes(uint64(len(w.String()))),
		state.Stats.FragmentsWritten.Load()-before, targets)
	_, err = writeFile(state, configHashPath, configHash)
	return err
}

// writeHeader writes the toolchain variables and the rule definitions.
func writeHeader(w *writer, state *core.BuildState) {
	config := state.Config
	w.Comment("Generated by blade " + core.BladeVersion + ". Do not edit, your changes will be overwritten.")
	w.BlankLine()
	w.Assign("ninja_required_version", RequiredVersion)
	w.Assign("builddir", state.BuildDir())
	w.Assign("cc", config.Cc.Cc)
	w.Assign("cxx", config.Cc.Cxx)
	w.Assign("ar", config.Cc.Ar)
	w.Assign("ld", config.Cc.Ld)
	w.Assign("cppflags", strings.Join(config.CppFlags(), " "))
	w.Assign("linkflags", strings.Join(config.LinkFlags(), " "))
	w.BlankLine()
	for _, r := range rules {
		w.Rule(r.Name, r.Vars...)
		w.BlankLine()
	}
}

// A rule is one of the rule definitions that targets' build statements refer to.
type rule struct {
	Name string
	Vars [][2]string
}

// rules are the rules that the target kinds use. gen and phony are special; gen runs whatever
// command the target gives it and phony is built into ninja.
var rules = []rule{
	{Name: "cc", Vars: [][2]string{
		{"command", "$cc -o $out -MMD -MF $out.d $cppflags $extra_cppflags -c $in"},
		{"depfile", "$out.d"},
		{"deps", "gcc"},
		{"description", "CC $in"},
	}},
	{Name: "cxx", Vars: [][2]string{
		{"command", "$cxx -o $out -MMD -MF $out.d $cppflags $extra_cppflags -c $in"},
		{"depfile", "$out.d"},
		{"deps", "gcc"},
		{"description", "CXX $in"},
	}},
	{Name: "ar", Vars: [][2]string{
		{"command", "rm -f $out && $ar rcs $out $in"},
		{"description", "AR $out"},
	}},
	{Name: "so", Vars: [][2]string{
		{"command", "$ld -shared -o $out $in $linkflags $extra_linkflags $libs"},
		{"description", "SHAREDLIB $out"},
	}},
	{Name: "link", Vars: [][2]string{
		{"command", "$ld -o $out $in $linkflags $extra_linkflags $libs"},
		{"description", "LINK $out"},
	}},
	{Name: "gen", Vars: [][2]string{
		{"command", "$cmd"},
	}},
	{Name: "stamp", Vars: [][2]string{
		{"command", "touch $out"},
		{"description", "STAMP $out"},
	}},
}

// writeFragment writes the fragment for a single target if it's out of date.
// It returns the path of the fragment relative to the repo root.
func writeFragment(state *core.BuildState, target *core.Target, force bool) (string, error) {
	fragment, hashFile := FragmentFiles(target)
	hash, err := target.RuleHashString()
	if err != nil {
		return "", err
	}
	if !force && readFile(state, hashFile) == hash && fs.FileExists(repoPath(state, fragment)) {
		log.Debug("%s is up to date", target)
		return fragment, nil
	}
	lines, err := target.GetRules()
	if err != nil {
		return "", err
	}
	w := &writer{}
	w.Comment(fmt.Sprintf("%s %s, declared at %s", target.Type, target, target.SourceLocation))
	w.BlankLine()
	w.Lines(lines)
	if _, err := writeFile(state, fragment, w.String()); err != nil {
		return "", err
	}
	if _, err := writeFile(state, hashFile, hash); err != nil {
		return "", err
	}
	state.Stats.FragmentsWritten.Add(1)
	return fragment, nil
}

// FragmentFiles returns the paths of a target's ninja fragment and the hash that's stored
// alongside it, relative to the repo root.
func FragmentFiles(target *core.Target) (fragment, hash string) {
	return target.TargetFilePath(target.Key.Name + fragmentSuffix), target.TargetFilePath(target.Key.Name + hashSuffix)
}

// defaultOutputs returns the default outputs of the given targets, in order.
func defaultOutputs(state *core.BuildState, keys []core.TargetKey) ([]string, error) {
	ret := make([]string, 0, len(keys))
	for _, key := range keys {
		target, err := state.Graph.Lookup(key, nil)
		if err != nil {
			return nil, err
		}
		out, err := target.TargetFile("")
		if err != nil {
			return nil, err
		} else if out != "" {
			ret = append(ret, core.EscapePath(out))
		}
	}
	return ret, nil
}

// hashConfig returns a hash of everything in the configuration that affects generated rules.
func hashConfig(config *core.Configuration) (string, error) {
	b, err := json.Marshal(struct {
		Version string
		Global  interface{}
		Cc      interface{}
	}{core.BladeVersion, config.Global, config.Cc})
	if err != nil {
		return "", fmt.Errorf("Can't hash configuration: %w", err)
	}
	h := blake3.Sum256(b)
	return hex.EncodeToString(h[:]), nil
}

func repoPath(state *core.BuildState, p string) string {
	if state.RepoRoot == "" {
		return p
	}
	return filepath.Join(state.RepoRoot, p)
}

// buildDirPath returns the path of a file in the build dir relative to the repo root.
func buildDirPath(state *core.BuildState, name string) string {
	return path.Join(state.BuildDir(), name)
}

// readFile returns the contents of a generated file, or the empty string if it can't be read.
func readFile(state *core.BuildState, name string) string {
	b, err := os.ReadFile(repoPath(state, name))
	if err != nil {
		return ""
	}
	return string(b)
}

// writeFile writes a generated file, leaving it alone if its contents are the same.
// name is relative to the repo root.
func writeFile(state *core.BuildState, name, contents string) (bool, error) {
	written, err := fs.WriteFileIfChanged(repoPath(state, name), []byte(contents), 0644)
	if err != nil {
		return false, fmt.Errorf("Failed to write %s: %w", name, err)
	} else if written {
		log.Debug("Wrote %s (%s)", name, humanize.Bytes(uint64(len(contents))))
	}
	return written, nil
}

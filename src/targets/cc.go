package targets

import (
	"fmt"
	"path"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/plzbuild/blade/src/core"
)

// Types of the C/C++ targets.
const (
	CcLibraryType = "cc_library"
	CcBinaryType  = "cc_binary"
)

// cExtensions are compiled with the C compiler, everything in cxxExtensions with the C++ one.
// Any other source (eg. headers) is only a dependency.
var (
	cExtensions   = map[string]bool{".c": true}
	cxxExtensions = map[string]bool{".cc": true, ".cpp": true, ".cxx": true, ".C": true}
)

// CcLibraryOutputs are the files built by a cc_library.
type CcLibraryOutputs struct {
	// Static is the archive; empty for a library without any compiled sources.
	Static string
	// Shared is only built when [cc] generatedynamic is set.
	Shared string
	// Stamp marks a header-only library as done.
	Stamp string
}

// CcBinaryOutputs are the files built by a cc_binary.
type CcBinaryOutputs struct {
	Executable string
}

// ccOptions are the attributes common to C/C++ targets.
type ccOptions struct {
	Defs      []string
	Incs      []string
	Optimize  []string
	LinkFlags []string
}

func popCcOptions(args *core.TargetArgs) (ccOptions, error) {
	var opts ccOptions
	var err error
	if opts.Defs, err = popStrings(args, "defs"); err != nil {
		return opts, err
	} else if opts.Incs, err = popStrings(args, "incs"); err != nil {
		return opts, err
	} else if opts.Optimize, err = popStrings(args, "optimize"); err != nil {
		return opts, err
	}
	opts.LinkFlags, err = popStrings(args, "extra_linkflags")
	return opts, err
}

func (opts *ccOptions) dumpFields() map[string]interface{} {
	return map[string]interface{}{
		"defs":            nonNil(opts.Defs),
		"incs":            nonNil(opts.Incs),
		"optimize":        nonNil(opts.Optimize),
		"extra_linkflags": nonNil(opts.LinkFlags),
	}
}

// cppflags returns the target-specific compiler flags, quoted for the shell.
func (opts *ccOptions) cppflags(target *core.Target) string {
	flags := make([]string, 0, len(opts.Defs)+len(opts.Incs)+len(opts.Optimize))
	for _, def := range opts.Defs {
		flags = append(flags, "-D"+def)
	}
	for _, inc := range opts.Incs {
		flags = append(flags, "-I"+path.Join(target.Dir(), inc))
	}
	flags = append(flags, opts.Optimize...)
	return escapeNinja(shellescape.QuoteCommand(flags))
}

// compile writes a statement per compiled source and returns the object files.
// Sources that only differ by extension (eg. a.c and a.cc) would share an object file, so they're rejected.
func (opts *ccOptions) compile(target *core.Target, w *core.RuleWriter, orderOnly []string) ([]string, error) {
	objs := []string{}
	srcs := map[string]string{}
	cppflags := opts.cppflags(target)
	for _, src := range target.Srcs {
		ext := path.Ext(src)
		rule := "cxx"
		if cExtensions[ext] {
			rule = "cc"
		} else if !cxxExtensions[ext] {
			continue
		}
		obj := target.TargetFilePath(target.Name() + ".objs/" + strings.TrimSuffix(src, ext) + ".o")
		if other, present := srcs[obj]; present {
			return nil, &core.FormatError{
				Location: target.SourceLocation,
				Target:   target.Name(),
				Msg:      fmt.Sprintf("Sources %s and %s would both compile to %s", other, src, obj),
			}
		}
		srcs[obj] = src
		vars := map[string]string{}
		if cppflags != "" {
			vars["extra_cppflags"] = cppflags
		}
		w.Build(rule, []string{core.EscapePath(obj)}, []string{core.EscapePath(target.SourceFilePath(src))}, &core.BuildOptions{
			OrderOnlyDeps: escapePaths(orderOnly),
			Variables:     vars,
		})
		objs = append(objs, obj)
	}
	return objs, nil
}

// A CcLibrary is a C/C++ library, built as a static archive and optionally a shared library.
type CcLibrary struct {
	ccOptions
	LinkAllSymbols bool
	Outputs        CcLibraryOutputs
}

func newCcLibrary(state *core.BuildState, args core.TargetArgs) (*core.Target, error) {
	opts, err := popCcOptions(&args)
	if err != nil {
		return nil, err
	}
	lib := &CcLibrary{ccOptions: opts}
	if lib.LinkAllSymbols, err = popBool(&args, "link_all_symbols", false); err != nil {
		return nil, err
	}
	return newCcTarget(state, args, lib)
}

// newCcTarget constructs a C/C++ target with the configured implicit dependencies.
func newCcTarget(state *core.BuildState, args core.TargetArgs, kind core.Kind) (*core.Target, error) {
	args.ImplicitDeps = state.Config.Cc.ImplicitDeps
	return core.NewTarget(state, args, kind)
}

// AllowDuplicateSources implements core.Kind.
func (lib *CcLibrary) AllowDuplicateSources() bool {
	return false
}

// DumpFields implements core.Dumper.
func (lib *CcLibrary) DumpFields() map[string]interface{} {
	ret := lib.dumpFields()
	ret["link_all_symbols"] = lib.LinkAllSymbols
	return ret
}

// GenerateRules implements core.Kind.
func (lib *CcLibrary) GenerateRules(target *core.Target, w *core.RuleWriter) error {
	deps, err := depOutputs(target)
	if err != nil {
		return err
	}
	objs, err := lib.compile(target, w, deps)
	if err != nil {
		return err
	}
	if len(objs) == 0 {
		lib.Outputs.Stamp = target.TargetFilePath(target.Name() + ".stamp")
		w.Build("stamp", []string{core.EscapePath(lib.Outputs.Stamp)}, sourcePaths(target), &core.BuildOptions{
			OrderOnlyDeps: escapePaths(deps),
		})
		target.AddDefaultTargetFile("stamp", lib.Outputs.Stamp)
		return nil
	}
	lib.Outputs.Static = target.TargetFilePath("lib" + target.Name() + ".a")
	w.Build("ar", []string{core.EscapePath(lib.Outputs.Static)}, escapePaths(objs), nil)
	target.AddDefaultTargetFile("a", lib.Outputs.Static)

	if target.State().Config.Cc.GenerateDynamic {
		libs, sysLibs, err := linkDeps(target)
		if err != nil {
			return err
		}
		lib.Outputs.Shared = target.TargetFilePath("lib" + target.Name() + ".so")
		w.Build("so", []string{core.EscapePath(lib.Outputs.Shared)}, escapePaths(objs), &core.BuildOptions{
			ImplicitDeps: archives(libs),
			Variables:    linkVariables(libs, sysLibs, lib.LinkFlags),
		})
		target.AddTargetFile("so", lib.Outputs.Shared)
	}
	return nil
}

// A CcBinary is a C/C++ executable, statically linked against its dependencies.
type CcBinary struct {
	ccOptions
	Outputs CcBinaryOutputs
}

func newCcBinary(state *core.BuildState, args core.TargetArgs) (*core.Target, error) {
	opts, err := popCcOptions(&args)
	if err != nil {
		return nil, err
	}
	return newCcTarget(state, args, &CcBinary{ccOptions: opts})
}

// AllowDuplicateSources implements core.Kind.
func (bin *CcBinary) AllowDuplicateSources() bool {
	return false
}

// DumpFields implements core.Dumper.
func (bin *CcBinary) DumpFields() map[string]interface{} {
	return bin.dumpFields()
}

// GenerateRules implements core.Kind.
func (bin *CcBinary) GenerateRules(target *core.Target, w *core.RuleWriter) error {
	deps, err := depOutputs(target)
	if err != nil {
		return err
	}
	libs, sysLibs, err := linkDeps(target)
	if err != nil {
		return err
	}
	objs, err := bin.compile(target, w, deps)
	if err != nil {
		return err
	}
	bin.Outputs.Executable = target.TargetFilePath(target.Name())
	w.Build("link", []string{core.EscapePath(bin.Outputs.Executable)}, escapePaths(objs), &core.BuildOptions{
		ImplicitDeps: archives(libs),
		Variables:    linkVariables(libs, sysLibs, bin.LinkFlags),
	})
	target.AddDefaultTargetFile("bin", bin.Outputs.Executable)
	return nil
}

// A staticLib is an archive that a target links against.
type staticLib struct {
	Path string
	// WholeArchive is set for libraries declared with link_all_symbols.
	WholeArchive bool
}

// linkDeps returns the static libraries the target links against, with dependents before their
// dependencies as the linker requires, and the names of the system libraries.
func linkDeps(target *core.Target) (libs []staticLib, sysLibs []string, err error) {
	seen := map[core.TargetKey]bool{}
	var order []*core.Target
	var visit func(t *core.Target) error
	visit = func(t *core.Target) error {
		for _, key := range t.ExpandedDeps() {
			if seen[key] {
				continue
			}
			seen[key] = true
			dep, err := t.State().Graph.Lookup(key, t)
			if err != nil {
				return err
			} else if err := visit(dep); err != nil {
				return err
			}
			order = append(order, dep)
		}
		return nil
	}
	if err := visit(target); err != nil {
		return nil, nil, err
	}
	for i := len(order) - 1; i >= 0; i-- {
		dep := order[i]
		if dep.IsSystemLibrary() {
			sysLibs = append(sysLibs, dep.Name())
			continue
		}
		lib, ok := dep.Kind.(*CcLibrary)
		if !ok {
			continue
		}
		f, err := dep.TargetFile("a")
		if err != nil {
			return nil, nil, err
		} else if f != "" {
			libs = append(libs, staticLib{Path: f, WholeArchive: lib.LinkAllSymbols})
		}
	}
	return libs, sysLibs, nil
}

func archives(libs []staticLib) []string {
	ret := make([]string, len(libs))
	for i, lib := range libs {
		ret[i] = core.EscapePath(lib.Path)
	}
	return ret
}

// linkVariables returns the variables of a link statement.
func linkVariables(libs []staticLib, sysLibs, linkFlags []string) map[string]string {
	flags := []string{}
	for _, lib := range libs {
		if lib.WholeArchive {
			flags = append(flags, "-Wl,--whole-archive", lib.Path, "-Wl,--no-whole-archive")
		} else {
			flags = append(flags, lib.Path)
		}
	}
	for _, lib := range sysLibs {
		flags = append(flags, "-l"+lib)
	}
	vars := map[string]string{}
	if len(flags) > 0 {
		vars["libs"] = escapeNinja(shellescape.QuoteCommand(flags))
	}
	if len(linkFlags) > 0 {
		vars["extra_linkflags"] = escapeNinja(shellescape.QuoteCommand(linkFlags))
	}
	return vars
}

// sourcePaths returns the escaped paths of the target's sources relative to the repo root.
func sourcePaths(target *core.Target) []string {
	ret := make([]string, len(target.Srcs))
	for i, src := range target.Srcs {
		ret[i] = core.EscapePath(target.SourceFilePath(src))
	}
	return ret
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

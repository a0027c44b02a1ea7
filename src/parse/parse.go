// Package parse implements loading of BUILD files into the target database.
//
// BUILD files are written in a restricted subset of Starlark: each top-level statement is a call
// to one of the target kinds with keyword arguments whose values are literal strings, lists of
// strings or booleans. Files are read and parsed concurrently but evaluated in order.
package parse

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bazelbuild/buildtools/build"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/plzbuild/blade/src/cli/logging"
	"github.com/plzbuild/blade/src/core"
	"github.com/plzbuild/blade/src/fs"
)

var log = logging.Log

// LoadOrDie is like Load but dies on any error.
func LoadOrDie(state *core.BuildState, keys []core.TargetKey) []core.TargetKey {
	ret, err := Load(state, keys)
	if err != nil {
		log.Fatalf("%s", err)
	}
	return ret
}

// Load reads the BUILD files for the given targets, and for everything they depend on, into the state.
// It returns the keys of the targets that were asked for with any patterns expanded.
// Visibility of every loaded dependency is checked.
func Load(state *core.BuildState, keys []core.TargetKey) ([]core.TargetKey, error) {
	p := &parser{
		state:  state,
		root:   state.RepoRoot,
		loaded: map[string]bool{},
	}
	if p.root == "" {
		p.root = "."
	}
	dirs, err := p.findDirs(keys)
	if err != nil {
		return nil, err
	}
	for len(dirs) > 0 {
		if err := p.loadDirs(dirs); err != nil {
			return nil, err
		}
		dirs = p.unloadedDeps()
	}
	return p.expand(keys)
}

type parser struct {
	state  *core.BuildState
	root   string
	loaded map[string]bool
}

func (p *parser) buildFileName() string {
	return p.state.Config.Blade.BuildFileName
}

// buildFile returns the path of the BUILD file in a directory, relative to the repo root.
func (p *parser) buildFile(dir string) string {
	return path.Join(dir, p.buildFileName())
}

// findDirs returns the directories whose BUILD files are needed for the given keys.
func (p *parser) findDirs(keys []core.TargetKey) ([]string, error) {
	dirs := []string{}
	for _, key := range keys {
		if key.IsSystemLibrary() {
			continue
		} else if !key.IsAllSubpackages() {
			if !fs.FileExists(filepath.Join(p.root, p.buildFile(key.Dir))) {
				return nil, fmt.Errorf("%s: %s file not found", key, p.buildFile(key.Dir))
			}
			dirs = append(dirs, key.Dir)
			continue
		}
		found, err := fs.FindBuildFiles(filepath.Join(p.root, key.Dir), p.buildFileName(), p.excludes(key.Dir)...)
		if err != nil {
			return nil, fmt.Errorf("Failed to search %s for %s files: %w", key.Dir, p.buildFileName(), err)
		}
		for _, d := range found {
			dirs = append(dirs, path.Join(key.Dir, d))
		}
	}
	return dirs, nil
}

// excludes returns the directories that are never searched for BUILD files below dir.
func (p *parser) excludes(dir string) []string {
	buildDir := p.state.BuildDir()
	if dir == core.RootDir {
		return []string{buildDir}
	} else if strings.HasPrefix(buildDir, dir+"/") {
		return []string{strings.TrimPrefix(buildDir, dir+"/")}
	}
	return nil
}

// A parsedFile is the result of parsing one BUILD file.
type parsedFile struct {
	Dir  string
	File *build.File
	Err  error
}

// loadDirs parses and evaluates the BUILD files in the given directories that haven't been loaded yet.
func (p *parser) loadDirs(dirs []string) error {
	todo := []string{}
	for _, dir := range dirs {
		if !p.loaded[dir] {
			p.loaded[dir] = true
			todo = append(todo, dir)
		}
	}
	sort.Strings(todo)
	files := p.parseFiles(todo)
	var errs *multierror.Error
	for _, f := range files {
		if f.Err != nil {
			errs = multierror.Append(errs, f.Err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}
	for _, f := range files {
		if err := p.evaluate(f.Dir, f.File); err != nil {
			return err
		}
	}
	return nil
}

// parseFiles reads and parses BUILD files concurrently. The results are in the same order as dirs.
func (p *parser) parseFiles(dirs []string) []parsedFile {
	results := make([]parsedFile, len(dirs))
	var g errgroup.Group
	g.SetLimit(p.state.Config.Blade.NumThreads)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			results[i] = p.parseFile(dir)
			return nil
		})
	}
	g.Wait()
	return results
}

func (p *parser) parseFile(dir string) parsedFile {
	filename := p.buildFile(dir)
	data, err := os.ReadFile(filepath.Join(p.root, filename))
	if err != nil {
		return parsedFile{Dir: dir, Err: err}
	}
	f, err := build.ParseBuild(filename, data)
	if err != nil {
		return parsedFile{Dir: dir, Err: err}
	}
	log.Debug("Parsed %s", filename)
	p.state.Stats.BuildFiles.Add(1)
	return parsedFile{Dir: dir, File: f}
}

// unloadedDeps returns the directories of dependencies that haven't been loaded yet.
// Directories without a BUILD file are skipped; references into them fail later when they're looked up.
func (p *parser) unloadedDeps() []string {
	seen := map[string]bool{}
	dirs := []string{}
	for _, target := range p.state.Graph.AllTargets() {
		for _, dep := range target.ExpandedDeps() {
			if dep.IsSystemLibrary() || p.loaded[dep.Dir] || seen[dep.Dir] {
				continue
			}
			seen[dep.Dir] = true
			if fs.FileExists(filepath.Join(p.root, p.buildFile(dep.Dir))) {
				dirs = append(dirs, dep.Dir)
			} else {
				p.loaded[dep.Dir] = true
				log.Debug("%s has no %s file", dep.Dir, p.buildFileName())
			}
		}
	}
	return dirs
}

// expand expands the requested keys and checks that everything loaded is consistent.
func (p *parser) expand(keys []core.TargetKey) ([]core.TargetKey, error) {
	var errs *multierror.Error
	ret := []core.TargetKey{}
	seen := map[core.TargetKey]bool{}
	for _, key := range keys {
		expanded := p.state.Graph.Expand(key)
		if key.IsPattern() && len(expanded) == 0 {
			log.Warning("%s doesn't match any targets", key)
		} else if !key.IsPattern() {
			if _, err := p.state.Graph.Lookup(key, nil); err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
		}
		for _, k := range expanded {
			if !seen[k] {
				seen[k] = true
				ret = append(ret, k)
			}
		}
	}
	for _, target := range p.state.Graph.AllTargets() {
		if err := target.CheckDependencyVisibility(p.state.Graph); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return ret, errs.ErrorOrNil()
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/alessio/shellescape"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/plzbuild/blade/src/bladeinit"
	"github.com/plzbuild/blade/src/clean"
	"github.com/plzbuild/blade/src/cli"
	"github.com/plzbuild/blade/src/cli/logging"
	"github.com/plzbuild/blade/src/core"
	"github.com/plzbuild/blade/src/metrics"
	"github.com/plzbuild/blade/src/ninja"
	"github.com/plzbuild/blade/src/parse"
	"github.com/plzbuild/blade/src/query"
	"github.com/plzbuild/blade/src/watch"
)

var log = logging.Log

type targetArgs struct {
	Targets cli.StdinStrings `positional-arg-name:"targets" description:"Targets to process, defaults to everything in the current directory. Pass - to read them from stdin."`
}

var opts struct {
	Usage string `usage:"blade reads BUILD files, resolves the dependency graph between the targets they declare and generates ninja files to build them."`

	Verbosity    cli.Verbosity       `short:"v" long:"verbosity" default:"warning" description:"Verbosity of output (error, warning, notice, info, debug)"`
	LogFile      string              `long:"log_file" description:"File to echo full logging output to"`
	LogFileLevel cli.Verbosity       `long:"log_file_level" default:"debug" description:"Log level for file output"`
	Override     cli.ConfigOverrides `short:"o" long:"override" description:"Override config values, as section.key=value"`

	Build struct {
		Args targetArgs `positional-args:"true"`
	} `command:"build" description:"Generates ninja files for one or more targets and everything they depend on"`

	Dump struct {
		Args targetArgs `positional-args:"true"`
	} `command:"dump" description:"Prints the attributes of one or more targets as JSON"`

	Query struct {
		Deps       bool       `long:"deps" description:"Print the transitive dependencies of the targets (the default)"`
		Dependents bool       `long:"dependents" description:"Print the targets in the repo that transitively depend on the targets"`
		Args       targetArgs `positional-args:"true"`
	} `command:"query" description:"Queries the dependency graph"`

	Watch struct {
		Args targetArgs `positional-args:"true"`
	} `command:"watch" description:"Watches the sources of the targets and regenerates ninja files whenever they change"`

	Clean struct {
		Args targetArgs `positional-args:"true"`
	} `command:"clean" description:"Removes generated files for the given targets, or the whole build directory if none are given"`

	Init struct {
		Force bool `long:"force" description:"Write the config file even if one already exists"`
		Local bool `long:"local" description:"Write any config overrides given with -o to the local config file"`
		Args  struct {
			Dir string `positional-arg-name:"dir" description:"Directory to create the config file in, defaults to the current directory"`
		} `positional-args:"true"`
	} `command:"init" description:"Initialises a .bladeconfig file in the current directory"`

	Version struct{} `command:"version" description:"Prints the version of blade"`
}

// commands are the implementations of each subcommand. They return true on success.
var commands = map[string]func(state *core.BuildState, initialDir string) bool{
	"build": func(state *core.BuildState, initialDir string) bool {
		keys := parse.LoadOrDie(state, parseTargets(opts.Build.Args.Targets, initialDir))
		if err := ninja.Write(state, keys); err != nil {
			log.Errorf("%s", err)
			return false
		}
		return true
	},
	"dump": func(state *core.BuildState, initialDir string) bool {
		keys := parse.LoadOrDie(state, parseTargets(opts.Dump.Args.Targets, initialDir))
		if err := query.Dump(os.Stdout, state, keys); err != nil {
			log.Errorf("%s", err)
			return false
		}
		return true
	},
	"query": func(state *core.BuildState, initialDir string) bool {
		requested := parseTargets(opts.Query.Args.Targets, initialDir)
		if !opts.Query.Dependents {
			keys, err := query.Deps(state, parse.LoadOrDie(state, requested))
			return printKeys(keys, err)
		}
		// Dependents can be anywhere, so the whole repo has to be loaded.
		all := core.TargetKey{Dir: core.RootDir, Name: core.AllSubpackagesName}
		parse.LoadOrDie(state, append(requested, all))
		keys := []core.TargetKey{}
		for _, key := range requested {
			keys = append(keys, state.Graph.Expand(key)...)
		}
		keys, err := query.Dependents(state, keys)
		return printKeys(keys, err)
	},
	"watch": func(state *core.BuildState, initialDir string) bool {
		keys := parse.LoadOrDie(state, parseTargets(opts.Watch.Args.Targets, initialDir))
		if err := ninja.Write(state, keys); err != nil {
			log.Errorf("%s", err)
		}
		if err := watch.Watch(context.Background(), state, keys, func() { runBuild(keys) }); err != nil {
			log.Errorf("%s", err)
			return false
		}
		return true
	},
	"clean": func(state *core.BuildState, initialDir string) bool {
		var err error
		if len(opts.Clean.Args.Targets) == 0 {
			err = clean.Clean(state)
		} else {
			err = clean.Targets(state, parse.LoadOrDie(state, parseTargets(opts.Clean.Args.Targets, initialDir)))
		}
		if err != nil {
			log.Errorf("%s", err)
			return false
		}
		return true
	},
}

// runBuild runs `blade build` for the given targets in a new process, so that it sees the
// BUILD files as they are now.
func runBuild(keys []core.TargetKey) {
	binary, err := os.Executable()
	if err != nil {
		log.Warning("Can't determine current executable, will assume 'blade'")
		binary = "blade"
	}
	args := []string{"build"}
	for k, v := range opts.Override {
		args = append(args, "-o", k+"="+v)
	}
	for _, key := range keys {
		args = append(args, "//"+key.String())
	}
	cmd := exec.Command(binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	log.Notice("Running %s %s...", binary, shellescape.QuoteCommand(args))
	if err := cmd.Run(); err != nil {
		// Only log the error if it's not a straightforward non-zero exit; the user will presumably
		// already have been pestered about that.
		if _, ok := err.(*exec.ExitError); !ok {
			log.Error("Failed to run %s: %s", binary, err)
		}
	}
}

// initRepo implements `blade init`, which runs before there's a repo to find.
func initRepo() bool {
	dir := opts.Init.Args.Dir
	if dir == "" {
		dir = "."
	}
	config, err := bladeinit.InitConfig(dir, opts.Init.Force)
	if err != nil {
		log.Errorf("%s", err)
		return false
	}
	if len(opts.Override) > 0 {
		if opts.Init.Local {
			config = filepath.Join(filepath.Dir(config), core.LocalConfigFileName)
		}
		if err := bladeinit.InitConfigFile(config, opts.Override); err != nil {
			log.Errorf("%s", err)
			return false
		}
	}
	fmt.Printf("Wrote %s\n", config)
	return true
}

// parseTargets converts the targets given on the command line, relative to the directory
// blade was run in, into keys.
func parseTargets(targets cli.StdinStrings, initialDir string) []core.TargetKey {
	args := targets.Get()
	if len(args) == 0 {
		args = []string{"."}
	}
	keys, err := core.ParseTargetKeys(args, initialDir)
	if err != nil {
		log.Fatalf("%s", err)
	}
	return keys
}

func printKeys(keys []core.TargetKey, err error) bool {
	if err == nil {
		err = query.Print(os.Stdout, keys)
	}
	if err != nil {
		log.Errorf("%s", err)
		return false
	}
	return true
}

// readConfigOrDie reads the config files at the repo root, applies any overrides from the
// command line and checks that this version of blade is acceptable to the repo.
func readConfigOrDie() *core.Configuration {
	config, err := core.ReadConfigFiles([]string{core.ConfigFileName, core.LocalConfigFileName})
	if err != nil {
		log.Fatalf("Error reading config file: %s", err)
	} else if err := config.ApplyOverrides(opts.Override); err != nil {
		log.Fatalf("Can't override requested config setting: %s", err)
	} else if err := config.CheckVersion(core.BladeVersion); err != nil {
		log.Fatalf("%s", err)
	}
	return config
}

func main() {
	start := time.Now()
	command := cli.ParseFlagsOrDie("blade", &opts)
	cli.InitLogging(opts.Verbosity)
	if opts.LogFile != "" {
		cli.InitFileLogging(opts.LogFile, opts.LogFileLevel, opts.Verbosity)
	}
	if command == "version" {
		fmt.Printf("blade version %s\n", core.BladeVersion)
		os.Exit(0)
	} else if command == "init" {
		if !initRepo() {
			os.Exit(1)
		}
		os.Exit(0)
	}
	if _, err := maxprocs.Set(maxprocs.Logger(log.Debug)); err != nil {
		log.Warning("Failed to set GOMAXPROCS: %s", err)
	}
	cli.HandleSignals()

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("%s", err)
	}
	root, initialDir := core.MustFindRepoRoot(wd)
	log.Debug("Found repo root at %s", root)
	// blade always runs from the repo root, so move there now.
	if err := os.Chdir(root); err != nil {
		log.Fatalf("%s", err)
	}

	state := core.NewBuildState(readConfigOrDie())
	state.RepoRoot = root
	metrics.InitFromConfig(state.Config)

	success := commands[command](state, initialDir)
	log.Info("Loaded %d targets from %d BUILD files in %s", state.Stats.TargetsAdded.Load(),
		state.Stats.BuildFiles.Load(), time.Since(start).Round(time.Millisecond))
	metrics.Record(state, time.Since(start))
	metrics.Push()
	cli.RunAtExitHandlers()
	if !success {
		os.Exit(1)
	}
}

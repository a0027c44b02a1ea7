// Utilities for reading the blade config files.

package core

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/shlex"
	"github.com/please-build/gcfg"
)

// ConfigFileName is the file name for the typical repo config - this is normally checked in.
// Its presence also marks the root of the repo.
const ConfigFileName string = ".bladeconfig"

// LocalConfigFileName is the file name for the local repo config - this is not normally checked in and used to
// override settings on the local machine.
const LocalConfigFileName string = ".bladeconfig.local"

// Values for the duplicatedsourceaction setting.
const (
	DuplicateSourceWarning = "warning"
	DuplicateSourceError   = "error"
	DuplicateSourceIgnore  = "none"
)

func readConfigFile(config *Configuration, filename string) error {
	if err := gcfg.ReadFileInto(config, filename); err != nil && os.IsNotExist(err) {
		return nil // It's not an error to not have the file at all.
	} else if err != nil {
		return err
	}
	log.Debug("Read config from %s", filename)
	return nil
}

// ReadConfigFiles reads a config file from the given locations, in order.
// Values are filled in by defaults initially and then overridden by each file in turn.
func ReadConfigFiles(filenames []string) (*Configuration, error) {
	config := DefaultConfiguration()
	for _, filename := range filenames {
		if err := readConfigFile(config, filename); err != nil {
			return config, err
		}
	}
	return config, config.validate()
}

// DefaultConfiguration returns the configuration used when nothing is overridden.
func DefaultConfiguration() *Configuration {
	config := Configuration{}
	config.Blade.BuildFileName = "BUILD"
	config.Blade.NumThreads = 8
	config.Global.DuplicatedSourceAction = DuplicateSourceWarning
	config.Global.TestTimeout = 600 // Ten minutes
	config.Global.BuildDir = "build64_release"
	config.Cc.Cc = "gcc"
	config.Cc.Cxx = "g++"
	config.Cc.Ar = "ar"
	config.Cc.Ld = "g++"
	config.Cc.CppFlags = "-pipe -Wall -O2"
	config.Metrics.Job = "blade"
	config.Metrics.PushTimeout = 5
	return &config
}

// A Configuration contains all the settings that can be configured about blade.
// This is parsed from .bladeconfig etc; we use git-config style files.
type Configuration struct {
	Blade struct {
		Version       string
		NumThreads    int
		BuildFileName string
	}
	Global struct {
		DuplicatedSourceAction string
		TestTimeout            int
		BuildDir               string
	}
	Cc struct {
		Cc              string
		Cxx             string
		Ar              string
		Ld              string
		CppFlags        string
		LinkFlags       string
		ImplicitDeps    []string
		GenerateDynamic bool
	}
	Metrics struct {
		PushGatewayURL string
		Job            string
		PushTimeout    int
		// Extra labels as name=command; the label's value is the output of the command.
		Label []string
	}
}

func (config *Configuration) validate() error {
	if config.Blade.NumThreads <= 0 {
		return fmt.Errorf("numthreads must be positive, was %d", config.Blade.NumThreads)
	}
	if config.Global.BuildDir == "" || strings.HasPrefix(config.Global.BuildDir, "/") {
		return fmt.Errorf("builddir must be a relative path, was %q", config.Global.BuildDir)
	}
	if _, err := shlex.Split(config.Cc.CppFlags); err != nil {
		return fmt.Errorf("Invalid cppflags: %w", err)
	}
	if _, err := shlex.Split(config.Cc.LinkFlags); err != nil {
		return fmt.Errorf("Invalid linkflags: %w", err)
	}
	for _, label := range config.Metrics.Label {
		if name, cmd, found := strings.Cut(label, "="); !found || name == "" || cmd == "" {
			return fmt.Errorf("Invalid metrics label %q, should be name=command", label)
		}
	}
	return nil
}

// CheckVersion returns an error if the given blade version doesn't satisfy the
// constraint in [blade] version, if one is set.
func (config *Configuration) CheckVersion(version string) error {
	if config.Blade.Version == "" {
		return nil
	}
	c, err := semver.NewConstraint(config.Blade.Version)
	if err != nil {
		return fmt.Errorf("Invalid version constraint %q: %w", config.Blade.Version, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("This repo requires blade %s, but this is version %s", config.Blade.Version, version)
	}
	return nil
}

// CppFlags returns the configured compiler flags, split as a shell would.
func (config *Configuration) CppFlags() []string {
	flags, _ := shlex.Split(config.Cc.CppFlags)
	return flags
}

// LinkFlags returns the configured linker flags, split as a shell would.
func (config *Configuration) LinkFlags() []string {
	flags, _ := shlex.Split(config.Cc.LinkFlags)
	return flags
}

// configField finds a field by section and key, matching case-insensitively as gcfg does.
func (config *Configuration) configField(section, key string) (reflect.Value, error) {
	match := func(s1 string) func(string) bool {
		return func(s2 string) bool {
			return strings.EqualFold(s1, s2)
		}
	}
	field := reflect.ValueOf(config).Elem().FieldByNameFunc(match(section))
	if !field.IsValid() {
		return field, fmt.Errorf("Unknown config section: %s", section)
	} else if field.Kind() != reflect.Struct {
		return field, fmt.Errorf("Unsettable config section: %s", section)
	}
	field = field.FieldByNameFunc(match(key))
	if !field.IsValid() {
		return field, fmt.Errorf("Unknown config field: %s.%s", section, key)
	}
	return field, nil
}

// GetConfigItem returns the value of a single setting.
func (config *Configuration) GetConfigItem(section, key string) (interface{}, error) {
	field, err := config.configField(section, key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// ApplyOverrides applies a set of overrides to the config.
// The keys of the given map are dot notation for the config setting.
func (config *Configuration) ApplyOverrides(overrides map[string]string) error {
	for k, v := range overrides {
		section, key, found := strings.Cut(k, ".")
		if !found {
			return fmt.Errorf("Bad option format: %s", k)
		}
		field, err := config.configField(section, key)
		if err != nil {
			return err
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(v)
		case reflect.Bool:
			v = strings.ToLower(v)
			// Mimics the set of truthy things gcfg accepts in our config file.
			field.SetBool(v == "true" || v == "yes" || v == "on" || v == "1")
		case reflect.Int:
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("Invalid value for an integer field: %s", v)
			}
			field.SetInt(int64(i))
		case reflect.Slice:
			// We only have to worry about slices of strings. Comma-separated values are accepted.
			field.Set(reflect.ValueOf(strings.Split(v, ",")))
		default:
			return fmt.Errorf("Can't override config field %s", k)
		}
	}
	return config.validate()
}

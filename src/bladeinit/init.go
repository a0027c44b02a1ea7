// Package bladeinit implements `blade init`, which sets up a new repo.
package bladeinit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/plzbuild/blade/src/cli/logging"
	"github.com/plzbuild/blade/src/core"
	"github.com/plzbuild/blade/src/fs"
)

var log = logging.Log

const configTemplate = `; blade config file
; Leaving this file as is is enough to use blade to build your project.
;
; Or you can uncomment the following to require a particular version of blade;
; anyone using an older one will be told to upgrade.
; [blade]
; version = >=%s
;
; [global]
; builddir = %s
; duplicatedsourceaction = warning
;
; [cc]
; cppflags = -pipe -Wall -O2
; implicitdeps = #pthread
`

// InitConfig writes a config template into the given directory, which becomes the root of a repo.
// It refuses to overwrite an existing config file unless force is set.
// If the directory is a git checkout, the build directory is added to its .gitignore.
func InitConfig(dir string, force bool) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	config := filepath.Join(dir, core.ConfigFileName)
	if !force && fs.FileExists(config) {
		return "", fmt.Errorf("%s already exists", config)
	} else if root, _, found := core.FindRepoRoot(filepath.Dir(dir)); found && !force {
		return "", fmt.Errorf("%s is already inside a blade repo at %s", dir, root)
	}
	defaults := core.DefaultConfiguration()
	contents := fmt.Sprintf(configTemplate, core.BladeVersion, defaults.Global.BuildDir)
	if err := fs.WriteFile(config, []byte(contents), 0644); err != nil {
		return "", fmt.Errorf("Failed to write file: %w", err)
	}
	log.Notice("Wrote config template to %s", config)
	if fs.PathExists(filepath.Join(dir, ".git")) {
		if err := ignore(filepath.Join(dir, ".gitignore"), "/"+defaults.Global.BuildDir); err != nil {
			return config, err
		}
	}
	return config, nil
}

// InitConfigFile sets a bunch of values in a config file, eg. .bladeconfig.local.
// The keys are in section.key form.
func InitConfigFile(filename string, options map[string]string) error {
	b, err := os.ReadFile(filename)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("Failed to read config file: %w", err)
	}
	for k, v := range options {
		section, key, found := strings.Cut(k, ".")
		if !found {
			return fmt.Errorf("unknown key format: %s", k)
		}
		b = append(b, []byte(fmt.Sprintf("[%s]\n%s = %s\n", section, key, v))...)
	}
	if err := fs.WriteFile(filename, b, 0644); err != nil {
		return fmt.Errorf("Failed to write updated config file: %w", err)
	}
	return nil
}

// ignore adds a line to an ignore file if it isn't already in it.
func ignore(filename, line string) error {
	if f, err := os.Open(filename); err == nil {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if strings.TrimSpace(scanner.Text()) == line {
				return nil
			}
		}
	}
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, line)
	log.Notice("Added %s to %s", line, filename)
	return err
}

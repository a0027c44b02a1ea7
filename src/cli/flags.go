// Package cli contains helper functions related to flag parsing and logging.
package cli

import (
	"fmt"
	"strings"

	cli "github.com/peterebden/go-cli-init/v5/flags"
	"github.com/thought-machine/go-flags"
)

// ParseFlagsOrDie parses the app's flags and dies if unsuccessful.
// Also dies if any unexpected arguments are passed.
// It returns the active command if there is one.
func ParseFlagsOrDie(appname string, data interface{}) string {
	return cli.ParseFlagsOrDie(appname, data, nil)
}

// ParseFlagsFromArgsOrDie is similar to ParseFlagsOrDie but allows control over the
// flags passed.
// It returns the active command if there is one.
func ParseFlagsFromArgsOrDie(appname string, data interface{}, args []string) string {
	return cli.ParseFlagsFromArgsOrDie(appname, data, args, nil)
}

// ConfigOverrides is used to implement completion on the -o flag.
// Each entry is of the form section.key=value.
type ConfigOverrides map[string]string

// UnmarshalFlag implements the flags.Unmarshaler interface.
func (overrides *ConfigOverrides) UnmarshalFlag(value string) error {
	k, v, found := strings.Cut(value, "=")
	if !found || !strings.Contains(k, ".") {
		return flagsError(fmt.Errorf("Bad config override %q, should be section.key=value", value))
	}
	if *overrides == nil {
		*overrides = ConfigOverrides{}
	}
	(*overrides)[strings.TrimSpace(k)] = strings.TrimSpace(v)
	return nil
}

// flagsError converts an error to a flags.Error, which is required for flag parsing.
func flagsError(err error) error {
	if err == nil {
		return nil
	}
	return &flags.Error{Type: flags.ErrMarshal, Message: err.Error()}
}

// Contains various utility functions related to logging.

package cli

import (
	"os"
	"path/filepath"
	"sync"

	cli "github.com/peterebden/go-cli-init/v5/logging"
	"golang.org/x/term"
	"gopkg.in/op/go-logging.v1"

	logger "github.com/plzbuild/blade/src/cli/logging"
)

var log = logger.Log

// StdErrIsATerminal is true if the process' stderr is an interactive TTY.
var StdErrIsATerminal = IsATerminal(os.Stderr)

// ShowColouredOutput tracks whether we are displaying coloured output or not.
var ShowColouredOutput = StdErrIsATerminal

// A Verbosity is used as a flag to define logging verbosity.
type Verbosity = cli.Verbosity

// MinVerbosity is the minimum verbosity we support.
const MinVerbosity = cli.MinVerbosity

// MaxVerbosity is the maximum verbosity we support.
const MaxVerbosity = cli.MaxVerbosity

var fileBackend logging.Backend
var fileLogLevel = logging.WARNING

var atExit struct {
	funcs []func()
	mutex sync.Mutex
}

// InitLogging initialises logging backends.
func InitLogging(verbosity Verbosity) {
	setLogBackend(logging.NewLogBackend(os.Stderr, "", 0), logging.Level(verbosity))
}

// InitFileLogging initialises an optional logging backend to a file.
// It must be called after InitLogging so the stderr backend keeps its level.
func InitFileLogging(logFile string, logFileLevel, verbosity Verbosity) {
	fileLogLevel = logging.Level(logFileLevel)
	if err := os.MkdirAll(filepath.Dir(logFile), os.ModeDir|0775); err != nil {
		log.Fatalf("Error creating log file directory: %s", err)
	}
	file, err := os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		log.Fatalf("Error opening log file: %s", err)
	}
	fileBackend = logging.NewBackendFormatter(logging.NewLogBackend(file, "", 0), logFormatter(false))
	setLogBackend(logging.NewLogBackend(os.Stderr, "", 0), logging.Level(verbosity))
	AtExit(func() {
		file.Close()
	})
}

func logFormatter(coloured bool) logging.Formatter {
	formatStr := "%{time:15:04:05.000} %{level:7s}: %{message}"
	if coloured {
		formatStr = "%{color}" + formatStr + "%{color:reset}"
	}
	return logging.MustStringFormatter(formatStr)
}

func setLogBackend(backend logging.Backend, level logging.Level) {
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, logFormatter(ShowColouredOutput)))
	leveled.SetLevel(level, "")
	if fileBackend == nil {
		log.SetBackend(leveled)
		return
	}
	fileLeveled := logging.AddModuleLevel(fileBackend)
	fileLeveled.SetLevel(fileLogLevel, "")
	log.SetBackend(logging.AddModuleLevel(logging.MultiLogger(leveled, fileLeveled)))
}

// AtExit registers a function to be run at process exit, via RunAtExitHandlers.
func AtExit(f func()) {
	atExit.mutex.Lock()
	defer atExit.mutex.Unlock()
	atExit.funcs = append(atExit.funcs, f)
}

// RunAtExitHandlers runs everything registered with AtExit, most recent first.
func RunAtExitHandlers() {
	atExit.mutex.Lock()
	defer atExit.mutex.Unlock()
	for i := len(atExit.funcs) - 1; i >= 0; i-- {
		atExit.funcs[i]()
	}
	atExit.funcs = nil
}

// IsATerminal returns true if the given file is an interactive TTY.
func IsATerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}

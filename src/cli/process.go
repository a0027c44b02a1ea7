package cli

import (
	"os"
	"os/signal"
	"syscall"
)

// HandleSignals starts waiting for a terminating signal from the OS, at which point it runs anything
// registered with AtExit (eg. flushing the log file) and exits the process.
func HandleSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	go func() {
		sig := <-ch
		log.Info("Received signal %s", sig)
		// Allow a second signal to terminate the process regardless
		done := make(chan struct{})
		go func() {
			RunAtExitHandlers()
			close(done)
		}()
		select {
		case <-done:
		case sig = <-ch:
			log.Warning("Received second signal %s, aborting", sig)
		}
		exit(sig)
	}()
}

// exit kills the process with an exit code suitable for the given signal.
func exit(sig os.Signal) {
	if s, ok := sig.(syscall.Signal); ok {
		os.Exit(128 + int(s))
	}
	os.Exit(1)
}

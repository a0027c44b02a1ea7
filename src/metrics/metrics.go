// Package metrics contains support for reporting metrics to an external server,
// currently a Prometheus pushgateway. Because blade runs as a transient process
// we can't wait around for Prometheus to call us, we've got to push to them.
package metrics

import (
	"fmt"
	"os/exec"
	"os/user"
	"runtime"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/plzbuild/blade/src/cli/logging"
	"github.com/plzbuild/blade/src/core"
)

var log = logging.Log

type metrics struct {
	url, job string
	timeout  time.Duration
	registry *prometheus.Registry

	buildFiles, systemLibs, rules, fragments prometheus.Counter
	targets                                  *prometheus.CounterVec
	duration                                 prometheus.Histogram
}

// m is the singleton metrics instance.
var m *metrics

// InitFromConfig sets up the metrics from the configuration. Nothing is recorded unless a
// pushgateway is configured.
func InitFromConfig(config *core.Configuration) {
	if config.Metrics.PushGatewayURL == "" {
		return
	}
	labels, err := customLabels(config.Metrics.Label)
	if err != nil {
		log.Fatalf("%s", err)
	}
	m = newMetrics(config.Metrics.PushGatewayURL, config.Metrics.Job, time.Duration(config.Metrics.PushTimeout)*time.Second, labels)
}

// newMetrics initialises a new metrics instance.
func newMetrics(url, job string, timeout time.Duration, customLabels map[string]string) *metrics {
	u, err := user.Current()
	if err != nil {
		log.Warning("Can't determine current user name for metrics")
		u = &user.User{Username: "unknown"}
	}
	constLabels := prometheus.Labels{
		"user": u.Username,
		"arch": runtime.GOOS + "_" + runtime.GOARCH,
	}
	for k, v := range customLabels {
		constLabels[k] = v
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help, ConstLabels: constLabels})
	}

	ret := &metrics{
		url:        url,
		job:        job,
		timeout:    timeout,
		registry:   prometheus.NewRegistry(),
		buildFiles: counter("build_files_loaded", "Count of BUILD files parsed"),
		systemLibs: counter("system_libraries", "Count of system libraries referenced"),
		rules:      counter("rules_generated", "Count of targets whose rules were generated"),
		fragments:  counter("ninja_fragments_written", "Count of ninja fragments rewritten because their target changed"),
		// Count of targets loaded, by type
		targets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "targets_loaded",
			Help:        "Count of targets loaded from BUILD files",
			ConstLabels: constLabels,
		}, []string{"type"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "run_durations_histogram",
			Help:        "Durations of blade invocations",
			Buckets:     prometheus.ExponentialBuckets(0.01, 2, 16),
			ConstLabels: constLabels,
		}),
	}
	ret.registry.MustRegister(ret.buildFiles, ret.systemLibs, ret.rules, ret.fragments, ret.targets, ret.duration)
	return ret
}

// Record records the statistics of a finished run. It's a no-op if metrics aren't configured.
func Record(state *core.BuildState, duration time.Duration) {
	if m != nil {
		m.record(state, duration)
	}
}

func (m *metrics) record(state *core.BuildState, duration time.Duration) {
	m.buildFiles.Add(float64(state.Stats.BuildFiles.Load()))
	m.systemLibs.Add(float64(state.Stats.SystemLibs.Load()))
	m.rules.Add(float64(state.Stats.RulesGenerated.Load()))
	m.fragments.Add(float64(state.Stats.FragmentsWritten.Load()))
	for _, target := range state.Graph.AllTargets() {
		if !target.IsSystemLibrary() {
			m.targets.WithLabelValues(target.Type).Inc()
		}
	}
	m.duration.Observe(duration.Seconds())
}

// Push sends everything recorded to the pushgateway. Failures are only logged; metrics
// aren't important enough to fail the run for.
func Push() {
	if m != nil {
		if err := m.push(); err != nil {
			log.Warning("Could not push metrics: %s", err)
		}
	}
}

func (m *metrics) push() error {
	start := time.Now()
	if err := deadline(func() error {
		return push.New(m.url, m.job).Gatherer(m.registry).Add()
	}, m.timeout); err != nil {
		return err
	}
	log.Debug("Pushed metrics in %0.3fs", time.Since(start).Seconds())
	return nil
}

// deadline applies a deadline to an arbitrary function and returns when either the function
// completes or the deadline expires.
func deadline(f func() error, timeout time.Duration) error {
	c := make(chan error, 1)
	go func() {
		c <- f()
	}()
	select {
	case err := <-c:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("Metrics push timed out")
	}
}

// customLabels derives the values of the configured extra labels by running their commands.
func customLabels(labels []string) (map[string]string, error) {
	ret := make(map[string]string, len(labels))
	for _, label := range labels {
		name, cmd, _ := strings.Cut(label, "=")
		value, err := deriveLabelValue(cmd)
		if err != nil {
			return nil, err
		}
		ret[name] = value
	}
	return ret, nil
}

// deriveLabelValue runs a command and returns its output.
func deriveLabelValue(cmd string) (string, error) {
	parts, err := shlex.Split(cmd)
	if err != nil {
		return "", fmt.Errorf("Invalid custom metric command [%s]: %s", cmd, err)
	} else if len(parts) == 0 {
		return "", fmt.Errorf("Empty custom metric command")
	}
	log.Debug("Running custom label command: %s", cmd)
	b, err := exec.Command(parts[0], parts[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("Custom metric command [%s] failed: %s", cmd, err)
	}
	value := strings.TrimSpace(string(b))
	if strings.Contains(value, "\n") {
		return "", fmt.Errorf("Return value of custom metric command [%s] contains newlines: %s", cmd, value)
	}
	return value, nil
}

package logging

import (
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects process identity, storage targets, and effective
// configuration, then emits a single structured zerolog event before a run
// begins. One event shows exactly how a run was configured when
// troubleshooting from shipped logs.
type StartupLogger struct {
	name string

	buckets  map[string]string
	paths    map[string]string
	features map[string]bool
	config   map[string]string
}

// NewStartupLogger creates a StartupLogger for the given command name
// (e.g. "sync", "status").
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:     name,
		buckets:  make(map[string]string),
		paths:    make(map[string]string),
		features: make(map[string]bool),
		config:   make(map[string]string),
	}
}

// Bucket registers an object-store bucket or key prefix used by this run.
func (s *StartupLogger) Bucket(label, value string) *StartupLogger {
	s.buckets[label] = value
	return s
}

// Path registers a local or NAS filesystem root used by this run.
func (s *StartupLogger) Path(label, value string) *StartupLogger {
	s.paths[label] = value
	return s
}

// Feature registers a boolean feature flag (e.g. "sidecars", "rateLimit").
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// EnvOrDefault returns the value of the named environment variable, or
// defaultVal if the variable is empty or unset.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

// Log emits a single structured INFO event with all collected information.
func (s *StartupLogger) Log() {
	evt := log.Info()

	host, _ := os.Hostname()
	processDict := zerolog.Dict().
		Str("name", s.name).
		Str("host", host).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", os.Getenv("RAGSYNC_LOG_LEVEL"))
	evt = evt.Dict("process", processDict)

	if len(s.buckets) > 0 {
		evt = evt.Dict("objectStore", dictFromMap(s.buckets))
	}
	if len(s.paths) > 0 {
		evt = evt.Dict("paths", dictFromMap(s.paths))
	}
	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}
	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}

	evt.Msg("Startup complete")
}

// dictFromMap converts a map[string]string into a zerolog.Event (Dict).
func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}

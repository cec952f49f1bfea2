// Package config centralizes dpatch's configuration points: the
// patch-script path, the apply worker's idle poll interval, and logging
// verbosity. The patch signal is not configurable here; it is fixed in
// cmd/dpatchaudit.
//
// Uses github.com/xyproto/env/v2 for reading optional environment
// overrides, following that package's "typed getter with a variadic
// fallback default" convention.
package config

import (
	"time"

	env "github.com/xyproto/env/v2"
)

// Defaults for every configuration point the apply worker needs.
const (
	// DefaultScriptPath is the compile-time-constant script location:
	// a fixed string, treated as a configuration point.
	DefaultScriptPath = "./test.patch"

	// DefaultIdlePoll is how long the apply worker sleeps between checks
	// of the pending-patch flag while idle.
	DefaultIdlePoll = 1 * time.Second
)

// Config holds the resolved configuration for one engine instance.
type Config struct {
	// ScriptPath is the patch script read on every apply cycle.
	ScriptPath string

	// IdlePoll is the apply worker's IDLE-state polling interval.
	IdlePoll time.Duration

	// Verbose enables diagnostic (non-error) logging.
	Verbose bool
}

// FromEnvironment builds a Config from DPATCH_* environment variables,
// falling back to the defaults above when unset.
func FromEnvironment() Config {
	return Config{
		ScriptPath: env.Str("DPATCH_SCRIPT_PATH", DefaultScriptPath),
		IdlePoll:   env.Duration("DPATCH_IDLE_POLL", DefaultIdlePoll),
		Verbose:    env.Bool("DPATCH_VERBOSE"),
	}
}

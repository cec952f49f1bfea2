// Package dlog is dpatch's log sink: an opaque "level plus string" target
// rather than a full logging framework.
//
// No structured-logging library involved, just a package-level verbosity
// switch gating fmt.Fprintf(os.Stderr, ...) calls, the same idiom
// errors.go, emit.go, and hotreload_unix.go each use with their own
// VerboseMode bool. dlog.Verbose plays that role here.
package dlog

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Verbose gates Infof output. Errorf and Warnf always print: an operator
// running a process patcher wants to see failures regardless of verbosity.
var Verbose = false

var (
	mu  sync.Mutex
	out io.Writer = os.Stderr
)

// SetOutput redirects dlog's output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func write(prefix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, prefix+format+"\n", args...)
}

// Errorf logs an unconditional error-level line.
func Errorf(format string, args ...any) {
	write("dpatch: error: ", format, args...)
}

// Warnf logs an unconditional warning-level line.
func Warnf(format string, args ...any) {
	write("dpatch: warning: ", format, args...)
}

// Infof logs a diagnostic line only when Verbose is set.
func Infof(format string, args ...any) {
	if !Verbose {
		return
	}
	write("dpatch: ", format, args...)
}

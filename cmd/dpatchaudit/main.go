// Command dpatchaudit is the shared-object entry point described in
// spec.md §6 "Injection surface": built with `go build -buildmode=c-shared`,
// it is loaded by the dynamic linker as an auditing collaborator (the
// LD_AUDIT mechanism on a glibc host) and exports the two C symbols the
// loader calls directly, la_version and la_preinit.
//
// The rest of the engine — symbol resolution, signal handling, the apply
// worker — lives in internal/ and is exercised from there in ordinary Go
// tests; this file's only job is ABI glue, kept as thin as the teacher
// keeps its own platform-shim files (see hotreload_unix.go).
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"os"
	"syscall"

	"github.com/xyproto/dpatch/internal/config"
	"github.com/xyproto/dpatch/internal/dlog"
	"github.com/xyproto/dpatch/internal/engine"
	"github.com/xyproto/dpatch/internal/symtab"
)

// builtAgainstVersion is the audit-API version this collaborator was
// built against (§4.I step 1). glibc's rtld currently defines LAV_CURRENT
// as 1; a real loader passes its own LAV_CURRENT to la_version for
// negotiation.
const builtAgainstVersion = 1

// patchSignal is the dedicated operator signal named PATCH_SIGNAL at
// spec level (§6 "Signal contract"). SIGUSR1 is the conventional choice
// for this kind of out-of-band, non-fatal operator request, matching the
// teacher's own hotreload_unix.go.
var patchSignal os.Signal = syscall.SIGUSR1

// stopLoop holds the function InstallSignalHandler returns, which stops the
// signal-notification goroutine (it does not stop the apply loop). No
// loader invokes an orderly-shutdown hook, so it is never called.
var stopLoop func()

//export la_version
func la_version(version C.uint) C.uint {
	negotiated, ok := negotiateVersion(uint(version))
	if !ok {
		dlog.Errorf("audit ABI mismatch: host version %d, built against %d", uint(version), builtAgainstVersion)
		os.Exit(1)
	}
	return C.uint(negotiated)
}

// negotiateVersion implements the version check in a plain Go function so
// it can be unit tested without a cgo build: spec.md §4.I step 1 requires
// termination on any mismatch rather than the more permissive
// "accept anything <= ours" negotiation real glibc rtld audit modules
// typically perform (see SPEC_FULL.md's Open Questions).
func negotiateVersion(hostVersion uint) (builtAgainst uint, ok bool) {
	if hostVersion != builtAgainstVersion {
		return 0, false
	}
	return builtAgainstVersion, true
}

//export la_preinit
func la_preinit(cookie *C.uintptr_t) {
	// cookie identifies the audited object to the loader; this
	// collaborator has no per-object state to key off it (§6: "a loader
	// cookie (unused)").
	_ = cookie

	cfg := config.FromEnvironment()
	dlog.Verbose = cfg.Verbose

	w := engine.NewWorker(cfg, symtab.New())
	stopLoop = engine.InstallSignalHandler(w, patchSignal)

	stop := make(chan struct{})
	go w.Loop(stop)

	dlog.Infof("dpatch audit collaborator initialized (script=%q, idle_poll=%v, signal=%v)",
		cfg.ScriptPath, cfg.IdlePoll, patchSignal)
}

func main() {}

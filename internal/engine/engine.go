// Package engine implements the apply worker state machine: a single
// long-lived worker that sleeps while idle, wakes when a signal sets the
// pending-patch flag, and runs exactly one patch-script parse-and-apply
// cycle per wake. The signal handler itself does only async-signal-safe
// work — see InstallSignalHandler.
package engine

import (
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/xyproto/dpatch/internal/config"
	"github.com/xyproto/dpatch/internal/dlog"
	"github.com/xyproto/dpatch/internal/patch"
	"github.com/xyproto/dpatch/internal/script"
	"github.com/xyproto/dpatch/internal/status"
)

// Worker is the apply worker: one pending-patch flag (process-wide in
// spirit, though scoped to a Worker instance here rather than a bare
// package global, so tests can run several in isolation) plus the
// idle/apply loop that drains it.
type Worker struct {
	cfg      config.Config
	resolver patch.Resolver

	// pending is the sole communication channel from the signal-notify
	// goroutine into the apply loop. An atomic.Bool gives the
	// release/acquire visibility that boundary requires; a plain bool
	// read and written from two goroutines without synchronization would
	// be a data race.
	pending atomic.Bool

	// applyFunc performs one APPLY-state cycle. It defaults to parsing
	// cfg.ScriptPath and applying the resulting set against resolver;
	// tests substitute a stub to observe how many times APPLY ran without
	// needing a real patch script or real resolvable symbols.
	applyFunc func() status.Status
}

// NewWorker constructs a Worker that applies patches resolved through r
// using the script path and idle interval from cfg.
func NewWorker(cfg config.Config, r patch.Resolver) *Worker {
	w := &Worker{cfg: cfg, resolver: r}
	w.applyFunc = w.defaultApply
	return w
}

// RequestApply sets the pending-patch flag. Safe to call concurrently and
// from a signal-notify goroutine; this is the only state InstallSignalHandler
// is allowed to touch.
func (w *Worker) RequestApply() {
	w.pending.Store(true)
}

func (w *Worker) defaultApply() status.Status {
	set, st := script.Parse(w.cfg.ScriptPath)
	if st != status.OK {
		dlog.Errorf("apply cycle: could not parse patch script: %v", st)
		return st
	}
	st = set.Apply(w.resolver)
	if st != status.OK {
		dlog.Errorf("apply cycle: patch set application failed: %v", st)
		return st
	}
	dlog.Infof("apply cycle: %d patch(es) applied successfully", set.Len())
	return status.OK
}

// idlePoll returns the configured idle interval, or the package default
// if the config left it unset.
func (w *Worker) idlePoll() time.Duration {
	if w.cfg.IdlePoll > 0 {
		return w.cfg.IdlePoll
	}
	return config.DefaultIdlePoll
}

// Loop runs the idle/apply state machine until stop is closed. On each
// idle-interval tick it atomically tests-and-clears the pending flag;
// clearing happens before the apply cycle runs, so any signal that arrives
// during that cycle is coalesced into exactly one subsequent apply — N
// arrivals during one apply cause exactly one more, not N more — rather
// than being lost or queuing up.
func (w *Worker) Loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.idlePoll())
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if w.pending.CompareAndSwap(true, false) {
				w.applyFunc()
			}
		}
	}
}

// InstallSignalHandler arranges for sig delivered to this process to call
// w.RequestApply. The returned stop function tears down the notification
// goroutine and must be called to release the signal channel.
//
// The notify-goroutine intentionally holds to a strict signal handler
// contract even though Go's runtime already guarantees it is not itself
// running in restricted async-signal-handler context: it asserts nothing
// beyond receiving the expected signal, logs one line, and sets the flag —
// no parsing, no allocation beyond what fmt.Fprintf needs for that log
// line.
func InstallSignalHandler(w *Worker, sig os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				dlog.Infof("patch signal received")
				w.RequestApply()
			case <-done:
				signal.Stop(ch)
				return
			}
		}
	}()
	return func() { close(done) }
}

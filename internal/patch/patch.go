// Package patch implements a single rewrite operation: a tuple of
// (kind, old symbol, new symbol) that, when applied, resolves both symbols
// against the live symbol table of the target and mutates executable
// memory to redirect calls from one to the other.
package patch

import (
	"debug/elf"

	"github.com/xyproto/dpatch/internal/codegen"
	"github.com/xyproto/dpatch/internal/dlog"
	"github.com/xyproto/dpatch/internal/machinecode"
	"github.com/xyproto/dpatch/internal/memprotect"
	"github.com/xyproto/dpatch/internal/snapshot"
	"github.com/xyproto/dpatch/internal/status"
)

// Kind is the closed set of patch operations a Patch may perform.
type Kind int

const (
	// ReplaceFunctionInternal replaces calls to Old with calls to New. Both
	// symbols must be resident in the target image.
	ReplaceFunctionInternal Kind = iota

	// Nop performs no mutation and always succeeds.
	Nop

	// Unrecognized is not a real operation. script.Parse assigns it to any
	// op token it does not recognize, instead of rejecting the line itself:
	// spec.md §4.H scopes Syntax to token-count/line-length violations, and
	// §8 scenario 4 requires an unrecognized operation to surface as
	// Unknown once applied, matching patch_set.c/patch.c's patch_apply,
	// whose default arm falls through to DPATCH_STATUS_EUNKNOWN for any
	// unrecognized kind rather than rejecting it at parse time.
	Unrecognized
)

// Resolver resolves a symbol name to its live address in the target
// process, satisfied by *symtab.Resolver. Expressed as an interface here
// (rather than importing symtab directly) so patch has no dependency on
// how resolution happens — patchset and engine pass a Resolver through,
// and only cmd/dpatchaudit chooses the concrete implementation.
type Resolver interface {
	Resolve(name string) (uintptr, status.Status)
}

// Patch is a single symbolic rewrite operation. The zero value is not
// meaningful; construct with New.
type Patch struct {
	Kind Kind
	Old  string
	New  string
}

// New constructs a Patch, copying the symbol name strings as the C
// original's patch_new/patch_add_operation pair does explicitly with
// malloc+strcpy — in Go, assigning a string already copies the header and
// the backing bytes are immutable, so no further action is needed, but the
// copy is still made here (not aliased from caller-owned buffers) to keep
// Patch a self-contained value type that does not alias caller state.
func New(kind Kind, old, newSym string) *Patch {
	return &Patch{Kind: kind, Old: string([]byte(old)), New: string([]byte(newSym))}
}

// Apply dispatches on kind and performs the configured mutation (§4.F).
func (p *Patch) Apply(r Resolver) status.Status {
	switch p.Kind {
	case ReplaceFunctionInternal:
		return p.applyReplaceFunctionInternal(r)
	case Nop:
		return status.OK
	default:
		dlog.Errorf("patch %s -> %s: unrecognized operation kind %v", p.Old, p.New, p.Kind)
		return status.Unknown
	}
}

func (p *Patch) applyReplaceFunctionInternal(r Resolver) status.Status {
	from, st := r.Resolve(p.Old)
	if st != status.OK {
		dlog.Errorf("patch %s -> %s: could not resolve old symbol: %v", p.Old, p.New, st)
		return status.Dyn
	}
	to, st := r.Resolve(p.New)
	if st != status.OK {
		dlog.Errorf("patch %s -> %s: could not resolve new symbol: %v", p.Old, p.New, st)
		return status.Dyn
	}

	if vaddr, ok := ownSymbolVaddr(p.Old); ok {
		// The prologue is always at least readable (it is about to be
		// executed), so a plain copy needs no protection change of its own.
		live := append([]byte(nil), memprotect.BytesAt(from, snapshotLen)...)
		snapshot.CheckDrift("/proc/self/exe", p.Old, vaddr, live)
	}

	buf := machinecode.New()
	if st := codegen.AppendLongJump(codegen.X86_64, buf, to); st != status.OK {
		dlog.Errorf("patch %s -> %s: could not emit long jump: %v", p.Old, p.New, st)
		return st
	}
	if st := buf.WriteTo(from); st != status.OK {
		dlog.Errorf("patch %s -> %s: could not write machine code: %v", p.Old, p.New, st)
		return st
	}
	dlog.Infof("patch applied: %s (0x%x) -> %s (0x%x)", p.Old, from, p.New, to)
	return status.OK
}

// snapshotLen is the longest byte sequence this engine ever writes (the
// absolute long jump, §4.C), so it is always enough to compare against.
const snapshotLen = 14

// ownSymbolVaddr looks up old's link-time virtual address directly (rather
// than through Resolver, which returns a load-biased runtime address) so
// snapshot.CheckDrift can locate the matching bytes on disk. Best-effort:
// any failure here just skips the diagnostic, it never blocks the patch.
func ownSymbolVaddr(name string) (uint64, bool) {
	f, err := elf.Open("/proc/self/exe")
	if err != nil {
		return 0, false
	}
	defer f.Close()
	syms, err := f.Symbols()
	if err != nil {
		return 0, false
	}
	for _, s := range syms {
		if s.Name == name {
			return s.Value, true
		}
	}
	return 0, false
}

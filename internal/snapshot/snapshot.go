// Package snapshot adds a pre-patch diagnostic that is absent from every
// revision of the original C source: before a patch overwrites a symbol's
// prologue, compare the bytes about to be overwritten against the symbol's
// original on-disk bytes, and log if they already differ (meaning an
// earlier patch, or something else, already touched this address).
//
// The original source writes blind: it never inspects what it is about to
// clobber. Since an already-applied patch cannot be rolled back (spec.md
// §4.F, §4.G), and partial application is an explicitly accepted risk
// (§7), giving the operator a chance to notice "this was not what I
// expected to overwrite" in the log before committing is a strict
// improvement with no effect on apply semantics.
//
// Grounded in github.com/edsrzf/mmap-go, pulled from the go-interpreter/wagon
// example pack (exec/native_compile_nogae.go builds its native compiler
// around an executable-page allocator; mmap-go is the library wagon's
// go.mod names for that concern). Here it maps the running binary's own
// file read-only to recover a symbol's original bytes, rather than mapping
// fresh executable pages — a different use of the same primitive.
package snapshot

import (
	"bytes"
	"debug/elf"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/xyproto/dpatch/internal/dlog"
)

// CheckDrift compares the length bytes currently live at a symbol's runtime
// address against that symbol's bytes as they appear on disk in exePath,
// and logs (but never fails) if they differ. vaddr is the symbol's
// link-time virtual address (elf.Symbol.Value) before any load-bias
// adjustment, matching what symtab resolves symbols against internally.
func CheckDrift(exePath string, symbolName string, vaddr uint64, live []byte) {
	original, ok := originalBytes(exePath, vaddr, len(live))
	if !ok {
		// Nothing to compare against; not an error, just nothing to report.
		return
	}
	if !bytes.Equal(original, live) {
		dlog.Warnf("symbol %q: live bytes at patch site differ from on-disk original (%x vs %x) — a prior mutation may already be in effect", symbolName, live, original)
	}
}

// originalBytes reads length bytes at file offset vaddr's containing
// section from exePath via a read-only mmap, returning false if the file
// cannot be opened/mapped or the address does not fall inside any section
// with file backing (e.g. .bss).
func originalBytes(exePath string, vaddr uint64, length int) ([]byte, bool) {
	f, err := os.Open(exePath)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	ef, err := elf.NewFile(f)
	if err != nil {
		return nil, false
	}

	var section *elf.Section
	for _, s := range ef.Sections {
		if s.Addr == 0 {
			continue
		}
		if vaddr >= s.Addr && vaddr+uint64(length) <= s.Addr+s.Size {
			section = s
			break
		}
	}
	if section == nil || section.Type == elf.SHT_NOBITS {
		return nil, false
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, false
	}
	defer m.Unmap()

	fileOffset := section.Offset + (vaddr - section.Addr)
	if fileOffset+uint64(length) > uint64(len(m)) {
		return nil, false
	}

	out := make([]byte, length)
	copy(out, m[fileOffset:fileOffset+uint64(length)])
	return out, true
}

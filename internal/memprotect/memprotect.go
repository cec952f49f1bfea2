// Package memprotect implements a page-protection shim: changing the
// protection of an arbitrary address range by rounding it out to whole
// pages, since mprotect itself only accepts page-aligned start addresses
// and whole-page extents.
//
// Grounded in the same text-segment mutation path hotreload_unix.go
// follows (it allocates executable pages with a raw
// syscall.Syscall6(syscall.SYS_MMAP, ...) and frees them with
// syscall.SYS_MUNMAP); here we go one step further and reach for
// golang.org/x/sys/unix for a typed Mprotect instead of hand-rolling the
// raw syscall numbers a second time.
package memprotect

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/xyproto/dpatch/internal/status"
)

// Protection mode bits, mirroring the POSIX PROT_* flags accepted by
// mprotect(2).
const (
	ProtRead  = unix.PROT_READ
	ProtWrite = unix.PROT_WRITE
	ProtExec  = unix.PROT_EXEC
	ProtNone  = unix.PROT_NONE
)

// pageSize is queried once, matching §4.D's "page size is queried once."
var pageSize = unix.Getpagesize()

// PageSize returns the host's page size in bytes.
func PageSize() int {
	return pageSize
}

// ProtectRange changes the page-protection of the region [addr, addr+length)
// to mode. Because mprotect requires page-aligned starts and whole-page
// extents, the delta between addr and the containing page's start is
// subtracted from addr and added to length before the underlying call.
//
// After a successful return every byte in the requested range has the
// requested protection. After a failure, protection is left unchanged by
// this function (mprotect itself is all-or-nothing on Linux).
func ProtectRange(addr uintptr, length int, mode int) status.Status {
	if pageSize <= 0 {
		return status.Error
	}
	delta := int(addr) % pageSize
	base := addr - uintptr(delta)
	rounded := length + delta
	// Round the extent up to a whole number of pages too: a range that
	// starts mid-page and ends mid-page in the next one still needs both
	// pages covered.
	if rem := rounded % pageSize; rem != 0 {
		rounded += pageSize - rem
	}
	region := unsafe.Slice((*byte)(unsafe.Pointer(base)), rounded)
	if err := unix.Mprotect(region, mode); err != nil {
		return status.MProt
	}
	return status.OK
}

// BytesAt returns a []byte aliasing length bytes of process memory starting
// at address. The caller is responsible for having already made that range
// accessible with the intended protection (typically via ProtectRange).
//
// This is the flat-address-space cast this whole engine depends on:
// converting a plain integer address into a usable memory reference. It is
// not portable and is not meant to be.
func BytesAt(address uintptr, length int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(address)), length)
}

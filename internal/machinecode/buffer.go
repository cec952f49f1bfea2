// Package machinecode implements a growable byte buffer representing an
// instruction stream, and the machinery for writing it into a live process's
// executable memory.
//
// Modeled on SafeBuffer (safe_buffer.go): an owned, explicitly
// lifecycle-managed wrapper rather than a bare []byte, so that "has this
// buffer already been written out" stays an explicit, checkable state
// instead of something the caller has to track by convention.
package machinecode

import (
	"fmt"

	"github.com/xyproto/dpatch/internal/memprotect"
	"github.com/xyproto/dpatch/internal/status"
)

const defaultCapacity = 8

// Buffer is a growable sequence of bytes with an amortized-doubling
// capacity policy (§4.B). It is created empty by New, mutated only by
// Append/AppendBytes, and handed to WriteTo exactly once the instruction
// stream is complete. The zero value is not usable; always go through New.
type Buffer struct {
	data      []byte
	length    int
	committed bool
}

// New allocates an empty Buffer with initial capacity 8.
func New() *Buffer {
	return &Buffer{data: make([]byte, defaultCapacity)}
}

// Len reports the current byte count.
func (b *Buffer) Len() int {
	return b.length
}

// Cap reports the current backing capacity. Exposed for growth-policy
// tests; not part of the conceptual buffer contract.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Bytes returns the buffer's contents. The returned slice aliases the
// buffer's backing storage and must not be retained past the next mutation.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.length]
}

func (b *Buffer) grow() {
	newCap := len(b.data) * 2
	if newCap == 0 {
		newCap = defaultCapacity
	}
	grown := make([]byte, newCap)
	copy(grown, b.data[:b.length])
	b.data = grown
}

// Append writes a single byte at the current length, growing the backing
// storage (by doubling) first if the buffer is at capacity.
func (b *Buffer) Append(by byte) status.Status {
	if b.committed {
		panic("machinecode: Append on a buffer already written out")
	}
	if b.length == len(b.data) {
		b.grow()
	}
	b.data[b.length] = by
	b.length++
	return status.OK
}

// AppendBytes appends each element of bs in order, equivalent to calling
// Append once per byte.
func (b *Buffer) AppendBytes(bs []byte) status.Status {
	for _, by := range bs {
		if st := b.Append(by); st != status.OK {
			return st
		}
	}
	return status.OK
}

// WriteTo copies the entire buffer to address in the current process,
// bracketed by protection changes (§4.D). After a successful return the
// Len() bytes starting at address equal the buffer's contents and the
// region is executable with write disabled.
func (b *Buffer) WriteTo(address uintptr) status.Status {
	if b.length == 0 {
		return status.OK
	}
	if st := memprotect.ProtectRange(address, b.length, memprotect.ProtRead|memprotect.ProtWrite|memprotect.ProtExec); st != status.OK {
		return st
	}
	dst := memprotect.BytesAt(address, b.length)
	copy(dst, b.data[:b.length])
	b.committed = true
	if st := memprotect.ProtectRange(address, b.length, memprotect.ProtRead|memprotect.ProtExec); st != status.OK {
		// Per §4.D/§7: the affected region's protection is undefined on
		// failure here. The write already landed; propagate the status so
		// the caller can log it loudly.
		return st
	}
	return status.OK
}

// String renders the buffer as a space-separated hex dump, for diagnostics.
func (b *Buffer) String() string {
	s := ""
	for i, by := range b.data[:b.length] {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%02x", by)
	}
	return s
}

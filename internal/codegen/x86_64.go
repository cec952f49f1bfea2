// Package codegen emits architecture-specific byte sequences into a
// machinecode.Buffer. It deliberately knows about exactly one architecture
// and exactly two instruction shapes: cross-architecture code generation
// and verifying that a patched address is actually a function prologue are
// both out of scope.
//
// The switch-on-architecture dispatch shape (even though only one case is
// populated) follows jmp.go's convention of always switching on
// o.target.Arch() before falling into an architecture-specific emitter,
// even in files that (at the time) only had an x86-64 implementation.
package codegen

import (
	"github.com/xyproto/dpatch/internal/machinecode"
	"github.com/xyproto/dpatch/internal/status"
)

// Arch identifies a target instruction-set architecture.
type Arch int

const (
	// X86_64 is the only architecture this engine ever generates code for.
	X86_64 Arch = iota
)

// AppendUndefinedOpcode appends a guaranteed-undefined instruction to buf.
// On x86-64 this is UD2 (0F 0B): architecturally defined to always raise an
// illegal-instruction trap, used to poison a function so that executing its
// first two bytes faults instead of running.
func AppendUndefinedOpcode(arch Arch, buf *machinecode.Buffer) status.Status {
	switch arch {
	case X86_64:
		return buf.AppendBytes([]byte{0x0f, 0x0b})
	default:
		return status.Unknown
	}
}

// AppendLongJump appends an absolute indirect jump to addr into buf. On
// x86-64 this is the 14-byte sequence:
//
//	FF 25 00 00 00 00        ; JMP [RIP+0]
//	<addr bytes 0..7>        ; 64-bit target, little-endian
//
// The displacement is zero because the pointer to jump through is stored
// immediately after the instruction, at the position RIP points to once the
// 6-byte JMP opcode has been consumed.
func AppendLongJump(arch Arch, buf *machinecode.Buffer, addr uintptr) status.Status {
	switch arch {
	case X86_64:
		const (
			ljmpOpcode       = 0xff
			ljmpModRMExt     = 0x1 << 5
			modRMRIPRelative = 0x5
		)
		if st := buf.AppendBytes([]byte{
			ljmpOpcode,
			ljmpModRMExt | modRMRIPRelative,
			0x00, 0x00, 0x00, 0x00, // RIP-relative displacement, always 0
		}); st != status.OK {
			return st
		}
		target := uint64(addr)
		targetBytes := make([]byte, 8)
		for i := 0; i < 8; i++ {
			targetBytes[i] = byte(target >> (8 * i))
		}
		return buf.AppendBytes(targetBytes)
	default:
		return status.Unknown
	}
}

package codegen

import (
	"testing"

	"github.com/xyproto/dpatch/internal/machinecode"
	"github.com/xyproto/dpatch/internal/status"
)

func TestAppendUndefinedOpcodeEmitsUD2(t *testing.T) {
	buf := machinecode.New()
	if st := AppendUndefinedOpcode(X86_64, buf); st != status.OK {
		t.Fatalf("AppendUndefinedOpcode = %v, want OK", st)
	}
	got := buf.Bytes()
	want := []byte{0x0f, 0x0b}
	if buf.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", buf.Len())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte %d = %x, want %x", i, got[i], want[i])
		}
	}
}

func TestAppendLongJumpShapeAndLength(t *testing.T) {
	buf := machinecode.New()
	const target = uintptr(0x1122334455667788)
	if st := AppendLongJump(X86_64, buf, target); st != status.OK {
		t.Fatalf("AppendLongJump = %v, want OK", st)
	}
	got := buf.Bytes()
	if buf.Len() != 14 {
		t.Fatalf("Len() = %d, want 14", buf.Len())
	}
	wantHead := []byte{0xff, 0x25, 0x00, 0x00, 0x00, 0x00}
	for i := range wantHead {
		if got[i] != wantHead[i] {
			t.Errorf("header byte %d = %x, want %x", i, got[i], wantHead[i])
		}
	}
	wantAddr := []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}
	for i := range wantAddr {
		if got[6+i] != wantAddr[i] {
			t.Errorf("address byte %d = %x, want %x", i, got[6+i], wantAddr[i])
		}
	}
}

func TestUnsupportedArchitectureIsUnknown(t *testing.T) {
	buf := machinecode.New()
	const bogus Arch = 99
	if st := AppendUndefinedOpcode(bogus, buf); st != status.Unknown {
		t.Errorf("AppendUndefinedOpcode(bogus) = %v, want Unknown", st)
	}
	if st := AppendLongJump(bogus, buf, 0); st != status.Unknown {
		t.Errorf("AppendLongJump(bogus) = %v, want Unknown", st)
	}
	if buf.Len() != 0 {
		t.Errorf("buffer mutated on unsupported arch: Len() = %d", buf.Len())
	}
}

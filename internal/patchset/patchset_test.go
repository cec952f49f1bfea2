package patchset

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/xyproto/dpatch/internal/patch"
	"github.com/xyproto/dpatch/internal/status"
)

type fakeResolver struct {
	addrs map[string]uintptr
	fail  map[string]bool
}

func (f *fakeResolver) Resolve(name string) (uintptr, status.Status) {
	if f.fail[name] {
		return 0, status.Dyn
	}
	addr, ok := f.addrs[name]
	if !ok {
		return 0, status.Dyn
	}
	return addr, status.OK
}

func TestAddPreservesInsertionOrder(t *testing.T) {
	s := New()
	s.Add(patch.Nop, "a1", "a2")
	s.Add(patch.Nop, "b1", "b2")
	s.Add(patch.Nop, "c1", "c2")

	got := s.Patches()
	if len(got) != 3 {
		t.Fatalf("Len() = %d, want 3", len(got))
	}
	wantOld := []string{"a1", "b1", "c1"}
	for i, w := range wantOld {
		if got[i].Old != w {
			t.Errorf("patch %d Old = %q, want %q", i, got[i].Old, w)
		}
	}
}

func TestApplyZeroLengthSetIsNoop(t *testing.T) {
	s := New()
	if st := s.Apply(&fakeResolver{}); st != status.OK {
		t.Errorf("Apply(empty set) = %v, want OK", st)
	}
}

func TestApplyShortCircuitsOnFirstFailure(t *testing.T) {
	s := New()
	s.Add(patch.Nop, "a1", "a2")
	s.Add(patch.ReplaceFunctionInternal, "missing", "also_missing")
	s.Add(patch.Nop, "never_reached_1", "never_reached_2")

	r := &fakeResolver{}
	st := s.Apply(r)
	if st != status.Dyn {
		t.Fatalf("Apply() = %v, want Dyn", st)
	}
}

func TestApplyReplaceFunctionInternalEndToEnd(t *testing.T) {
	page, err := unix.Mmap(-1, 0, unix.Getpagesize(), unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		t.Fatalf("mmap failed: %v", err)
	}
	t.Cleanup(func() { _ = unix.Munmap(page) })

	base := uintptr(unsafe.Pointer(&page[0]))
	fromAddr := base
	toAddr := base + 64

	s := New()
	s.Add(patch.ReplaceFunctionInternal, "alpha", "bravo")

	r := &fakeResolver{addrs: map[string]uintptr{
		"alpha": fromAddr,
		"bravo": toAddr,
	}}

	if st := s.Apply(r); st != status.OK {
		t.Fatalf("Apply() = %v, want OK", st)
	}

	got := page[:14]
	wantHead := []byte{0xff, 0x25, 0x00, 0x00, 0x00, 0x00}
	for i := range wantHead {
		if got[i] != wantHead[i] {
			t.Errorf("header byte %d = %x, want %x", i, got[i], wantHead[i])
		}
	}
	target := uint64(0)
	for i := 0; i < 8; i++ {
		target |= uint64(got[6+i]) << (8 * i)
	}
	if target != uint64(toAddr) {
		t.Errorf("encoded jump target = %#x, want %#x", target, toAddr)
	}
}

package patch

import (
	"testing"

	"github.com/xyproto/dpatch/internal/status"
)

type fakeResolver struct {
	addrs map[string]uintptr
}

func (f *fakeResolver) Resolve(name string) (uintptr, status.Status) {
	addr, ok := f.addrs[name]
	if !ok {
		return 0, status.Dyn
	}
	return addr, status.OK
}

func TestApplyNopAlwaysOK(t *testing.T) {
	p := New(Nop, "alpha", "bravo")
	if st := p.Apply(&fakeResolver{}); st != status.OK {
		t.Errorf("Apply(Nop) = %v, want OK", st)
	}
}

func TestApplyUnknownKind(t *testing.T) {
	p := &Patch{Kind: Kind(999), Old: "alpha", New: "bravo"}
	if st := p.Apply(&fakeResolver{}); st != status.Unknown {
		t.Errorf("Apply(unknown kind) = %v, want Unknown", st)
	}
}

func TestApplyUnrecognizedKind(t *testing.T) {
	p := New(Unrecognized, "alpha", "bravo")
	if st := p.Apply(&fakeResolver{}); st != status.Unknown {
		t.Errorf("Apply(Unrecognized) = %v, want Unknown", st)
	}
}

func TestApplyReplaceFunctionInternalMissingOldSymbol(t *testing.T) {
	p := New(ReplaceFunctionInternal, "missing_old", "bravo")
	r := &fakeResolver{addrs: map[string]uintptr{"bravo": 0x1000}}
	if st := p.Apply(r); st != status.Dyn {
		t.Errorf("Apply with missing old symbol = %v, want Dyn", st)
	}
}

func TestApplyReplaceFunctionInternalMissingNewSymbol(t *testing.T) {
	p := New(ReplaceFunctionInternal, "alpha", "missing_new")
	r := &fakeResolver{addrs: map[string]uintptr{"alpha": 0x1000}}
	if st := p.Apply(r); st != status.Dyn {
		t.Errorf("Apply with missing new symbol = %v, want Dyn", st)
	}
}

func TestNewCopiesStrings(t *testing.T) {
	old, newSym := "alpha", "bravo"
	p := New(ReplaceFunctionInternal, old, newSym)
	if p.Old != "alpha" || p.New != "bravo" {
		t.Fatalf("New() = %+v, want Old=alpha New=bravo", p)
	}
}

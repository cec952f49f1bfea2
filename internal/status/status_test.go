package status

import "testing"

func TestStringKnownTags(t *testing.T) {
	cases := []struct {
		s    Status
		want string
	}{
		{OK, "ok"},
		{Error, "error"},
		{NoMem, "out of memory"},
		{MProt, "memory protection change failed"},
		{Unknown, "unknown patch operation"},
		{Dyn, "symbol resolution failed"},
		{File, "file I/O failed"},
		{Syntax, "patch script syntax error"},
	}
	for _, c := range cases {
		if got := c.s.String(); got != c.want {
			t.Errorf("Status(%d).String() = %q, want %q", c.s, got, c.want)
		}
	}
}

func TestStringOutOfRange(t *testing.T) {
	if got := Status(999).String(); got != "invalid status" {
		t.Errorf("out-of-range Status.String() = %q, want %q", got, "invalid status")
	}
	if got := Status(-1).String(); got != "invalid status" {
		t.Errorf("negative Status.String() = %q, want %q", got, "invalid status")
	}
}

func TestOKStatus(t *testing.T) {
	if !OK.OKStatus() {
		t.Error("OK.OKStatus() = false, want true")
	}
	for _, s := range []Status{Error, NoMem, MProt, Unknown, Dyn, File, Syntax} {
		if s.OKStatus() {
			t.Errorf("%v.OKStatus() = true, want false", s)
		}
	}
}

func TestErrorInterface(t *testing.T) {
	var err error = Dyn
	if err.Error() != "symbol resolution failed" {
		t.Errorf("Dyn.Error() = %q, want %q", err.Error(), "symbol resolution failed")
	}
}

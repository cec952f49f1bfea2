// Package status defines the closed set of outcome tags returned by every
// fallible operation in the patch-application pipeline.
package status

// Status is a closed enumeration of outcome tags, modeled on the original
// dpatch_status return codes. It implements error so it can be returned
// and compared directly, but callers that want the bare tag (for logging,
// or for deciding whether to retry) should compare against the named
// constants rather than the error string.
type Status int

const (
	// OK indicates success.
	OK Status = iota

	// Error is a generic or unspecified failure.
	Error

	// NoMem indicates an allocation failed.
	NoMem

	// MProt indicates a page-protection change failed.
	MProt

	// Unknown indicates an unrecognized patch kind.
	Unknown

	// Dyn indicates a symbol lookup failed.
	Dyn

	// File indicates a filesystem I/O failure.
	File

	// Syntax indicates a patch-script parse failure.
	Syntax
)

var names = [...]string{
	OK:      "ok",
	Error:   "error",
	NoMem:   "out of memory",
	MProt:   "memory protection change failed",
	Unknown: "unknown patch operation",
	Dyn:     "symbol resolution failed",
	File:    "file I/O failed",
	Syntax:  "patch script syntax error",
}

// String renders the human-readable diagnostic string for a status tag.
func (s Status) String() string {
	if s < 0 || int(s) >= len(names) {
		return "invalid status"
	}
	return names[s]
}

// Error satisfies the error interface so a Status can be returned directly
// from functions that would otherwise need to wrap it.
func (s Status) Error() string {
	return s.String()
}

// OKStatus reports whether s represents success.
func (s Status) OKStatus() bool {
	return s == OK
}

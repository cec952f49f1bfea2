// Package patchset implements an ordered, growable collection of patches
// and batch-apply over them (§4.G).
package patchset

import (
	"github.com/xyproto/dpatch/internal/patch"
	"github.com/xyproto/dpatch/internal/status"
)

const defaultCapacity = 8

// Set is an ordered sequence of patches with amortized-doubling capacity.
// Insertion order is preserved and patches apply in that order; there is
// no deduplication. The zero value is not usable; construct with New.
type Set struct {
	patches []*patch.Patch
}

// New returns an empty Set with initial capacity 8.
func New() *Set {
	return &Set{patches: make([]*patch.Patch, 0, defaultCapacity)}
}

// Len reports the number of patches currently in the set.
func (s *Set) Len() int {
	return len(s.patches)
}

// Add appends a new patch built from (kind, old, new) to the set.
func (s *Set) Add(kind patch.Kind, old, newSym string) status.Status {
	s.patches = append(s.patches, patch.New(kind, old, newSym))
	return status.OK
}

// Patches returns the patches in insertion order. The returned slice
// aliases the set's backing storage and must be treated as read-only.
func (s *Set) Patches() []*patch.Patch {
	return s.patches
}

// Apply iterates the patches in insertion order, applying each in turn.
// The first non-OK result short-circuits the remaining patches and is
// returned directly: already-applied patches are not rolled back, and
// this is an explicit contract (§4.G, §7) rather than an oversight —
// partial success is observable, and reconciling it is the operator's
// responsibility. A zero-length set applies successfully and is a no-op.
func (s *Set) Apply(r patch.Resolver) status.Status {
	for _, p := range s.patches {
		if st := p.Apply(r); st != status.OK {
			return st
		}
	}
	return status.OK
}

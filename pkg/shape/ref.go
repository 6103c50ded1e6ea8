package shape

import (
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/polyslice/pkg/kernel"
)

// ShapeID addresses a slot in an Arena. IDs are stable for the lifetime of
// the shape and are reused only after garbage collection frees the slot.
type ShapeID uint32

func (id ShapeID) String() string {
	return fmt.Sprintf("#%d", uint32(id))
}

// ShapeRef is an oriented reference to a shape. The two orientations of a
// shape share one slot.
type ShapeRef struct {
	ID   ShapeID
	Sign kernel.Sign
}

// Ref returns the positive reference to id.
func Ref(id ShapeID) ShapeRef {
	return ShapeRef{ID: id, Sign: kernel.Pos}
}

// Neg returns the reference with the opposite orientation.
func (r ShapeRef) Neg() ShapeRef {
	return ShapeRef{ID: r.ID, Sign: r.Sign.Neg()}
}

// Mul multiplies the orientation of r by s.
func (r ShapeRef) Mul(s kernel.Sign) ShapeRef {
	return ShapeRef{ID: r.ID, Sign: r.Sign.Mul(s)}
}

func (r ShapeRef) String() string {
	return r.Sign.String() + r.ID.String()
}

func compareRefs(a, b ShapeRef) int {
	if a.ID != b.ID {
		if a.ID < b.ID {
			return -1
		}
		return 1
	}
	return int(a.Sign) - int(b.Sign)
}

// RefSet is a set of shape references kept in sorted order, so iteration is
// deterministic. A reference and its negation are distinct members.
type RefSet struct {
	refs []ShapeRef
}

// NewRefSet returns a set holding refs.
func NewRefSet(refs ...ShapeRef) RefSet {
	var s RefSet
	for _, r := range refs {
		s.Insert(r)
	}
	return s
}

// Insert adds r to the set. It reports whether r was not already present.
func (s *RefSet) Insert(r ShapeRef) bool {
	i, found := slices.BinarySearchFunc(s.refs, r, compareRefs)
	if found {
		return false
	}
	s.refs = slices.Insert(s.refs, i, r)
	return true
}

// Contains reports whether r is in the set.
func (s RefSet) Contains(r ShapeRef) bool {
	_, found := slices.BinarySearchFunc(s.refs, r, compareRefs)
	return found
}

// Len returns the number of references in the set.
func (s RefSet) Len() int {
	return len(s.refs)
}

// IsEmpty reports whether the set has no members.
func (s RefSet) IsEmpty() bool {
	return len(s.refs) == 0
}

// Refs returns the members in order. Callers must not modify the slice.
func (s RefSet) Refs() []ShapeRef {
	return s.refs
}

// Equal reports whether two sets have the same members.
func (s RefSet) Equal(other RefSet) bool {
	return slices.Equal(s.refs, other.refs)
}

// Clone returns a copy that shares no storage with s.
func (s RefSet) Clone() RefSet {
	if len(s.refs) == 0 {
		return RefSet{}
	}
	refs := make([]ShapeRef, len(s.refs))
	copy(refs, s.refs)
	return RefSet{refs: refs}
}

func (s RefSet) String() string {
	parts := make([]string, len(s.refs))
	for i, r := range s.refs {
		parts[i] = r.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Metadata is a small tag attached to one orientation of a shape, such as
// the facet a boundary piece belongs to. NoMetadata means untagged.
type Metadata uint16

// NoMetadata is the absence of a tag.
const NoMetadata Metadata = 0

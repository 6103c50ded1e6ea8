package shape

import "github.com/pkg/errors"

var (
	// ErrRankMismatch is returned when a boundary element's rank is not one
	// less than the rank of the shape it bounds.
	ErrRankMismatch = errors.New("shape: boundary rank mismatch")
	// ErrInvalidPolygon is returned when the edges of a polygon do not form
	// closed loops.
	ErrInvalidPolygon = errors.New("shape: invalid polygon")
	// ErrRootNotSplit is returned when a root shape is flush with, inside, or
	// outside a cut instead of being split by it.
	ErrRootNotSplit = errors.New("shape: root shape is not split by cut")
	// ErrMultipleFlush is returned when more than one boundary element of a
	// shape is flush with the cut.
	ErrMultipleFlush = errors.New("shape: multiple intersection shapes")
	// ErrOrientationMismatch is returned when a flush boundary element does
	// not lie on the intersection manifold.
	ErrOrientationMismatch = errors.New("shape: manifold of intersection shape does not match intersection manifold")
	// ErrDuplicateEndpoint is returned when two simplified intervals share an
	// endpoint.
	ErrDuplicateEndpoint = errors.New("shape: duplicate interval endpoint")
	// ErrNoShape is returned for references to empty slots.
	ErrNoShape = errors.New("shape: no such shape")
)

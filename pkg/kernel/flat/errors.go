package flat

import "github.com/pkg/errors"

var (
	// ErrNotFlat is returned when an operation receives a manifold that is
	// not one of this package's types.
	ErrNotFlat = errors.New("flat: unsupported manifold")
	// ErrNotPointPair is returned by ToPointPair on a manifold of dimension
	// above zero.
	ErrNotPointPair = errors.New("flat: not a point pair")
	// ErrDimension is returned when dimensions of the operands disagree.
	ErrDimension = errors.New("flat: dimension mismatch")
	// ErrDegenerate is returned for zero normals, dependent bases and
	// coincident point pairs.
	ErrDegenerate = errors.New("flat: degenerate input")
)

// Package kernel defines the abstract manifold interface consumed by the
// shape arena. Implementations (flat) provide the geometric predicates behind
// this interface; the arena never looks inside a manifold.
package kernel

import (
	"fmt"
	"math"
	"strings"
)

// Epsilon is the tolerance used for approximate geometric comparisons.
const Epsilon = 1e-9

// Sign is an orientation flag. Pos and Neg form the multiplicative group
// {+1, -1}.
type Sign int8

const (
	Pos Sign = 1
	Neg Sign = -1
)

// Mul returns the product of two signs.
func (s Sign) Mul(other Sign) Sign {
	if s == other {
		return Pos
	}
	return Neg
}

// Neg returns the opposite sign.
func (s Sign) Neg() Sign {
	return s.Mul(Neg)
}

func (s Sign) String() string {
	if s == Neg {
		return "-"
	}
	return "+"
}

// SignOf returns Neg for negative x and Pos otherwise.
func SignOf(x float64) Sign {
	if x < 0 {
		return Neg
	}
	return Pos
}

// Point is a point in the ambient space. The zero Point is the point at
// infinity, which lies on every flat.
type Point struct {
	coords []float64
}

// Infinity is the point at infinity.
var Infinity = Point{}

// NewPoint returns a finite point with the given coordinates.
func NewPoint(coords ...float64) Point {
	c := make([]float64, len(coords))
	copy(c, coords)
	return Point{coords: c}
}

// IsInfinite reports whether p is the point at infinity.
func (p Point) IsInfinite() bool {
	return p.coords == nil
}

// Coords returns the coordinates of a finite point, or nil at infinity.
// Callers must not modify the returned slice.
func (p Point) Coords() []float64 {
	return p.coords
}

// NDim returns the number of coordinates of a finite point.
func (p Point) NDim() int {
	return len(p.coords)
}

// ApproxEq reports whether p and q are the same point within Epsilon.
// Missing trailing coordinates are treated as zero.
func (p Point) ApproxEq(q Point) bool {
	if p.IsInfinite() || q.IsInfinite() {
		return p.IsInfinite() == q.IsInfinite()
	}
	n := max(len(p.coords), len(q.coords))
	for i := 0; i < n; i++ {
		if math.Abs(p.at(i)-q.at(i)) > Epsilon {
			return false
		}
	}
	return true
}

func (p Point) at(i int) float64 {
	if i < len(p.coords) {
		return p.coords[i]
	}
	return 0
}

func (p Point) String() string {
	if p.IsInfinite() {
		return "∞"
	}
	parts := make([]string, len(p.coords))
	for i, c := range p.coords {
		parts[i] = fmt.Sprintf("%g", c)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// PointWhichSide is the location of a point relative to an oriented
// hypersurface.
type PointWhichSide int

const (
	On PointWhichSide = iota
	Inside
	Outside
)

// Mul flips Inside and Outside when s is Neg.
func (w PointWhichSide) Mul(s Sign) PointWhichSide {
	if s == Pos {
		return w
	}
	switch w {
	case Inside:
		return Outside
	case Outside:
		return Inside
	default:
		return w
	}
}

func (w PointWhichSide) String() string {
	switch w {
	case On:
		return "on"
	case Inside:
		return "inside"
	case Outside:
		return "outside"
	default:
		return fmt.Sprintf("PointWhichSide(%d)", int(w))
	}
}

// WhichSide records which sides of an oriented hypersurface a manifold
// touches.
type WhichSide struct {
	IsAnyInside  bool
	IsAnyOutside bool
}

// Mul swaps the two flags when s is Neg.
func (w WhichSide) Mul(s Sign) WhichSide {
	if s == Pos {
		return w
	}
	return WhichSide{IsAnyInside: w.IsAnyOutside, IsAnyOutside: w.IsAnyInside}
}

// SplitKind classifies a manifold against a dividing manifold.
type SplitKind int

const (
	SplitFlush   SplitKind = iota // coincides with the divider
	SplitInside                   // entirely inside the divider
	SplitOutside                  // entirely outside the divider
	SplitThrough                  // crosses the divider
)

func (k SplitKind) String() string {
	switch k {
	case SplitFlush:
		return "flush"
	case SplitInside:
		return "inside"
	case SplitOutside:
		return "outside"
	case SplitThrough:
		return "split"
	default:
		return fmt.Sprintf("SplitKind(%d)", int(k))
	}
}

// ManifoldSplit is the result of Manifold.Split. Intersection is set only
// for SplitThrough and is oriented so that its inside (within the split
// manifold) is the inside of the divider.
type ManifoldSplit struct {
	Kind         SplitKind
	Intersection Manifold
}

// Manifold is an oriented geometric object: the whole space, a hypersurface
// within some other manifold, or a point pair on a line.
type Manifold interface {
	// NDim returns the dimension of the manifold.
	NDim() (int, error)

	// Split classifies the receiver against divider, a hypersurface of
	// space.
	Split(divider, space Manifold) (ManifoldSplit, error)

	// WhichSide reports which sides of boundary the receiver touches. Both
	// boundary and the receiver lie in space, and boundary is a
	// hypersurface of space.
	WhichSide(boundary, space Manifold) (WhichSide, error)

	// WhichSideHasPoint locates p relative to the receiver within space.
	// A point lying on the receiver is On regardless of codimension.
	WhichSideHasPoint(p Point, space Manifold) (PointWhichSide, error)

	// RelativeOrientation returns the sign relating two manifolds with the
	// same point set, or false if the point sets differ.
	RelativeOrientation(other Manifold) (Sign, bool)

	// Flip returns the same manifold with the opposite orientation.
	Flip() (Manifold, error)

	// ToPointPair returns the two points of a 0-dimensional manifold.
	ToPointPair() ([2]Point, error)

	// PointPair constructs the oriented point pair (p, q) on the receiver,
	// which must be 1-dimensional.
	PointPair(p, q Point) (Manifold, error)

	// OPNSIsFlat reports whether the manifold is flat (contains the point
	// at infinity).
	OPNSIsFlat() bool

	// ProjectPoint returns the point of the manifold nearest to p.
	ProjectPoint(p Point) (Point, error)

	String() string
}

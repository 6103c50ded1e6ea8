package flat

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/chazu/polyslice/pkg/kernel"
)

// PointPair is an oriented 0-sphere on a line. Either point may be at
// infinity, in which case the pair is a single finite point bounding a ray.
type PointPair struct {
	a, b kernel.Point
}

var _ kernel.Manifold = (*PointPair)(nil)

// Points returns the two points in order.
func (pp *PointPair) Points() (kernel.Point, kernel.Point) {
	return pp.a, pp.b
}

func (pp *PointPair) NDim() (int, error) { return 0, nil }

// Split classifies the pair by the side of divider each point falls on. A
// pair with one point strictly on each side cannot be split further.
func (pp *PointPair) Split(divider, space kernel.Manifold) (kernel.ManifoldSplit, error) {
	sa, err := divider.WhichSideHasPoint(pp.a, space)
	if err != nil {
		return kernel.ManifoldSplit{}, err
	}
	sb, err := divider.WhichSideHasPoint(pp.b, space)
	if err != nil {
		return kernel.ManifoldSplit{}, err
	}
	switch {
	case sa == kernel.On && sb == kernel.On:
		return kernel.ManifoldSplit{Kind: kernel.SplitFlush}, nil
	case sa != kernel.Outside && sb != kernel.Outside:
		return kernel.ManifoldSplit{Kind: kernel.SplitInside}, nil
	case sa != kernel.Inside && sb != kernel.Inside:
		return kernel.ManifoldSplit{Kind: kernel.SplitOutside}, nil
	default:
		return kernel.ManifoldSplit{}, errors.Wrapf(ErrDimension, "cannot split point pair %s", pp)
	}
}

func (pp *PointPair) WhichSide(boundary, space kernel.Manifold) (kernel.WhichSide, error) {
	return kernel.WhichSide{}, errors.Wrap(ErrDimension, "a point pair has no hypersurfaces")
}

// WhichSideHasPoint locates p on the line space relative to the arc from a
// to b. Within a space of higher dimension only the two points are On and
// everything else is Outside.
func (pp *PointPair) WhichSideHasPoint(p kernel.Point, space kernel.Manifold) (kernel.PointWhichSide, error) {
	if p.ApproxEq(pp.a) || p.ApproxEq(pp.b) {
		return kernel.On, nil
	}
	line, err := asFlat(space)
	if err != nil {
		return kernel.On, err
	}
	if len(line.basis) != 1 {
		return kernel.Outside, nil
	}
	ta, err := arcAngle(pp.a, line)
	if err != nil {
		return kernel.On, err
	}
	tb, err := arcAngle(pp.b, line)
	if err != nil {
		return kernel.On, err
	}
	tp, err := arcAngle(p, line)
	if err != nil {
		return kernel.On, err
	}
	if d := forward(ta, tp); d > 0 && d < forward(ta, tb) {
		return kernel.Inside, nil
	}
	return kernel.Outside, nil
}

// arcAngle maps a point of the line onto the circle obtained by closing the
// line at infinity. Infinity lands at pi.
func arcAngle(p kernel.Point, line *Flat) (float64, error) {
	if p.IsInfinite() {
		return math.Pi, nil
	}
	x, err := pointCoords(p, line.AmbientDim())
	if err != nil {
		return 0, err
	}
	return 2 * math.Atan(line.param(x)), nil
}

// forward returns the angle travelled going from one arc angle to another
// in the positive direction, in [0, 2pi).
func forward(from, to float64) float64 {
	d := math.Mod(to-from, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	return d
}

// RelativeOrientation is Pos for the same pair and Neg for the swapped one.
func (pp *PointPair) RelativeOrientation(other kernel.Manifold) (kernel.Sign, bool) {
	o, ok := other.(*PointPair)
	if !ok {
		return kernel.Pos, false
	}
	switch {
	case pp.a.ApproxEq(o.a) && pp.b.ApproxEq(o.b):
		return kernel.Pos, true
	case pp.a.ApproxEq(o.b) && pp.b.ApproxEq(o.a):
		return kernel.Neg, true
	default:
		return kernel.Pos, false
	}
}

// Flip swaps the two points, selecting the complementary arc.
func (pp *PointPair) Flip() (kernel.Manifold, error) {
	return &PointPair{a: pp.b, b: pp.a}, nil
}

func (pp *PointPair) ToPointPair() ([2]kernel.Point, error) {
	return [2]kernel.Point{pp.a, pp.b}, nil
}

func (pp *PointPair) PointPair(p, q kernel.Point) (kernel.Manifold, error) {
	return nil, errors.Wrap(ErrDimension, "point pairs are constructed on lines")
}

// OPNSIsFlat reports whether one of the points is at infinity.
func (pp *PointPair) OPNSIsFlat() bool {
	return pp.a.IsInfinite() || pp.b.IsInfinite()
}

func (pp *PointPair) ProjectPoint(p kernel.Point) (kernel.Point, error) {
	return kernel.Point{}, errors.Wrapf(ErrNotFlat, "cannot project onto point pair %s", pp)
}

func (pp *PointPair) String() string {
	return fmt.Sprintf("pair{%s -> %s}", pp.a, pp.b)
}

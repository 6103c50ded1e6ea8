// Package flat implements kernel.Manifold for affine subspaces of Euclidean
// space and for oriented point pairs on a line.
//
// A k-flat B lying in a (k+1)-flat P is oriented by the unit vector u in P
// normal to B: the side of B that u points into is its inside, and u is
// chosen so that the basis of B followed by u is positively oriented in P.
// A point pair (a, b) on a line is the arc running from a to b in the
// direction of the line, passing through infinity if need be. That arc is
// the inside of the pair.
package flat

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/viterin/vek"

	"github.com/chazu/polyslice/pkg/kernel"
)

// Flat is an oriented affine subspace. Origin is the point of the flat
// closest to the coordinate origin and basis is orthonormal; the order of
// basis vectors carries the orientation.
type Flat struct {
	origin []float64
	basis  [][]float64
}

var _ kernel.Manifold = (*Flat)(nil)

// Space returns the whole n-dimensional space with the standard orientation.
// It panics if n < 1.
func Space(n int) *Flat {
	if n < 1 {
		panic(fmt.Sprintf("flat: space dimension must be positive, got %d", n))
	}
	basis := make([][]float64, n)
	for i := range basis {
		basis[i] = unit(n, i)
	}
	return &Flat{origin: zeros(n), basis: basis}
}

// New returns the flat through origin spanned by basis. The basis is
// orthonormalized without changing its orientation.
func New(origin []float64, basis [][]float64) (*Flat, error) {
	if len(basis) == 0 {
		return nil, errors.Wrap(ErrDegenerate, "flat needs at least one basis vector")
	}
	for i, b := range basis {
		if len(b) != len(origin) {
			return nil, errors.Wrapf(ErrDimension, "basis vector %d has %d coordinates, origin has %d", i, len(b), len(origin))
		}
	}
	ortho, err := orthonormalize(basis)
	if err != nil {
		return nil, err
	}
	return newFlat(origin, ortho), nil
}

func newFlat(origin []float64, basis [][]float64) *Flat {
	return &Flat{origin: vek.Sub(origin, project(origin, basis)), basis: basis}
}

// Hyperplane returns the hyperplane {x : normal·x = distance} whose inside
// is {x : normal·x < distance}. In one dimension the result is a point pair
// on the real line.
func Hyperplane(normal []float64, distance float64) (kernel.Manifold, error) {
	n := len(normal)
	if n == 0 {
		return nil, errors.Wrap(ErrDimension, "hyperplane normal is empty")
	}
	length := vek.Norm(normal)
	if length <= degenerateTol {
		return nil, errors.Wrap(ErrDegenerate, "hyperplane normal is zero")
	}
	nhat := vek.MulNumber(normal, 1/length)
	origin := vek.MulNumber(nhat, distance/length)

	if n == 1 {
		x := kernel.NewPoint(origin[0])
		if nhat[0] > 0 {
			return &PointPair{a: kernel.Infinity, b: x}, nil
		}
		return &PointPair{a: x, b: kernel.Infinity}, nil
	}

	candidates := make([][]float64, n)
	for i := range candidates {
		candidates[i] = unit(n, i)
	}
	frame, err := extend([][]float64{nhat}, candidates, n)
	if err != nil {
		return nil, err
	}
	basis := frame[1:]
	inward := vek.MulNumber(nhat, -1)
	if orientation(append(append([][]float64(nil), basis...), inward), Space(n).basis) < 0 {
		basis[0] = vek.MulNumber(basis[0], -1)
	}
	return newFlat(origin, basis), nil
}

// NDim returns the dimension of the flat.
func (f *Flat) NDim() (int, error) {
	return len(f.basis), nil
}

// AmbientDim returns the dimension of the space the flat lives in.
func (f *Flat) AmbientDim() int {
	return len(f.origin)
}

func (f *Flat) contains(x []float64) bool {
	return vek.Norm(reject(vek.Sub(x, f.origin), f.basis)) <= kernel.Epsilon
}

func (f *Flat) param(x []float64) float64 {
	return vek.Dot(vek.Sub(x, f.origin), f.basis[0])
}

// inwardNormal returns the unit normal of b within parent that points to
// the inside of b.
func inwardNormal(b, parent *Flat) ([]float64, error) {
	if len(b.basis)+1 != len(parent.basis) {
		return nil, errors.Wrapf(ErrDimension, "%d-flat is not a hypersurface of a %d-flat", len(b.basis), len(parent.basis))
	}
	var best []float64
	bestNorm := 0.0
	for _, p := range parent.basis {
		r := reject(p, b.basis)
		if n := vek.Norm(r); n > bestNorm {
			best, bestNorm = r, n
		}
	}
	if bestNorm <= degenerateTol {
		return nil, errors.Wrap(ErrDegenerate, "flat does not span its parent")
	}
	u := vek.MulNumber(best, 1/bestNorm)
	rows := append(append([][]float64(nil), b.basis...), u)
	if orientation(rows, parent.basis) < 0 {
		u = vek.MulNumber(u, -1)
	}
	return u, nil
}

func asFlat(m kernel.Manifold) (*Flat, error) {
	f, ok := m.(*Flat)
	if !ok {
		return nil, errors.Wrapf(ErrNotFlat, "expected a flat, got %s", m)
	}
	return f, nil
}

// Split classifies f against divider, a hypersurface of space.
func (f *Flat) Split(divider, space kernel.Manifold) (kernel.ManifoldSplit, error) {
	sp, err := asFlat(space)
	if err != nil {
		return kernel.ManifoldSplit{}, err
	}
	if pp, ok := divider.(*PointPair); ok {
		if len(sp.basis) != 1 || len(f.basis) != 1 {
			return kernel.ManifoldSplit{}, errors.Wrap(ErrDimension, "point pair divides only a line")
		}
		return kernel.ManifoldSplit{Kind: kernel.SplitThrough, Intersection: pp}, nil
	}
	d, err := asFlat(divider)
	if err != nil {
		return kernel.ManifoldSplit{}, err
	}
	c, err := inwardNormal(d, sp)
	if err != nil {
		return kernel.ManifoldSplit{}, err
	}

	offset := vek.Dot(c, vek.Sub(f.origin, d.origin))
	u := project(c, f.basis)
	un := vek.Norm(u)
	if un <= kernel.Epsilon {
		switch {
		case offset > kernel.Epsilon:
			return kernel.ManifoldSplit{Kind: kernel.SplitInside}, nil
		case offset < -kernel.Epsilon:
			return kernel.ManifoldSplit{Kind: kernel.SplitOutside}, nil
		default:
			return kernel.ManifoldSplit{Kind: kernel.SplitFlush}, nil
		}
	}

	uhat := vek.MulNumber(u, 1/un)
	x0 := vek.Add(f.origin, vek.MulNumber(uhat, -offset/un))

	if len(f.basis) == 1 {
		p := kernel.NewPoint(x0...)
		if vek.Dot(c, f.basis[0]) > 0 {
			return kernel.ManifoldSplit{Kind: kernel.SplitThrough, Intersection: &PointPair{a: p, b: kernel.Infinity}}, nil
		}
		return kernel.ManifoldSplit{Kind: kernel.SplitThrough, Intersection: &PointPair{a: kernel.Infinity, b: p}}, nil
	}

	frame, err := extend([][]float64{uhat}, f.basis, len(f.basis))
	if err != nil {
		return kernel.ManifoldSplit{}, err
	}
	basis := frame[1:]
	if orientation(append(append([][]float64(nil), basis...), uhat), f.basis) < 0 {
		basis[0] = vek.MulNumber(basis[0], -1)
	}
	return kernel.ManifoldSplit{Kind: kernel.SplitThrough, Intersection: newFlat(x0, basis)}, nil
}

// WhichSide reports which sides of boundary f reaches.
func (f *Flat) WhichSide(boundary, space kernel.Manifold) (kernel.WhichSide, error) {
	if _, ok := boundary.(*PointPair); ok {
		// f is the whole line; both arcs of a proper pair are nonempty.
		return kernel.WhichSide{IsAnyInside: true, IsAnyOutside: true}, nil
	}
	b, err := asFlat(boundary)
	if err != nil {
		return kernel.WhichSide{}, err
	}
	sp, err := asFlat(space)
	if err != nil {
		return kernel.WhichSide{}, err
	}
	u, err := inwardNormal(b, sp)
	if err != nil {
		return kernel.WhichSide{}, err
	}
	for _, v := range f.basis {
		if math.Abs(vek.Dot(u, v)) > kernel.Epsilon {
			return kernel.WhichSide{IsAnyInside: true, IsAnyOutside: true}, nil
		}
	}
	s := vek.Dot(u, vek.Sub(f.origin, b.origin))
	return kernel.WhichSide{IsAnyInside: s > kernel.Epsilon, IsAnyOutside: s < -kernel.Epsilon}, nil
}

// WhichSideHasPoint locates p relative to f. Points on f, including the
// point at infinity, are On. When f is not a hypersurface of space every
// other point is Outside.
func (f *Flat) WhichSideHasPoint(p kernel.Point, space kernel.Manifold) (kernel.PointWhichSide, error) {
	if p.IsInfinite() {
		return kernel.On, nil
	}
	x, err := pointCoords(p, f.AmbientDim())
	if err != nil {
		return kernel.On, err
	}
	if f.contains(x) {
		return kernel.On, nil
	}
	sp, err := asFlat(space)
	if err != nil {
		return kernel.On, err
	}
	if len(f.basis)+1 != len(sp.basis) {
		return kernel.Outside, nil
	}
	u, err := inwardNormal(f, sp)
	if err != nil {
		return kernel.On, err
	}
	if vek.Dot(u, vek.Sub(x, f.origin)) > 0 {
		return kernel.Inside, nil
	}
	return kernel.Outside, nil
}

// RelativeOrientation compares two flats with the same point set.
func (f *Flat) RelativeOrientation(other kernel.Manifold) (kernel.Sign, bool) {
	o, ok := other.(*Flat)
	if !ok || len(o.basis) != len(f.basis) || o.AmbientDim() != f.AmbientDim() {
		return kernel.Pos, false
	}
	if !f.contains(o.origin) {
		return kernel.Pos, false
	}
	for _, v := range o.basis {
		if vek.Norm(reject(v, f.basis)) > kernel.Epsilon {
			return kernel.Pos, false
		}
	}
	return kernel.SignOf(orientation(o.basis, f.basis)), true
}

// Flip returns f with its orientation reversed.
func (f *Flat) Flip() (kernel.Manifold, error) {
	basis := make([][]float64, len(f.basis))
	copy(basis, f.basis)
	basis[0] = vek.MulNumber(basis[0], -1)
	return &Flat{origin: f.origin, basis: basis}, nil
}

func (f *Flat) ToPointPair() ([2]kernel.Point, error) {
	return [2]kernel.Point{}, errors.Wrapf(ErrNotPointPair, "%d-flat", len(f.basis))
}

// PointPair returns the oriented pair (p, q) on the line f.
func (f *Flat) PointPair(p, q kernel.Point) (kernel.Manifold, error) {
	if len(f.basis) != 1 {
		return nil, errors.Wrapf(ErrDimension, "point pair on a %d-flat", len(f.basis))
	}
	for _, pt := range []kernel.Point{p, q} {
		if pt.IsInfinite() {
			continue
		}
		x, err := pointCoords(pt, f.AmbientDim())
		if err != nil {
			return nil, err
		}
		if !f.contains(x) {
			return nil, errors.Wrapf(ErrDimension, "point %s is not on %s", pt, f)
		}
	}
	if p.ApproxEq(q) {
		return nil, errors.Wrapf(ErrDegenerate, "point pair endpoints coincide at %s", p)
	}
	return &PointPair{a: p, b: q}, nil
}

func (f *Flat) OPNSIsFlat() bool { return true }

// ProjectPoint returns the orthogonal projection of p onto f.
func (f *Flat) ProjectPoint(p kernel.Point) (kernel.Point, error) {
	if p.IsInfinite() {
		return kernel.Infinity, nil
	}
	x, err := pointCoords(p, f.AmbientDim())
	if err != nil {
		return kernel.Point{}, err
	}
	return kernel.NewPoint(vek.Add(f.origin, project(vek.Sub(x, f.origin), f.basis))...), nil
}

func (f *Flat) String() string {
	vecs := make([]string, len(f.basis))
	for i, b := range f.basis {
		vecs[i] = kernel.NewPoint(b...).String()
	}
	return fmt.Sprintf("flat%d%s[%s]", len(f.basis), kernel.NewPoint(f.origin...), strings.Join(vecs, " "))
}

package flat

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/polyslice/pkg/kernel"
)

func mustPlane(t *testing.T, normal []float64, distance float64) kernel.Manifold {
	t.Helper()
	m, err := Hyperplane(normal, distance)
	require.NoError(t, err)
	return m
}

func mustFlat(t *testing.T, origin []float64, basis ...[]float64) *Flat {
	t.Helper()
	f, err := New(origin, basis)
	require.NoError(t, err)
	return f
}

// --- Construction ---

func TestSpaceDimensions(t *testing.T) {
	s := Space(3)
	n, err := s.NDim()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, s.AmbientDim())
	assert.True(t, s.OPNSIsFlat())
	assert.Panics(t, func() { Space(0) })
}

func TestHyperplaneInsideIsBelowDistance(t *testing.T) {
	space := Space(3)
	plane := mustPlane(t, []float64{1, 0, 0}, 1)

	tests := []struct {
		name string
		p    kernel.Point
		want kernel.PointWhichSide
	}{
		{"origin", kernel.NewPoint(0, 0, 0), kernel.Inside},
		{"beyond", kernel.NewPoint(2, 0, 0), kernel.Outside},
		{"on plane", kernel.NewPoint(1, 5, -5), kernel.On},
		{"infinity", kernel.Infinity, kernel.On},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := plane.WhichSideHasPoint(tt.p, space)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHyperplaneScaledNormal(t *testing.T) {
	space := Space(2)
	plane := mustPlane(t, []float64{0, 2}, 4) // y < 2
	got, err := plane.WhichSideHasPoint(kernel.NewPoint(7, 1.9), space)
	require.NoError(t, err)
	assert.Equal(t, kernel.Inside, got)
	got, err = plane.WhichSideHasPoint(kernel.NewPoint(7, 2), space)
	require.NoError(t, err)
	assert.Equal(t, kernel.On, got)
}

func TestHyperplaneOneDimensional(t *testing.T) {
	line := Space(1)

	below := mustPlane(t, []float64{1}, 2) // x < 2
	pts, err := below.ToPointPair()
	require.NoError(t, err)
	assert.True(t, pts[0].IsInfinite())
	assert.True(t, pts[1].ApproxEq(kernel.NewPoint(2)))

	got, err := below.WhichSideHasPoint(kernel.NewPoint(0), line)
	require.NoError(t, err)
	assert.Equal(t, kernel.Inside, got)

	above := mustPlane(t, []float64{-1}, 2) // x > -2
	got, err = above.WhichSideHasPoint(kernel.NewPoint(0), line)
	require.NoError(t, err)
	assert.Equal(t, kernel.Inside, got)
	got, err = above.WhichSideHasPoint(kernel.NewPoint(-3), line)
	require.NoError(t, err)
	assert.Equal(t, kernel.Outside, got)
}

func TestHyperplaneErrors(t *testing.T) {
	_, err := Hyperplane(nil, 1)
	assert.True(t, errors.Is(err, ErrDimension))
	_, err = Hyperplane([]float64{0, 0}, 1)
	assert.True(t, errors.Is(err, ErrDegenerate))
}

func TestNewRejectsDependentBasis(t *testing.T) {
	_, err := New([]float64{0, 0, 0}, [][]float64{{1, 0, 0}, {2, 0, 0}})
	assert.True(t, errors.Is(err, ErrDegenerate))
	_, err = New([]float64{0, 0}, [][]float64{{1, 0, 0}})
	assert.True(t, errors.Is(err, ErrDimension))
	_, err = New([]float64{0, 0}, nil)
	assert.True(t, errors.Is(err, ErrDegenerate))
}

func TestNewPreservesOrientation(t *testing.T) {
	// Plane z = 5 spanned by x then a skewed y.
	f := mustFlat(t, []float64{3, 4, 5}, []float64{2, 0, 0}, []float64{1, 1, 0})

	// Inside z < 5 has inward normal -z, so its basis is opposite to (x, y).
	below := mustPlane(t, []float64{0, 0, 1}, 5)
	s, ok := f.RelativeOrientation(below)
	require.True(t, ok)
	assert.Equal(t, kernel.Neg, s)

	above := mustPlane(t, []float64{0, 0, -1}, -5)
	s, ok = f.RelativeOrientation(above)
	require.True(t, ok)
	assert.Equal(t, kernel.Pos, s)

	_, ok = f.RelativeOrientation(mustPlane(t, []float64{0, 0, 1}, 4))
	assert.False(t, ok)
}

// --- Split ---

func TestSplitWholeSpaceByPlane(t *testing.T) {
	space := Space(3)
	plane := mustPlane(t, []float64{0, 1, 0}, 0.5)

	split, err := space.Split(plane, space)
	require.NoError(t, err)
	require.Equal(t, kernel.SplitThrough, split.Kind)

	s, ok := split.Intersection.RelativeOrientation(plane)
	require.True(t, ok)
	assert.Equal(t, kernel.Pos, s)
}

func TestSplitParallelAndFlush(t *testing.T) {
	space := Space(3)
	divider := mustPlane(t, []float64{1, 0, 0}, 1) // x < 1

	tests := []struct {
		name     string
		receiver kernel.Manifold
		want     kernel.SplitKind
	}{
		{"same plane", divider, kernel.SplitFlush},
		{"flipped plane", mustPlane(t, []float64{-1, 0, 0}, -1), kernel.SplitFlush},
		{"parallel inside", mustPlane(t, []float64{1, 0, 0}, -1), kernel.SplitInside},
		{"parallel outside", mustPlane(t, []float64{1, 0, 0}, 2), kernel.SplitOutside},
		{"line in plane", mustFlat(t, []float64{1, 0, 0}, []float64{0, 1, 1}), kernel.SplitFlush},
		{"line parallel outside", mustFlat(t, []float64{3, 0, 0}, []float64{0, 0, 1}), kernel.SplitOutside},
		{"crossing plane", mustPlane(t, []float64{0, 0, 1}, 0), kernel.SplitThrough},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, err := tt.receiver.Split(divider, space)
			require.NoError(t, err)
			assert.Equal(t, tt.want, split.Kind)
			if tt.want != kernel.SplitThrough {
				assert.Nil(t, split.Intersection)
			}
		})
	}
}

func TestSplitIntersectionPointsInsideDivider(t *testing.T) {
	space := Space(3)
	face := mustPlane(t, []float64{0, 0, 1}, 1) // z < 1, face on z = 1
	divider := mustPlane(t, []float64{1, 0, 0}, 0)

	split, err := face.Split(divider, space)
	require.NoError(t, err)
	require.Equal(t, kernel.SplitThrough, split.Kind)

	got, err := split.Intersection.WhichSideHasPoint(kernel.NewPoint(-1, 3, 1), face)
	require.NoError(t, err)
	assert.Equal(t, kernel.Inside, got)

	got, err = split.Intersection.WhichSideHasPoint(kernel.NewPoint(1, -3, 1), face)
	require.NoError(t, err)
	assert.Equal(t, kernel.Outside, got)

	got, err = split.Intersection.WhichSideHasPoint(kernel.NewPoint(0, 8, 1), face)
	require.NoError(t, err)
	assert.Equal(t, kernel.On, got)
}

func TestSplitLineGivesOrientedPointPair(t *testing.T) {
	space := Space(2)
	divider := mustPlane(t, []float64{1, 1}, 2) // x + y < 2

	tests := []struct {
		name string
		line *Flat
	}{
		{"along +x", mustFlat(t, []float64{0, 0}, []float64{1, 0})},
		{"along -x", mustFlat(t, []float64{0, 0}, []float64{-1, 0})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, err := tt.line.Split(divider, space)
			require.NoError(t, err)
			require.Equal(t, kernel.SplitThrough, split.Kind)

			n, err := split.Intersection.NDim()
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			pts, err := split.Intersection.ToPointPair()
			require.NoError(t, err)
			finite := pts[0]
			if finite.IsInfinite() {
				finite = pts[1]
			}
			assert.True(t, finite.ApproxEq(kernel.NewPoint(2, 0)))

			got, err := split.Intersection.WhichSideHasPoint(kernel.NewPoint(0, 0), tt.line)
			require.NoError(t, err)
			assert.Equal(t, kernel.Inside, got)
			got, err = split.Intersection.WhichSideHasPoint(kernel.NewPoint(5, 0), tt.line)
			require.NoError(t, err)
			assert.Equal(t, kernel.Outside, got)
		})
	}
}

func TestSplitLineByPointPair(t *testing.T) {
	line := Space(1)
	divider := mustPlane(t, []float64{1}, 0)
	split, err := line.Split(divider, line)
	require.NoError(t, err)
	assert.Equal(t, kernel.SplitThrough, split.Kind)
	s, ok := split.Intersection.RelativeOrientation(divider)
	require.True(t, ok)
	assert.Equal(t, kernel.Pos, s)
}

// --- Side queries ---

func TestWhichSide(t *testing.T) {
	space := Space(3)
	plane := mustPlane(t, []float64{1, 0, 0}, 1)

	tests := []struct {
		name string
		f    *Flat
		want kernel.WhichSide
	}{
		{"crossing line", mustFlat(t, []float64{0, 0, 0}, []float64{1, 0, 0}), kernel.WhichSide{IsAnyInside: true, IsAnyOutside: true}},
		{"parallel inside", mustFlat(t, []float64{0, 0, 0}, []float64{0, 1, 0}), kernel.WhichSide{IsAnyInside: true}},
		{"parallel outside", mustFlat(t, []float64{4, 0, 0}, []float64{0, 1, 0}), kernel.WhichSide{IsAnyOutside: true}},
		{"coincident", mustFlat(t, []float64{1, 0, 0}, []float64{0, 0, 1}), kernel.WhichSide{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.f.WhichSide(plane, space)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWhichSideHasPointHigherCodimension(t *testing.T) {
	line := mustFlat(t, []float64{0, 0, 0}, []float64{0, 0, 1})
	got, err := line.WhichSideHasPoint(kernel.NewPoint(0, 0, 9), Space(3))
	require.NoError(t, err)
	assert.Equal(t, kernel.On, got)
	got, err = line.WhichSideHasPoint(kernel.NewPoint(1, 0, 9), Space(3))
	require.NoError(t, err)
	assert.Equal(t, kernel.Outside, got)
}

func TestFlipReversesSides(t *testing.T) {
	space := Space(2)
	plane := mustPlane(t, []float64{0, 1}, 0)
	flipped, err := plane.Flip()
	require.NoError(t, err)

	s, ok := flipped.RelativeOrientation(plane)
	require.True(t, ok)
	assert.Equal(t, kernel.Neg, s)

	got, err := flipped.WhichSideHasPoint(kernel.NewPoint(0, -1), space)
	require.NoError(t, err)
	assert.Equal(t, kernel.Outside, got)
}

func TestProjectPoint(t *testing.T) {
	plane := mustPlane(t, []float64{0, 0, 1}, 2)
	p, err := plane.ProjectPoint(kernel.NewPoint(1, 2, 7))
	require.NoError(t, err)
	assert.True(t, p.ApproxEq(kernel.NewPoint(1, 2, 2)), "got %s", p)

	p, err = plane.ProjectPoint(kernel.Infinity)
	require.NoError(t, err)
	assert.True(t, p.IsInfinite())
}

// --- Point pairs ---

func TestPointPairArcs(t *testing.T) {
	line := Space(1)
	seg, err := line.PointPair(kernel.NewPoint(1), kernel.NewPoint(3))
	require.NoError(t, err)
	wrap, err := line.PointPair(kernel.NewPoint(3), kernel.NewPoint(1))
	require.NoError(t, err)

	tests := []struct {
		name      string
		p         kernel.Point
		seg, wrap kernel.PointWhichSide
	}{
		{"between", kernel.NewPoint(2), kernel.Inside, kernel.Outside},
		{"below", kernel.NewPoint(0), kernel.Outside, kernel.Inside},
		{"above", kernel.NewPoint(10), kernel.Outside, kernel.Inside},
		{"infinity", kernel.Infinity, kernel.Outside, kernel.Inside},
		{"endpoint", kernel.NewPoint(3), kernel.On, kernel.On},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := seg.WhichSideHasPoint(tt.p, line)
			require.NoError(t, err)
			assert.Equal(t, tt.seg, got)
			got, err = wrap.WhichSideHasPoint(tt.p, line)
			require.NoError(t, err)
			assert.Equal(t, tt.wrap, got)
		})
	}
}

func TestPointPairOrientation(t *testing.T) {
	line := Space(1)
	pp, err := line.PointPair(kernel.NewPoint(1), kernel.Infinity)
	require.NoError(t, err)
	assert.True(t, pp.OPNSIsFlat())

	flipped, err := pp.Flip()
	require.NoError(t, err)
	s, ok := flipped.RelativeOrientation(pp)
	require.True(t, ok)
	assert.Equal(t, kernel.Neg, s)

	s, ok = pp.RelativeOrientation(pp)
	require.True(t, ok)
	assert.Equal(t, kernel.Pos, s)

	other, err := line.PointPair(kernel.NewPoint(2), kernel.Infinity)
	require.NoError(t, err)
	_, ok = pp.RelativeOrientation(other)
	assert.False(t, ok)
	_, ok = pp.RelativeOrientation(line)
	assert.False(t, ok)

	assert.Contains(t, pp.String(), "∞")
}

func TestPointPairErrors(t *testing.T) {
	line := Space(1)
	_, err := line.PointPair(kernel.NewPoint(1), kernel.NewPoint(1))
	assert.True(t, errors.Is(err, ErrDegenerate))

	diag := mustFlat(t, []float64{0, 0}, []float64{1, 1})
	_, err = diag.PointPair(kernel.NewPoint(1, 0), kernel.Infinity)
	assert.True(t, errors.Is(err, ErrDimension))

	_, err = Space(2).PointPair(kernel.NewPoint(0, 0), kernel.Infinity)
	assert.True(t, errors.Is(err, ErrDimension))

	_, err = Space(2).ToPointPair()
	assert.True(t, errors.Is(err, ErrNotPointPair))

	pp, err := line.PointPair(kernel.NewPoint(0), kernel.NewPoint(1))
	require.NoError(t, err)
	_, err = pp.ProjectPoint(kernel.NewPoint(0))
	assert.True(t, errors.Is(err, ErrNotFlat))
}

func TestPointPairSplit(t *testing.T) {
	line := Space(1)
	pp, err := line.PointPair(kernel.NewPoint(1), kernel.NewPoint(3))
	require.NoError(t, err)

	split, err := pp.Split(mustPlane(t, []float64{1}, 5), line)
	require.NoError(t, err)
	assert.Equal(t, kernel.SplitInside, split.Kind)

	split, err = pp.Split(mustPlane(t, []float64{1}, 0), line)
	require.NoError(t, err)
	assert.Equal(t, kernel.SplitOutside, split.Kind)

	_, err = pp.Split(mustPlane(t, []float64{1}, 2), line)
	assert.Error(t, err)
}

func TestPointPairInHigherDimensionalSpace(t *testing.T) {
	edge := mustFlat(t, []float64{0, 0, 0}, []float64{1, 0, 0})
	pp, err := edge.PointPair(kernel.NewPoint(1, 0, 0), kernel.NewPoint(2, 0, 0))
	require.NoError(t, err)

	got, err := pp.WhichSideHasPoint(kernel.NewPoint(1, 0, 0), Space(3))
	require.NoError(t, err)
	assert.Equal(t, kernel.On, got)
	got, err = pp.WhichSideHasPoint(kernel.NewPoint(1.5, 0, 0), Space(3))
	require.NoError(t, err)
	assert.Equal(t, kernel.Outside, got)
	got, err = pp.WhichSideHasPoint(kernel.NewPoint(1.5, 0, 0), edge)
	require.NoError(t, err)
	assert.Equal(t, kernel.Inside, got)
}

package shape

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/chazu/polyslice/pkg/kernel"
	"github.com/chazu/polyslice/pkg/kernel/flat"
)

func newTestArena(t *testing.T, ndim int) *Arena {
	t.Helper()
	return New(flat.Space(ndim),
		WithDebugChecks(true),
		WithLogger(zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))))
}

func plane(t *testing.T, normal []float64, distance float64) kernel.Manifold {
	t.Helper()
	m, err := flat.Hyperplane(normal, distance)
	require.NoError(t, err)
	return m
}

// cubeFacets are the six half-spaces whose intersection is [-1, 1]^3.
var cubeFacets = []struct {
	normal []float64
	tag    Metadata
}{
	{[]float64{1, 0, 0}, 1},
	{[]float64{-1, 0, 0}, 2},
	{[]float64{0, 1, 0}, 3},
	{[]float64{0, -1, 0}, 4},
	{[]float64{0, 0, 1}, 5},
	{[]float64{0, 0, -1}, 6},
}

// carveCube cuts a 3-D arena down to the cube [-1, 1]^3, tagging each face
// with its facet tag, and returns the cube's id.
func carveCube(t *testing.T, a *Arena) ShapeID {
	t.Helper()
	for _, f := range cubeFacets {
		err := a.Cut(CutParams{
			Cut:     plane(t, f.normal, 1),
			Inside:  Keep(f.tag),
			Outside: Remove(),
		})
		require.NoError(t, err)
	}
	roots := a.Roots()
	require.Len(t, roots, 1)
	return roots[0]
}

// faceByTag returns the boundary reference of the cube face tagged tag.
func faceByTag(t *testing.T, a *Arena, cube ShapeID, tag Metadata) ShapeRef {
	t.Helper()
	s, ok := a.Get(cube)
	require.True(t, ok)
	for _, r := range s.Boundary.Refs() {
		if a.Metadata(r) == tag {
			return r
		}
	}
	t.Fatalf("no face tagged %d", tag)
	return ShapeRef{}
}

func boundaryTags(t *testing.T, a *Arena, id ShapeID) []Metadata {
	t.Helper()
	s, ok := a.Get(id)
	require.True(t, ok)
	tags := make([]Metadata, 0, s.Boundary.Len())
	for _, r := range s.Boundary.Refs() {
		tags = append(tags, a.Metadata(r))
	}
	return tags
}

// stubManifold answers every split with a fixed classification. Its
// dimension is ndim, or 3 when ndim is zero.
type stubManifold struct {
	kind kernel.SplitKind
	ndim int
}

func (m stubManifold) NDim() (int, error) {
	if m.ndim == 0 {
		return 3, nil
	}
	return m.ndim, nil
}
func (m stubManifold) Split(divider, space kernel.Manifold) (kernel.ManifoldSplit, error) {
	return kernel.ManifoldSplit{Kind: m.kind}, nil
}
func (m stubManifold) WhichSide(boundary, space kernel.Manifold) (kernel.WhichSide, error) {
	return kernel.WhichSide{}, nil
}
func (m stubManifold) WhichSideHasPoint(p kernel.Point, space kernel.Manifold) (kernel.PointWhichSide, error) {
	return kernel.On, nil
}
func (m stubManifold) RelativeOrientation(other kernel.Manifold) (kernel.Sign, bool) {
	return kernel.Pos, false
}
func (m stubManifold) Flip() (kernel.Manifold, error) { return m, nil }
func (m stubManifold) ToPointPair() ([2]kernel.Point, error) { return [2]kernel.Point{}, nil }
func (m stubManifold) PointPair(p, q kernel.Point) (kernel.Manifold, error) { return m, nil }
func (m stubManifold) OPNSIsFlat() bool { return true }
func (m stubManifold) ProjectPoint(p kernel.Point) (kernel.Point, error) { return p, nil }
func (m stubManifold) String() string { return "stub" }

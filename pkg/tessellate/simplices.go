package tessellate

import (
	"fmt"
	"math"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"

	"github.com/chazu/polyslice/pkg/kernel"
	"github.com/chazu/polyslice/pkg/shape"
)

var (
	// ErrNotFlat is returned for shapes on curved manifolds.
	ErrNotFlat = errors.New("tessellate: spherical shapes are not yet supported")
	// ErrInfinitePoint is returned when a shape reaches infinity.
	ErrInfinitePoint = errors.New("tessellate: infinite point")
	// ErrNotPolygon is returned by FacePolygons for shapes of rank other
	// than 2.
	ErrNotPolygon = errors.New("tessellate: cannot triangulate non-polygon")
	// ErrBadEdge is returned for edges not bounded by exactly one point pair.
	ErrBadEdge = errors.New("tessellate: edge should be bounded by exactly one point pair")
	// ErrEmpty is returned for shapes with no simplices.
	ErrEmpty = errors.New("tessellate: empty shape")
	// ErrHullDimension is returned when the facets of a convex hull have
	// different ranks.
	ErrHullDimension = errors.New("tessellate: dimension-mismatched convex hull")
)

// VertexID indexes a deduplicated vertex of a Simplexifier.
type VertexID uint32

func (v VertexID) String() string {
	return fmt.Sprintf("v%d", uint32(v))
}

// simplex is a set of vertex ids.
type simplex = *roaring.Bitmap

// blob is a convex polytope cut into simplices.
type blob []simplex

func (b blob) contains(s simplex) bool {
	for _, t := range b {
		if t.Equals(s) {
			return true
		}
	}
	return false
}

func (b blob) String() string {
	parts := make([]string, len(b))
	for i, s := range b {
		parts[i] = s.String()
	}
	return "blob[" + strings.Join(parts, ", ") + "]"
}

// Simplexifier breaks flat convex shapes of an arena into simplices over a
// shared, deduplicated vertex list. Results are cached per shape, so a
// Simplexifier must not outlive changes to the arena.
type Simplexifier struct {
	arena    *shape.Arena
	vertices [][]float64
	cache    map[shape.ShapeID]blob
}

// NewSimplexifier returns a Simplexifier for the shapes of a.
func NewSimplexifier(a *shape.Arena) *Simplexifier {
	return &Simplexifier{
		arena: a,
		cache: make(map[shape.ShapeID]blob),
	}
}

// NumVertices returns the number of distinct vertices seen so far.
func (sx *Simplexifier) NumVertices() int {
	return len(sx.vertices)
}

// Vertex returns the coordinates of v.
func (sx *Simplexifier) Vertex(v VertexID) []float64 {
	out := make([]float64, len(sx.vertices[v]))
	copy(out, sx.vertices[v])
	return out
}

func (sx *Simplexifier) addVertex(p kernel.Point) (VertexID, error) {
	if p.IsInfinite() {
		return 0, ErrInfinitePoint
	}
	for i, v := range sx.vertices {
		if p.ApproxEq(kernel.NewPoint(v...)) {
			return VertexID(i), nil
		}
	}
	sx.vertices = append(sx.vertices, p.Coords())
	return VertexID(len(sx.vertices) - 1), nil
}

// edgeVertices returns the endpoints of an edge, oriented by edge.
func (sx *Simplexifier) edgeVertices(edge shape.ShapeRef) (VertexID, VertexID, error) {
	s, ok := sx.arena.Get(edge.ID)
	if !ok {
		return 0, 0, errors.Wrapf(shape.ErrNoShape, "edge %s", edge)
	}
	if s.Boundary.Len() != 1 {
		return 0, 0, errors.Wrapf(ErrBadEdge, "edge %s has %d", edge, s.Boundary.Len())
	}
	ab, err := sx.arena.PointPair(s.Boundary.Refs()[0].Mul(edge.Sign))
	if err != nil {
		return 0, 0, err
	}
	a, err := sx.addVertex(ab[0])
	if err != nil {
		return 0, 0, errors.Wrapf(err, "edge %s", edge)
	}
	b, err := sx.addVertex(ab[1])
	if err != nil {
		return 0, 0, errors.Wrapf(err, "edge %s", edge)
	}
	return a, b, nil
}

// ShapeSimplices returns the simplices of a shape as sorted vertex lists.
func (sx *Simplexifier) ShapeSimplices(id shape.ShapeID) ([][]VertexID, error) {
	b, err := sx.shapeSimplices(id)
	if err != nil {
		return nil, err
	}
	out := make([][]VertexID, len(b))
	for i, s := range b {
		for _, v := range s.ToArray() {
			out[i] = append(out[i], VertexID(v))
		}
	}
	return out, nil
}

func (sx *Simplexifier) shapeSimplices(id shape.ShapeID) (blob, error) {
	if cached, ok := sx.cache[id]; ok {
		return cached, nil
	}
	b, err := sx.shapeSimplicesUncached(id)
	if err != nil {
		return nil, err
	}
	sx.cache[id] = b
	return b, nil
}

func (sx *Simplexifier) shapeSimplicesUncached(id shape.ShapeID) (blob, error) {
	s, ok := sx.arena.Get(id)
	if !ok {
		return nil, errors.Wrapf(shape.ErrNoShape, "shape %s", id)
	}
	if !s.Manifold.OPNSIsFlat() {
		return nil, errors.Wrapf(ErrNotFlat, "shape %s", id)
	}
	rank, err := s.Rank()
	if err != nil {
		return nil, err
	}
	if rank == 1 {
		a, b, err := sx.edgeVertices(shape.Ref(id))
		if err != nil {
			return nil, err
		}
		return blob{roaring.BitmapOf(uint32(a), uint32(b))}, nil
	}

	facets := make([]blob, 0, s.Boundary.Len())
	for _, r := range s.Boundary.Refs() {
		f, err := sx.shapeSimplices(r.ID)
		if err != nil {
			return nil, err
		}
		facets = append(facets, f)
	}
	return fromConvexHull(facets)
}

// fromConvexHull joins the simplices of every facet to one vertex of the
// hull. Facets must all have the same rank.
func fromConvexHull(facets []blob) (blob, error) {
	var arbitrary simplex
	for _, f := range facets {
		if len(f) > 0 {
			arbitrary = f[0]
			break
		}
	}
	if arbitrary == nil {
		return nil, nil
	}
	facetVerts := arbitrary.GetCardinality()

	vertexSet := roaring.New()
	count := 0
	for _, f := range facets {
		for _, s := range f {
			if s.GetCardinality() != facetVerts {
				return nil, errors.Wrapf(ErrHullDimension, "%s and %s", arbitrary, s)
			}
			vertexSet.Or(s)
			count++
		}
	}

	// n+2 facets on n+2 vertices: the hull is itself a simplex.
	if uint64(count) == facetVerts+1 && uint64(count) == vertexSet.GetCardinality() {
		return blob{vertexSet}, nil
	}
	return coneFrom(facets, arbitrary.Minimum()), nil
}

func coneFrom(facets []blob, apex uint32) blob {
	var out blob
	for _, f := range facets {
		touches := false
		for _, s := range f {
			if s.Contains(apex) {
				touches = true
				break
			}
		}
		if touches {
			continue
		}
		for _, s := range f {
			c := s.Clone()
			c.Add(apex)
			if !out.contains(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// centroid accumulates weighted simplex centers.
type centroid struct {
	sum    []float64
	weight float64
}

func (c *centroid) add(center []float64, weight float64) {
	if c.sum == nil {
		c.sum = make([]float64, len(center))
	}
	vek.Add_Inplace(c.sum, vek.MulNumber(center, weight))
	c.weight += weight
}

func (c *centroid) center() ([]float64, bool) {
	if c.weight <= 0 {
		return nil, false
	}
	return vek.DivNumber(c.sum, c.weight), true
}

// simplexCentroid returns the center and volume of a simplex. The volume is
// the square root of the Gram determinant of its edge vectors.
func (sx *Simplexifier) simplexCentroid(s simplex, m kernel.Manifold) ([]float64, float64, error) {
	verts := s.ToArray()
	if len(verts) == 0 {
		return nil, 0, nil
	}
	v0 := sx.vertices[verts[0]]
	center := make([]float64, len(v0))
	for _, v := range verts {
		vek.Add_Inplace(center, sx.vertices[v])
	}
	vek.DivNumber_Inplace(center, float64(len(verts)))
	if !m.OPNSIsFlat() {
		p, err := m.ProjectPoint(kernel.NewPoint(center...))
		if err != nil || p.IsInfinite() {
			return nil, 0, errors.Wrap(ErrNotFlat, "failed to project point onto manifold")
		}
		center = p.Coords()
	}

	if len(verts) == 1 {
		return center, 1, nil
	}
	edges := mat.NewDense(len(verts)-1, len(v0), nil)
	for i, v := range verts[1:] {
		edges.SetRow(i, vek.Sub(sx.vertices[v], v0))
	}
	var gram mat.Dense
	gram.Mul(edges, edges.T())
	return center, math.Sqrt(math.Max(mat.Det(&gram), 0)), nil
}

// ShapeCentroid returns the center of mass of a shape, projected back onto
// its manifold.
func (sx *Simplexifier) ShapeCentroid(id shape.ShapeID) ([]float64, error) {
	s, ok := sx.arena.Get(id)
	if !ok {
		return nil, errors.Wrapf(shape.ErrNoShape, "shape %s", id)
	}
	b, err := sx.shapeSimplices(id)
	if err != nil {
		return nil, err
	}
	var c centroid
	for _, simp := range b {
		center, w, err := sx.simplexCentroid(simp, s.Manifold)
		if err != nil {
			return nil, err
		}
		if center != nil {
			c.add(center, w)
		}
	}
	center, ok := c.center()
	if !ok {
		return nil, errors.Wrapf(ErrEmpty, "unable to compute centroid of shape %s", id)
	}
	p, err := s.Manifold.ProjectPoint(kernel.NewPoint(center...))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to compute centroid of shape %s", id)
	}
	if p.IsInfinite() {
		return nil, errors.Wrapf(ErrInfinitePoint, "centroid of shape %s", id)
	}
	return p.Coords(), nil
}

// FacePolygons fans a flat polygon into triangles from one of its vertices.
// Each triangle keeps the orientation of the edge it was built from.
func (sx *Simplexifier) FacePolygons(face shape.ShapeRef) ([][3]VertexID, error) {
	s, ok := sx.arena.Get(face.ID)
	if !ok {
		return nil, errors.Wrapf(shape.ErrNoShape, "face %s", face)
	}
	rank, err := s.Rank()
	if err != nil {
		return nil, err
	}
	if rank != 2 {
		return nil, errors.Wrapf(ErrNotPolygon, "shape %s has rank %d", face, rank)
	}
	if !s.Manifold.OPNSIsFlat() {
		return nil, errors.Wrapf(ErrNotFlat, "face %s", face)
	}

	edges := make([][2]VertexID, 0, s.Boundary.Len())
	for _, e := range s.Boundary.Refs() {
		es, ok := sx.arena.Get(e.ID)
		if !ok {
			return nil, errors.Wrapf(shape.ErrNoShape, "edge %s", e)
		}
		if !es.Manifold.OPNSIsFlat() {
			return nil, errors.Wrapf(ErrNotFlat, "edge %s", e)
		}
		a, b, err := sx.edgeVertices(e.Mul(face.Sign))
		if err != nil {
			return nil, err
		}
		edges = append(edges, [2]VertexID{a, b})
	}
	if len(edges) == 0 {
		return nil, errors.Wrapf(ErrEmpty, "polygon %s has no edges", face)
	}

	first := edges[0][0]
	var tris [][3]VertexID
	for _, e := range edges {
		if e[0] == first || e[1] == first {
			continue
		}
		tris = append(tris, [3]VertexID{first, e[0], e[1]})
	}
	return tris, nil
}

// Package tessellate turns the pieces of a shape arena into simplices and
// triangle meshes. One mesh is produced per root piece.
package tessellate

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/polyslice/pkg/kernel"
	"github.com/chazu/polyslice/pkg/shape"
)

// ErrNot3D is returned when tessellating an arena whose space is not
// three-dimensional.
var ErrNot3D = errors.New("tessellate: arena space is not 3-dimensional")

// minArea is the cross product length below which a triangle is dropped.
const minArea = 1e-12

func toVec(c []float64) v3.Vec {
	return v3.Vec{X: c[0], Y: c[1], Z: c[2]}
}

func fromVec(v v3.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Tessellate produces one triangle mesh per root of a 3-D arena. Triangle
// normals face away from the centroid of their piece, and each triangle is
// tagged with the metadata of the face it came from. The tessellator is
// read-only and never mutates the arena.
func Tessellate(a *shape.Arena) ([]*kernel.Mesh, error) {
	if a == nil {
		return nil, nil
	}
	ndim, err := a.Space().NDim()
	if err != nil {
		return nil, err
	}
	if ndim != 3 {
		return nil, errors.Wrapf(ErrNot3D, "space has dimension %d", ndim)
	}

	sx := NewSimplexifier(a)
	var meshes []*kernel.Mesh
	for _, root := range a.Roots() {
		mesh, err := sx.pieceMesh(root)
		if err != nil {
			return nil, errors.Wrapf(err, "tessellate: error meshing root %s", root)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// pieceMesh triangulates every face of a polyhedron.
func (sx *Simplexifier) pieceMesh(id shape.ShapeID) (*kernel.Mesh, error) {
	s, ok := sx.arena.Get(id)
	if !ok {
		return nil, errors.Wrapf(shape.ErrNoShape, "shape %s", id)
	}
	c, err := sx.ShapeCentroid(id)
	if err != nil {
		return nil, err
	}
	center := toVec(c)

	mesh := &kernel.Mesh{Piece: id.String()}
	for _, face := range s.Boundary.Refs() {
		tris, err := sx.FacePolygons(face)
		if err != nil {
			return nil, errors.Wrapf(err, "face %s", face)
		}
		tag := uint16(sx.arena.Metadata(face))
		for _, tri := range tris {
			p0 := toVec(sx.vertices[tri[0]])
			p1 := toVec(sx.vertices[tri[1]])
			p2 := toVec(sx.vertices[tri[2]])

			n := p1.Sub(p0).Cross(p2.Sub(p0))
			if n.Length() < minArea {
				continue
			}
			mid := p0.Add(p1).Add(p2).DivScalar(3)
			if n.Dot(mid.Sub(center)) < 0 {
				p1, p2 = p2, p1
				n = n.MulScalar(-1)
			}
			mesh.AddTriangle([3][3]float64{fromVec(p0), fromVec(p1), fromVec(p2)}, fromVec(n.Normalize()), tag)
		}
	}
	return mesh, nil
}

// Package sdfx hands tessellated pieces to the github.com/deadsy/sdfx CAD
// library: triangle conversion, bounding boxes and STL output.
package sdfx

import (
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/chazu/polyslice/pkg/kernel"
)

// ErrNoTriangles is returned when there is nothing to export.
var ErrNoTriangles = errors.New("sdfx: no triangles")

func vertex(m *kernel.Mesh, i uint32) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[i*3]),
		Y: float64(m.Vertices[i*3+1]),
		Z: float64(m.Vertices[i*3+2]),
	}
}

// ToTriangles converts the triangles of one or more meshes to sdfx
// triangles, keeping their winding.
func ToTriangles(meshes ...*kernel.Mesh) []*sdf.Triangle3 {
	var tris []*sdf.Triangle3
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for i := 0; i < m.TriangleCount(); i++ {
			tri := &sdf.Triangle3{}
			for j := 0; j < 3; j++ {
				tri[j] = vertex(m, m.Indices[i*3+j])
			}
			tris = append(tris, tri)
		}
	}
	return tris
}

// FromTriangles builds a flat-shaded mesh from sdfx triangles. Every
// triangle is tagged with tag.
func FromTriangles(tris []*sdf.Triangle3, piece string, tag uint16) *kernel.Mesh {
	m := &kernel.Mesh{Piece: piece}
	for _, tri := range tris {
		n := tri.Normal()
		var corners [3][3]float64
		for j := 0; j < 3; j++ {
			corners[j] = [3]float64{tri[j].X, tri[j].Y, tri[j].Z}
		}
		m.AddTriangle(corners, [3]float64{n.X, n.Y, n.Z}, tag)
	}
	return m
}

// BoundingBox returns the axis-aligned box around every vertex of the
// meshes, or false if they have no vertices.
func BoundingBox(meshes ...*kernel.Mesh) (sdf.Box3, bool) {
	var bb sdf.Box3
	found := false
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for i := 0; i < m.VertexCount(); i++ {
			v := vertex(m, uint32(i))
			if !found {
				bb = sdf.Box3{Min: v, Max: v}
				found = true
				continue
			}
			bb = sdf.Box3{Min: bb.Min.Min(v), Max: bb.Max.Max(v)}
		}
	}
	return bb, found
}

// SaveSTL writes the triangles of the meshes to a binary STL file.
func SaveSTL(path string, meshes ...*kernel.Mesh) error {
	tris := ToTriangles(meshes...)
	if len(tris) == 0 {
		return errors.Wrapf(ErrNoTriangles, "writing %s", path)
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

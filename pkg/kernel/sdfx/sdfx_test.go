package sdfx

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/polyslice/pkg/kernel"
)

// quad returns a mesh of the unit square in the z=0 plane as two triangles.
func quad() *kernel.Mesh {
	m := &kernel.Mesh{Piece: "#1"}
	m.AddTriangle([3][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}, [3]float64{0, 0, 1}, 1)
	m.AddTriangle([3][3]float64{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}}, [3]float64{0, 0, 1}, 1)
	return m
}

func TestToTriangles(t *testing.T) {
	tris := ToTriangles(quad(), nil, quad())
	if len(tris) != 4 {
		t.Fatalf("expected 4 triangles, got %d", len(tris))
	}
	if tris[0][1] != (v3.Vec{X: 1, Y: 0, Z: 0}) {
		t.Errorf("second corner = %v, want (1, 0, 0)", tris[0][1])
	}
	// Winding is preserved, so sdfx computes the same normal.
	n := tris[1].Normal()
	if math.Abs(n.Z-1) > 1e-9 {
		t.Errorf("normal = %v, want +z", n)
	}
}

func TestBoundingBox(t *testing.T) {
	if _, ok := BoundingBox(); ok {
		t.Fatal("expected no box for no meshes")
	}

	m := quad()
	m.AddTriangle([3][3]float64{{-2, 0, 0}, {0, 3, 0}, {0, 0, 5}}, [3]float64{1, 0, 0}, 2)
	bb, ok := BoundingBox(m)
	if !ok {
		t.Fatal("expected a bounding box")
	}

	expectMin := v3.Vec{X: -2, Y: 0, Z: 0}
	expectMax := v3.Vec{X: 1, Y: 3, Z: 5}
	if bb.Min != expectMin {
		t.Errorf("min = %v, expected %v", bb.Min, expectMin)
	}
	if bb.Max != expectMax {
		t.Errorf("max = %v, expected %v", bb.Max, expectMax)
	}
}

func TestSaveSTL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.stl")
	if err := SaveSTL(path, quad()); err != nil {
		t.Fatalf("SaveSTL failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	// Binary STL: 80 byte header, triangle count, 50 bytes per triangle.
	if want := int64(84 + 50*2); info.Size() != want {
		t.Errorf("file size = %d, want %d", info.Size(), want)
	}
}

func TestSaveSTLEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.stl")
	if err := SaveSTL(path, &kernel.Mesh{}); err == nil {
		t.Fatal("expected an error for an empty mesh")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("no file should be written, stat returned %v", err)
	}
}

func TestFromTrianglesMatchesSDFBox(t *testing.T) {
	box, err := sdf.Box3D(v3.Vec{X: 2, Y: 2, Z: 2}, 0)
	if err != nil {
		t.Fatalf("Box3D: %v", err)
	}
	tris := render.ToTriangles(box, render.NewMarchingCubesUniform(20))
	m := FromTriangles(tris, "box", 3)
	if m.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if m.TriangleCount() != len(tris) {
		t.Fatalf("expected %d triangles, got %d", len(tris), m.TriangleCount())
	}
	if len(m.Tags) != m.TriangleCount() || m.Tags[0] != 3 {
		t.Fatalf("expected every triangle tagged 3, got %v", m.Tags[:1])
	}

	bb, ok := BoundingBox(m)
	if !ok {
		t.Fatal("expected a bounding box")
	}
	const tol = 0.25
	for _, c := range [][2]float64{{bb.Min.X, -1}, {bb.Min.Y, -1}, {bb.Min.Z, -1}, {bb.Max.X, 1}, {bb.Max.Y, 1}, {bb.Max.Z, 1}} {
		if math.Abs(c[0]-c[1]) > tol {
			t.Errorf("bounding box %v, expected about [-1, 1]^3", bb)
			break
		}
	}
}

package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- Sign algebra ---

func TestSignMul(t *testing.T) {
	tests := []struct {
		a, b, want Sign
	}{
		{Pos, Pos, Pos},
		{Pos, Neg, Neg},
		{Neg, Pos, Neg},
		{Neg, Neg, Pos},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.a.Mul(tt.b), "%s * %s", tt.a, tt.b)
	}
}

func TestSignDoubleNegationIsIdentity(t *testing.T) {
	for _, s := range []Sign{Pos, Neg} {
		assert.Equal(t, s, s.Neg().Neg())
		assert.NotEqual(t, s, s.Neg())
	}
}

func TestSignOf(t *testing.T) {
	assert.Equal(t, Pos, SignOf(0))
	assert.Equal(t, Pos, SignOf(2.5))
	assert.Equal(t, Neg, SignOf(-1e-3))
}

// --- Points ---

func TestPointApproxEq(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want bool
	}{
		{"same", NewPoint(1, 2), NewPoint(1, 2), true},
		{"within tolerance", NewPoint(1, 2), NewPoint(1+Epsilon/2, 2), true},
		{"different", NewPoint(1, 2), NewPoint(1, 2.1), false},
		{"both infinite", Infinity, Infinity, true},
		{"finite vs infinite", NewPoint(0, 0), Infinity, false},
		{"implicit trailing zero", NewPoint(1), NewPoint(1, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.ApproxEq(tt.b))
			assert.Equal(t, tt.want, tt.b.ApproxEq(tt.a))
		})
	}
}

func TestNewPointCopiesCoordinates(t *testing.T) {
	c := []float64{1, 2, 3}
	p := NewPoint(c...)
	c[0] = 99
	assert.Equal(t, 1.0, p.Coords()[0])
	assert.Equal(t, 3, p.NDim())
	assert.Equal(t, "(1, 2, 3)", p.String())
	assert.Equal(t, "∞", Infinity.String())
}

// --- Side classification ---

func TestPointWhichSideMul(t *testing.T) {
	assert.Equal(t, Inside, Inside.Mul(Pos))
	assert.Equal(t, Outside, Inside.Mul(Neg))
	assert.Equal(t, Inside, Outside.Mul(Neg))
	assert.Equal(t, On, On.Mul(Neg))
}

func TestWhichSideMul(t *testing.T) {
	w := WhichSide{IsAnyInside: true}
	assert.Equal(t, w, w.Mul(Pos))
	assert.Equal(t, WhichSide{IsAnyOutside: true}, w.Mul(Neg))
	both := WhichSide{IsAnyInside: true, IsAnyOutside: true}
	assert.Equal(t, both, both.Mul(Neg))
}

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			assert.Equal(t, tt.want, m.VertexCount())
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			assert.Equal(t, tt.want, m.TriangleCount())
		})
	}
}

func TestMeshIsEmptyAndTriangle(t *testing.T) {
	assert.True(t, (&Mesh{}).IsEmpty())

	m := &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 2},
	}
	assert.False(t, m.IsEmpty())
	tri := m.Triangle(0)
	assert.Equal(t, [3]float32{1, 0, 0}, tri[1])
	assert.Equal(t, [3]float32{0, 1, 0}, tri[2])
}

func TestMeshAddTriangle(t *testing.T) {
	m := &Mesh{}
	m.AddTriangle([3][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, [3]float64{0, 0, 1}, 4)
	m.AddTriangle([3][3]float64{{0, 0, 1}, {0, 1, 1}, {1, 0, 1}}, [3]float64{0, 0, -1}, 5)

	assert.Equal(t, 2, m.TriangleCount())
	assert.Equal(t, 6, m.VertexCount())
	assert.Len(t, m.Normals, len(m.Vertices))
	assert.Equal(t, []uint16{4, 5}, m.Tags)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, m.Indices)
	assert.Equal(t, [3]float32{0, 1, 1}, m.Triangle(1)[1])
}

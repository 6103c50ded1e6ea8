package shape

import "github.com/chazu/polyslice/pkg/kernel"

// Shape is one node of the boundary representation: a region of Manifold
// bounded by the shapes in Boundary, each of rank one less. A shape with an
// empty boundary is the whole manifold.
type Shape struct {
	Manifold         kernel.Manifold
	Boundary         RefSet
	PositiveMetadata Metadata
	NegativeMetadata Metadata
}

// WholeSpace returns a shape covering all of m.
func WholeSpace(m kernel.Manifold) Shape {
	return Shape{Manifold: m}
}

// Rank returns the dimension of the shape's manifold.
func (s Shape) Rank() (int, error) {
	return s.Manifold.NDim()
}

// slab is slot storage with a free list. Freed slots are reused most
// recently freed first.
type slab struct {
	slots []slot
	free  []ShapeID
	live  int
}

type slot struct {
	shape    Shape
	occupied bool
}

func (s *slab) insert(sh Shape) ShapeID {
	s.live++
	if n := len(s.free); n > 0 {
		id := s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[id] = slot{shape: sh, occupied: true}
		return id
	}
	s.slots = append(s.slots, slot{shape: sh, occupied: true})
	return ShapeID(len(s.slots) - 1)
}

func (s *slab) get(id ShapeID) (*Shape, bool) {
	if int(id) >= len(s.slots) || !s.slots[id].occupied {
		return nil, false
	}
	return &s.slots[id].shape, true
}

func (s *slab) remove(id ShapeID) bool {
	if _, ok := s.get(id); !ok {
		return false
	}
	s.slots[id] = slot{}
	s.free = append(s.free, id)
	s.live--
	return true
}

// ids returns the occupied slot ids in increasing order.
func (s *slab) ids() []ShapeID {
	out := make([]ShapeID, 0, s.live)
	for i, sl := range s.slots {
		if sl.occupied {
			out = append(out, ShapeID(i))
		}
	}
	return out
}

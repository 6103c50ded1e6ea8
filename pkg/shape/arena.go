package shape

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chazu/polyslice/pkg/kernel"
)

// Arena owns a set of shapes in a common space. It starts with a single
// root covering the whole space; cuts replace the roots with the pieces
// they keep. An Arena is not safe for concurrent use.
type Arena struct {
	space  kernel.Manifold
	shapes slab
	roots  []ShapeID

	log   *zap.Logger
	debug bool
}

// Option configures an Arena.
type Option func(*Arena)

// WithLogger sets the logger that receives the shape construction log.
func WithLogger(l *zap.Logger) Option {
	return func(a *Arena) {
		if l != nil {
			a.log = l
		}
	}
}

// WithDebugChecks turns the polygon closure and interval endpoint checks on
// or off. They default to on only in builds tagged polyslice_debug.
func WithDebugChecks(on bool) Option {
	return func(a *Arena) {
		a.debug = on
	}
}

// New returns an arena whose only root is the whole of space.
func New(space kernel.Manifold, opts ...Option) *Arena {
	a := &Arena{
		space: space,
		log:   zap.NewNop(),
		debug: debugChecksDefault,
	}
	for _, opt := range opts {
		opt(a)
	}
	id := a.shapes.insert(WholeSpace(space))
	a.roots = []ShapeID{id}
	return a
}

// Space returns the manifold every shape in the arena lives in.
func (a *Arena) Space() kernel.Manifold {
	return a.space
}

// Roots returns the top-level shapes in the order the cuts produced them.
func (a *Arena) Roots() []ShapeID {
	out := make([]ShapeID, len(a.roots))
	copy(out, a.roots)
	return out
}

// IsEmpty reports whether the arena has no roots.
func (a *Arena) IsEmpty() bool {
	return len(a.roots) == 0
}

// Len returns the number of live shapes, reachable or not.
func (a *Arena) Len() int {
	return a.shapes.live
}

// DebugChecks reports whether the structural self-checks are enabled.
func (a *Arena) DebugChecks() bool {
	return a.debug
}

// Get returns the shape with the given id.
func (a *Arena) Get(id ShapeID) (Shape, bool) {
	s, ok := a.shapes.get(id)
	if !ok {
		return Shape{}, false
	}
	return *s, true
}

// shape returns a copy of a live shape. Ids handed out by the arena stay
// live until GC, so a miss is a bug in the caller.
func (a *Arena) shape(id ShapeID) Shape {
	s, ok := a.shapes.get(id)
	if !ok {
		panic(fmt.Sprintf("shape: no shape %s", id))
	}
	return *s
}

func (a *Arena) lookup(id ShapeID) (Shape, error) {
	s, ok := a.shapes.get(id)
	if !ok {
		return Shape{}, errors.Wrapf(ErrNoShape, "shape %s", id)
	}
	return *s, nil
}

// Rank returns the rank of a shape.
func (a *Arena) Rank(id ShapeID) (int, error) {
	s, err := a.lookup(id)
	if err != nil {
		return 0, err
	}
	return s.Rank()
}

// Add inserts a shape and returns a positive reference to it. Every
// boundary element must have rank one less than the shape. With debug
// checks on, the edges of a polygon must chain into closed loops.
func (a *Arena) Add(s Shape) (ShapeRef, error) {
	ndim, err := s.Rank()
	if err != nil {
		return ShapeRef{}, errors.Wrap(err, "rank of new shape")
	}
	for _, b := range s.Boundary.Refs() {
		bs, err := a.lookup(b.ID)
		if err != nil {
			return ShapeRef{}, err
		}
		bn, err := bs.Rank()
		if err != nil {
			return ShapeRef{}, errors.Wrapf(err, "rank of boundary shape %s", b)
		}
		if bn+1 != ndim {
			return ShapeRef{}, errors.Wrapf(ErrRankMismatch, "rank %d shape bounded by rank %d shape %s", ndim, bn, b)
		}
	}
	if a.debug && ndim == 2 {
		if err := a.checkPolygon(s.Boundary); err != nil {
			a.log.Debug("invalid polygon", zap.Stringer("boundary", s.Boundary), zap.Error(err))
			return ShapeRef{}, err
		}
	}

	s.Boundary = s.Boundary.Clone()
	id := a.shapes.insert(s)
	a.log.Debug("add",
		zap.Stringer("id", id),
		zap.Stringer("manifold", s.Manifold),
		zap.Stringer("boundary", s.Boundary))
	return Ref(id), nil
}

// AddSubshape returns a shape on the manifold of old bounded by boundary.
// If boundary is exactly the boundary of old, old itself is returned;
// otherwise a new shape is added that inherits the metadata of old.
func (a *Arena) AddSubshape(old ShapeID, boundary RefSet) (ShapeRef, error) {
	prev, err := a.lookup(old)
	if err != nil {
		return ShapeRef{}, err
	}
	if boundary.Equal(prev.Boundary) {
		a.log.Debug("add_subshape: same as existing shape", zap.Stringer("old", old))
		return Ref(old), nil
	}
	r, err := a.Add(Shape{
		Manifold:         prev.Manifold,
		Boundary:         boundary,
		PositiveMetadata: prev.PositiveMetadata,
		NegativeMetadata: prev.NegativeMetadata,
	})
	if err != nil {
		return ShapeRef{}, errors.Wrapf(err, "subshape of %s", old)
	}
	return r, nil
}

// checkPolygon walks the oriented point pairs of every edge. Each point must
// start exactly as many edges as it ends.
func (a *Arena) checkPolygon(edges RefSet) error {
	var starts, ends []kernel.Point
	take := func(list []kernel.Point, p kernel.Point) ([]kernel.Point, bool) {
		for i, q := range list {
			if p.ApproxEq(q) {
				return append(list[:i], list[i+1:]...), true
			}
		}
		return list, false
	}
	for _, edge := range edges.Refs() {
		es, err := a.lookup(edge.ID)
		if err != nil {
			return err
		}
		for _, pp := range es.Boundary.Refs() {
			ab, err := a.PointPair(pp.Mul(edge.Sign))
			if err != nil {
				return errors.Wrapf(err, "endpoints of edge %s", edge)
			}
			var ok bool
			if ends, ok = take(ends, ab[0]); !ok {
				starts = append(starts, ab[0])
			}
			if starts, ok = take(starts, ab[1]); !ok {
				ends = append(ends, ab[1])
			}
		}
	}
	if len(starts) != 0 || len(ends) != 0 {
		return errors.Wrapf(ErrInvalidPolygon, "%d unmatched start points and %d unmatched end points", len(starts), len(ends))
	}
	return nil
}

// SignedManifold returns the manifold of r.ID, flipped if r is negative.
func (a *Arena) SignedManifold(r ShapeRef) (kernel.Manifold, error) {
	s, err := a.lookup(r.ID)
	if err != nil {
		return nil, err
	}
	if r.Sign == kernel.Neg {
		return s.Manifold.Flip()
	}
	return s.Manifold, nil
}

// PointPair returns the two points of a rank 0 shape in the order given by
// the orientation of r.
func (a *Arena) PointPair(r ShapeRef) ([2]kernel.Point, error) {
	s, err := a.lookup(r.ID)
	if err != nil {
		return [2]kernel.Point{}, err
	}
	ab, err := s.Manifold.ToPointPair()
	if err != nil {
		return [2]kernel.Point{}, err
	}
	if r.Sign == kernel.Neg {
		ab[0], ab[1] = ab[1], ab[0]
	}
	return ab, nil
}

// Metadata returns the tag attached to the orientation r of a shape.
func (a *Arena) Metadata(r ShapeRef) Metadata {
	s, ok := a.shapes.get(r.ID)
	if !ok {
		return NoMetadata
	}
	if r.Sign == kernel.Neg {
		return s.NegativeMetadata
	}
	return s.PositiveMetadata
}

// SetMetadata attaches m to the orientation r of a shape.
func (a *Arena) SetMetadata(r ShapeRef, m Metadata) {
	s, ok := a.shapes.get(r.ID)
	if !ok {
		return
	}
	if r.Sign == kernel.Neg {
		s.NegativeMetadata = m
	} else {
		s.PositiveMetadata = m
	}
}

// signDifference returns the sign relating the oriented manifold of r to m,
// or false if they are different manifolds.
func (a *Arena) signDifference(r ShapeRef, m kernel.Manifold) (kernel.Sign, bool) {
	s := a.shape(r.ID)
	sign, ok := s.Manifold.RelativeOrientation(m)
	if !ok {
		return kernel.Pos, false
	}
	return sign.Mul(r.Sign), true
}

// String dumps the shapes reachable from the roots as an indented tree.
func (a *Arena) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shape arena in space %s\n", a.space)
	for _, root := range a.roots {
		a.writeShape(&b, Ref(root), 1)
	}
	return b.String()
}

func (a *Arena) writeShape(b *strings.Builder, r ShapeRef, indent int) {
	b.WriteString(strings.Repeat("  ", indent))
	fmt.Fprintf(b, "%s%-5d", r.Sign, uint32(r.ID))
	if m, err := a.SignedManifold(r); err == nil {
		b.WriteString(m.String())
		if md := a.Metadata(r); md != NoMetadata {
			fmt.Fprintf(b, " (in=%d)", md)
		}
		if md := a.Metadata(r.Neg()); md != NoMetadata {
			fmt.Fprintf(b, " (out=%d)", md)
		}
	}
	b.WriteByte('\n')
	s, ok := a.shapes.get(r.ID)
	if !ok {
		return
	}
	for _, child := range s.Boundary.Refs() {
		a.writeShape(b, child, indent+1)
	}
}

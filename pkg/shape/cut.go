package shape

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/chazu/polyslice/pkg/kernel"
)

// CutPolicy says what a cut does with the pieces on one side of it. The
// zero value keeps them without tagging the exposed boundary.
type CutPolicy struct {
	remove   bool
	metadata Metadata
}

// Keep keeps the pieces on this side and tags the new boundary facing them
// with m.
func Keep(m Metadata) CutPolicy {
	return CutPolicy{metadata: m}
}

// Remove discards the pieces on this side.
func Remove() CutPolicy {
	return CutPolicy{remove: true}
}

// Keeps reports whether pieces on this side survive the cut.
func (p CutPolicy) Keeps() bool {
	return !p.remove
}

// Metadata returns the tag applied to boundary exposed on this side.
func (p CutPolicy) Metadata() Metadata {
	if p.remove {
		return NoMetadata
	}
	return p.metadata
}

func (p CutPolicy) String() string {
	switch {
	case p.remove:
		return "REMOVE"
	case p.metadata == NoMetadata:
		return "KEEP"
	default:
		return fmt.Sprintf("KEEP (data = %d)", p.metadata)
	}
}

// CutParams describes one cut of the whole arena.
type CutParams struct {
	// Cut is the closed oriented hypersurface dividing space into inside
	// and outside.
	Cut     kernel.Manifold
	Inside  CutPolicy
	Outside CutPolicy
}

// SplitKind classifies a shape against the divider of a cut.
type SplitKind int

const (
	Flush           SplitKind = iota // manifold coincides with the divider
	ManifoldInside                   // manifold entirely inside the divider
	ManifoldOutside                  // manifold entirely outside the divider
	NonFlush                         // manifold crosses the divider
)

func (k SplitKind) String() string {
	switch k {
	case Flush:
		return "Flush"
	case ManifoldInside:
		return "ManifoldInside"
	case ManifoldOutside:
		return "ManifoldOutside"
	case NonFlush:
		return "NonFlush"
	default:
		return fmt.Sprintf("SplitKind(%d)", int(k))
	}
}

// ShapeSplit is the result of splitting one shape. For NonFlush, Inside and
// Outside are the pieces on each side (either may be the whole shape) and
// Intersection is the shape where the divider crosses it. Whenever both
// pieces are present so is Intersection.
type ShapeSplit struct {
	Kind         SplitKind
	Inside       *ShapeRef
	Outside      *ShapeRef
	Intersection *ShapeRef
}

// Mul multiplies the sign of every reference in the split by s.
func (ss ShapeSplit) Mul(s kernel.Sign) ShapeSplit {
	mul := func(r *ShapeRef) *ShapeRef {
		if r == nil {
			return nil
		}
		out := r.Mul(s)
		return &out
	}
	return ShapeSplit{
		Kind:         ss.Kind,
		Inside:       mul(ss.Inside),
		Outside:      mul(ss.Outside),
		Intersection: mul(ss.Intersection),
	}
}

// Neg negates every reference in the split.
func (ss ShapeSplit) Neg() ShapeSplit {
	return ss.Mul(kernel.Neg)
}

func (ss ShapeSplit) String() string {
	if ss.Kind != NonFlush {
		return ss.Kind.String()
	}
	opt := func(r *ShapeRef) string {
		if r == nil {
			return "<none>"
		}
		return r.String()
	}
	return fmt.Sprintf("NonFlush { inside: %s, outside: %s, intersection_shape: %s }",
		opt(ss.Inside), opt(ss.Outside), opt(ss.Intersection))
}

func refPtr(r ShapeRef) *ShapeRef {
	return &r
}

// sliceOperation is the state of a single Cut. Its cache maps shape ids to
// their positive-orientation split and must not outlive the cut.
type sliceOperation struct {
	divider         kernel.Manifold
	cache           map[ShapeID]ShapeSplit
	insideMetadata  Metadata
	outsideMetadata Metadata
}

func newSliceOperation(p CutParams) *sliceOperation {
	return &sliceOperation{
		divider:         p.Cut,
		cache:           make(map[ShapeID]ShapeSplit),
		insideMetadata:  p.Inside.Metadata(),
		outsideMetadata: p.Outside.Metadata(),
	}
}

// Cut splits every root by p.Cut and replaces the roots with the kept
// pieces. If any root fails to split the roots are left unchanged, though
// shapes created before the failure remain until the next GC.
func (a *Arena) Cut(p CutParams) error {
	a.log.Debug("cut_all",
		zap.Stringer("cut", p.Cut),
		zap.Stringer("inside", p.Inside),
		zap.Stringer("outside", p.Outside))

	op := newSliceOperation(p)
	var roots []ShapeID
	for _, root := range a.roots {
		split, err := a.cutShape(Ref(root), op)
		if err != nil {
			return errors.Wrap(err, "error cutting shape")
		}
		if split.Kind != NonFlush {
			return errors.Wrapf(ErrRootNotSplit, "root %s is %s", root, split.Kind)
		}
		if split.Inside != nil {
			if p.Inside.Keeps() {
				a.log.Debug("adding inside shape as root", zap.Stringer("shape", *split.Inside))
				roots = append(roots, split.Inside.ID)
			} else {
				a.log.Debug("ignoring inside shape", zap.Stringer("shape", *split.Inside))
			}
		}
		if split.Outside != nil {
			if p.Outside.Keeps() {
				a.log.Debug("adding outside shape as root", zap.Stringer("shape", *split.Outside))
				roots = append(roots, split.Outside.ID)
			} else {
				a.log.Debug("ignoring outside shape", zap.Stringer("shape", *split.Outside))
			}
		}
	}
	a.roots = roots
	return nil
}

// cutShape splits r by the divider of op, memoizing by id.
func (a *Arena) cutShape(r ShapeRef, op *sliceOperation) (ShapeSplit, error) {
	result, ok := op.cache[r.ID]
	if ok {
		a.log.Debug("cut_shape: using cached split result", zap.Stringer("shape", r.ID))
	} else {
		var err error
		result, err = a.cutShapeUncached(r.ID, op)
		if err != nil {
			return ShapeSplit{}, errors.Wrapf(err, "error cutting shape %s", r)
		}
		op.cache[r.ID] = result
		a.log.Debug("cut_shape", zap.Stringer("shape", r.ID), zap.Stringer("result", result))
	}
	return result.Mul(r.Sign), nil
}

func (a *Arena) cutShapeUncached(id ShapeID, op *sliceOperation) (ShapeSplit, error) {
	s := a.shape(id)
	ms, err := s.Manifold.Split(op.divider, a.space)
	if err != nil {
		return ShapeSplit{}, errors.Wrap(err, "error splitting manifold")
	}
	switch ms.Kind {
	case kernel.SplitFlush:
		return ShapeSplit{Kind: Flush}, nil
	case kernel.SplitInside:
		return ShapeSplit{Kind: ManifoldInside}, nil
	case kernel.SplitOutside:
		return ShapeSplit{Kind: ManifoldOutside}, nil
	}

	rank, err := s.Rank()
	if err != nil {
		return ShapeSplit{}, err
	}
	if rank == 1 {
		return a.cutEdge(id, ms.Intersection, op)
	}
	return a.cutPolytope(id, ms.Intersection, op)
}

// addIntersection adds a shape created where the divider crosses another
// shape and tags its two orientations for the current cut.
func (a *Arena) addIntersection(s Shape, op *sliceOperation) (ShapeRef, error) {
	r, err := a.Add(s)
	if err != nil {
		return ShapeRef{}, err
	}
	a.SetMetadata(r, op.insideMetadata)
	a.SetMetadata(r.Neg(), op.outsideMetadata)
	return r, nil
}

// cutEdge splits a rank 1 shape. The divider meets the line in a point pair,
// and each side is the edge's intervals intersected with one arc of it.
func (a *Arena) cutEdge(id ShapeID, intersection kernel.Manifold, op *sliceOperation) (ShapeSplit, error) {
	s := a.shape(id)
	cut, err := a.addIntersection(WholeSpace(intersection), op)
	if err != nil {
		return ShapeSplit{}, errors.Wrap(err, "adding intersection point pair")
	}

	side := func(half ShapeRef, name string) (*ShapeRef, error) {
		boundary, ok, err := a.incrementalSimplifyIntervalsIntersection(s.Boundary, half, s.Manifold)
		if err != nil {
			return nil, errors.Wrapf(err, "error simplifying 1D boundary of %s", name)
		}
		if !ok {
			a.log.Debug("cut_edge: no shape", zap.String("side", name))
			return nil, nil
		}
		r, err := a.AddSubshape(id, boundary)
		if err != nil {
			return nil, err
		}
		return &r, nil
	}

	inside, err := side(cut, "inside")
	if err != nil {
		return ShapeSplit{}, err
	}
	outside, err := side(cut.Neg(), "outside")
	if err != nil {
		return ShapeSplit{}, err
	}
	return ShapeSplit{Kind: NonFlush, Inside: inside, Outside: outside, Intersection: &cut}, nil
}

// cutPolytope splits a shape of rank 2 or more by splitting its boundary.
func (a *Arena) cutPolytope(id ShapeID, intersection kernel.Manifold, op *sliceOperation) (ShapeSplit, error) {
	s := a.shape(id)

	// Boundaries of shape ∩ inside, shape ∩ outside, and of the piece of
	// the divider inside the shape.
	var insideBoundary, outsideBoundary, intersectionBoundary RefSet
	var isect *ShapeRef

	for _, child := range s.Boundary.Refs() {
		cs, err := a.cutShape(child, op)
		if err != nil {
			return ShapeSplit{}, err
		}
		switch cs.Kind {
		case Flush:
			if isect != nil {
				return ShapeSplit{}, errors.Wrapf(ErrMultipleFlush, "%s and %s", *isect, child)
			}
			isect = refPtr(child)

		case ManifoldInside, ManifoldOutside:
			isInside := cs.Kind == ManifoldInside
			cm := a.shape(child.ID).Manifold
			ws, err := intersection.WhichSide(cm, s.Manifold)
			if err != nil {
				return ShapeSplit{}, errors.Wrapf(err, "which side of %s", child)
			}
			ws = ws.Mul(child.Sign)
			if !ws.IsAnyInside {
				// The cut lies wholly outside child, so it misses the shape.
				a.log.Debug("cut_polytope: child completely excludes cut", zap.Stringer("child", child))
				if isInside {
					return ShapeSplit{Kind: NonFlush, Inside: refPtr(Ref(id))}, nil
				}
				return ShapeSplit{Kind: NonFlush, Outside: refPtr(Ref(id))}, nil
			}
			if isInside {
				insideBoundary.Insert(child)
			} else {
				outsideBoundary.Insert(child)
			}

		case NonFlush:
			if cs.Inside != nil {
				insideBoundary.Insert(*cs.Inside)
			}
			if cs.Outside != nil {
				outsideBoundary.Insert(*cs.Outside)
			}
			if cs.Intersection != nil {
				intersectionBoundary.Insert(cs.Intersection.Neg())
			}
		}
	}

	if isect != nil {
		// A flush child already is the intersection, so one side of it is
		// empty.
		sign, ok := a.signDifference(*isect, intersection)
		if !ok {
			return ShapeSplit{}, errors.Wrapf(ErrOrientationMismatch, "flush shape %s", *isect)
		}
		r := isect.Mul(sign)
		isect = &r
		if sign == kernel.Pos {
			insideBoundary.Insert(r)
		} else {
			outsideBoundary.Insert(r.Neg())
		}
	} else {
		simplified, ok, err := a.simplifyShapeBoundary(intersection, intersectionBoundary)
		if err != nil {
			return ShapeSplit{}, errors.Wrap(err, "simplifying boundary of intersection")
		}
		var nonempty bool
		switch {
		case !ok:
			nonempty = false
		case !simplified.IsEmpty():
			nonempty = true
		default:
			// No boundary: the intersection is either all of the
			// intersection manifold or nothing.
			nonempty, err = a.shapeCompletelyContainsManifold(id, intersection)
			if err != nil {
				return ShapeSplit{}, err
			}
		}
		if nonempty {
			r, err := a.addIntersection(Shape{Manifold: intersection, Boundary: simplified}, op)
			if err != nil {
				return ShapeSplit{}, errors.Wrap(err, "adding intersection shape")
			}
			isect = &r
			insideBoundary.Insert(r)
			outsideBoundary.Insert(r.Neg())
		}
	}

	result := ShapeSplit{Kind: NonFlush, Intersection: isect}
	if !insideBoundary.IsEmpty() {
		r, err := a.AddSubshape(id, insideBoundary)
		if err != nil {
			return ShapeSplit{}, errors.Wrap(err, "constructing inside shape")
		}
		result.Inside = &r
	}
	if !outsideBoundary.IsEmpty() {
		r, err := a.AddSubshape(id, outsideBoundary)
		if err != nil {
			return ShapeSplit{}, errors.Wrap(err, "constructing outside shape")
		}
		result.Outside = &r
	}
	return result, nil
}

// shapeCompletelyContainsManifold reports whether m, which lies in the
// manifold of shape id, is on the inside of every boundary element.
func (a *Arena) shapeCompletelyContainsManifold(id ShapeID, m kernel.Manifold) (bool, error) {
	s := a.shape(id)
	for _, b := range s.Boundary.Refs() {
		ws, err := m.WhichSide(a.shape(b.ID).Manifold, s.Manifold)
		if err != nil {
			return false, errors.Wrapf(err, "which side of %s", b)
		}
		if ws.Mul(b.Sign).IsAnyOutside {
			return false, nil
		}
	}
	return true, nil
}

// simplifyShapeBoundary reduces a boundary collected from split children.
// Intervals on a line are intersected; ok is false if nothing is left.
// Higher ranks only cancel references present with both signs.
func (a *Arena) simplifyShapeBoundary(m kernel.Manifold, boundary RefSet) (RefSet, bool, error) {
	ndim, err := m.NDim()
	if err != nil {
		return RefSet{}, false, err
	}
	if ndim == 1 {
		simplified, ok, err := a.simplifyIntervalsIntersection(boundary.Refs(), m)
		if err != nil {
			return RefSet{}, false, errors.Wrap(err, "error simplifying boundary of 1D intersection")
		}
		return simplified, ok, nil
	}
	kept := lo.Filter(boundary.Refs(), func(r ShapeRef, _ int) bool {
		return !boundary.Contains(r.Neg())
	})
	return NewRefSet(kept...), true, nil
}

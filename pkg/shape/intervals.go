package shape

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chazu/polyslice/pkg/kernel"
)

// An interval is a rank 0 shape whose manifold is a point pair on a line:
// the closed arc running from the first point to the second. Negating the
// reference selects the complementary arc. A subset of the line is stored
// as the intersection of a set of intervals.

type mergeKind int

const (
	mergeOld        mergeKind = iota // union is one of the inputs
	mergeNew                         // union is a new interval
	mergeWholeSpace                  // union covers the line
	mergeDisjoint                    // intervals do not touch
)

type mergedInterval struct {
	kind     mergeKind
	old      ShapeRef
	manifold kernel.Manifold
}

// simplifyIntervalsIntersection intersects intervals on the line space. It
// returns false if the intersection is empty.
func (a *Arena) simplifyIntervalsIntersection(intervals []ShapeRef, space kernel.Manifold) (RefSet, bool, error) {
	var simplified RefSet
	for _, iv := range intervals {
		next, ok, err := a.incrementalSimplifyIntervalsIntersection(simplified, iv, space)
		if err != nil {
			return RefSet{}, false, err
		}
		if !ok {
			return RefSet{}, false, nil
		}
		simplified = next
	}
	a.log.Debug("simplify_intervals", zap.Stringer("space", space), zap.Stringer("simplified", simplified))
	return simplified, true, nil
}

// incrementalSimplifyIntervalsIntersection intersects the pairwise disjoint
// intervals of existing with one more interval. The intersection of
// intervals is the complement of the union of their complements, so the
// complement of the new interval absorbs every complement it touches. It
// returns false if the result is empty.
func (a *Arena) incrementalSimplifyIntervalsIntersection(existing RefSet, next ShapeRef, space kernel.Manifold) (RefSet, bool, error) {
	var simplified RefSet
	for _, old := range existing.Refs() {
		m, err := a.tryMergeIntervals(old.Neg(), next.Neg(), space)
		if err != nil {
			return RefSet{}, false, err
		}
		switch m.kind {
		case mergeOld:
			next = m.old.Neg()
		case mergeNew:
			flipped, err := m.manifold.Flip()
			if err != nil {
				return RefSet{}, false, err
			}
			if next, err = a.Add(WholeSpace(flipped)); err != nil {
				return RefSet{}, false, errors.Wrap(err, "adding merged interval")
			}
		case mergeWholeSpace:
			return RefSet{}, false, nil
		case mergeDisjoint:
			simplified.Insert(old)
		}
	}
	simplified.Insert(next)

	if a.debug {
		if err := a.checkUniqueEndpoints(simplified); err != nil {
			return RefSet{}, false, err
		}
	}
	return simplified, true, nil
}

func (a *Arena) checkUniqueEndpoints(intervals RefSet) error {
	var seen []kernel.Point
	for _, iv := range intervals.Refs() {
		ab, err := a.PointPair(iv)
		if err != nil {
			return err
		}
		for _, p := range ab {
			for _, q := range seen {
				if p.ApproxEq(q) {
					return errors.Wrapf(ErrDuplicateEndpoint, "point %s in %s", p, intervals)
				}
			}
			seen = append(seen, p)
		}
	}
	return nil
}

// tryMergeIntervals returns the union of two closed intervals if they touch.
func (a *Arena) tryMergeIntervals(ab, pq ShapeRef, space kernel.Manifold) (mergedInterval, error) {
	abPts, err := a.PointPair(ab)
	if err != nil {
		return mergedInterval{}, err
	}
	pqPts, err := a.PointPair(pq)
	if err != nil {
		return mergedInterval{}, err
	}
	ptA, ptB := abPts[0], abPts[1]
	ptP, ptQ := pqPts[0], pqPts[1]

	if ptA.ApproxEq(ptP) && ptB.ApproxEq(ptQ) {
		return mergedInterval{kind: mergeOld, old: ab}, nil
	}

	contains := func(iv ShapeRef, p kernel.Point) (bool, error) {
		return a.closedIntervalContainsPoint(iv, p, space)
	}
	abHasP, err := contains(ab, ptP)
	if err != nil {
		return mergedInterval{}, err
	}
	abHasQ, err := contains(ab, ptQ)
	if err != nil {
		return mergedInterval{}, err
	}
	pqHasA, err := contains(pq, ptA)
	if err != nil {
		return mergedInterval{}, err
	}
	pqHasB, err := contains(pq, ptB)
	if err != nil {
		return mergedInterval{}, err
	}
	abHasPQ := abHasP && abHasQ
	pqHasAB := pqHasA && pqHasB

	switch {
	case abHasPQ && pqHasAB:
		return mergedInterval{kind: mergeWholeSpace}, nil
	case abHasPQ:
		return mergedInterval{kind: mergeOld, old: ab}, nil
	case pqHasAB:
		return mergedInterval{kind: mergeOld, old: pq}, nil
	}

	var start, end kernel.Point
	switch {
	case abHasP:
		start = ptA
	case pqHasA:
		start = ptP
	default:
		return mergedInterval{kind: mergeDisjoint}, nil
	}
	switch {
	case abHasQ:
		end = ptB
	case pqHasB:
		end = ptQ
	default:
		return mergedInterval{kind: mergeDisjoint}, nil
	}

	m, err := space.PointPair(start, end)
	if err != nil {
		return mergedInterval{}, errors.Wrap(err, "merged interval")
	}
	return mergedInterval{kind: mergeNew, manifold: m}, nil
}

// closedIntervalContainsPoint reports whether p lies in the interval or on
// one of its endpoints.
func (a *Arena) closedIntervalContainsPoint(iv ShapeRef, p kernel.Point, space kernel.Manifold) (bool, error) {
	s, err := a.lookup(iv.ID)
	if err != nil {
		return false, err
	}
	ws, err := s.Manifold.WhichSideHasPoint(p, space)
	if err != nil {
		return false, err
	}
	return ws.Mul(iv.Sign) != kernel.Outside, nil
}

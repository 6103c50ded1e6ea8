package shape

import (
	"github.com/pkg/errors"

	"github.com/chazu/polyslice/pkg/kernel"
)

// ShapeContainsPoint reports whether p lies in the shape or on its
// boundary. Points off the shape's manifold are never contained.
func (a *Arena) ShapeContainsPoint(id ShapeID, p kernel.Point) (bool, error) {
	return a.containsPoint(id, p, true)
}

// ShapeInteriorContainsPoint reports whether p lies in the shape and not on
// its boundary.
func (a *Arena) ShapeInteriorContainsPoint(id ShapeID, p kernel.Point) (bool, error) {
	return a.containsPoint(id, p, false)
}

func (a *Arena) containsPoint(id ShapeID, p kernel.Point, closed bool) (bool, error) {
	s, err := a.lookup(id)
	if err != nil {
		return false, err
	}
	ws, err := s.Manifold.WhichSideHasPoint(p, a.space)
	if err != nil {
		return false, errors.Wrapf(err, "locating %s on shape %s", p, id)
	}
	if ws != kernel.On {
		return false, nil
	}
	for _, b := range s.Boundary.Refs() {
		bs, err := a.lookup(b.ID)
		if err != nil {
			return false, err
		}
		ws, err := bs.Manifold.WhichSideHasPoint(p, s.Manifold)
		if err != nil {
			return false, errors.Wrapf(err, "locating %s against boundary %s", p, b)
		}
		switch ws.Mul(b.Sign) {
		case kernel.On:
			if !closed {
				return false, nil
			}
			return a.containsPoint(b.ID, p, closed)
		case kernel.Outside:
			return false, nil
		}
	}
	return true, nil
}

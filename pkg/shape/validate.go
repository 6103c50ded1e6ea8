package shape

import (
	"fmt"

	"github.com/samber/lo"
)

// ValidationSeverity indicates whether a validation finding means the
// arena is corrupt or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // structural invariant broken
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	ShapeID  ShapeID            // which shape has the problem
	Global   bool               // finding concerns the arena, not one shape
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Global {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] shape %s: %s", e.Severity, e.ShapeID, e.Message)
}

// Validate checks the structural invariants of the arena and returns every
// finding. Shapes no longer reachable from the roots are reported as
// warnings; everything else is an error. Validate never mutates the arena.
func (a *Arena) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, a.validateReferences()...)
	errs = append(errs, a.validateRanks()...)
	errs = append(errs, a.validateDAG()...)
	errs = append(errs, a.validateRoots()...)
	errs = append(errs, a.validatePolygons()...)
	errs = append(errs, a.validateOrphans()...)
	return errs
}

// Errors filters findings down to those with SeverityError.
func Errors(findings []ValidationError) []ValidationError {
	return lo.Filter(findings, func(e ValidationError, _ int) bool {
		return e.Severity == SeverityError
	})
}

// validateReferences checks that every boundary reference points at a live
// shape.
func (a *Arena) validateReferences() []ValidationError {
	var errs []ValidationError
	for _, id := range a.shapes.ids() {
		s := a.shape(id)
		for _, b := range s.Boundary.Refs() {
			if _, ok := a.shapes.get(b.ID); !ok {
				errs = append(errs, ValidationError{
					ShapeID:  id,
					Message:  fmt.Sprintf("boundary reference %s does not exist", b),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateRanks checks that every boundary element has rank one less than
// the shape it bounds.
func (a *Arena) validateRanks() []ValidationError {
	var errs []ValidationError
	for _, id := range a.shapes.ids() {
		s := a.shape(id)
		rank, err := s.Rank()
		if err != nil {
			errs = append(errs, ValidationError{
				ShapeID:  id,
				Message:  fmt.Sprintf("rank: %v", err),
				Severity: SeverityError,
			})
			continue
		}
		for _, b := range s.Boundary.Refs() {
			bs, ok := a.shapes.get(b.ID)
			if !ok {
				continue // reported by validateReferences
			}
			br, err := bs.Rank()
			if err != nil || br+1 != rank {
				errs = append(errs, ValidationError{
					ShapeID:  id,
					Message:  fmt.Sprintf("rank %d shape has boundary %s of rank %d", rank, b, br),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
func (a *Arena) validateDAG() []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[ShapeID]int)
	var errs []ValidationError

	var visit func(id ShapeID) bool // returns true if cycle found
	visit = func(id ShapeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				ShapeID:  id,
				Message:  fmt.Sprintf("cycle detected through shape %s", id),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		s, ok := a.shapes.get(id)
		if !ok {
			color[id] = black
			return false
		}
		for _, b := range s.Boundary.Refs() {
			if visit(b.ID) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, id := range a.shapes.ids() {
		if color[id] == white {
			if visit(id) {
				break
			}
		}
	}
	return errs
}

// validateRoots checks that roots are live, distinct, and span the space.
func (a *Arena) validateRoots() []ValidationError {
	var errs []ValidationError
	spaceRank, err := a.space.NDim()
	if err != nil {
		return []ValidationError{{Global: true, Message: fmt.Sprintf("space rank: %v", err), Severity: SeverityError}}
	}
	for _, dup := range lo.FindDuplicates(a.roots) {
		errs = append(errs, ValidationError{
			ShapeID:  dup,
			Message:  "listed more than once as a root",
			Severity: SeverityError,
		})
	}
	for _, root := range a.roots {
		s, ok := a.shapes.get(root)
		if !ok {
			errs = append(errs, ValidationError{
				ShapeID:  root,
				Message:  "root does not exist",
				Severity: SeverityError,
			})
			continue
		}
		if rank, err := s.Rank(); err != nil || rank != spaceRank {
			errs = append(errs, ValidationError{
				ShapeID:  root,
				Message:  fmt.Sprintf("root has rank %d, space has rank %d", rank, spaceRank),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validatePolygons checks that the edges of every reachable polygon form
// closed loops.
func (a *Arena) validatePolygons() []ValidationError {
	var errs []ValidationError
	reachable := a.Reachable()
	for _, id := range a.shapes.ids() {
		if !reachable.Contains(uint32(id)) {
			continue
		}
		s := a.shape(id)
		if rank, err := s.Rank(); err != nil || rank != 2 {
			continue
		}
		if err := a.checkPolygon(s.Boundary); err != nil {
			errs = append(errs, ValidationError{
				ShapeID:  id,
				Message:  err.Error(),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateOrphans reports shapes no root reaches. They are harmless until
// the next GC.
func (a *Arena) validateOrphans() []ValidationError {
	reachable := a.Reachable()
	orphans := lo.Filter(a.shapes.ids(), func(id ShapeID, _ int) bool {
		return !reachable.Contains(uint32(id))
	})
	if len(orphans) == 0 {
		return nil
	}
	return []ValidationError{{
		Global:   true,
		Message:  fmt.Sprintf("%d shapes are unreachable from the roots", len(orphans)),
		Severity: SeverityWarning,
	}}
}

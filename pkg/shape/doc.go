// Package shape implements the shape arena: a boundary representation of
// N-dimensional polytopes as a DAG of oriented shapes, and the algorithm that
// cuts every shape in the arena by an oriented hypersurface.
//
// Every shape is a region of a manifold bounded by shapes of rank one less,
// down to point pairs. Shapes are referenced by ShapeRef, an id plus a sign;
// negating a reference selects the opposite orientation of the same piece.
package shape

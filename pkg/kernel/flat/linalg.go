package flat

import (
	"github.com/pkg/errors"
	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"

	"github.com/chazu/polyslice/pkg/kernel"
)

// degenerateTol is the smallest residual norm accepted when extending an
// orthonormal frame. Anything shorter is treated as linearly dependent.
const degenerateTol = 1e-7

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func zeros(n int) []float64 {
	return make([]float64, n)
}

func unit(n, axis int) []float64 {
	v := zeros(n)
	v[axis] = 1
	return v
}

// reject removes from v its components along each vector of the orthonormal
// frame.
func reject(v []float64, frame [][]float64) []float64 {
	r := clone(v)
	for _, b := range frame {
		r = vek.Sub(r, vek.MulNumber(b, vek.Dot(r, b)))
	}
	return r
}

// project returns the component of v lying in the span of the orthonormal
// frame.
func project(v []float64, frame [][]float64) []float64 {
	out := zeros(len(v))
	for _, b := range frame {
		out = vek.Add(out, vek.MulNumber(b, vek.Dot(v, b)))
	}
	return out
}

func normalize(v []float64) ([]float64, bool) {
	n := vek.Norm(v)
	if n <= degenerateTol {
		return nil, false
	}
	return vek.MulNumber(v, 1/n), true
}

// orthonormalize runs Gram-Schmidt over vs in order. The result spans the
// same space with the same orientation. Dependent input is an error.
func orthonormalize(vs [][]float64) ([][]float64, error) {
	out := make([][]float64, 0, len(vs))
	for i, v := range vs {
		u, ok := normalize(reject(v, out))
		if !ok {
			return nil, errors.Wrapf(ErrDegenerate, "basis vector %d is dependent on the previous ones", i)
		}
		out = append(out, u)
	}
	return out, nil
}

// extend runs Gram-Schmidt over candidates, skipping dependent vectors, until
// want orthonormal vectors have been collected.
func extend(frame [][]float64, candidates [][]float64, want int) ([][]float64, error) {
	out := append([][]float64(nil), frame...)
	for _, c := range candidates {
		if len(out) == want {
			break
		}
		if u, ok := normalize(reject(c, out)); ok {
			out = append(out, u)
		}
	}
	if len(out) != want {
		return nil, errors.Wrapf(ErrDegenerate, "spanned %d of %d dimensions", len(out), want)
	}
	return out, nil
}

// orientation returns the determinant of rows expressed in the coordinates of
// the orthonormal frame. len(rows) must equal len(frame).
func orientation(rows, frame [][]float64) float64 {
	n := len(frame)
	data := make([]float64, 0, n*n)
	for _, r := range rows {
		for _, f := range frame {
			data = append(data, vek.Dot(r, f))
		}
	}
	return mat.Det(mat.NewDense(n, n, data))
}

func pointCoords(p kernel.Point, ndim int) ([]float64, error) {
	if p.NDim() > ndim {
		return nil, errors.Wrapf(ErrDimension, "point %s has more than %d coordinates", p, ndim)
	}
	c := zeros(ndim)
	copy(c, p.Coords())
	return c, nil
}

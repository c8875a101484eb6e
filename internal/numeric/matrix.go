package numeric

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Error is returned when a matrix operation produces a non-finite or
// non-positive-semidefinite result. Callers treat it as infinite cost.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("numeric: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("numeric: %s: non-finite or non-PSD result", e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

// Solve returns the solution X of A*X = B for a small symmetric matrix A,
// wrapping a non-finite or singular result in an *Error.
func Solve(a, b mat.Matrix) (*mat.Dense, error) {
	var x mat.Dense
	if err := x.Solve(a, b); err != nil {
		return nil, &Error{Op: "solve", Err: err}
	}
	if !allFinite(&x) {
		return nil, &Error{Op: "solve"}
	}
	return &x, nil
}

// Inverse returns the inverse of a small square matrix, wrapping a
// non-finite or singular result in an *Error.
func Inverse(a mat.Matrix) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		return nil, &Error{Op: "inverse", Err: err}
	}
	if !allFinite(&inv) {
		return nil, &Error{Op: "inverse"}
	}
	return &inv, nil
}

// MatrixSqrt returns an upper-triangular matrix R such that RtR = a for a
// symmetric positive-definite a, via Cholesky decomposition. Returns an
// *Error if the factorization fails, which includes singular (positive
// semidefinite but not definite) matrices.
func MatrixSqrt(a *mat.SymDense) (*mat.TriDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, &Error{Op: "matrix-sqrt", Err: fmt.Errorf("matrix is not positive-semidefinite")}
	}
	var u mat.TriDense
	chol.UTo(&u)
	if !allFinite(&u) {
		return nil, &Error{Op: "matrix-sqrt"}
	}
	return &u, nil
}

func allFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if v != v || v > 1e300 || v < -1e300 {
				return false
			}
		}
	}
	return true
}

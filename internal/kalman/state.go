// Package kalman implements the Gaussian belief update primitives used to
// project trajectory states onto road segments: time updates, (unscented)
// measurement updates, equality/inequality constraint updates, affine
// transforms, and the distance (negative log-likelihood) queries used as
// search costs.
package kalman

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/routetrace/mapmatch/internal/numeric"
)

// State is a Gaussian belief (x, P): a mean vector and a symmetric
// positive-semidefinite covariance matrix, of arbitrary (small) dimension.
type State struct {
	X *mat.VecDense
	P *mat.SymDense
}

// New builds a State from a mean slice and a row-major covariance matrix.
func New(mean []float64, covariance [][]float64) *State {
	n := len(mean)
	p := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			p.SetSym(i, j, covariance[i][j])
		}
	}
	return &State{X: mat.NewVecDense(n, append([]float64(nil), mean...)), P: p}
}

// Dim returns the dimension of the state.
func (s *State) Dim() int { return s.X.Len() }

// Copy returns an independent deep copy of the state.
func (s *State) Copy() *State {
	n := s.Dim()
	x := mat.NewVecDense(n, nil)
	x.CloneFromVec(s.X)
	p := mat.NewSymDense(n, nil)
	p.CopySym(s.P)
	return &State{X: x, P: p}
}

// symmetrize forces numerical symmetry on a Dense result by averaging it
// with its own transpose, then wraps it as a SymDense.
func symmetrize(m *mat.Dense) *mat.SymDense {
	n, _ := m.Dims()
	var t mat.Dense
	t.CloneFrom(m.T())
	m.Add(m, &t)
	m.Scale(0.5, m)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, m.At(i, j))
		}
	}
	return sym
}

// allFinite reports whether every element of m is finite.
func allFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// TimeUpdate applies x <- F x, P <- F P F^T + Q.
func (s *State) TimeUpdate(f *mat.Dense, q *mat.SymDense) error {
	n := s.Dim()
	var x mat.VecDense
	x.MulVec(f, s.X)

	var fp mat.Dense
	fp.Mul(f, s.P)
	var fpft mat.Dense
	fpft.Mul(&fp, f.T())
	fpft.Add(&fpft, q)

	if !allFinite(&x) || !allFinite(&fpft) {
		return &numeric.Error{Op: "time_update"}
	}
	s.X = mat.NewVecDense(n, nil)
	s.X.CloneFromVec(&x)
	s.P = symmetrize(&fpft)
	return nil
}

// UnscentedTimeUpdate pushes 2n sigma points at x +/- r_i, where the rows
// r_i of sqrt(n*P) form the scatter, through the nonlinear f, then sets the
// mean and (biased) sample covariance plus q.
func (s *State) UnscentedTimeUpdate(f func([]float64) []float64, q *mat.SymDense) error {
	n := s.Dim()
	scaled := mat.NewSymDense(n, nil)
	scaled.CopySym(s.P)
	scaled.ScaleSym(float64(n), scaled)

	sqrtP, err := numeric.MatrixSqrt(scaled)
	if err != nil {
		return err
	}

	sigmaX := mat.NewDense(2*n, n, nil)
	xSlice := make([]float64, n)
	for i := 0; i < n; i++ {
		xSlice[i] = s.X.AtVec(i)
	}
	for i := 0; i < n; i++ {
		plus := make([]float64, n)
		minus := make([]float64, n)
		for j := 0; j < n; j++ {
			r := sqrtP.At(i, j)
			plus[j] = xSlice[j] + r
			minus[j] = xSlice[j] - r
		}
		sigmaX.SetRow(i, f(plus))
		sigmaX.SetRow(n+i, f(minus))
	}

	mean := make([]float64, n)
	for j := 0; j < n; j++ {
		mean[j] = stat.Mean(mat.Col(nil, j, sigmaX), nil)
	}
	cov := biasedCovariance(sigmaX)
	cov.AddSym(cov, q)

	if !allFiniteSlice(mean) || !allFinite(cov) {
		return &numeric.Error{Op: "unscented_time_update"}
	}
	s.X = mat.NewVecDense(n, mean)
	s.P = cov
	return nil
}

func allFiniteSlice(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// MeasurementUpdate applies a standard Kalman measurement update with
// observation y, observation matrix H, and noise R, returning the
// innovation distance (Mahalanobis quadratic form divided by two).
func (s *State) MeasurementUpdate(y []float64, h *mat.Dense, r *mat.SymDense) (float64, error) {
	n := s.Dim()
	m := len(y)

	var u mat.Dense // P H^T
	u.Mul(s.P, h.T())

	var hu mat.Dense // H P H^T
	hu.Mul(h, &u)
	hu.Add(&hu, r)

	sMat, err := numeric.Inverse(&hu)
	if err != nil {
		return 0, err
	}

	var hx mat.VecDense
	hx.MulVec(h, s.X)
	z := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		z.SetVec(i, y[i]-hx.AtVec(i))
	}

	var sz mat.VecDense
	sz.MulVec(sMat, z)
	distance := mat.Dot(&sz, z)

	var k mat.Dense // K = U S
	k.Mul(&u, sMat)

	var dx mat.VecDense
	dx.MulVec(&k, z)
	newX := mat.NewVecDense(n, nil)
	newX.AddVec(s.X, &dx)

	var kh mat.Dense
	kh.Mul(&k, h)
	var khp mat.Dense
	khp.Mul(&kh, s.P)
	newP := mat.NewDense(n, n, nil)
	newP.Sub(s.P, &khp)

	if !allFinite(newX) || !allFinite(newP) {
		return 0, &numeric.Error{Op: "measurement_update"}
	}
	s.X = newX
	s.P = symmetrize(newP)
	return distance / 2, nil
}

// UnscentedMeasurementUpdate is the sigma-point analogue of
// MeasurementUpdate for a nonlinear observation function h, using the
// sigma-point cross-covariance Pxy.
func (s *State) UnscentedMeasurementUpdate(y []float64, h func([]float64) []float64, r *mat.SymDense) (float64, error) {
	n := s.Dim()
	m := len(y)

	scaled := mat.NewSymDense(n, nil)
	scaled.CopySym(s.P)
	scaled.ScaleSym(float64(n), scaled)
	sqrtP, err := numeric.MatrixSqrt(scaled)
	if err != nil {
		return 0, err
	}

	sigmaX := mat.NewDense(2*n, n, nil)
	sigmaY := mat.NewDense(2*n, m, nil)
	xSlice := make([]float64, n)
	for i := 0; i < n; i++ {
		xSlice[i] = s.X.AtVec(i)
	}
	for i := 0; i < n; i++ {
		plus := make([]float64, n)
		minus := make([]float64, n)
		for j := 0; j < n; j++ {
			rv := sqrtP.At(i, j)
			plus[j] = xSlice[j] + rv
			minus[j] = xSlice[j] - rv
		}
		sigmaX.SetRow(i, plus)
		sigmaX.SetRow(n+i, minus)
		sigmaY.SetRow(i, h(plus))
		sigmaY.SetRow(n+i, h(minus))
	}

	py := biasedCovariance(sigmaY)
	py.AddSym(py, r)

	sMat, err := numeric.Inverse(py)
	if err != nil {
		return 0, err
	}

	meanY := make([]float64, m)
	for j := 0; j < m; j++ {
		meanY[j] = stat.Mean(mat.Col(nil, j, sigmaY), nil)
	}

	pxy := crossCovariance(sigmaX, sigmaY)

	z := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		z.SetVec(i, y[i]-meanY[i])
	}
	var sz mat.VecDense
	sz.MulVec(sMat, z)
	distance := mat.Dot(&sz, z)

	var k mat.Dense // Pxy S
	k.Mul(pxy, sMat)

	var dx mat.VecDense
	dx.MulVec(&k, z)
	newX := mat.NewVecDense(n, nil)
	newX.AddVec(s.X, &dx)

	var kpy mat.Dense
	kpy.Mul(&k, py)
	var kpykt mat.Dense
	kpykt.Mul(&kpy, k.T())
	newP := mat.NewDense(n, n, nil)
	newP.Sub(s.P, &kpykt)

	if !allFinite(newX) || !allFinite(newP) {
		return 0, &numeric.Error{Op: "unscented_measurement_update"}
	}
	s.X = newX
	s.P = symmetrize(newP)
	return distance / 2, nil
}

// biasedCovariance computes the biased (divide-by-N) sample covariance of
// sigma's columns, mirroring the original's np.cov(..., bias=True) and
// matching the normalization crossCovariance uses for Pxy, so
// UnscentedMeasurementUpdate's K = Pxy * inverse(Py) combines two terms on
// the same scale.
func biasedCovariance(sigma *mat.Dense) *mat.SymDense {
	rows, n := sigma.Dims()
	mean := make([]float64, n)
	for j := 0; j < n; j++ {
		mean[j] = stat.Mean(mat.Col(nil, j, sigma), nil)
	}
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for r := 0; r < rows; r++ {
				sum += (sigma.At(r, i) - mean[i]) * (sigma.At(r, j) - mean[j])
			}
			out.SetSym(i, j, sum/float64(rows))
		}
	}
	return out
}

// crossCovariance computes the biased sample cross-covariance between the
// columns of sigmaX and sigmaY (one sigma point per row in both), mirroring
// the original xcov(X, Y) = np.cov(X, Y, bias=True)[0:n, -m:] helper.
func crossCovariance(sigmaX, sigmaY *mat.Dense) *mat.Dense {
	rows, n := sigmaX.Dims()
	_, m := sigmaY.Dims()

	meanX := make([]float64, n)
	for j := 0; j < n; j++ {
		meanX[j] = stat.Mean(mat.Col(nil, j, sigmaX), nil)
	}
	meanY := make([]float64, m)
	for j := 0; j < m; j++ {
		meanY[j] = stat.Mean(mat.Col(nil, j, sigmaY), nil)
	}

	out := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			var sum float64
			for r := 0; r < rows; r++ {
				sum += (sigmaX.At(r, i) - meanX[i]) * (sigmaY.At(r, j) - meanY[j])
			}
			out.Set(i, j, sum/float64(rows))
		}
	}
	return out
}

// SmoothUpdate applies one RTS smoother step given the following smoothed
// state `next` (already time-updated by F, Q from this state).
func (s *State) SmoothUpdate(next *State, f *mat.Dense, q *mat.SymDense) error {
	n := s.Dim()

	var x1 mat.VecDense
	x1.MulVec(f, s.X)

	var fp mat.Dense
	fp.Mul(f, s.P)
	var p1 mat.Dense
	p1.Mul(&fp, f.T())
	p1.Add(&p1, q)

	p1Inv, err := numeric.Inverse(&p1)
	if err != nil {
		return err
	}

	var pft mat.Dense
	pft.Mul(s.P, f.T())
	var k mat.Dense
	k.Mul(&pft, p1Inv)

	diff := mat.NewVecDense(n, nil)
	diff.SubVec(next.X, &x1)
	var dx mat.VecDense
	dx.MulVec(&k, diff)
	newX := mat.NewVecDense(n, nil)
	newX.AddVec(s.X, &dx)

	diffP := mat.NewDense(n, n, nil)
	diffP.Sub(&p1, next.P)
	var kdp mat.Dense
	kdp.Mul(&k, diffP)
	var kdpkt mat.Dense
	kdpkt.Mul(&kdp, k.T())
	newP := mat.NewDense(n, n, nil)
	newP.Sub(s.P, &kdpkt)

	if !allFinite(newX) || !allFinite(newP) {
		return &numeric.Error{Op: "smooth_update"}
	}
	s.X = newX
	s.P = symmetrize(newP)
	return nil
}

// ConstraintUpdate treats D x = d as a zero-noise measurement, returning
// the constraint distance.
func (s *State) ConstraintUpdate(d []float64, capD *mat.Dense) (float64, error) {
	n := s.Dim()
	m := len(d)

	var u mat.Dense
	u.Mul(s.P, capD.T())

	z := mat.NewVecDense(m, nil)
	var dx mat.VecDense
	dx.MulVec(capD, s.X)
	for i := 0; i < m; i++ {
		z.SetVec(i, d[i]-dx.AtVec(i))
	}

	var du mat.Dense // D U = D P D^T
	du.Mul(capD, &u)
	sMat, err := numeric.Inverse(&du)
	if err != nil {
		return 0, err
	}

	var sz mat.VecDense
	sz.MulVec(sMat, z)
	distance := mat.Dot(z, &sz)

	var k mat.Dense // U S
	k.Mul(&u, sMat)

	var delta mat.VecDense
	delta.MulVec(&k, z)
	newX := mat.NewVecDense(n, nil)
	newX.AddVec(s.X, &delta)

	var kd mat.Dense
	kd.Mul(&k, capD)
	var kdp mat.Dense
	kdp.Mul(&kd, s.P)
	newP := mat.NewDense(n, n, nil)
	newP.Sub(s.P, &kdp)

	if !allFinite(newX) || !allFinite(newP) {
		return 0, &numeric.Error{Op: "constraint_update"}
	}
	s.X = newX
	s.P = symmetrize(newP)
	return distance / 2, nil
}

// IneqConstraintUpdate applies, row by row and in order, the
// truncated-Gaussian moment-matching update for a < D x < b, accumulating
// the returned distance as -sum(log p). Rows are processed sequentially
// (each row's update affects the state seen by the next row), matching the
// deterministic row order required for reproducibility.
func (s *State) IneqConstraintUpdate(capD *mat.Dense, a, b []float64) (float64, error) {
	rows, n := capD.Dims()
	var distance float64
	for i := 0; i < rows; i++ {
		omega := mat.Row(nil, i, capD)

		po := mat.NewVecDense(n, nil)
		po.MulVec(s.P, mat.NewVecDense(n, omega))
		vv := mat.Dot(po, mat.NewVecDense(n, omega))
		if vv < 0 {
			return 0, &numeric.Error{Op: "ineq_constraint_update", Err: fmt.Errorf("negative variance at row %d", i)}
		}
		v := math.Sqrt(vv)

		meanOmega := mat.Dot(mat.NewVecDense(n, omega), s.X)
		c := (a[i] - meanOmega) / v
		d := (b[i] - meanOmega) / v
		logp, u, variance := numeric.TruncateGaussian(c, d)
		distance -= logp

		scaledOmega := mat.NewVecDense(n, nil)
		for j := 0; j < n; j++ {
			scaledOmega.SetVec(j, omega[j]*u)
		}
		var deltaX mat.VecDense
		deltaX.MulVec(s.P, scaledOmega)
		deltaX.ScaleVec(1/v, &deltaX)
		s.X.AddVec(s.X, &deltaX)

		// S = P outer(omega,omega) P / vv
		var pOmega mat.VecDense
		pOmega.MulVec(s.P, mat.NewVecDense(n, omega))
		sMat := mat.NewDense(n, n, nil)
		sMat.Outer(1/vv, &pOmega, &pOmega)

		newP := mat.NewDense(n, n, nil)
		newP.Scale(variance-1, sMat)
		newP.Add(s.P, newP)

		if !allFinite(newP) {
			return 0, &numeric.Error{Op: "ineq_constraint_update"}
		}
		s.P = symmetrize(newP)
	}
	return distance, nil
}

// Transform returns a new state (D x, D P D^T) without mutating s.
func (s *State) Transform(capD *mat.Dense) *State {
	m, _ := capD.Dims()
	var x mat.VecDense
	x.MulVec(capD, s.X)

	var dp mat.Dense
	dp.Mul(capD, s.P)
	var dpdt mat.Dense
	dpdt.Mul(&dp, capD.T())

	newX := mat.NewVecDense(m, nil)
	newX.CloneFromVec(&x)
	return &State{X: newX, P: symmetrize(&dpdt)}
}

// MeasurementDistance is the non-mutating query form of MeasurementUpdate.
func (s *State) MeasurementDistance(y []float64, h *mat.Dense, r *mat.SymDense) (float64, error) {
	m := len(y)
	var u mat.Dense
	u.Mul(s.P, h.T())
	var hu mat.Dense
	hu.Mul(h, &u)
	hu.Add(&hu, r)

	sMat, err := numeric.Inverse(&hu)
	if err != nil {
		return 0, err
	}
	var hx mat.VecDense
	hx.MulVec(h, s.X)
	z := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		z.SetVec(i, y[i]-hx.AtVec(i))
	}
	var sz mat.VecDense
	sz.MulVec(sMat, z)
	return mat.Dot(&sz, z) / 2, nil
}

// EqConstraintDistance is the non-mutating query form of ConstraintUpdate.
func (s *State) EqConstraintDistance(d []float64, capD *mat.Dense) (float64, error) {
	m := len(d)
	var dp mat.Dense
	dp.Mul(capD, s.P)
	var dpdt mat.Dense
	dpdt.Mul(&dp, capD.T())

	sMat, err := numeric.Inverse(&dpdt)
	if err != nil {
		return 0, err
	}
	var dx mat.VecDense
	dx.MulVec(capD, s.X)
	z := mat.NewVecDense(m, nil)
	for i := 0; i < m; i++ {
		z.SetVec(i, d[i]-dx.AtVec(i))
	}
	var sz mat.VecDense
	sz.MulVec(sMat, z)
	return mat.Dot(z, &sz) / 2, nil
}

// IneqConstraintDistance is the non-mutating query form for a two-sided
// constraint a < omega.x < b; returns +Inf if the implied variance would be
// non-positive.
func (s *State) IneqConstraintDistance(omega []float64, a, b float64) float64 {
	n := s.Dim()
	ov := mat.NewVecDense(n, omega)
	var po mat.VecDense
	po.MulVec(s.P, ov)
	vv := mat.Dot(&po, ov)
	if vv <= 0 {
		return math.Inf(1)
	}
	v := math.Sqrt(vv)
	mean := mat.Dot(ov, s.X)
	c := (a - mean) / v
	d := (b - mean) / v
	logp, _, _ := numeric.TruncateGaussian(c, d)
	return -logp
}

// IneqlConstraintDistance is the non-mutating query form for the one-sided
// constraint a < omega.x.
func (s *State) IneqlConstraintDistance(omega []float64, a float64) float64 {
	n := s.Dim()
	ov := mat.NewVecDense(n, omega)
	var po mat.VecDense
	po.MulVec(s.P, ov)
	vv := mat.Dot(&po, ov)
	if vv < 0 {
		return math.Inf(1)
	}
	c := (a - mat.Dot(ov, s.X)) / math.Sqrt(vv)
	logp, _, _ := numeric.LeftTruncateGaussian(c)
	return -logp
}

// IneqrConstraintDistance is the non-mutating query form for the one-sided
// constraint omega.x < b.
func (s *State) IneqrConstraintDistance(omega []float64, b float64) float64 {
	n := s.Dim()
	ov := mat.NewVecDense(n, omega)
	var po mat.VecDense
	po.MulVec(s.P, ov)
	vv := mat.Dot(&po, ov)
	if vv < 0 {
		return math.Inf(1)
	}
	d := (b - mat.Dot(ov, s.X)) / math.Sqrt(vv)
	logp, _, _ := numeric.RightTruncateGaussian(d)
	return -logp
}

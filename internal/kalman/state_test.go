package kalman

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func identityState() *State {
	return New([]float64{0, 0, 1, 1}, [][]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	})
}

func symmetric(p *mat.SymDense, tol float64) bool {
	n := p.Symmetric()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if math.Abs(p.At(i, j)-p.At(j, i)) > tol {
				return false
			}
		}
	}
	return true
}

func TestTimeUpdateConsistency(t *testing.T) {
	s := identityState()
	f := mat.NewDense(4, 4, []float64{
		1, 0, 1, 0,
		0, 1, 0, 1,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	q := mat.NewSymDense(4, nil)
	for i := 0; i < 4; i++ {
		q.SetSym(i, i, 0.01)
	}
	if err := s.TimeUpdate(f, q); err != nil {
		t.Fatalf("time_update: %v", err)
	}
	if !symmetric(s.P, 1e-10) {
		t.Fatalf("P not symmetric after time_update")
	}
	if s.X.AtVec(0) != 1 || s.X.AtVec(1) != 1 {
		t.Fatalf("unexpected mean after time_update: %v", s.X)
	}
}

func TestMeasurementUpdateReducesVariance(t *testing.T) {
	s := identityState()
	h := mat.NewDense(1, 4, []float64{1, 0, 0, 0})
	r := mat.NewSymDense(1, []float64{0.1})
	before := s.P.At(0, 0)
	dist, err := s.MeasurementUpdate([]float64{0}, h, r)
	if err != nil {
		t.Fatalf("measurement_update: %v", err)
	}
	if dist < 0 {
		t.Fatalf("distance must be non-negative, got %v", dist)
	}
	if s.P.At(0, 0) >= before {
		t.Fatalf("variance should shrink after measurement: before=%v after=%v", before, s.P.At(0, 0))
	}
	if !symmetric(s.P, 1e-9) {
		t.Fatalf("P not symmetric after measurement_update")
	}
}

func TestEqConstraintDistanceZeroWhenSatisfied(t *testing.T) {
	s := identityState()
	capD := mat.NewDense(1, 4, []float64{1, 0, 0, 0})
	dist, err := s.EqConstraintDistance([]float64{0}, capD)
	if err != nil {
		t.Fatalf("eq_constraint_distance: %v", err)
	}
	if dist != 0 {
		t.Fatalf("expected zero distance when D x = d, got %v", dist)
	}
}

func TestIneqConstraintDistanceInsideBox(t *testing.T) {
	s := identityState()
	dist := s.IneqConstraintDistance([]float64{1, 0, 0, 0}, -10, 10)
	if dist < 0 {
		t.Fatalf("distance should be non-negative, got %v", dist)
	}
	// Well inside the box, the penalty should be small.
	if dist > 1 {
		t.Fatalf("expected small penalty well inside box, got %v", dist)
	}
}

func TestIneqConstraintUpdateSequentialRows(t *testing.T) {
	s := identityState()
	capD := mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})
	a := []float64{-1, -1}
	b := []float64{1, 1}
	dist, err := s.IneqConstraintUpdate(capD, a, b)
	if err != nil {
		t.Fatalf("ineq_constraint_update: %v", err)
	}
	if dist < 0 {
		t.Fatalf("accumulated distance must be non-negative, got %v", dist)
	}
	if !symmetric(s.P, 1e-8) {
		t.Fatalf("P not symmetric after ineq_constraint_update")
	}
}

func TestTransformDoesNotMutate(t *testing.T) {
	s := identityState()
	capD := mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})
	before := s.Copy()
	_ = s.Transform(capD)
	if s.X.AtVec(0) != before.X.AtVec(0) || s.X.AtVec(1) != before.X.AtVec(1) {
		t.Fatalf("Transform must not mutate the receiver")
	}
}

package regression

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// S1 — Trivial OLS: y = x, no transforms. Coefficient on x = 1, intercept = 0.
func TestFitTrivialOLS(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 2, 3, 4, 5}
	X := mat.NewDense(5, 2, nil)
	for i := range x {
		X.Set(i, 0, 1) // intercept
		X.Set(i, 1, x[i])
	}
	d := &Design{Names: []string{"const", "x"}, X: X, Y: y}
	res, err := Fit(d)
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if !almostEqual(res.Coefficients[1], 1.0, 1e-8) {
		t.Errorf("expected slope ~1.0, got %v", res.Coefficients[1])
	}
	if !almostEqual(res.Coefficients[0], 0.0, 1e-6) {
		t.Errorf("expected intercept ~0.0, got %v", res.Coefficients[0])
	}
	if !almostEqual(res.RSquared, 1.0, 1e-8) {
		t.Errorf("expected R^2 ~1.0, got %v", res.RSquared)
	}
}

// S5 — Bounded regression: unconstrained slope would be 3.0, but coeff_max
// clamps it to 2.0.
func TestFitBoundedCoefficientActiveBound(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 3.0 * v
	}
	X := mat.NewDense(len(x), 2, nil)
	for i := range x {
		X.Set(i, 0, 1)
		X.Set(i, 1, x[i])
	}
	maxBound := 2.0
	d := &Design{
		Names:  []string{"const", "x"},
		X:      X,
		Y:      y,
		Bounds: []Bounds{{}, {Max: &maxBound}},
	}
	res, err := Fit(d)
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if !almostEqual(res.Coefficients[1], 2.0, 1e-3) {
		t.Errorf("expected bounded slope ~2.0, got %v", res.Coefficients[1])
	}
}

// Invariant 1: fitted + residual == y.
func TestFittedPlusResidualEqualsY(t *testing.T) {
	x := []float64{2, 4, 6, 3, 9, 1}
	y := []float64{5, 7, 12, 4, 20, 2}
	X := mat.NewDense(len(x), 2, nil)
	for i := range x {
		X.Set(i, 0, 1)
		X.Set(i, 1, x[i])
	}
	d := &Design{Names: []string{"const", "x"}, X: X, Y: y}
	res, err := Fit(d)
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	for i := range y {
		got := res.Fitted[i] + res.Residuals[i]
		if !almostEqual(got, y[i], 1e-8) {
			t.Errorf("index %d: fitted+resid=%v want %v", i, got, y[i])
		}
	}
}

// Invariant 8: with all coefficients unbounded, bounded solve matches
// closed-form OLS.
func TestUnboundedMatchesClosedFormOLS(t *testing.T) {
	x := []float64{1, 3, 2, 5, 4, 8, 7}
	y := []float64{2.1, 5.9, 4.2, 9.8, 8.1, 16.2, 14.0}
	X := mat.NewDense(len(x), 2, nil)
	for i := range x {
		X.Set(i, 0, 1)
		X.Set(i, 1, x[i])
	}
	d := &Design{Names: []string{"const", "x"}, X: X, Y: y}
	closedForm, err := fitOLS(X, y)
	if err != nil {
		t.Fatalf("fitOLS error: %v", err)
	}
	res, err := Fit(d)
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	for j := range closedForm.Beta {
		if !almostEqual(res.Coefficients[j], closedForm.Beta[j], 1e-6) {
			t.Errorf("coefficient %d: bounded=%v closedForm=%v", j, res.Coefficients[j], closedForm.Beta[j])
		}
	}
}

func TestFitRejectsRowMismatch(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	d := &Design{Names: []string{"x"}, X: X, Y: []float64{1, 2}}
	if _, err := Fit(d); err == nil {
		t.Fatal("expected error for row mismatch")
	}
}

func TestFitWeightedRecoversUnweightedUnits(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}
	X := mat.NewDense(len(x), 2, nil)
	for i := range x {
		X.Set(i, 0, 1)
		X.Set(i, 1, x[i])
	}
	weights := []float64{1, 1, 1, 1, 1}
	d := &Design{Names: []string{"const", "x"}, X: X, Y: y, Weights: weights}
	res, err := Fit(d)
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	if !almostEqual(res.Coefficients[1], 2.0, 1e-6) {
		t.Errorf("expected slope ~2.0, got %v", res.Coefficients[1])
	}
}

package regression

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestPruneZeroVarianceDropsAllZeroColumn(t *testing.T) {
	names := []string{"const", "x", "dead"}
	X := mat.NewDense(3, 3, []float64{
		1, 1, 0,
		1, 2, 0,
		1, 3, 0,
	})
	bounds := []Bounds{{}, {}, {}}

	prunedNames, prunedX, prunedBounds, dropped := PruneZeroVariance(names, X, bounds)

	if len(dropped) != 1 || dropped[0] != "dead" {
		t.Fatalf("expected only %q dropped, got %v", "dead", dropped)
	}
	if len(prunedNames) != 2 || prunedNames[0] != "const" || prunedNames[1] != "x" {
		t.Fatalf("unexpected pruned names: %v", prunedNames)
	}
	if len(prunedBounds) != 2 {
		t.Fatalf("expected 2 bounds, got %d", len(prunedBounds))
	}
	r, c := prunedX.Dims()
	if r != 3 || c != 2 {
		t.Fatalf("expected 3x2 pruned matrix, got %dx%d", r, c)
	}
}

func TestPruneZeroVarianceKeepsConstantNonzeroColumn(t *testing.T) {
	names := []string{"const"}
	X := mat.NewDense(3, 1, []float64{1, 1, 1})

	prunedNames, _, _, dropped := PruneZeroVariance(names, X, nil)

	if len(dropped) != 0 {
		t.Errorf("expected no columns dropped, got %v", dropped)
	}
	if len(prunedNames) != 1 {
		t.Errorf("expected the constant column retained, got %v", prunedNames)
	}
}

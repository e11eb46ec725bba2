package decompose

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// S6 — Decomposition identity: two variables in interval 2 plus an
// interval-1 constant, log-KPI; contributions must sum to exp(fitted).
func TestRunDecompositionIdentityS6(t *testing.T) {
	n := 5
	x1 := []float64{0.1, 0.3, 0.2, 0.5, 0.4}
	x2 := []float64{0.2, 0.1, 0.4, 0.1, 0.3}
	constCol := make([]float64, n)
	for i := range constCol {
		constCol[i] = 1
	}

	constant := &Variable{Name: "const", Parent: "const", Category: "Base", Interval: 1, IsConstant: true, Coefficient: 1.5, Transformed: constCol}
	v1 := &Variable{Name: "v1", Parent: "v1", Category: "Media", Interval: 2, Coefficient: 0.3, Transformed: x1}
	v2 := &Variable{Name: "v2", Parent: "v2", Category: "Media", Interval: 2, Coefficient: -0.2, Transformed: x2}

	fitted := make([]float64, n)
	for i := 0; i < n; i++ {
		fitted[i] = constant.Coefficient*constCol[i] + v1.Coefficient*x1[i] + v2.Coefficient*x2[i]
	}

	in := &Input{
		Obs:          n,
		CrossSection: []string{"a", "a", "a", "a", "a"},
		Variables:    []*Variable{constant, v1, v2},
		Fitted:       fitted,
		KPILogged:    true,
	}

	table, err := Run(in)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for i := 0; i < n; i++ {
		var sum float64
		for _, name := range []string{"const", "v1", "v2"} {
			sum += table.Variable[name][i]
		}
		want := math.Exp(fitted[i])
		if !almostEqual(sum, want, 1e-6) {
			t.Errorf("row %d: contributions sum to %v, want %v", i, sum, want)
		}
	}
}

func TestRunRejectsConstantOutsideIntervalOne(t *testing.T) {
	n := 3
	constCol := []float64{1, 1, 1}
	bad := &Variable{Name: "const", Parent: "const", Interval: 2, IsConstant: true, Coefficient: 1, Transformed: constCol}
	other := &Variable{Name: "v1", Parent: "v1", Interval: 1, Coefficient: 0.2, Transformed: []float64{1, 2, 3}}
	in := &Input{
		Obs:          n,
		CrossSection: []string{"a", "a", "a"},
		Variables:    []*Variable{bad, other},
		Fitted:       []float64{1, 1, 1},
	}
	if _, err := Run(in); err == nil {
		t.Fatal("expected error for constant outside interval 1")
	}
}

func TestRunRejectsFewerThanTwoIntervals(t *testing.T) {
	n := 3
	constant := &Variable{Name: "const", Parent: "const", Interval: 1, IsConstant: true, Coefficient: 1, Transformed: []float64{1, 1, 1}}
	in := &Input{
		Obs:          n,
		CrossSection: []string{"a", "a", "a"},
		Variables:    []*Variable{constant},
		Fitted:       []float64{1, 1, 1},
	}
	if _, err := Run(in); err == nil {
		t.Fatal("expected error for fewer than two intervals")
	}
}

// Panel roll-up: rows in cross-section A should get zero contribution from
// the B slice and vice versa (scenario S7).
func TestPanelRollUpIsolatesCrossSections(t *testing.T) {
	n := 4
	crossSection := []string{"A", "A", "B", "B"}
	constant := &Variable{Name: "const", Parent: "const", Interval: 1, IsConstant: true, Coefficient: 1, Transformed: []float64{1, 1, 1, 1}}
	sliceA := &Variable{Name: "v_mu_A", Parent: "v", CrossSection: "A", Interval: 2, Coefficient: 0.5, Transformed: []float64{2, 3, 0, 0}}
	sliceB := &Variable{Name: "v_mu_B", Parent: "v", CrossSection: "B", Interval: 2, Coefficient: 0.8, Transformed: []float64{0, 0, 1, 2}}

	fitted := make([]float64, n)
	for i := 0; i < n; i++ {
		fitted[i] = constant.Coefficient + sliceA.Coefficient*sliceA.Transformed[i] + sliceB.Coefficient*sliceB.Transformed[i]
	}

	in := &Input{
		Obs:          n,
		CrossSection: crossSection,
		Variables:    []*Variable{constant, sliceA, sliceB},
		Fitted:       fitted,
	}
	table, err := Run(in)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if _, ok := table.Variable["v_mu_A"]; ok {
		t.Error("expected panel slices to be rolled up into parent 'v', not kept separately")
	}
	if _, ok := table.Variable["v"]; !ok {
		t.Fatal("expected rolled-up 'v' column")
	}
	// Linear KPI: each row carries only its own slice's beta*x.
	want := []float64{1, 1.5, 0.8, 1.6}
	for i, w := range want {
		if !almostEqual(table.Variable["v"][i], w, 1e-12) {
			t.Errorf("row %d (%s): rolled-up v = %v, want %v", i, crossSection[i], table.Variable["v"][i], w)
		}
	}
}

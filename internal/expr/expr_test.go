package expr

import (
	"math"
	"testing"
	"time"
)

type fakeXSResolver struct {
	dims map[string]map[string]string // cross-section -> dim -> value
}

func (f fakeXSResolver) DimValue(xs, dim string) (string, bool) {
	m, ok := f.dims[xs]
	if !ok {
		return "", false
	}
	v, ok := m[dim]
	return v, ok
}

func newTestContext() *EvalContext {
	obs := []time.Time{
		mustDate("2023-01-01"),
		mustDate("2023-02-01"),
		mustDate("2023-03-01"),
	}
	return &EvalContext{
		Columns: map[string][]float64{
			"sales_north": {10, 20, 30},
			"sales_south": {1, 2, 3},
			"price":       {5, 5, 5},
		},
		Obs:          obs,
		N:            3,
		CrossSection: "north",
		XSSpec: fakeXSResolver{dims: map[string]map[string]string{
			"north": {"region": "ang"},
			"south": {"region": "fra"},
		}},
		Permutation: map[int]float64{1: 0.5},
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestEvaluateLiteralAndArithmetic(t *testing.T) {
	ctx := newTestContext()
	got, err := Evaluate("price * 2 + 1", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{11, 11, 11}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestEvaluateCrossSectionToken(t *testing.T) {
	ctx := newTestContext()
	got, err := Evaluate("sales_.crosssection.", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{10, 20, 30}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestEvaluateUnresolvedDimensionIsZero(t *testing.T) {
	ctx := newTestContext()
	ctx.CrossSection = "unmapped"
	got, err := Evaluate("sales_.dim.", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("index %d: expected zero for unresolved dimension, got %v", i, v)
		}
	}
}

func TestEvaluateDimTokenComparison(t *testing.T) {
	ctx := newTestContext()
	got, err := Evaluate("(.region. == 'ang')", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if v != 1 {
			t.Errorf("index %d: expected true (region matches), got %v", i, v)
		}
	}

	ctx.CrossSection = "south"
	got, err = Evaluate("(.region. == 'ang')", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("index %d: expected false (region mismatch), got %v", i, v)
		}
	}
}

func TestEvaluateObsDateComparison(t *testing.T) {
	ctx := newTestContext()
	got, err := Evaluate("obs >= '2023-02-01'", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0, 1, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestEvaluatePermutationSlot(t *testing.T) {
	ctx := newTestContext()
	got, err := Evaluate("adstock(price, ¬1)", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{5, 7.5, 8.75}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestEvaluateLogicalAndOr(t *testing.T) {
	ctx := newTestContext()
	got, err := Evaluate("(price > 1) and (price < 10)", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if v != 1 {
			t.Errorf("index %d: expected true, got %v", i, v)
		}
	}
}

func TestEvaluateUnknownFunction(t *testing.T) {
	ctx := newTestContext()
	if _, err := Evaluate("bogus(price)", ctx); err == nil {
		t.Fatal("expected error for unknown function")
	}
}

func TestEvaluateUnaryNegationAndNot(t *testing.T) {
	ctx := newTestContext()
	got, err := Evaluate("-price", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if v != -5 {
			t.Errorf("index %d: got %v want -5", i, v)
		}
	}

	got, err = Evaluate("not (price == 5)", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("index %d: expected false, got %v", i, v)
		}
	}
}

func TestEvaluatePowerRightAssociative(t *testing.T) {
	ctx := newTestContext()
	got, err := Evaluate("2 ** 3", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if v != 8 {
			t.Errorf("index %d: got %v want 8", i, v)
		}
	}

	// 2 ** (3 ** 2) = 512; left association would give (2 ** 3) ** 2 = 64.
	got, err = Evaluate("2 ** 3 ** 2", ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if v != 512 {
			t.Errorf("index %d: got %v want 512", i, v)
		}
	}
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	if _, err := Parse("price + 1)"); err == nil {
		t.Fatal("expected error for unbalanced parens")
	}
}

package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/modelhub/mmm-engine/internal/panel"
)

func days(n int) []time.Time {
	out := make([]time.Time, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = base.AddDate(0, 0, i)
	}
	return out
}

// S1 — Trivial OLS, run through the full pipeline (no panel, no bounds).
func TestRunTrivialOLSEndToEnd(t *testing.T) {
	ds := &panel.RawDataset{
		Obs:     days(5),
		Numeric: map[string][]float64{"x": {1, 2, 3, 4, 5}, "y": {1, 2, 3, 4, 5}},
		String:  map[string][]string{},
	}
	cfg := &panel.ModelConfiguration{KPI: "y"}
	specs := []*panel.VariableSpec{
		{Variable: "const", ShortName: "const", Interval: 1, IsConstant: true, Include: true},
		{Variable: "x", ShortName: "x", Interval: 2, Include: true},
	}

	res, err := Run(cfg, specs, nil, ds, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	coefByName := map[string]float64{}
	for i, name := range res.Regression.Names {
		coefByName[name] = res.Regression.Coefficients[i]
	}
	if math.Abs(coefByName["x"]-1.0) > 1e-6 {
		t.Errorf("expected slope 1.0, got %v", coefByName["x"])
	}
	if math.Abs(coefByName["const"]) > 1e-6 {
		t.Errorf("expected intercept 0, got %v", coefByName["const"])
	}
	if math.Abs(res.Regression.RSquared-1.0) > 1e-6 {
		t.Errorf("expected R^2 = 1, got %v", res.Regression.RSquared)
	}
	if res.Decomposition == nil {
		t.Fatal("expected a decomposition table")
	}
}

// S5 — Bounded regression: coeff_max clamps the slope to 2.0.
func TestRunBoundedRegressionEndToEnd(t *testing.T) {
	ds := &panel.RawDataset{
		Obs:     days(5),
		Numeric: map[string][]float64{"x": {1, 2, 3, 4, 5}, "y": {3, 6, 9, 12, 15}},
		String:  map[string][]string{},
	}
	cfg := &panel.ModelConfiguration{KPI: "y"}
	max := 2.0
	specs := []*panel.VariableSpec{
		{Variable: "const", ShortName: "const", Interval: 1, IsConstant: true, Include: true},
		{Variable: "x", ShortName: "x", Interval: 2, Include: true, CoeffMax: &max},
	}

	res, err := Run(cfg, specs, nil, ds, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, name := range res.Regression.Names {
		if name == "x" && math.Abs(res.Regression.Coefficients[i]-2.0) > 1e-6 {
			t.Errorf("expected slope clamped to 2.0, got %v", res.Regression.Coefficients[i])
		}
	}
}

func TestRunPermutationsIndexesEveryBinding(t *testing.T) {
	ds := &panel.RawDataset{
		Obs:     days(5),
		Numeric: map[string][]float64{"x": {1, 2, 3, 4, 5}, "y": {1, 2, 3, 4, 5}},
		String:  map[string][]string{},
	}
	cfg := &panel.ModelConfiguration{KPI: "y"}
	specs := []*panel.VariableSpec{
		{Variable: "const", ShortName: "const", Interval: 1, IsConstant: true, Include: true},
		{Variable: "x", ShortName: "x", Interval: 2, Include: true, Substitution: "¬1(0.1,0.2,0.3)"},
	}

	results, failed, err := RunPermutations(cfg, specs, nil, ds)
	if err != nil {
		t.Fatalf("RunPermutations: %v", err)
	}
	if len(failed) != 0 {
		t.Errorf("expected no failed permutations, got %v", failed)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 permutation results, got %d", len(results))
	}
	for i := 0; i < 3; i++ {
		if results[i] == nil {
			t.Errorf("expected a result at index %d", i)
		}
	}
}

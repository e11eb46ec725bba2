package diagnostics

import (
	"math"
	"testing"

	"github.com/modelhub/mmm-engine/internal/regression"
	"gonum.org/v1/gonum/mat"
)

func fitSimple(t *testing.T) (*regression.Result, *mat.Dense) {
	t.Helper()
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	y := []float64{2.1, 3.9, 6.2, 7.8, 10.1, 12.2, 13.9, 16.1}
	X := mat.NewDense(len(x), 2, nil)
	for i := range x {
		X.Set(i, 0, 1)
		X.Set(i, 1, x[i])
	}
	d := &regression.Design{Names: []string{"const", "x"}, X: X, Y: y}
	res, err := regression.Fit(d)
	if err != nil {
		t.Fatalf("Fit error: %v", err)
	}
	return res, X
}

// Invariant 9: diagnostic p-values lie in [0,1] or are the literal "N/A".
func TestSingleSeriesPValuesInRange(t *testing.T) {
	res, X := fitSimple(t)
	report := SingleSeries(res, X)
	for _, d := range report.Tests {
		switch p := d.PValue.(type) {
		case string:
			if p != NotApplicable {
				t.Errorf("%s: unexpected non-numeric p-value %q", d.Name, p)
			}
		case float64:
			if math.IsNaN(p) || p < 0 || p > 1 {
				t.Errorf("%s: p-value %v out of [0,1]", d.Name, p)
			}
		default:
			t.Errorf("%s: p-value has unexpected type %T", d.Name, p)
		}
	}
}

func TestSingleSeriesIncludesAllDiagnostics(t *testing.T) {
	res, X := fitSimple(t)
	report := SingleSeries(res, X)
	wantNames := []string{
		"R-squared", "Adjusted R-squared", "AIC", "BIC",
		"Durbin-Watson", "Ljung-Box", "Breusch-Godfrey", "Breusch-Pagan",
		"White", "ARCH-1", "Ramsey RESET", "Jarque-Bera", "Lilliefors",
	}
	seen := make(map[string]bool)
	for _, d := range report.Tests {
		seen[d.Name] = true
	}
	for _, name := range wantNames {
		if !seen[name] {
			t.Errorf("expected diagnostic %q to be present", name)
		}
	}
}

func TestVIFSkipsInterceptColumn(t *testing.T) {
	res, X := fitSimple(t)
	report := SingleSeries(res, X)
	if _, ok := report.VIF["const"]; ok {
		t.Error("expected VIF map to omit the constant column")
	}
	if _, ok := report.VIF["x"]; !ok {
		t.Error("expected VIF map to include the non-constant column")
	}
}

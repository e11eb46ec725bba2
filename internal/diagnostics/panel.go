package diagnostics

import (
	"math"

	"github.com/modelhub/mmm-engine/internal/regression"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Panel computes the subset of the battery well-defined on stacked panel
// data (spec §4.4): R², adjusted R², AIC/BIC, Breusch-Pagan, Ramsey RESET,
// Jarque-Bera, plus Pesaran CD, Wooldridge serial correlation, and a
// Hausman-style fixed-vs-random comparison. crossSection[i] names which
// panel unit row i belongs to.
func Panel(res *regression.Result, X *mat.Dense, crossSection []string, obsIndex []int) *Report {
	n := res.NObservations

	tests := []Diagnostic{
		numDiagnostic("R-squared", CategoryModelFit, res.RSquared, 0),
		numDiagnostic("Adjusted R-squared", CategoryModelFit, res.AdjustedRSquared, 0),
		numDiagnostic("AIC", CategoryModelFit, res.AIC, 0),
		numDiagnostic("BIC", CategoryModelFit, res.BIC, 0),
	}

	tests = append(tests, breuschPagan(res.Residuals, X))
	tests = append(tests, ramseyReset(res.Fitted, res.Residuals, X, n))
	tests = append(tests, jarqueBera(res.Residuals))
	tests = append(tests, pesaranCD(res.Residuals, crossSection, obsIndex))
	tests = append(tests, wooldridgeSerialCorrelation(res.Residuals, crossSection, obsIndex))
	tests = append(tests, hausmanFixedVsRandom(res))

	return &Report{Tests: tests, VIF: variableInflationFactors(res.Names, X)}
}

// groupResiduals buckets residuals by cross-section, ordered by obsIndex
// within each group, for tests that need per-unit time ordering.
func groupResiduals(resid []float64, crossSection []string, obsIndex []int) map[string][]float64 {
	type row struct {
		idx int
		val float64
	}
	byXS := make(map[string][]row)
	for i, xs := range crossSection {
		byXS[xs] = append(byXS[xs], row{idx: obsIndex[i], val: resid[i]})
	}
	out := make(map[string][]float64, len(byXS))
	for xs, rows := range byXS {
		sorted := append([]row(nil), rows...)
		for i := 1; i < len(sorted); i++ {
			for j := i; j > 0 && sorted[j].idx < sorted[j-1].idx; j-- {
				sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
			}
		}
		vals := make([]float64, len(sorted))
		for i, r := range sorted {
			vals[i] = r.val
		}
		out[xs] = vals
	}
	return out
}

// pesaranCD tests for cross-sectional dependence: the average pairwise
// correlation of residuals across panel units, scaled to an asymptotically
// normal statistic.
func pesaranCD(resid []float64, crossSection []string, obsIndex []int) Diagnostic {
	groups := groupResiduals(resid, crossSection, obsIndex)
	if len(groups) < 2 {
		return naDiagnostic("Pesaran CD", CategoryCrossSectional, 0)
	}
	var units [][]float64
	for _, v := range groups {
		units = append(units, v)
	}
	nUnits := len(units)
	tCommon := len(units[0])
	for _, u := range units {
		if len(u) != tCommon {
			return naDiagnostic("Pesaran CD", CategoryCrossSectional, 0)
		}
	}
	if tCommon < 2 {
		return naDiagnostic("Pesaran CD", CategoryCrossSectional, 0)
	}
	var sumCorr float64
	pairs := 0
	for i := 0; i < nUnits; i++ {
		for j := i + 1; j < nUnits; j++ {
			c := correlation(units[i], units[j])
			sumCorr += c
			pairs++
		}
	}
	if pairs == 0 {
		return naDiagnostic("Pesaran CD", CategoryCrossSectional, 0)
	}
	stat := math.Sqrt(2*float64(tCommon)/float64(nUnits*(nUnits-1))) * sumCorr
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	p := 2 * (1 - norm.CDF(math.Abs(stat)))
	return numDiagnostic("Pesaran CD", CategoryCrossSectional, stat, p)
}

func correlation(a, b []float64) float64 {
	ma, mb := mean(a), mean(b)
	var num, da, db float64
	for i := range a {
		xa := a[i] - ma
		xb := b[i] - mb
		num += xa * xb
		da += xa * xa
		db += xb * xb
	}
	if da == 0 || db == 0 {
		return 0
	}
	return num / math.Sqrt(da*db)
}

// wooldridgeSerialCorrelation regresses each unit's first-differenced
// residual on its own lag and tests whether the pooled slope is -0.5, the
// null of no serial correlation in the Wooldridge test.
func wooldridgeSerialCorrelation(resid []float64, crossSection []string, obsIndex []int) Diagnostic {
	groups := groupResiduals(resid, crossSection, obsIndex)
	var diffs, lagDiffs []float64
	for _, series := range groups {
		if len(series) < 3 {
			continue
		}
		for t := 2; t < len(series); t++ {
			d0 := series[t] - series[t-1]
			d1 := series[t-1] - series[t-2]
			diffs = append(diffs, d0)
			lagDiffs = append(lagDiffs, d1)
		}
	}
	n := len(diffs)
	if n < 3 {
		return naDiagnostic("Wooldridge", CategorySerialCorrelation, 0)
	}
	X := mat.NewDense(n, 2, nil)
	for i, v := range lagDiffs {
		X.Set(i, 0, 1)
		X.Set(i, 1, v)
	}
	d := &regression.Design{Names: []string{"const", "lag_diff"}, X: X, Y: diffs}
	auxRes, err := regression.Fit(d)
	if err != nil {
		return naDiagnostic("Wooldridge", CategorySerialCorrelation, 0)
	}
	slope := auxRes.Coefficients[1]
	se := auxRes.StdErrors[1]
	if se == 0 {
		return naDiagnostic("Wooldridge", CategorySerialCorrelation, 0)
	}
	stat := (slope - (-0.5)) / se
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(auxRes.DegreesOfFreedom)}
	p := 2 * (1 - tdist.CDF(math.Abs(stat)))
	return numDiagnostic("Wooldridge", CategorySerialCorrelation, stat, p)
}

// hausmanFixedVsRandom reports a Hausman-style statistic summarizing how
// much the fitted fixed-effect coefficients would shift under a random-
// effects specification. Since the regression core always estimates fixed
// effects directly (spec §9's dummy-encoding redesign), this test measures
// the residual's within-unit variance share as a proxy for whether pooling
// the intercepts would materially change inference; a full two-stage
// random-effects refit is out of scope (spec §1 Non-goals).
func hausmanFixedVsRandom(res *regression.Result) Diagnostic {
	n := res.NObservations
	if n < 3 {
		return naDiagnostic("Hausman", CategoryFixedVsRandom, 0)
	}
	rss := sumSquares(res.Residuals)
	tss := rss + sumSquaresDelta(res.Fitted, res.Residuals)
	if tss == 0 {
		return naDiagnostic("Hausman", CategoryFixedVsRandom, 0)
	}
	stat := rss / tss * float64(n)
	dof := len(res.Coefficients) - 1
	if dof < 1 {
		dof = 1
	}
	chi := distuv.ChiSquared{K: float64(dof)}
	p := 1 - chi.CDF(stat)
	return numDiagnostic("Hausman", CategoryFixedVsRandom, stat, p)
}

func sumSquaresDelta(fitted, resid []float64) float64 {
	m := mean(fitted)
	var s float64
	for _, f := range fitted {
		s += (f - m) * (f - m)
	}
	return s
}

package diagnostics

import (
	"math"
	"sort"

	"github.com/modelhub/mmm-engine/internal/regression"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SingleSeries computes the full single-cross-section battery of spec §4.4:
// R², adjusted R², AIC, BIC, residual variance/SE, Durbin-Watson, Ljung-Box,
// Breusch-Godfrey, Breusch-Pagan, White, ARCH-1, Ramsey RESET, Jarque-Bera,
// Lilliefors, plus VIF.
func SingleSeries(res *regression.Result, X *mat.Dense) *Report {
	n := res.NObservations
	rss := sumSquares(res.Residuals)
	sigma2 := rss / float64(res.DegreesOfFreedom)

	tests := []Diagnostic{
		numDiagnostic("R-squared", CategoryModelFit, res.RSquared, 0),
		numDiagnostic("Adjusted R-squared", CategoryModelFit, res.AdjustedRSquared, 0),
		numDiagnostic("AIC", CategoryModelFit, res.AIC, 0),
		numDiagnostic("BIC", CategoryModelFit, res.BIC, 0),
		numDiagnostic("Residual variance", CategoryTopline, sigma2, 0),
		numDiagnostic("Residual standard error", CategoryTopline, math.Sqrt(sigma2), 0),
		numDiagnostic("Durbin-Watson", CategorySerialCorrelation, res.DurbinWatson, 0),
	}

	tests = append(tests, ljungBox(res.Residuals, 10))
	tests = append(tests, breuschGodfrey(res.Residuals, X, 1))
	tests = append(tests, breuschPagan(res.Residuals, X))
	tests = append(tests, whiteTest(res.Residuals, X))
	tests = append(tests, arch1(res.Residuals))
	tests = append(tests, ramseyReset(res.Fitted, res.Residuals, X, n))
	tests = append(tests, jarqueBera(res.Residuals))
	tests = append(tests, lilliefors(res.Residuals))

	return &Report{Tests: tests, VIF: variableInflationFactors(res.Names, X)}
}

func sumSquares(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v * v
	}
	return s
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var s float64
	for _, v := range x {
		s += v
	}
	return s / float64(len(x))
}

// ljungBox tests for serial correlation in the residuals up to lag h.
func ljungBox(resid []float64, h int) Diagnostic {
	n := len(resid)
	if n <= h+1 {
		return naDiagnostic("Ljung-Box", CategorySerialCorrelation, 0)
	}
	acf := autocorrelations(resid, h)
	var stat float64
	for k := 1; k <= h; k++ {
		stat += acf[k] * acf[k] / float64(n-k)
	}
	stat *= float64(n) * float64(n+2)
	chi := distuv.ChiSquared{K: float64(h)}
	p := 1 - chi.CDF(stat)
	return numDiagnostic("Ljung-Box", CategorySerialCorrelation, stat, p)
}

func autocorrelations(x []float64, maxLag int) []float64 {
	n := len(x)
	m := mean(x)
	var c0 float64
	for _, v := range x {
		c0 += (v - m) * (v - m)
	}
	out := make([]float64, maxLag+1)
	out[0] = 1
	if c0 == 0 {
		return out
	}
	for k := 1; k <= maxLag; k++ {
		var ck float64
		for t := k; t < n; t++ {
			ck += (x[t] - m) * (x[t-k] - m)
		}
		out[k] = ck / c0
	}
	return out
}

// breuschGodfrey regresses residuals on the original design plus lagged
// residuals and tests joint significance of the lag coefficients. It
// reports N/A when that auxiliary design is singular.
func breuschGodfrey(resid []float64, X *mat.Dense, lags int) Diagnostic {
	n, k := X.Dims()
	if n <= k+lags {
		return naDiagnostic("Breusch-Godfrey", CategorySerialCorrelation, 0)
	}
	aug := mat.NewDense(n, k+lags, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			aug.Set(i, j, X.At(i, j))
		}
		for l := 1; l <= lags; l++ {
			if i-l >= 0 {
				aug.Set(i, k+l-1, resid[i-l])
			}
		}
	}
	names := make([]string, k+lags)
	for i := range names {
		names[i] = "aux"
	}
	d := &regression.Design{Names: names, X: aug, Y: resid}
	auxRes, err := regression.Fit(d)
	if err != nil || auxRes.SingularFallback {
		return naDiagnostic("Breusch-Godfrey", CategorySerialCorrelation, 0)
	}
	stat := float64(n) * auxRes.RSquared
	chi := distuv.ChiSquared{K: float64(lags)}
	p := 1 - chi.CDF(stat)
	return numDiagnostic("Breusch-Godfrey", CategorySerialCorrelation, stat, p)
}

// breuschPagan regresses squared residuals on X and tests whether the
// explained variation in the squared residuals is significant.
func breuschPagan(resid []float64, X *mat.Dense) Diagnostic {
	n, k := X.Dims()
	if n <= k {
		return naDiagnostic("Breusch-Pagan", CategoryHeteroscedastic, 0)
	}
	sq := make([]float64, n)
	for i, r := range resid {
		sq[i] = r * r
	}
	names := make([]string, k)
	for i := range names {
		names[i] = "aux"
	}
	d := &regression.Design{Names: names, X: X, Y: sq}
	auxRes, err := regression.Fit(d)
	if err != nil {
		return naDiagnostic("Breusch-Pagan", CategoryHeteroscedastic, 0)
	}
	stat := float64(n) * auxRes.RSquared
	chi := distuv.ChiSquared{K: float64(k - 1)}
	p := 1 - chi.CDF(stat)
	return numDiagnostic("Breusch-Pagan", CategoryHeteroscedastic, stat, p)
}

// whiteTest regresses squared residuals on X, X^2, and pairwise cross
// products; falls back to "N/A" when that auxiliary design is singular,
// per spec §9 item 4 / §4.4.
func whiteTest(resid []float64, X *mat.Dense) Diagnostic {
	n, k := X.Dims()
	var terms [][]float64
	for j := 0; j < k; j++ {
		terms = append(terms, colOf(X, j))
	}
	for j := 0; j < k; j++ {
		for l := j; l < k; l++ {
			cross := make([]float64, n)
			for i := 0; i < n; i++ {
				cross[i] = X.At(i, j) * X.At(i, l)
			}
			terms = append(terms, cross)
		}
	}
	m := len(terms)
	if n <= m {
		return naDiagnostic("White", CategoryHeteroscedastic, 0)
	}
	aux := mat.NewDense(n, m, nil)
	for j, col := range terms {
		for i, v := range col {
			aux.Set(i, j, v)
		}
	}
	sq := make([]float64, n)
	for i, r := range resid {
		sq[i] = r * r
	}
	names := make([]string, m)
	for i := range names {
		names[i] = "aux"
	}
	d := &regression.Design{Names: names, X: aux, Y: sq}
	auxRes, err := regression.Fit(d)
	if err != nil || auxRes.SingularFallback {
		return naDiagnostic("White", CategoryHeteroscedastic, 0)
	}
	stat := float64(n) * auxRes.RSquared
	chi := distuv.ChiSquared{K: float64(m - 1)}
	p := 1 - chi.CDF(stat)
	return numDiagnostic("White", CategoryHeteroscedastic, stat, p)
}

// arch1 tests for first-order autoregressive conditional heteroscedasticity:
// regress squared residuals on their own first lag.
func arch1(resid []float64) Diagnostic {
	n := len(resid)
	if n < 3 {
		return naDiagnostic("ARCH-1", CategoryHeteroscedastic, 0)
	}
	y := make([]float64, n-1)
	x := make([]float64, n-1)
	for i := 1; i < n; i++ {
		y[i-1] = resid[i] * resid[i]
		x[i-1] = resid[i-1] * resid[i-1]
	}
	aux := mat.NewDense(n-1, 2, nil)
	for i := range x {
		aux.Set(i, 0, 1)
		aux.Set(i, 1, x[i])
	}
	d := &regression.Design{Names: []string{"const", "lag"}, X: aux, Y: y}
	auxRes, err := regression.Fit(d)
	if err != nil {
		return naDiagnostic("ARCH-1", CategoryHeteroscedastic, 0)
	}
	stat := float64(n-1) * auxRes.RSquared
	chi := distuv.ChiSquared{K: 1}
	p := 1 - chi.CDF(stat)
	return numDiagnostic("ARCH-1", CategoryHeteroscedastic, stat, p)
}

// ramseyReset augments X with powers of the fitted values and tests joint
// significance of those extra terms (power 2, per spec §4.4).
func ramseyReset(fitted, resid []float64, X *mat.Dense, n int) Diagnostic {
	_, k := X.Dims()
	if n <= k+1 {
		return naDiagnostic("Ramsey RESET", CategoryFunctionalForm, 0)
	}
	aug := mat.NewDense(n, k+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			aug.Set(i, j, X.At(i, j))
		}
		aug.Set(i, k, fitted[i]*fitted[i])
	}
	y := make([]float64, n)
	for i := range y {
		y[i] = fitted[i] + resid[i]
	}
	names := make([]string, k+1)
	for i := range names {
		names[i] = "aux"
	}
	d := &regression.Design{Names: names, X: aug, Y: y}
	auxRes, err := regression.Fit(d)
	if err != nil {
		return naDiagnostic("Ramsey RESET", CategoryFunctionalForm, 0)
	}
	rssRestricted := sumSquares(resid)
	rssUnrestricted := sumSquares(auxRes.Residuals)
	dfUnrestricted := n - (k + 1)
	if dfUnrestricted <= 0 || rssUnrestricted <= 0 {
		return naDiagnostic("Ramsey RESET", CategoryFunctionalForm, 0)
	}
	stat := ((rssRestricted - rssUnrestricted) / 1) / (rssUnrestricted / float64(dfUnrestricted))
	if stat < 0 {
		stat = 0
	}
	f := distuv.F{D1: 1, D2: float64(dfUnrestricted)}
	p := 1 - f.CDF(stat)
	return numDiagnostic("Ramsey RESET", CategoryFunctionalForm, stat, p)
}

// jarqueBera tests residual normality via sample skewness and kurtosis.
func jarqueBera(resid []float64) Diagnostic {
	n := len(resid)
	if n < 4 {
		return naDiagnostic("Jarque-Bera", CategoryNormality, 0)
	}
	m := mean(resid)
	var m2, m3, m4 float64
	for _, r := range resid {
		d := r - m
		m2 += d * d
		m3 += d * d * d
		m4 += d * d * d * d
	}
	m2 /= float64(n)
	m3 /= float64(n)
	m4 /= float64(n)
	if m2 == 0 {
		return naDiagnostic("Jarque-Bera", CategoryNormality, 0)
	}
	skew := m3 / math.Pow(m2, 1.5)
	kurt := m4 / (m2 * m2)
	stat := float64(n) / 6 * (skew*skew + (kurt-3)*(kurt-3)/4)
	chi := distuv.ChiSquared{K: 2}
	p := 1 - chi.CDF(stat)
	return numDiagnostic("Jarque-Bera", CategoryNormality, stat, p)
}

// lilliefors is a Kolmogorov-Smirnov-style normality test against a normal
// distribution fit to the residuals' own mean/variance; its p-value is
// approximated via the standard Lilliefors critical-value asymptotics.
func lilliefors(resid []float64) Diagnostic {
	n := len(resid)
	if n < 5 {
		return naDiagnostic("Lilliefors", CategoryNormality, 0)
	}
	m := mean(resid)
	var variance float64
	for _, r := range resid {
		variance += (r - m) * (r - m)
	}
	variance /= float64(n)
	sd := math.Sqrt(variance)
	if sd == 0 {
		return naDiagnostic("Lilliefors", CategoryNormality, 0)
	}
	sorted := append([]float64(nil), resid...)
	sort.Float64s(sorted)
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	var d float64
	for i, v := range sorted {
		z := (v - m) / sd
		cdf := norm.CDF(z)
		empiricalUpper := float64(i+1) / float64(n)
		empiricalLower := float64(i) / float64(n)
		if diff := math.Abs(cdf - empiricalUpper); diff > d {
			d = diff
		}
		if diff := math.Abs(cdf - empiricalLower); diff > d {
			d = diff
		}
	}
	// Asymptotic Lilliefors p-value approximation (Dallal-Wilkinson style).
	stat := d
	adjusted := (math.Sqrt(float64(n)) - 0.01 + 0.85/math.Sqrt(float64(n))) * stat
	p := 2 * math.Exp(-2*adjusted*adjusted)
	return numDiagnostic("Lilliefors", CategoryNormality, stat, clampProb(p))
}

func colOf(X *mat.Dense, j int) []float64 {
	n, _ := X.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = X.At(i, j)
	}
	return out
}

// variableInflationFactors computes VIF per non-intercept column by
// regressing it against the rest of the design, per spec §4.4 / the
// auxiliary-regression VIF pattern.
func variableInflationFactors(names []string, X *mat.Dense) map[string]float64 {
	n, k := X.Dims()
	out := make(map[string]float64, k)
	for j := 0; j < k; j++ {
		if isConstantColumn(X, j) {
			continue
		}
		if k-1 == 0 {
			out[names[j]] = 1
			continue
		}
		y := colOf(X, j)
		rest := mat.NewDense(n, k-1, nil)
		restNames := make([]string, 0, k-1)
		col := 0
		for l := 0; l < k; l++ {
			if l == j {
				continue
			}
			for i := 0; i < n; i++ {
				rest.Set(i, col, X.At(i, l))
			}
			restNames = append(restNames, names[l])
			col++
		}
		d := &regression.Design{Names: restNames, X: rest, Y: y}
		auxRes, err := regression.Fit(d)
		if err != nil || auxRes.RSquared >= 1 {
			out[names[j]] = math.Inf(1)
			continue
		}
		out[names[j]] = 1.0 / (1.0 - auxRes.RSquared)
	}
	return out
}

func isConstantColumn(X *mat.Dense, j int) bool {
	n, _ := X.Dims()
	if n == 0 {
		return false
	}
	first := X.At(0, j)
	for i := 1; i < n; i++ {
		if X.At(i, j) != first {
			return false
		}
	}
	return true
}

package regression

import (
	"math"

	"github.com/modelhub/mmm-engine/internal/apperr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Fit runs the full bounded regression of spec §4.3: weight the rows if a
// weights column is configured, seed a box-constrained solve from the
// closed-form OLS solution, then unweight fitted values and residuals so
// downstream diagnostics see the original KPI units.
func Fit(d *Design) (*Result, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	n, k := d.dims()

	Xw, yw := d.weighted()

	ols, err := fitOLS(Xw, yw)
	if err != nil {
		return nil, err
	}

	beta, converged := projectedGradientSolve(Xw, yw, ols.Beta, d.Bounds)

	fittedW := make([]float64, n)
	bv := mat.NewVecDense(k, beta)
	var fv mat.VecDense
	fv.MulVec(Xw, bv)
	for i := 0; i < n; i++ {
		fittedW[i] = fv.AtVec(i)
	}

	fitted := make([]float64, n)
	residuals := make([]float64, n)
	if d.Weights == nil {
		for i := 0; i < n; i++ {
			fitted[i] = fittedW[i]
			residuals[i] = d.Y[i] - fitted[i]
		}
	} else {
		for i := 0; i < n; i++ {
			sw := sqrtNonNeg(d.Weights[i])
			if sw == 0 {
				fitted[i] = 0
			} else {
				fitted[i] = fittedW[i] / sw
			}
			residuals[i] = d.Y[i] - fitted[i]
		}
	}

	df := n - k
	if df <= 0 {
		return nil, apperr.Regression(apperr.StageFit, "zero or negative degrees of freedom: n=%d, k=%d", n, k)
	}

	rss := sumSquares(residuals)
	sigma2 := rss / float64(df)

	var xtx mat.Dense
	xtx.Mul(Xw.T(), Xw)

	var cov *mat.Dense
	var xtxInv mat.Dense
	if invErr := xtxInv.Inverse(&xtx); invErr == nil {
		cov = &xtxInv
	} else {
		cov, err = pseudoInverse(&xtx)
		if err != nil {
			return nil, apperr.Internal(apperr.StageFit, err)
		}
		ols.SingularFallback = true
	}

	stdErr := make([]float64, k)
	tStats := make([]float64, k)
	pValues := make([]float64, k)
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	for j := 0; j < k; j++ {
		variance := sigma2 * cov.At(j, j)
		if variance < 0 {
			variance = 0
		}
		se := math.Sqrt(variance)
		stdErr[j] = se
		if se == 0 {
			tStats[j] = 0
			pValues[j] = 1
			continue
		}
		tStat := beta[j] / se
		tStats[j] = tStat
		pValues[j] = 2 * (1 - tdist.CDF(math.Abs(tStat)))
	}

	yMean := mean(d.Y)
	var tss float64
	for _, v := range d.Y {
		tss += (v - yMean) * (v - yMean)
	}
	r2 := 1.0
	if tss > 0 {
		r2 = 1 - rss/tss
	}
	adjR2 := r2
	if n-k-1 > 0 {
		adjR2 = 1 - (1-r2)*float64(n-1)/float64(n-k-1)
	}

	// Overall F-test: regression vs. intercept-only model, mirroring the
	// teacher's restricted-vs-unrestricted Granger-causality F-test pattern.
	var fStat, fPValue float64
	dfReg := k - 1
	if dfReg > 0 && tss > 0 {
		msr := (tss - rss) / float64(dfReg)
		mse := rss / float64(df)
		if mse > 0 {
			fStat = msr / mse
			fdist := distuv.F{D1: float64(dfReg), D2: float64(df)}
			fPValue = 1 - fdist.CDF(fStat)
		}
	}
	if math.IsNaN(fStat) || math.IsInf(fStat, 0) {
		fStat = 0
		fPValue = 1
	}

	logLik := -0.5 * float64(n) * (math.Log(2*math.Pi) + math.Log(rss/float64(n)) + 1)
	aic := 2*float64(k) - 2*logLik
	bic := float64(k)*math.Log(float64(n)) - 2*logLik

	dw := durbinWatson(residuals)

	return &Result{
		Names:               append([]string(nil), d.Names...),
		Coefficients:        beta,
		StdErrors:           stdErr,
		TStats:              tStats,
		PValues:             pValues,
		Fitted:              fitted,
		Residuals:           residuals,
		RSquared:            r2,
		AdjustedRSquared:    adjR2,
		FStatistic:          fStat,
		FPValue:             fPValue,
		AIC:                 aic,
		BIC:                 bic,
		DurbinWatson:        dw,
		NObservations:       n,
		DegreesOfFreedom:    df,
		OptimizationSuccess: converged,
		ConditionNumber:     ols.ConditionNumber,
		SingularFallback:    ols.SingularFallback,
	}, nil
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

func durbinWatson(resid []float64) float64 {
	if len(resid) < 2 {
		return math.NaN()
	}
	var num, den float64
	for i := 1; i < len(resid); i++ {
		d := resid[i] - resid[i-1]
		num += d * d
	}
	for _, r := range resid {
		den += r * r
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

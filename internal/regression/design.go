// Package regression implements the bounded-coefficient linear regression
// core of spec §4.3: a box-constrained least-squares fit seeded by the
// closed-form OLS solution, following the OLS+SVD-fallback pattern of
// ADGArrio's OLSEstimator, generalized from a VAR's multi-equation system
// to a single-equation design matrix with optional per-row weights and
// per-coefficient bounds.
package regression

import (
	"math"

	"github.com/modelhub/mmm-engine/internal/apperr"
	"gonum.org/v1/gonum/mat"
)

// Bounds holds an optional per-coefficient [min, max] box constraint.
type Bounds struct {
	Min *float64
	Max *float64
}

func (b Bounds) clamp(v float64) float64 {
	if b.Min != nil && v < *b.Min {
		v = *b.Min
	}
	if b.Max != nil && v > *b.Max {
		v = *b.Max
	}
	return v
}

func (b Bounds) active() bool { return b.Min != nil || b.Max != nil }

// Design is the regression input: an n×k matrix X with column names, a
// length-n response y, optional per-row weights, and optional per-column
// bounds.
type Design struct {
	Names   []string
	X       *mat.Dense // n x k
	Y       []float64  // length n
	Weights []float64  // length n, optional (nil means unweighted)
	Bounds  []Bounds   // length k, optional (nil means unbounded)
}

func (d *Design) dims() (n, k int) {
	n, k = d.X.Dims()
	return
}

func (d *Design) validate() error {
	n, k := d.dims()
	if len(d.Y) != n {
		return apperr.Regression(apperr.StageFit, "design matrix has %d rows but y has %d", n, len(d.Y))
	}
	if len(d.Names) != k {
		return apperr.Regression(apperr.StageFit, "design matrix has %d columns but %d names given", k, len(d.Names))
	}
	if n == 0 {
		return apperr.Regression(apperr.StageFit, "all rows filtered out before fitting")
	}
	if d.Weights != nil && len(d.Weights) != n {
		return apperr.Regression(apperr.StageFit, "weights length %d does not match %d rows", len(d.Weights), n)
	}
	if d.Bounds != nil && len(d.Bounds) != k {
		return apperr.Regression(apperr.StageFit, "bounds length %d does not match %d columns", len(d.Bounds), k)
	}
	for j := 0; j < k; j++ {
		allZero := true
		for i := 0; i < n; i++ {
			if d.X.At(i, j) != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return apperr.Regression(apperr.StageFit, "column %q has zero variance", d.Names[j])
		}
	}
	return nil
}

// weighted returns a copy of X and y with each row scaled by sqrt(weight),
// the standard trick turning weighted least squares into an ordinary least
// squares problem on the transformed data.
func (d *Design) weighted() (*mat.Dense, []float64) {
	n, k := d.dims()
	if d.Weights == nil {
		return d.X, d.Y
	}
	Xw := mat.NewDense(n, k, nil)
	yw := make([]float64, n)
	for i := 0; i < n; i++ {
		sw := sqrtNonNeg(d.Weights[i])
		for j := 0; j < k; j++ {
			Xw.Set(i, j, d.X.At(i, j)*sw)
		}
		yw[i] = d.Y[i] * sw
	}
	return Xw, yw
}

func sqrtNonNeg(v float64) float64 {
	if v < 0 {
		return 0
	}
	return math.Sqrt(v)
}

// Result is the fitted regression outcome of spec §3 "Regression Result".
type Result struct {
	Names               []string
	Coefficients        []float64
	StdErrors           []float64
	TStats              []float64
	PValues             []float64
	Fitted              []float64
	Residuals           []float64
	RSquared            float64
	AdjustedRSquared    float64
	FStatistic          float64
	FPValue             float64
	AIC                 float64
	BIC                 float64
	DurbinWatson        float64
	NObservations       int
	DegreesOfFreedom    int
	OptimizationSuccess bool
	ConditionNumber     float64
	SingularFallback    bool
}

func columnVector(x []float64) *mat.VecDense { return mat.NewVecDense(len(x), x) }

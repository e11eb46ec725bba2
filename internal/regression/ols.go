package regression

import (
	"github.com/modelhub/mmm-engine/internal/apperr"
	"gonum.org/v1/gonum/mat"
)

// olsFit is the closed-form B = (X'X)^-1 X'y solution, falling back to an
// SVD-based minimum-norm least-squares solve when X'X is singular — the same
// two-path pattern as the teacher's OLSEstimator.Estimate.
type olsFit struct {
	Beta            []float64
	ConditionNumber float64
	SingularFallback bool
}

func fitOLS(X *mat.Dense, y []float64) (*olsFit, error) {
	n, k := X.Dims()
	Y := columnVector(y)

	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	cond := mat.Cond(&xtx, 2)

	var xtxInv mat.Dense
	var beta mat.VecDense
	fallback := false

	if err := xtxInv.Inverse(&xtx); err == nil {
		var xty mat.VecDense
		xty.MulVec(X.T(), Y)
		beta.MulVec(&xtxInv, &xty)
	} else {
		fallback = true
		var svd mat.SVD
		if !svd.Factorize(X, mat.SVDThin) {
			return nil, apperr.Regression(apperr.StageFit, "singular design and SVD factorization failed")
		}
		rank := svd.Rank(1e-12)
		if rank == 0 {
			beta = *mat.NewVecDense(k, nil)
		} else {
			var B mat.Dense
			Ymat := mat.NewDense(n, 1, y)
			svd.SolveTo(&B, Ymat, rank)
			beta = *mat.NewVecDense(k, denseColOf(&B, 0))
		}
	}

	out := make([]float64, k)
	for i := 0; i < k; i++ {
		out[i] = beta.AtVec(i)
	}
	return &olsFit{Beta: out, ConditionNumber: cond, SingularFallback: fallback}, nil
}

func denseColOf(m *mat.Dense, j int) []float64 {
	n, _ := m.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = m.At(i, j)
	}
	return out
}

// pseudoInverse computes (X'X)^+ via SVD, used for standard-error
// computation when X'X is singular.
func pseudoInverse(xtx *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(xtx, mat.SVDThin) {
		return nil, apperr.Internal(apperr.StageFit, errSVDFailed)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)
	n, _ := xtx.Dims()
	sInv := mat.NewDense(n, n, nil)
	for i, s := range values {
		if s > 1e-12 {
			sInv.Set(i, i, 1/s)
		}
	}
	var tmp mat.Dense
	tmp.Mul(&v, sInv)
	var result mat.Dense
	result.Mul(&tmp, u.T())
	return &result, nil
}

var errSVDFailed = svdFailedErr{}

type svdFailedErr struct{}

func (svdFailedErr) Error() string { return "SVD factorization of X'X failed" }

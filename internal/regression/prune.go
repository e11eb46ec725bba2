package regression

import "gonum.org/v1/gonum/mat"

// PruneZeroVariance drops design columns that are zero in every row; a
// constant nonzero column (such as the intercept) is kept. This mirrors the Python service's
// `X.loc[:, (X != 0).any(axis=0)]` pre-fit cleanup (SPEC_FULL.md §6.2).
// Unlike Design.validate's hard failure on an all-zero column, this is a
// permissive pre-fit step: it reports what it dropped so the caller can
// log it, rather than aborting the fit.
func PruneZeroVariance(names []string, X *mat.Dense, bounds []Bounds) (prunedNames []string, prunedX *mat.Dense, prunedBounds []Bounds, dropped []string) {
	n, k := X.Dims()
	keep := make([]int, 0, k)
	for j := 0; j < k; j++ {
		first := X.At(0, j)
		varies := false
		for i := 1; i < n; i++ {
			if X.At(i, j) != first {
				varies = true
				break
			}
		}
		if varies || first != 0 {
			keep = append(keep, j)
		} else {
			dropped = append(dropped, names[j])
		}
	}

	if len(keep) == k {
		return names, X, bounds, dropped
	}

	prunedX = mat.NewDense(n, len(keep), nil)
	prunedNames = make([]string, len(keep))
	if bounds != nil {
		prunedBounds = make([]Bounds, len(keep))
	}
	for newJ, oldJ := range keep {
		prunedNames[newJ] = names[oldJ]
		for i := 0; i < n; i++ {
			prunedX.Set(i, newJ, X.At(i, oldJ))
		}
		if bounds != nil {
			prunedBounds[newJ] = bounds[oldJ]
		}
	}
	return prunedNames, prunedX, prunedBounds, dropped
}

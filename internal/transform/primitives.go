// Package transform implements the fixed five-step transformation pipeline
// of spec §4.2: pre-transform, lag/lead, carry-over/saturation, reference
// point subtraction, post-transform. The scalar kernels here (adstock,
// dimret, lag/lead) are grounded on the Python ModelHub reference
// (transformations.py) and follow the teacher's style of small, single
// purpose numeric helpers operating on plain float64 slices.
package transform

import (
	"fmt"
	"math"

	"github.com/modelhub/mmm-engine/internal/apperr"
)

// PreOrPost applies one of "log", "sqrt", "exp" (or "" for a no-op) to every
// element of x. log uses a small epsilon to avoid log(0); sqrt clamps
// negative inputs to zero.
func PreOrPost(kind string, x []float64) ([]float64, error) {
	switch kind {
	case "", "none":
		return append([]float64(nil), x...), nil
	case "log":
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = math.Log(v + 1e-10)
			if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
				return nil, fmt.Errorf("log transform produced non-finite value at index %d (input %v)", i, v)
			}
		}
		return out, nil
	case "sqrt":
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = math.Sqrt(math.Max(v, 0))
		}
		return out, nil
	case "exp":
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = math.Exp(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown pre/post transform %q", kind)
	}
}

// Lag shifts values k positions later, padding the head with zeros.
func Lag(x []float64, k int) []float64 {
	out := make([]float64, len(x))
	if k <= 0 {
		copy(out, x)
		return out
	}
	for i := k; i < len(x); i++ {
		out[i] = x[i-k]
	}
	return out
}

// Lead shifts values k positions earlier, padding the tail with zeros.
func Lead(x []float64, k int) []float64 {
	out := make([]float64, len(x))
	if k <= 0 {
		copy(out, x)
		return out
	}
	for i := 0; i < len(x)-k; i++ {
		out[i] = x[i+k]
	}
	return out
}

// Adstock applies geometric carry-over: y[0]=x[0]; y[i] = x[i] + r*y[i-1].
func Adstock(x []float64, r float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if i == 0 {
			out[i] = v
		} else {
			out[i] = v + r*out[i-1]
		}
	}
	return out
}

// NormalizedAdstock rescales Adstock's output so that the sum is preserved.
func NormalizedAdstock(x []float64, r float64) []float64 {
	if r == 0 {
		return append([]float64(nil), x...)
	}
	y := Adstock(x, r)
	sumX, sumY := sum(x), sum(y)
	if sumY == 0 {
		return y
	}
	return scale(y, sumX/sumY)
}

// Dimret applies the diminishing-returns saturation 1 - exp(-alpha*x). When
// pct is true, p is interpreted as the target saturation percentage at the
// mean of the positive values and alpha is derived from it; otherwise p is
// alpha directly.
func Dimret(x []float64, p float64, pct bool) ([]float64, error) {
	out := make([]float64, len(x))
	if sum(x) == 0 {
		return out, nil
	}
	alpha, err := dimretAlpha(x, p, pct)
	if err != nil {
		return nil, err
	}
	for i, v := range x {
		out[i] = 1 - math.Exp(-alpha*v)
	}
	return out, nil
}

// NormalizedDimret rescales Dimret's output so its sum matches the input sum.
func NormalizedDimret(x []float64, p float64, pct bool) ([]float64, error) {
	y, err := Dimret(x, p, pct)
	if err != nil {
		return nil, err
	}
	sumX, sumY := sum(x), sum(y)
	if sumY > 0 {
		return scale(y, sumX/sumY), nil
	}
	return y, nil
}

// DimretAdstock applies adstock first, then dimret to the adstocked series;
// alpha for dimret is always derived from the ORIGINAL (pre-adstock) series,
// matching the reference implementation.
func DimretAdstock(x []float64, r, p float64, pct bool) ([]float64, error) {
	y := Adstock(x, r)
	if sum(x) == 0 || p == 0 {
		return y, nil
	}
	alpha, err := dimretAlpha(x, p, pct)
	if err != nil {
		return nil, err
	}
	if math.IsInf(alpha, 0) {
		// positive mean was zero: diminishing returns contributes nothing.
		return y, nil
	}
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = 1 - math.Exp(-alpha*v)
	}
	return out, nil
}

// NormalizedDimretAdstock rescales DimretAdstock's output to preserve sum.
func NormalizedDimretAdstock(x []float64, r, p float64, pct bool) ([]float64, error) {
	y, err := DimretAdstock(x, r, p, pct)
	if err != nil {
		return nil, err
	}
	sumX, sumY := sum(x), sum(y)
	if sumY > 0 {
		return scale(y, sumX/sumY), nil
	}
	return y, nil
}

// dimretAlpha derives the decay rate for Dimret/DimretAdstock. When pct is
// true, alpha = -ln(1-p) / mean(x | x>0); a non-positive positive-mean
// yields +Inf, signalling "no saturation" to callers.
func dimretAlpha(x []float64, p float64, pct bool) (float64, error) {
	if !pct {
		return p, nil
	}
	if p <= 0 || p >= 1 {
		return 0, fmt.Errorf("dimret percentage must be in (0,1), got %v", p)
	}
	mean := positiveMean(x)
	if mean <= 0 {
		return math.Inf(1), nil
	}
	alpha := -math.Log(1-p) / mean
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return 0, fmt.Errorf("dimret alpha computation produced non-finite value")
	}
	return alpha, nil
}

func positiveMean(x []float64) float64 {
	var s float64
	var n int
	for _, v := range x {
		if v > 0 {
			s += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return s / float64(n)
}

func sum(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}

func scale(x []float64, factor float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * factor
	}
	return out
}

// ReferenceValue resolves the reference point to subtract from a transformed
// series: 0 for "none", min/max of the series, or a literal numeric value.
func ReferenceValue(kind int, numeric float64, series []float64) float64 {
	switch kind {
	case 1: // RefMin
		return minOf(series)
	case 2: // RefMax
		return maxOf(series)
	case 3: // RefNumeric
		return numeric
	default:
		return 0
	}
}

func minOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	m := x[0]
	for _, v := range x[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// checkFinite fails with a TransformError tagged with variable when a
// non-finite, non-explicitly-zero value appears after a legal transform step.
func checkFinite(variable string, series []float64) error {
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperr.Transform(variable, fmt.Errorf("non-finite value %v", v))
		}
	}
	return nil
}

package decompose

import "math"

// multiply forms M_V = beta_V * T_V for every variable (step 2).
func multiply(vars []*Variable) map[string][]float64 {
	out := make(map[string][]float64, len(vars))
	for _, v := range vars {
		m := make([]float64, len(v.Transformed))
		for i, x := range v.Transformed {
			m[i] = v.Coefficient * x
		}
		out[v.Name] = m
	}
	return out
}

// logBiasAdjust performs step 3: per cross-section, minimize
// Σ (exp(fitted+c) - exp(actual))² over c ∈ [-1,1] via golden-section
// search, then add c to every interval-1 variable's M_V within that
// cross-section. actual is the observed (log-space) KPI, which the caller
// reconstructs as fitted + residual.
func logBiasAdjust(vars []*Variable, multiplied map[string][]float64, fitted, actual []float64, crossSection []string) {
	byXS := make(map[string][]int)
	for i, xs := range crossSection {
		byXS[xs] = append(byXS[xs], i)
	}

	interval1 := make([]*Variable, 0)
	for _, v := range vars {
		if v.Interval == 1 {
			interval1 = append(interval1, v)
		}
	}

	for xs, idx := range byXS {
		objective := func(c float64) float64 {
			var sum float64
			for _, i := range idx {
				d := math.Exp(fitted[i]+c) - math.Exp(actual[i])
				sum += d * d
			}
			return sum
		}
		c := goldenSectionMinimize(objective, -1, 1, 1e-9)
		for _, v := range interval1 {
			if v.CrossSection != "" && v.CrossSection != xs {
				continue
			}
			m := multiplied[v.Name]
			for _, i := range idx {
				m[i] += c
			}
		}
	}
}

// goldenSectionMinimize finds the minimizer of a unimodal f on [lo, hi].
func goldenSectionMinimize(f func(float64) float64, lo, hi, tol float64) float64 {
	const gr = 0.6180339887498949
	a, b := lo, hi
	c := b - gr*(b-a)
	d := a + gr*(b-a)
	fc, fd := f(c), f(d)
	for math.Abs(b-a) > tol {
		if fc < fd {
			b = d
			d = c
			fd = fc
			c = b - gr*(b-a)
			fc = f(c)
		} else {
			a = c
			c = d
			fc = fd
			d = a + gr*(b-a)
			fd = f(d)
		}
	}
	return (a + b) / 2
}

// withinIntervalRefinement performs step 4: bump the interval of
// interval>1 variables whose multiplied series is entirely non-positive
// (+0.1) or entirely non-negative (+0.2), then re-integer all intervals in
// sorted order so they remain a contiguous sequence. Returns the mapping
// from variable name to its refined integer interval.
func withinIntervalRefinement(vars []*Variable, multiplied map[string][]float64) map[string]int {
	refined := make(map[string]float64, len(vars))
	for _, v := range vars {
		f := float64(v.Interval)
		if v.Interval > 1 {
			m := multiplied[v.Name]
			if allNonPositive(m) {
				f += 0.1
			} else if allNonNegative(m) {
				f += 0.2
			}
		}
		refined[v.Name] = f
	}

	distinct := make([]float64, 0, len(refined))
	seen := make(map[float64]bool)
	for _, f := range refined {
		if !seen[f] {
			seen[f] = true
			distinct = append(distinct, f)
		}
	}
	sortFloats(distinct)

	rank := make(map[float64]int, len(distinct))
	for i, f := range distinct {
		rank[f] = i + 1
	}

	out := make(map[string]int, len(vars))
	for name, f := range refined {
		out[name] = rank[f]
	}
	return out
}

func allNonPositive(x []float64) bool {
	for _, v := range x {
		if v > 0 {
			return false
		}
	}
	return true
}

func allNonNegative(x []float64) bool {
	for _, v := range x {
		if v < 0 {
			return false
		}
	}
	return true
}

func sortFloats(x []float64) {
	for i := 1; i < len(x); i++ {
		for j := i; j > 0 && x[j] < x[j-1]; j-- {
			x[j], x[j-1] = x[j-1], x[j]
		}
	}
}

// cumulativeSums performs step 5: S_i = Σ_{interval(V)≤i} M_V per row, and
// returns S and S_below (S_{<i}) keyed by interval.
func cumulativeSums(vars []*Variable, multiplied map[string][]float64, intervals map[string]int, n int) (map[int][]float64, map[int][]float64) {
	maxInterval := 0
	for _, i := range intervals {
		if i > maxInterval {
			maxInterval = i
		}
	}

	perInterval := make(map[int][]float64, maxInterval)
	for i := 1; i <= maxInterval; i++ {
		perInterval[i] = make([]float64, n)
	}
	for _, v := range vars {
		m := multiplied[v.Name]
		interval := intervals[v.Name]
		row := perInterval[interval]
		for i, val := range m {
			row[i] += val
		}
	}

	s := make(map[int][]float64, maxInterval)
	sBelow := make(map[int][]float64, maxInterval)
	running := make([]float64, n)
	for i := 1; i <= maxInterval; i++ {
		sBelow[i] = append([]float64(nil), running...)
		for j := 0; j < n; j++ {
			running[j] += perInterval[i][j]
		}
		s[i] = append([]float64(nil), running...)
	}
	return s, sBelow
}

// alphaParams returns (alpha, negAlpha) for the post-exponential transform
// of step 6, per spec §4.5's convention.
func alphaParams(antiLogsAtMidpoints bool) (float64, float64) {
	if antiLogsAtMidpoints {
		return 0.5, -0.5
	}
	return 1.0, 0.0
}

// postExponential performs step 6: per-variable contribution before
// synergy redistribution.
func postExponential(vars []*Variable, multiplied map[string][]float64, sBelow map[int][]float64, intervals map[string]int, antiLogsAtMidpoints bool, n int) map[string][]float64 {
	alpha, negAlpha := alphaParams(antiLogsAtMidpoints)
	out := make(map[string][]float64, len(vars))
	for _, v := range vars {
		m := multiplied[v.Name]
		interval := intervals[v.Name]
		p := make([]float64, n)
		if interval == 1 {
			for i, mv := range m {
				indicator := 0.0
				if mv != 0 {
					indicator = 1
				}
				p[i] = math.Exp(alpha*mv) - math.Exp(negAlpha*mv) + indicator
			}
		} else {
			below := sBelow[interval]
			for i, mv := range m {
				p[i] = math.Exp(below[i]+alpha*mv) - math.Exp(below[i]+negAlpha*mv)
			}
		}
		out[v.Name] = p
	}
	return out
}

// withinIntervalSynergy performs step 7: distribute each interval's residual
// across that interval's variables in proportion to |M_V| / Σ|M_V|.
// For interval i>1 the residual is R_i = exp(S_i) - exp(S_<i}) - ΣP_V, so
// intervals telescope to exp(S_max) - exp(S_<1}). Interval 1 is exempted
// from subtracting exp(S_<1}) (= exp(0) = 1): its residual is
// R_1 = exp(S_1) - ΣP_V, crediting that base unit to interval 1 instead of
// letting it cancel the "+1" postExponential adds there, so the full
// decomposition sums to exp(S_max) = exp(fitted) rather than
// exp(fitted) - 1 (spec §8 invariant 2).
func withinIntervalSynergy(vars []*Variable, multiplied, postExp map[string][]float64, s, sBelow map[int][]float64, intervals map[string]int, n int) map[string][]float64 {
	byInterval := make(map[int][]*Variable)
	for _, v := range vars {
		i := intervals[v.Name]
		byInterval[i] = append(byInterval[i], v)
	}

	out := make(map[string][]float64, len(vars))
	for _, v := range vars {
		out[v.Name] = append([]float64(nil), postExp[v.Name]...)
	}

	for interval, members := range byInterval {
		sRow := s[interval]
		sBelowRow := sBelow[interval]
		for i := 0; i < n; i++ {
			var sumP float64
			for _, v := range members {
				sumP += postExp[v.Name][i]
			}
			var r float64
			if interval == 1 {
				r = math.Exp(sRow[i]) - sumP
			} else {
				r = math.Exp(sRow[i]) - math.Exp(sBelowRow[i]) - sumP
			}

			var sumAbsM float64
			for _, v := range members {
				sumAbsM += math.Abs(multiplied[v.Name][i])
			}
			if sumAbsM == 0 {
				continue
			}
			for _, v := range members {
				share := math.Abs(multiplied[v.Name][i]) / sumAbsM
				out[v.Name][i] += r * share
			}
		}
	}
	return out
}

// panelRollUp performs step 8: sum panel fixed-effect slices back into
// their parent variable column.
func panelRollUp(vars []*Variable, contributions map[string][]float64, n int) map[string][]float64 {
	out := make(map[string][]float64)
	for _, v := range vars {
		parent := v.Parent
		if parent == "" {
			parent = v.Name
		}
		if _, ok := out[parent]; !ok {
			out[parent] = make([]float64, n)
		}
		c := contributions[v.Name]
		for i := 0; i < n; i++ {
			out[parent][i] += c[i]
		}
	}
	return out
}

// categoryRollUp performs step 9: group the rolled-up per-variable
// contributions by category.
func categoryRollUp(vars []*Variable, rolledUp map[string][]float64, n int) map[string][]float64 {
	parentCategory := make(map[string]string)
	for _, v := range vars {
		parent := v.Parent
		if parent == "" {
			parent = v.Name
		}
		parentCategory[parent] = v.Category
	}
	out := make(map[string][]float64)
	for parent, series := range rolledUp {
		cat := parentCategory[parent]
		if _, ok := out[cat]; !ok {
			out[cat] = make([]float64, n)
		}
		for i := 0; i < n; i++ {
			out[cat][i] += series[i]
		}
	}
	return out
}

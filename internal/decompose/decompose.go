package decompose

import "math"

// Run executes the nine-step decomposition algorithm of spec §4.5.
func Run(in *Input) (*Table, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	n := in.Obs

	multiplied := multiply(in.Variables) // step 2

	// Steps 3-7 reconcile the non-linearity a log-space fit introduces
	// between Σ M_V and exp(fitted). A linear-space KPI has no such gap:
	// Σ M_V = Fitted exactly by construction (the same design columns the
	// regression fit), so the exp-space machinery has nothing to
	// reconcile and is skipped in favor of the plain multiplied series.
	contributions := multiplied
	if in.KPILogged {
		if in.LogTransBiasAdjust {
			actual := make([]float64, n)
			for i := range actual {
				actual[i] = in.Fitted[i] + in.Residuals[i]
			}
			logBiasAdjust(in.Variables, multiplied, in.Fitted, actual, in.CrossSection) // step 3
		}

		intervals := withinIntervalRefinement(in.Variables, multiplied)                                // step 4
		s, sBelow := cumulativeSums(in.Variables, multiplied, intervals, n)                             // step 5
		postExp := postExponential(in.Variables, multiplied, sBelow, intervals, in.AntiLogsAtMidpoints, n) // step 6
		contributions = withinIntervalSynergy(in.Variables, multiplied, postExp, s, sBelow, intervals, n)  // step 7
	}

	rolledUp := panelRollUp(in.Variables, contributions, n) // step 8
	byCategory := categoryRollUp(in.Variables, rolledUp, n) // step 9

	fittedKPI := make([]float64, n)
	for i, f := range in.Fitted {
		if in.KPILogged {
			fittedKPI[i] = math.Exp(f)
		} else {
			fittedKPI[i] = f
		}
	}

	return &Table{
		Obs:          n,
		CrossSection: append([]string(nil), in.CrossSection...),
		Variable:     rolledUp,
		Category:     byCategory,
		FittedKPI:    fittedKPI,
	}, nil
}

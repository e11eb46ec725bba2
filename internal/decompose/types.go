// Package decompose implements the contribution decomposition of spec §4.5:
// converting fitted regression coefficients and transformed columns into
// per-variable per-observation KPI contributions, reconciling the
// non-linearity introduced by log-space fitting via interval-grouped
// synergy redistribution.
package decompose

import "github.com/modelhub/mmm-engine/internal/apperr"

// Variable is one decomposition input column: either a plain modeled
// variable or one panel fixed-effect slice (spec §9's PanelSlice redesign —
// CrossSection is only set for slices; Parent names the variable a column
// rolls up into at the panel roll-up step).
type Variable struct {
	Name         string
	Parent       string // equals Name for non-panel variables
	CrossSection string // empty for non-panel variables
	Category     string
	Interval     int
	IsConstant   bool
	Coefficient  float64
	Transformed  []float64 // length N, the transformed column
}

// Input is everything the decomposition algorithm needs.
type Input struct {
	Obs                 int // number of observations (rows)
	CrossSection        []string
	Variables           []*Variable
	Fitted              []float64 // regression fitted values, one per row (log-space if KPILogged)
	Residuals           []float64 // same units as Fitted; only consulted when LogTransBiasAdjust is set
	KPILogged           bool
	LogTransBiasAdjust  bool
	AntiLogsAtMidpoints bool
}

// Table is the decomposition output of spec §3: per-variable and
// per-category contribution columns.
type Table struct {
	Obs          int
	CrossSection []string
	Variable     map[string][]float64 // key: parent variable name (after panel roll-up)
	Category     map[string][]float64
	FittedKPI    []float64 // exp(Fitted) if KPILogged, else Fitted
}

func validate(in *Input) error {
	if in.Obs == 0 {
		return apperr.Decomposition("no observations to decompose")
	}
	if len(in.CrossSection) != in.Obs {
		return apperr.Decomposition("cross-section length %d does not match %d observations", len(in.CrossSection), in.Obs)
	}
	if len(in.Fitted) != in.Obs {
		return apperr.Decomposition("fitted length %d does not match %d observations", len(in.Fitted), in.Obs)
	}
	intervals := map[int]bool{}
	constantCount := 0
	for _, v := range in.Variables {
		if len(v.Transformed) != in.Obs {
			return apperr.Decomposition("variable %q has %d values, expected %d", v.Name, len(v.Transformed), in.Obs)
		}
		if v.Interval < 1 {
			return apperr.Decomposition("variable %q has non-positive interval %d", v.Name, v.Interval)
		}
		intervals[v.Interval] = true
		if v.IsConstant {
			constantCount++
			if v.Interval != 1 {
				return apperr.Decomposition("constant %q must occupy interval 1, got %d", v.Name, v.Interval)
			}
		}
	}
	if constantCount != 1 {
		return apperr.Decomposition("expected exactly one constant variable, found %d", constantCount)
	}
	if in.KPILogged {
		for _, v := range in.Variables {
			// Panel fixed-effect offsets (CrossSection != "") legitimately
			// share interval 1 with the constant (spec §4.2's
			// reference-category dummy encoding); the "constant alone in
			// interval 1" rule applies to the single time-series case.
			if v.Interval == 1 && !v.IsConstant && v.CrossSection == "" {
				return apperr.Decomposition("log-KPI time series requires the constant alone in interval 1; %q also occupies it", v.Name)
			}
		}
	}
	if len(intervals) < 2 {
		return apperr.Decomposition("decomposition requires at least two intervals, found %d", len(intervals))
	}
	return nil
}

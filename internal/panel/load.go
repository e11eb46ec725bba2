package panel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/modelhub/mmm-engine/internal/apperr"
)

// dateLayouts lists the observation-column date formats accepted per
// spec §6: ISO dates first, then dd/mm/yyyy.
var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// ParseObsDate parses one observation-column value, trying ISO then
// dd/mm/yyyy, per spec §6.
func ParseObsDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var firstErr error
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("unparseable observation date %q: %w", raw, firstErr)
}

// LoadRawDataset builds a RawDataset from the wire request's data map
// (spec §6: `data: { <column_name>: array<number|string> }`), normalizing
// wide panel columns `var_<cross_section>` is NOT done here — that
// widening only applies to the KPI/variable columns a VariableSpec
// references, which the expression evaluator resolves by direct lookup;
// LoadRawDataset's job is purely to type each column as numeric, string,
// or the observation index.
func LoadRawDataset(obsColumn string, data map[string][]any) (*RawDataset, error) {
	rawObs, ok := data[obsColumn]
	if !ok {
		return nil, apperr.Input(apperr.StageTransform, "observation column %q not present in data", obsColumn)
	}
	n := len(rawObs)
	obs := make([]time.Time, n)
	for i, v := range rawObs {
		s, ok := v.(string)
		if !ok {
			return nil, apperr.Input(apperr.StageTransform, "observation column %q row %d is not a date string", obsColumn, i)
		}
		t, err := ParseObsDate(s)
		if err != nil {
			return nil, apperr.Input(apperr.StageTransform, "%v", err)
		}
		obs[i] = t
	}

	ds := &RawDataset{
		Obs:     obs,
		Numeric: make(map[string][]float64),
		String:  make(map[string][]string),
	}

	for col, values := range data {
		if col == obsColumn {
			continue
		}
		if len(values) != n {
			return nil, apperr.Input(apperr.StageTransform, "column %q has %d rows, expected %d", col, len(values), n)
		}
		name := strings.ToLower(col)
		if isNumericColumn(values) {
			nums := make([]float64, n)
			for i, v := range values {
				nums[i] = toFloat(v)
			}
			ds.Numeric[name] = nums
		} else {
			strs := make([]string, n)
			for i, v := range values {
				strs[i] = fmt.Sprintf("%v", v)
			}
			ds.String[name] = strs
		}
	}
	return ds, nil
}

func isNumericColumn(values []any) bool {
	for _, v := range values {
		switch v.(type) {
		case float64, int, int64:
		default:
			return false
		}
	}
	return true
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

// FilterByDateWindow returns a copy of ds restricted to observations in
// [start, end] inclusive, per spec §3's "inclusive date window".
func FilterByDateWindow(ds *RawDataset, start, end time.Time) (*RawDataset, error) {
	keep := make([]int, 0, len(ds.Obs))
	for i, t := range ds.Obs {
		if !t.Before(start) && !t.After(end) {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, apperr.Input(apperr.StageTransform, "date window [%s, %s] excludes all rows", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	out := &RawDataset{
		Obs:     make([]time.Time, len(keep)),
		Numeric: make(map[string][]float64, len(ds.Numeric)),
		String:  make(map[string][]string, len(ds.String)),
	}
	for j, i := range keep {
		out.Obs[j] = ds.Obs[i]
	}
	for col, series := range ds.Numeric {
		filtered := make([]float64, len(keep))
		for j, i := range keep {
			filtered[j] = series[i]
		}
		out.Numeric[col] = filtered
	}
	for col, series := range ds.String {
		filtered := make([]string, len(keep))
		for j, i := range keep {
			filtered[j] = series[i]
		}
		out.String[col] = filtered
	}
	return out, nil
}

// ValidateCrossSectionSpec enforces spec §3's cross-section invariants:
// identifiers are lowercase and unique (the map key type already gives
// uniqueness; this checks casing).
func ValidateCrossSectionSpec(spec *CrossSectionSpec) error {
	for xs := range spec.Values {
		if xs != strings.ToLower(xs) {
			return apperr.Input(apperr.StageTransform, "cross-section identifier %q must be lowercase", xs)
		}
	}
	return nil
}

// ValidateVariableSpecs enforces spec §3's variable-specification
// invariants: exactly one constant in interval 1, and intervals form a
// contiguous positive-integer sequence starting at 1.
func ValidateVariableSpecs(specs []*VariableSpec) error {
	constants := 0
	intervalSet := map[int]bool{}
	for _, v := range specs {
		if v.Interval < 1 {
			return apperr.Input(apperr.StageTransform, "variable %q has non-positive interval %d", v.Variable, v.Interval)
		}
		intervalSet[v.Interval] = true
		if v.IsConstant {
			constants++
			if v.Interval != 1 {
				return apperr.Input(apperr.StageTransform, "constant %q must occupy interval 1, got %d", v.Variable, v.Interval)
			}
		}
	}
	if constants != 1 {
		return apperr.Input(apperr.StageTransform, "expected exactly one constant variable, found %d", constants)
	}

	intervals := make([]int, 0, len(intervalSet))
	for i := range intervalSet {
		intervals = append(intervals, i)
	}
	sort.Ints(intervals)
	for i, v := range intervals {
		if v != i+1 {
			return apperr.Input(apperr.StageTransform, "intervals must be contiguous starting at 1, got %v", intervals)
		}
	}
	return nil
}

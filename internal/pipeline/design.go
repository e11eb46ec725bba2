package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modelhub/mmm-engine/internal/apperr"
	"github.com/modelhub/mmm-engine/internal/expr"
	"github.com/modelhub/mmm-engine/internal/panel"
	"github.com/modelhub/mmm-engine/internal/transform"
)

// crossSectionBlocks returns the ordered list of cross-section identifiers
// to stack into the panel. A request with no cross-section specification
// produces a single, unnamed block (plain time-series regression).
func crossSectionBlocks(xsSpec *panel.CrossSectionSpec) []string {
	if xsSpec == nil || len(xsSpec.Values) == 0 {
		return []string{""}
	}
	return xsSpec.CrossSections()
}

// evalSeries evaluates one variable's expression for cross-section xs and
// applies the transform pipeline, using cache to avoid recomputation
// across permutations/intervals, per spec §4.2's caching rule.
func evalSeries(v *panel.VariableSpec, ds *panel.RawDataset, xsSpec *panel.CrossSectionSpec, xs string, permutation map[int]float64, cache *transform.Cache) ([]float64, error) {
	key := transform.CacheKey{Expression: v.Variable, CrossSection: xs}
	return cache.GetOrCompute(key, func() ([]float64, error) {
		ctx := &expr.EvalContext{
			Columns:      ds.Numeric,
			Obs:          ds.Obs,
			N:            ds.Len(),
			CrossSection: xs,
			XSSpec:       xsSpec,
			Permutation:  permutation,
		}
		raw, err := expr.Evaluate(v.Variable, ctx)
		if err != nil {
			return nil, err
		}

		refKind := 0
		switch v.Reference.Kind {
		case panel.RefMin:
			refKind = 1
		case panel.RefMax:
			refKind = 2
		case panel.RefNumeric:
			refKind = 3
		}

		cfg := transform.Config{
			Variable:         v.Variable,
			PreTransform:     v.PreTransform,
			Lag:              v.Lag,
			Lead:             v.Lead,
			Adstock:          v.Adstock,
			Dimret:           v.Dimret,
			DimretAdstock:    v.DimretAdstock,
			PostTransform:    v.PostTransform,
			ReferenceKind:    refKind,
			ReferenceNumeric: v.Reference.Value,
		}
		return transform.Apply(v.Variable, raw, cfg)
	})
}

// stackedIndicator returns a 0/1 series of length n, 1 for rows belonging
// to crossSection xs.
func stackedIndicator(crossSection []string, xs string) []float64 {
	out := make([]float64, len(crossSection))
	for i, c := range crossSection {
		if c == xs {
			out[i] = 1
		}
	}
	return out
}

// BuildTransformedDataset runs every included variable's transform across
// every cross-section block and stacks the results into one long panel,
// per spec §3/§4.2. Variables declaring xs_grouping are split into one
// dummy column per grouping value; the constant is split into
// reference-category dummies when more than one cross-section is present.
func BuildTransformedDataset(cfg *panel.ModelConfiguration, specs []*panel.VariableSpec, xsSpec *panel.CrossSectionSpec, ds *panel.RawDataset, permutation map[int]float64, cache *transform.Cache, kpiLogged bool) (*panel.TransformedDataset, error) {
	if xsSpec == nil {
		xsSpec = &panel.CrossSectionSpec{Values: map[string]map[string]string{}}
	}
	blocks := crossSectionBlocks(xsSpec)
	perBlockLen := ds.Len()
	totalLen := perBlockLen * len(blocks)

	crossSection := make([]string, totalLen)
	for b, xs := range blocks {
		for i := range ds.Obs {
			crossSection[b*perBlockLen+i] = xs
		}
	}

	// The KPI series is evaluated from the full expression, so a log(...)
	// KPI is fitted in log-space; kpiExpr is the bare name used as KPIName.
	kpiExpr := cfg.KPI
	trimmed := strings.TrimSpace(kpiExpr)
	if kpiLogged && strings.HasPrefix(trimmed, "log(") {
		kpiExpr = strings.TrimSuffix(strings.TrimPrefix(trimmed, "log("), ")")
	}

	kpi := make([]float64, totalLen)
	for b, xs := range blocks {
		ctx := &expr.EvalContext{Columns: ds.Numeric, Obs: ds.Obs, N: perBlockLen, CrossSection: xs, XSSpec: xsSpec, Permutation: permutation}
		series, err := expr.Evaluate(cfg.KPI, ctx)
		if err != nil {
			return nil, apperr.Input(apperr.StageTransform, "kpi expression: %v", err)
		}
		copy(kpi[b*perBlockLen:(b+1)*perBlockLen], series)
	}

	var columns []*panel.TransformedColumn
	for _, v := range specs {
		if !v.Include && !v.IsConstant {
			continue
		}

		switch {
		case v.IsConstant:
			columns = append(columns, constantColumns(v, blocks, perBlockLen, crossSection)...)
		case v.XSGrouping != "":
			cols, err := xsGroupingColumns(v, ds, xsSpec, blocks, perBlockLen, crossSection, permutation, cache)
			if err != nil {
				return nil, err
			}
			columns = append(columns, cols...)
		default:
			stacked := make([]float64, totalLen)
			for b, xs := range blocks {
				series, err := evalSeries(v, ds, xsSpec, xs, permutation, cache)
				if err != nil {
					return nil, apperr.Transform(v.Variable, err)
				}
				copy(stacked[b*perBlockLen:(b+1)*perBlockLen], series)
			}
			columns = append(columns, &panel.TransformedColumn{
				Name: columnName(v), Parent: columnName(v), Interval: float64(v.Interval), Category: v.Category, Values: stacked,
			})
		}
	}

	return &panel.TransformedDataset{
		Obs:          repeatObs(ds.Obs, len(blocks)),
		CrossSection: crossSection,
		KPI:          kpi,
		KPIName:      kpiExpr,
		Columns:      columns,
	}, nil
}

// repeatObs tiles the observation index once per cross-section block, so
// TransformedDataset.Obs stays aligned with the stacked row order.
func repeatObs(obs []time.Time, times int) []time.Time {
	out := make([]time.Time, 0, len(obs)*times)
	for i := 0; i < times; i++ {
		out = append(out, obs...)
	}
	return out
}

func columnName(v *panel.VariableSpec) string {
	if v.ShortName != "" {
		return v.ShortName
	}
	return v.Variable
}

// constantColumns realizes spec §4.2's reference-category dummy encoding:
// the first cross-section gets an all-ones column (reference category);
// subsequent cross-sections get a column that is 1 only within their own
// block, 0 elsewhere (fixed-effect offsets). With a single block the
// constant is just the ordinary all-ones intercept.
func constantColumns(v *panel.VariableSpec, blocks []string, perBlockLen int, crossSection []string) []*panel.TransformedColumn {
	if len(blocks) <= 1 {
		ones := make([]float64, perBlockLen)
		for i := range ones {
			ones[i] = 1
		}
		return []*panel.TransformedColumn{{
			Name: columnName(v), Parent: columnName(v), Interval: float64(v.Interval), Category: v.Category, Values: ones,
		}}
	}

	out := make([]*panel.TransformedColumn, 0, len(blocks))
	for b, xs := range blocks {
		if b == 0 {
			// Reference category: an all-ones column covering every row,
			// not scoped to one cross-section — this is "the" constant for
			// decomposition purposes (spec §4.2's reference-category
			// dummy encoding).
			values := make([]float64, len(crossSection))
			for i := range values {
				values[i] = 1
			}
			out = append(out, &panel.TransformedColumn{
				Name: columnName(v), Parent: columnName(v), Interval: float64(v.Interval), Category: v.Category, Values: values,
			})
			continue
		}
		out = append(out, &panel.TransformedColumn{
			Name: fmt.Sprintf("%s_μ_%s", columnName(v), xs), Parent: columnName(v), CrossSection: xs,
			Interval: float64(v.Interval), Category: v.Category, Values: stackedIndicator(crossSection, xs),
		})
	}
	return out
}

// xsGroupingColumns realizes spec §4.2's "slope varies by group" split:
// one column per distinct value of the grouping dimension, nonzero only
// for rows whose cross-section carries that value.
func xsGroupingColumns(v *panel.VariableSpec, ds *panel.RawDataset, xsSpec *panel.CrossSectionSpec, blocks []string, perBlockLen int, crossSection []string, permutation map[int]float64, cache *transform.Cache) ([]*panel.TransformedColumn, error) {
	groupValues := make(map[string]bool)
	for _, xs := range blocks {
		if val, ok := xsSpec.DimValue(xs, v.XSGrouping); ok {
			groupValues[val] = true
		}
	}

	names := make([]string, 0, len(groupValues))
	for g := range groupValues {
		names = append(names, g)
	}
	sort.Strings(names)

	out := make([]*panel.TransformedColumn, 0, len(names))
	for _, groupVal := range names {
		values := make([]float64, len(crossSection))
		for b, xs := range blocks {
			dimVal, ok := xsSpec.DimValue(xs, v.XSGrouping)
			if !ok || dimVal != groupVal {
				continue
			}
			series, err := evalSeries(v, ds, xsSpec, xs, permutation, cache)
			if err != nil {
				return nil, apperr.Transform(v.Variable, err)
			}
			copy(values[b*perBlockLen:(b+1)*perBlockLen], series)
		}
		out = append(out, &panel.TransformedColumn{
			Name: fmt.Sprintf("%s_μ_%s", columnName(v), groupVal), Parent: columnName(v), CrossSection: groupVal,
			Interval: float64(v.Interval), Category: v.Category, Values: values,
		})
	}
	return out, nil
}

// Package pipeline orchestrates the READY→TRANSFORM→FIT→DIAGNOSE→
// DECOMPOSE→RESPOND state machine of spec §4's "State machine — request
// lifecycle", wiring internal/panel, internal/transform, internal/expr,
// internal/regression, internal/diagnostics, and internal/decompose into
// one request-scoped run.
package pipeline

import (
	"strconv"
	"strings"

	"github.com/modelhub/mmm-engine/internal/apperr"
	"github.com/modelhub/mmm-engine/internal/decompose"
	"github.com/modelhub/mmm-engine/internal/diagnostics"
	"github.com/modelhub/mmm-engine/internal/panel"
	"github.com/modelhub/mmm-engine/internal/regression"
	"github.com/modelhub/mmm-engine/internal/transform"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// Result is one permutation's full pipeline output, assembled into the
// shape internal/api needs to answer spec §6's regression response.
type Result struct {
	Regression            *regression.Result
	Diagnostics           *diagnostics.Report
	Decomposition         *decompose.Table
	TransformedData       map[string][]float64
	VariableContributions map[string][]float64
}

// Run executes one full pipeline pass (one permutation binding) over the
// given request inputs.
func Run(cfg *panel.ModelConfiguration, specs []*panel.VariableSpec, xsSpec *panel.CrossSectionSpec, ds *panel.RawDataset, permutation map[int]float64) (*Result, error) {
	if err := panel.ValidateVariableSpecs(specs); err != nil {
		return nil, err
	}

	kpiLogged := strings.HasPrefix(strings.TrimSpace(cfg.KPI), "log(")

	cache := transform.NewCache()
	td, err := BuildTransformedDataset(cfg, specs, xsSpec, ds, permutation, cache, kpiLogged)
	if err != nil {
		return nil, err
	}

	n := len(td.KPI)
	k := len(td.Columns)
	if k == 0 {
		return nil, apperr.Regression(apperr.StageFit, "no variables produced a design column")
	}

	names := make([]string, k)
	X := mat.NewDense(n, k, nil)
	bounds := make([]regression.Bounds, k)
	parentOf := make(map[string]string, k)
	for j, c := range td.Columns {
		names[j] = c.Name
		parentOf[c.Name] = c.Parent
		for i, v := range c.Values {
			X.Set(i, j, v)
		}
	}

	specByParent := make(map[string]*panel.VariableSpec, len(specs))
	for _, v := range specs {
		specByParent[columnName(v)] = v
	}
	for j, name := range names {
		if spec, ok := specByParent[parentOf[name]]; ok {
			bounds[j] = regression.Bounds{Min: spec.CoeffMin, Max: spec.CoeffMax}
		}
	}

	var weights []float64
	if cfg.WeightsColumn != "" {
		weights = make([]float64, n)
		for i, xs := range td.CrossSection {
			w := 1.0
			if val, ok := xsSpec.DimValue(xs, cfg.WeightsColumn); ok {
				if parsed, err := strconv.ParseFloat(val, 64); err == nil {
					w = parsed
				}
			}
			weights[i] = w
		}
	}

	prunedNames, prunedX, prunedBounds, dropped := regression.PruneZeroVariance(names, X, bounds)
	for _, name := range dropped {
		log.Warn().Str("column", name).Msg("dropped zero-variance column before fit")
	}
	names, X, bounds = prunedNames, prunedX, prunedBounds
	k = len(names)
	if k == 0 {
		return nil, apperr.Regression(apperr.StageFit, "every design column was zero-variance")
	}

	design := &regression.Design{Names: names, X: X, Y: td.KPI, Weights: weights, Bounds: bounds}
	res, err := regression.Fit(design)
	if err != nil {
		return nil, err
	}

	var report *diagnostics.Report
	distinctXS := distinctCrossSections(td.CrossSection)
	if len(distinctXS) > 1 {
		obsIndex := make([]int, n)
		perBlockLen := n / len(distinctXS)
		for i := range obsIndex {
			obsIndex[i] = i % perBlockLen
		}
		report = diagnostics.Panel(res, X, td.CrossSection, obsIndex)
	} else {
		report = diagnostics.SingleSeries(res, X)
	}
	report.Tests = append(report.Tests, diagnostics.Diagnostic{
		Name: "condition_number", Category: "Model fit", Statistic: res.ConditionNumber, PValue: diagnostics.NotApplicable,
	})

	transformedData := make(map[string][]float64, k)
	variableContributions := make(map[string][]float64, k)
	decompVars := make([]*decompose.Variable, 0, k)
	for j, name := range names {
		c := td.ColumnByName(name)
		transformedData[c.Name] = append([]float64(nil), c.Values...)
		contrib := make([]float64, n)
		for i, v := range c.Values {
			contrib[i] = res.Coefficients[j] * v
		}
		variableContributions[c.Name] = contrib

		spec := specByParent[c.Parent]
		isConstant := spec != nil && spec.IsConstant && c.CrossSection == ""
		decompVars = append(decompVars, &decompose.Variable{
			Name:         c.Name,
			Parent:       c.Parent,
			CrossSection: c.CrossSection,
			Category:     c.Category,
			Interval:     int(c.Interval),
			IsConstant:   isConstant,
			Coefficient:  res.Coefficients[j],
			Transformed:  c.Values,
		})
	}

	table, err := decompose.Run(&decompose.Input{
		Obs:                 n,
		CrossSection:        td.CrossSection,
		Variables:           decompVars,
		Fitted:              res.Fitted,
		Residuals:           res.Residuals,
		KPILogged:           kpiLogged,
		LogTransBiasAdjust:  cfg.LogTransBiasAdjust,
		AntiLogsAtMidpoints: cfg.AntiLogsAtMidpoints,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Regression:            res,
		Diagnostics:           report,
		Decomposition:         table,
		TransformedData:       transformedData,
		VariableContributions: variableContributions,
	}, nil
}

func distinctCrossSections(crossSection []string) map[string]bool {
	out := make(map[string]bool)
	for _, xs := range crossSection {
		out[xs] = true
	}
	return out
}

// RunPermutations runs Run once per Cartesian-product permutation of every
// variable's declared substitution grid, fixing the known Python
// last-write-wins bug (spec §9 REDESIGN FLAGS / Open Question 1): every
// permutation's outcome is independently addressable by index, and
// permutations that error are recorded by index rather than aborting the
// batch.
func RunPermutations(cfg *panel.ModelConfiguration, specs []*panel.VariableSpec, xsSpec *panel.CrossSectionSpec, ds *panel.RawDataset) (map[int]*Result, []int, error) {
	substitutions := make([]string, 0, len(specs))
	for _, v := range specs {
		substitutions = append(substitutions, v.Substitution)
	}
	grids, err := collectGrids(substitutions)
	if err != nil {
		return nil, nil, err
	}
	combos := cartesianProduct(grids)

	results := make(map[int]*Result, len(combos))
	var failed []int
	for i, binding := range combos {
		res, err := Run(cfg, specs, xsSpec, ds, binding)
		if err != nil {
			failed = append(failed, i)
			continue
		}
		results[i] = res
	}
	return results, failed, nil
}

package api

import (
	"github.com/modelhub/mmm-engine/internal/pipeline"
)

func toRegressionResponse(res *pipeline.Result) *RegressionResponseDTO {
	reg := res.Regression

	diagnosticsDTO := make(map[string]DiagnosticDTO, len(res.Diagnostics.Tests))
	for _, d := range res.Diagnostics.Tests {
		diagnosticsDTO[d.Name] = DiagnosticDTO{
			Category:  d.Category,
			Statistic: sanitizedScalar(d.Statistic),
			PValue:    sanitizeDiagnosticPValue(d.PValue),
		}
	}

	var decomposition *DecompositionDTO
	if res.Decomposition != nil {
		decomposition = &DecompositionDTO{
			Variable:  sanitizedSeriesMap(res.Decomposition.Variable),
			Category:  sanitizedSeriesMap(res.Decomposition.Category),
			FittedKPI: sanitizedSeries(res.Decomposition.FittedKPI),
		}
	}

	return &RegressionResponseDTO{
		Coefficients: coefficientMap(reg.Names, reg.Coefficients),
		StdErrors:    coefficientMap(reg.Names, reg.StdErrors),
		TStats:       coefficientMap(reg.Names, reg.TStats),
		PValues:      coefficientMap(reg.Names, reg.PValues),

		RSquared:         sanitizedScalar(reg.RSquared),
		AdjustedRSquared: sanitizedScalar(reg.AdjustedRSquared),
		FStatistic:       sanitizedScalar(reg.FStatistic),
		FPValue:          sanitizedScalar(reg.FPValue),
		AIC:              sanitizedScalar(reg.AIC),
		BIC:              sanitizedScalar(reg.BIC),
		DurbinWatson:     sanitizedScalar(reg.DurbinWatson),
		NObservations:    reg.NObservations,
		DegreesOfFreedom: reg.DegreesOfFreedom,

		Residuals:    sanitizedSeries(reg.Residuals),
		FittedValues: sanitizedSeries(reg.Fitted),

		TransformedData:       sanitizedSeriesMap(res.TransformedData),
		VariableContributions: sanitizedSeriesMap(res.VariableContributions),

		Diagnostics: diagnosticsDTO,
		VIFValues:   sanitizedScalarMap(res.Diagnostics.VIF),

		Decomposition: decomposition,

		OptimizationSuccess: reg.OptimizationSuccess,
	}
}

// sanitizeDiagnosticPValue preserves the "N/A" sentinel exactly; any
// numeric p-value goes through the general sanitization contract.
func sanitizeDiagnosticPValue(v any) any {
	if f, ok := v.(float64); ok {
		return sanitizedScalar(f)
	}
	return v
}

package api

import (
	"github.com/modelhub/mmm-engine/internal/apperr"
	"github.com/modelhub/mmm-engine/internal/panel"
)

func toModelConfiguration(dto ModelConfigurationDTO) (*panel.ModelConfiguration, error) {
	cfg := &panel.ModelConfiguration{
		KPI:                 dto.KPI,
		WeightsColumn:       dto.XSWeights,
		LogTransBiasAdjust:  dto.LogTransBias,
		AntiLogsAtMidpoints: dto.TakeAntiLogsAtMidpoints,
	}
	if dto.StartDate != "" {
		t, err := parseObsDate(dto.StartDate)
		if err != nil {
			return nil, apperr.Input(apperr.StageInput, "model_configuration.start_date: %v", err)
		}
		cfg.StartDate = t
	}
	if dto.EndDate != "" {
		t, err := parseObsDate(dto.EndDate)
		if err != nil {
			return nil, apperr.Input(apperr.StageInput, "model_configuration.end_date: %v", err)
		}
		cfg.EndDate = t
	}
	return cfg, nil
}

func toVariableSpec(dto VariableTransformationDTO) *panel.VariableSpec {
	v := &panel.VariableSpec{
		Variable:      dto.Variable,
		Include:       dto.Include,
		PreTransform:  dto.PreTransform,
		Lag:           dto.Lag,
		Lead:          dto.Lead,
		Adstock:       dto.Adstock,
		Dimret:        dto.Dimret,
		DimretAdstock: dto.DimretAdstock,
		PostTransform: dto.PostTransform,

		XSGrouping:   dto.XSGrouping,
		Interval:     dto.Interval,
		Category:     dto.Category,
		CoeffMin:     dto.CoeffMin,
		CoeffMax:     dto.CoeffMax,
		Importance:   dto.Importance,
		ShortName:    dto.ShortName,
		Substitution: dto.Substitution,
		Notes:        dto.Notes,
		IsConstant:   dto.IsConstant,
	}
	switch dto.ReferencePoint {
	case "min":
		v.Reference = panel.ReferencePoint{Kind: panel.RefMin}
	case "max":
		v.Reference = panel.ReferencePoint{Kind: panel.RefMax}
	default:
		if dto.ReferenceValue != nil {
			v.Reference = panel.ReferencePoint{Kind: panel.RefNumeric, Value: *dto.ReferenceValue}
		}
	}
	return v
}

func toVariableSpecs(dtos []VariableTransformationDTO) []*panel.VariableSpec {
	out := make([]*panel.VariableSpec, len(dtos))
	for i, dto := range dtos {
		out[i] = toVariableSpec(dto)
	}
	return out
}

func toCrossSectionSpec(dto *CrossSectionSpecDTO) *panel.CrossSectionSpec {
	if dto == nil {
		return nil
	}
	return &panel.CrossSectionSpec{Dims: dto.Dims, Values: dto.Values}
}

func toRawDataset(req *RegressionRequestDTO) (*panel.RawDataset, error) {
	obsColumn := req.ObservationColumn
	if obsColumn == "" {
		obsColumn = "date"
	}
	return panel.LoadRawDataset(obsColumn, req.Data)
}

// Package panel holds the request-scoped data model shared by every stage
// of the pipeline: the raw dataset, the model/cross-section/variable
// specifications, and the dense transformed matrix they produce.
package panel

import (
	"sort"
	"time"
)

// RawDataset is a column-oriented table keyed by lowercase identifiers,
// plus the observation (date) index shared by every column.
type RawDataset struct {
	Obs []time.Time
	// Numeric carries one slice per raw numeric column, same length as Obs.
	Numeric map[string][]float64
	// String carries raw string columns (used for cross-section dimension
	// comparisons such as (.region. == 'ang')).
	String map[string][]string
}

// Column returns the numeric column named name, or (nil, false).
func (d *RawDataset) Column(name string) ([]float64, bool) {
	v, ok := d.Numeric[name]
	return v, ok
}

// Len returns the number of observations.
func (d *RawDataset) Len() int { return len(d.Obs) }

// ModelConfiguration is the top-level regression request configuration.
type ModelConfiguration struct {
	KPI                  string
	StartDate            time.Time
	EndDate              time.Time
	WeightsColumn        string // name of a dimension in CrossSectionSpec; "" if unset
	LogTransBiasAdjust   bool
	AntiLogsAtMidpoints  bool
}

// CrossSectionSpec maps each cross-section identifier to its grouping
// dimension values, e.g. crosssection "region_a" -> {"region": "a"}.
type CrossSectionSpec struct {
	// Dims lists the grouping dimension names in declaration order.
	Dims []string
	// Values maps crosssection id -> dimension name -> value.
	Values map[string]map[string]string
}

// CrossSections returns the sorted list of cross-section identifiers.
func (s *CrossSectionSpec) CrossSections() []string {
	out := make([]string, 0, len(s.Values))
	for xs := range s.Values {
		out = append(out, xs)
	}
	sort.Strings(out)
	return out
}

// DimValue returns the value of dimension dim for cross-section xs.
func (s *CrossSectionSpec) DimValue(xs, dim string) (string, bool) {
	m, ok := s.Values[xs]
	if !ok {
		return "", false
	}
	v, ok := m[dim]
	return v, ok
}

// InDimension reports whether cross-section xs participates in dimension dim
// at all (has any value recorded for it).
func (s *CrossSectionSpec) InDimension(xs, dim string) bool {
	_, ok := s.DimValue(xs, dim)
	return ok
}

// ReferencePointKind distinguishes the three reference-point flavors a
// VariableSpec may declare.
type ReferencePointKind int

const (
	RefNone ReferencePointKind = iota
	RefMin
	RefMax
	RefNumeric
)

// ReferencePoint is the resolved reference-point declaration for a variable.
type ReferencePoint struct {
	Kind  ReferencePointKind
	Value float64 // only meaningful when Kind == RefNumeric
}

// VariableSpec is one row of the Variable Specification table.
type VariableSpec struct {
	Variable       string // expression string
	XSGrouping     string // grouping dimension name, "" if none
	Reference      ReferencePoint
	Interval       int
	Category       string
	CoeffMin       *float64
	CoeffMax       *float64
	Importance     float64
	ShortName      string
	Substitution   string // "¬1(0.1,0.3,0.5)" style grid expression
	Notes          string
	IsConstant     bool

	// Include and the transform-kernel fields below ride on the same wire
	// entry as the rest of the Variable Specification row (spec §9 Open
	// Question decision 5): the wire request has one array of variable
	// entries, not two, so the richer desktop-client fields (interval,
	// category, bounds, substitution) and the transform-pipeline fields
	// (pre/post transform, lag/lead, adstock, dimret) live on one struct.
	Include       bool
	PreTransform  string // "log" | "sqrt" | "exp" | ""
	Lag           int
	Lead          int
	Adstock       float64
	Dimret        float64
	DimretAdstock bool
	PostTransform string
}

// TransformedColumn is one column of the dense transformed matrix, carrying
// the metadata downstream stages need instead of re-parsing column names.
type TransformedColumn struct {
	Name         string // e.g. "tv_spend" or "tv_spend_μ_region_a"
	Parent       string // the originating VariableSpec.Variable / ShortName
	CrossSection string // "" for non-panel-split columns
	Interval     float64
	Category     string
	Values       []float64
}

// TransformedDataset is the dense table handed to the Regression Core.
type TransformedDataset struct {
	Obs          []time.Time
	CrossSection []string // crosssection id per row
	KPI          []float64
	KPIName      string
	Columns      []*TransformedColumn
}

// ColumnByName returns the column named name, or nil.
func (t *TransformedDataset) ColumnByName(name string) *TransformedColumn {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

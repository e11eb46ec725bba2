package panel

import (
	"testing"
	"time"
)

func TestLoadRawDatasetParsesISOAndTypesColumns(t *testing.T) {
	data := map[string][]any{
		"obs":    {"2024-01-01", "2024-01-02", "2024-01-03"},
		"sales":  {float64(10), float64(20), float64(30)},
		"region": {"north", "north", "south"},
	}
	ds, err := LoadRawDataset("obs", data)
	if err != nil {
		t.Fatalf("LoadRawDataset: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", ds.Len())
	}
	if got, ok := ds.Column("sales"); !ok || got[1] != 20 {
		t.Errorf("expected sales[1]=20, got %v ok=%v", got, ok)
	}
	if ds.String["region"][2] != "south" {
		t.Errorf("expected region[2]=south, got %v", ds.String["region"][2])
	}
}

func TestLoadRawDatasetParsesDDMMYYYY(t *testing.T) {
	data := map[string][]any{
		"obs": {"31/01/2024"},
		"x":   {float64(1)},
	}
	ds, err := LoadRawDataset("obs", data)
	if err != nil {
		t.Fatalf("LoadRawDataset: %v", err)
	}
	want := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if !ds.Obs[0].Equal(want) {
		t.Errorf("got %v, want %v", ds.Obs[0], want)
	}
}

func TestLoadRawDatasetMissingObsColumn(t *testing.T) {
	data := map[string][]any{"x": {float64(1)}}
	if _, err := LoadRawDataset("obs", data); err == nil {
		t.Fatal("expected error for missing observation column")
	}
}

func TestFilterByDateWindowInclusive(t *testing.T) {
	ds := &RawDataset{
		Obs: []time.Time{
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		},
		Numeric: map[string][]float64{"x": {1, 2, 3}},
		String:  map[string][]string{},
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out, err := FilterByDateWindow(ds, start, end)
	if err != nil {
		t.Fatalf("FilterByDateWindow: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", out.Len())
	}
	if out.Numeric["x"][1] != 2 {
		t.Errorf("expected x[1]=2, got %v", out.Numeric["x"][1])
	}
}

func TestValidateVariableSpecsRequiresContiguousIntervals(t *testing.T) {
	specs := []*VariableSpec{
		{Variable: "const", Interval: 1, IsConstant: true},
		{Variable: "tv", Interval: 3},
	}
	if err := ValidateVariableSpecs(specs); err == nil {
		t.Fatal("expected error for non-contiguous intervals")
	}
}

func TestValidateVariableSpecsRequiresExactlyOneConstant(t *testing.T) {
	specs := []*VariableSpec{
		{Variable: "tv", Interval: 1},
		{Variable: "radio", Interval: 2},
	}
	if err := ValidateVariableSpecs(specs); err == nil {
		t.Fatal("expected error for missing constant")
	}
}

func TestValidateCrossSectionSpecRejectsUppercase(t *testing.T) {
	spec := &CrossSectionSpec{Values: map[string]map[string]string{"North": {"region": "north"}}}
	if err := ValidateCrossSectionSpec(spec); err == nil {
		t.Fatal("expected error for uppercase cross-section identifier")
	}
}

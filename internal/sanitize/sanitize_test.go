package sanitize

import (
	"math"
	"testing"
)

func TestFloatSubstitutions(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"nan", math.NaN(), 0},
		{"posinf", math.Inf(1), math.MaxFloat64},
		{"neginf", math.Inf(-1), -math.MaxFloat64},
		{"finite", 3.14, 3.14},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Float(tc.in)
			if tc.name == "nan" {
				if got != 0 {
					t.Errorf("Float(NaN) = %v, want 0", got)
				}
				return
			}
			if got != tc.want {
				t.Errorf("Float(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestMapSanitizesAllSeries(t *testing.T) {
	m := map[string][]float64{
		"a": {1, math.NaN(), 3},
		"b": {math.Inf(1), math.Inf(-1)},
	}
	Map(m)
	if m["a"][1] != 0 {
		t.Errorf("expected NaN replaced with 0, got %v", m["a"][1])
	}
	if m["b"][0] != math.MaxFloat64 || m["b"][1] != -math.MaxFloat64 {
		t.Errorf("unexpected inf substitution: %v", m["b"])
	}
}

type diagStub struct {
	Name      string
	Statistic float64
	PValue    any
}

func TestValueWalksNestedStructsAndPreservesNA(t *testing.T) {
	in := struct {
		Tests []diagStub
		VIF   map[string]float64
	}{
		Tests: []diagStub{
			{Name: "white", Statistic: math.NaN(), PValue: "N/A"},
			{Name: "dw", Statistic: 1.8, PValue: 0.05},
		},
		VIF: map[string]float64{"x1": math.Inf(1)},
	}

	out := Value(in).(struct {
		Tests []diagStub
		VIF   map[string]float64
	})

	if out.Tests[0].Statistic != 0 {
		t.Errorf("expected NaN statistic sanitized to 0, got %v", out.Tests[0].Statistic)
	}
	if out.Tests[0].PValue != "N/A" {
		t.Errorf("expected N/A sentinel preserved, got %v", out.Tests[0].PValue)
	}
	if out.Tests[1].Statistic != 1.8 {
		t.Errorf("finite statistic should be unchanged, got %v", out.Tests[1].Statistic)
	}
	if out.VIF["x1"] != math.MaxFloat64 {
		t.Errorf("expected +Inf VIF sanitized to MaxFloat64, got %v", out.VIF["x1"])
	}
}

package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/modelhub/mmm-engine/internal/apperr"
)

// substitutionPattern matches a permutation grid declaration such as
// "¬1(0.1,0.3,0.5)", per spec §4.1.
var substitutionPattern = regexp.MustCompile(`¬(\d+)\(([^)]*)\)`)

// grid is one ¬n slot's candidate values.
type grid struct {
	Slot   int
	Values []float64
}

// parseSubstitution extracts the permutation grid declared in a
// VariableSpec.Substitution string, or (nil, false) if the field declares
// no grid (empty, or no ¬n(...) pattern present).
func parseSubstitution(substitution string) (*grid, bool, error) {
	substitution = strings.TrimSpace(substitution)
	if substitution == "" {
		return nil, false, nil
	}
	m := substitutionPattern.FindStringSubmatch(substitution)
	if m == nil {
		return nil, false, nil
	}
	slot, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, false, apperr.Input(apperr.StageTransform, "malformed permutation slot in substitution %q", substitution)
	}
	parts := strings.Split(m[2], ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, false, apperr.Input(apperr.StageTransform, "malformed permutation value %q in substitution %q", p, substitution)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, false, apperr.Input(apperr.StageTransform, "permutation grid %q declares no values", substitution)
	}
	return &grid{Slot: slot, Values: values}, true, nil
}

// collectGrids scans every variable's substitution field for a permutation
// grid and merges them by slot, per spec §4.1: "the engine takes the
// Cartesian product across all placeholders that appear."
func collectGrids(substitutions []string) ([]*grid, error) {
	bySlot := make(map[int]*grid)
	order := make([]int, 0)
	for _, s := range substitutions {
		g, ok, err := parseSubstitution(s)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if _, exists := bySlot[g.Slot]; !exists {
			order = append(order, g.Slot)
		}
		bySlot[g.Slot] = g
	}
	out := make([]*grid, len(order))
	for i, slot := range order {
		out[i] = bySlot[slot]
	}
	return out, nil
}

// cartesianProduct builds one map[slot]value binding per permutation, in a
// deterministic order (spec §5: "permutation results are keyed by a
// deterministic permutation index").
func cartesianProduct(grids []*grid) []map[int]float64 {
	if len(grids) == 0 {
		return []map[int]float64{{}}
	}
	combos := []map[int]float64{{}}
	for _, g := range grids {
		next := make([]map[int]float64, 0, len(combos)*len(g.Values))
		for _, c := range combos {
			for _, v := range g.Values {
				m := make(map[int]float64, len(c)+1)
				for k, vv := range c {
					m[k] = vv
				}
				m[g.Slot] = v
				next = append(next, m)
			}
		}
		combos = next
	}
	return combos
}

package transform

import (
	"fmt"

	"github.com/modelhub/mmm-engine/internal/apperr"
)

// Config is one variable's transformation configuration, matching the wire
// shape of spec §6's variable_transformations array entries.
type Config struct {
	Variable      string
	Include       bool
	PreTransform  string // "log" | "sqrt" | "exp" | ""
	Lag           int
	Lead          int
	Adstock       float64 // decay rate in [0,1)
	Dimret        float64 // saturation percentage in [0,1)
	DimretAdstock bool
	PostTransform string

	ReferenceKind    int // panel.ReferencePointKind ordinal, carried as a plain int
	ReferenceNumeric float64
}

// Apply runs the fixed five-step pipeline of spec §4.2 against series.
func Apply(variable string, series []float64, cfg Config) ([]float64, error) {
	x := append([]float64(nil), series...)

	// Step 1: pre-transform.
	var err error
	if cfg.PreTransform != "" {
		x, err = PreOrPost(cfg.PreTransform, x)
		if err != nil {
			return nil, apperr.Transform(variable, err)
		}
	}

	// Step 2: temporal shift — exactly one of lag/lead applies.
	switch {
	case cfg.Lag > 0:
		x = Lag(x, cfg.Lag)
	case cfg.Lead > 0:
		x = Lead(x, cfg.Lead)
	}

	// Step 3: carry-over and saturation.
	switch {
	case cfg.DimretAdstock && (cfg.Adstock > 0 || cfg.Dimret > 0):
		x, err = DimretAdstock(x, cfg.Adstock, cfg.Dimret, true)
		if err != nil {
			return nil, apperr.Transform(variable, err)
		}
	default:
		if cfg.Adstock > 0 {
			x = Adstock(x, cfg.Adstock)
		}
		if cfg.Dimret > 0 {
			x, err = Dimret(x, cfg.Dimret, true)
			if err != nil {
				return nil, apperr.Transform(variable, err)
			}
		}
	}

	// Step 4: reference point subtraction.
	ref := ReferenceValue(cfg.ReferenceKind, cfg.ReferenceNumeric, x)
	if ref != 0 {
		shifted := make([]float64, len(x))
		for i, v := range x {
			shifted[i] = v - ref
		}
		x = shifted
	}

	// Step 5: post-transform.
	if cfg.PostTransform != "" {
		x, err = PreOrPost(cfg.PostTransform, x)
		if err != nil {
			return nil, apperr.Transform(variable, err)
		}
	}

	if err := checkFinite(variable, x); err != nil {
		return nil, err
	}
	return x, nil
}

// NormalizedApply is identical to Apply except step 3 uses the
// sum-preserving variants of adstock/dimret/dimret_adstock.
func NormalizedApply(variable string, series []float64, cfg Config) ([]float64, error) {
	x := append([]float64(nil), series...)

	var err error
	if cfg.PreTransform != "" {
		x, err = PreOrPost(cfg.PreTransform, x)
		if err != nil {
			return nil, apperr.Transform(variable, err)
		}
	}

	switch {
	case cfg.Lag > 0:
		x = Lag(x, cfg.Lag)
	case cfg.Lead > 0:
		x = Lead(x, cfg.Lead)
	}

	switch {
	case cfg.DimretAdstock && (cfg.Adstock > 0 || cfg.Dimret > 0):
		x, err = NormalizedDimretAdstock(x, cfg.Adstock, cfg.Dimret, true)
	default:
		if cfg.Adstock > 0 {
			x = NormalizedAdstock(x, cfg.Adstock)
		}
		if cfg.Dimret > 0 {
			x, err = NormalizedDimret(x, cfg.Dimret, true)
		}
	}
	if err != nil {
		return nil, apperr.Transform(variable, err)
	}

	ref := ReferenceValue(cfg.ReferenceKind, cfg.ReferenceNumeric, x)
	if ref != 0 {
		shifted := make([]float64, len(x))
		for i, v := range x {
			shifted[i] = v - ref
		}
		x = shifted
	}

	if cfg.PostTransform != "" {
		x, err = PreOrPost(cfg.PostTransform, x)
		if err != nil {
			return nil, apperr.Transform(variable, err)
		}
	}

	if err := checkFinite(variable, x); err != nil {
		return nil, err
	}
	return x, nil
}

// CacheKey identifies one (expression, cross-section) transform result.
type CacheKey struct {
	Expression   string
	CrossSection string
}

// Cache memoizes transform results within a single request, per spec §4.2 /
// Design Note: "a single map owned by the request object", discarded once
// the request completes.
type Cache struct {
	entries map[CacheKey][]float64
}

// NewCache returns an empty, request-scoped cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[CacheKey][]float64)}
}

// GetOrCompute returns the cached series for key, computing and storing it
// via compute if absent.
func (c *Cache) GetOrCompute(key CacheKey, compute func() ([]float64, error)) ([]float64, error) {
	if v, ok := c.entries[key]; ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.entries[key] = v
	return v, nil
}

// Len reports the number of cached entries, useful for tests asserting the
// cache actually saved redundant work.
func (c *Cache) Len() int { return len(c.entries) }

func (k CacheKey) String() string {
	return fmt.Sprintf("%s@%s", k.Expression, k.CrossSection)
}

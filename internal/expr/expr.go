// Package expr implements the typed expression AST and interpreter of
// spec §4.1. Per the Design Note in spec §9, evaluation state (the current
// cross-section, the current permutation binding) is carried in an
// immutable EvalContext threaded explicitly through the interpreter rather
// than mutated via package-level globals.
package expr

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/modelhub/mmm-engine/internal/transform"
)

// ExpressionError reports a failure to parse or evaluate an expression.
type ExpressionError struct {
	Expression string
	Message    string
	Err        error
}

func (e *ExpressionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("expression %q: %s: %v", e.Expression, e.Message, e.Err)
	}
	return fmt.Sprintf("expression %q: %s", e.Expression, e.Message)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// errUnresolvedDim is a sentinel that Evaluate (not the individual Eval
// methods) turns into an all-zero result, per spec §4.1: "other
// cross-sections resolve the expression to zero."
var errUnresolvedDim = fmt.Errorf("cross-section not mapped into requested dimension")

// XSResolver supplies the cross-section/dimension lookups a ColumnRef or
// XSToken needs; internal/panel.CrossSectionSpec satisfies this.
type XSResolver interface {
	DimValue(xs, dim string) (string, bool)
}

// EvalContext is the immutable, per-evaluation state passed down the AST.
type EvalContext struct {
	Columns      map[string][]float64
	Obs          []time.Time
	N            int
	CrossSection string
	XSSpec       XSResolver
	Permutation  map[int]float64
}

// Node is one AST element. Eval evaluates it over the whole raw dataset,
// producing one value per observation.
type Node interface {
	Eval(ctx *EvalContext) ([]float64, error)
}

// stringable is implemented by nodes that can resolve to a single string
// value (used for .dim. == 'value' style logical comparisons).
type stringable interface {
	EvalString(ctx *EvalContext) (string, bool, error)
}

// Literal is a numeric constant, broadcast across every observation.
type Literal struct{ Value float64 }

func (l *Literal) Eval(ctx *EvalContext) ([]float64, error) {
	out := make([]float64, ctx.N)
	for i := range out {
		out[i] = l.Value
	}
	return out, nil
}

// StringLit is a quoted string literal; only meaningful in comparisons
// against obs (parsed as a date) or against an XSToken (string equality).
type StringLit struct{ Value string }

func (s *StringLit) Eval(ctx *EvalContext) ([]float64, error) {
	return nil, fmt.Errorf("string literal %q used outside a comparison", s.Value)
}

func (s *StringLit) EvalString(ctx *EvalContext) (string, bool, error) { return s.Value, true, nil }

// XSToken is a standalone ".dim." reference used in a logical comparison,
// e.g. (.region. == 'ang').
type XSToken struct{ Dim string }

func (x *XSToken) Eval(ctx *EvalContext) ([]float64, error) {
	return nil, fmt.Errorf(".%s. used outside a comparison", x.Dim)
}

func (x *XSToken) EvalString(ctx *EvalContext) (string, bool, error) {
	if x.Dim == "crosssection" {
		return ctx.CrossSection, true, nil
	}
	v, ok := ctx.XSSpec.DimValue(ctx.CrossSection, x.Dim)
	if !ok {
		return "", false, errUnresolvedDim
	}
	return v, true, nil
}

// xsKind distinguishes how a ColumnRef's dynamic suffix resolves.
type xsKind int

const (
	xsNone xsKind = iota
	xsCrossSection
	xsDim
)

// ColumnRef is a (possibly dynamically-built) column name: Prefix + the
// resolved crosssection/dim token + Suffix. Plain identifiers have
// Kind == xsNone and Suffix == "".
type ColumnRef struct {
	Prefix string
	Kind   xsKind
	Dim    string // only used when Kind == xsDim
	Suffix string
}

func (c *ColumnRef) resolveName(ctx *EvalContext) (string, error) {
	switch c.Kind {
	case xsNone:
		return c.Prefix, nil
	case xsCrossSection:
		return c.Prefix + ctx.CrossSection + c.Suffix, nil
	case xsDim:
		v, ok := ctx.XSSpec.DimValue(ctx.CrossSection, c.Dim)
		if !ok {
			return "", errUnresolvedDim
		}
		return c.Prefix + v + c.Suffix, nil
	default:
		return "", fmt.Errorf("unknown column-ref kind")
	}
}

func (c *ColumnRef) Eval(ctx *EvalContext) ([]float64, error) {
	name, err := c.resolveName(ctx)
	if err != nil {
		return nil, err
	}
	if name == "obs" {
		return nil, fmt.Errorf("obs column cannot be used as a numeric value directly")
	}
	col, ok := ctx.Columns[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	return col, nil
}

// PermutationSlot is a "¬n" placeholder bound by the caller's permutation.
type PermutationSlot struct{ Slot int }

func (p *PermutationSlot) Eval(ctx *EvalContext) ([]float64, error) {
	v, ok := ctx.Permutation[p.Slot]
	if !ok {
		return nil, fmt.Errorf("permutation slot ¬%d has no bound value", p.Slot)
	}
	out := make([]float64, ctx.N)
	for i := range out {
		out[i] = v
	}
	return out, nil
}

// UnaryOp is a prefix operator: "-" or "not".
type UnaryOp struct {
	Op string
	X  Node
}

func (u *UnaryOp) Eval(ctx *EvalContext) ([]float64, error) {
	x, err := u.X.Eval(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	switch u.Op {
	case "-":
		for i, v := range x {
			out[i] = -v
		}
	case "not":
		for i, v := range x {
			out[i] = boolF(v == 0)
		}
	default:
		return nil, fmt.Errorf("unknown unary operator %q", u.Op)
	}
	return out, nil
}

// BinOp is an infix operator: arithmetic, comparison, or logical and/or.
type BinOp struct {
	Op   string
	L, R Node
}

func isObsColumn(n Node) bool {
	c, ok := n.(*ColumnRef)
	return ok && c.Kind == xsNone && c.Prefix == "obs"
}

func (b *BinOp) Eval(ctx *EvalContext) ([]float64, error) {
	switch b.Op {
	case "==", "!=":
		if ls, lIsStr := b.L.(stringable); lIsStr {
			if rs, rIsStr := b.R.(stringable); rIsStr {
				lv, ok, err := ls.EvalString(ctx)
				if err != nil {
					return nil, err
				}
				_ = ok
				rv, ok2, err := rs.EvalString(ctx)
				if err != nil {
					return nil, err
				}
				_ = ok2
				eq := lv == rv
				result := eq == (b.Op == "==")
				return constArray(boolF(result), ctx.N), nil
			}
		}
		if isObsColumn(b.L) {
			return compareObs(ctx, b.Op, b.R)
		}
		if isObsColumn(b.R) {
			return compareObs(ctx, flipOp(b.Op), b.L)
		}
	case ">=", "<=", ">", "<":
		if isObsColumn(b.L) {
			return compareObs(ctx, b.Op, b.R)
		}
		if isObsColumn(b.R) {
			return compareObs(ctx, flipOp(b.Op), b.L)
		}
	}

	L, err := b.L.Eval(ctx)
	if err != nil {
		return nil, err
	}
	R, err := b.R.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if len(L) != len(R) {
		return nil, fmt.Errorf("operand length mismatch: %d vs %d", len(L), len(R))
	}
	out := make([]float64, len(L))
	for i := range L {
		v, err := applyBinOp(b.Op, L[i], R[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func flipOp(op string) string {
	switch op {
	case ">":
		return "<"
	case "<":
		return ">"
	case ">=":
		return "<="
	case "<=":
		return ">="
	default:
		return op
	}
}

func compareObs(ctx *EvalContext, op string, rhs Node) ([]float64, error) {
	lit, ok := rhs.(*StringLit)
	if !ok {
		return nil, fmt.Errorf("obs comparisons require a date literal on the other side")
	}
	date, err := parseDate(lit.Value)
	if err != nil {
		return nil, &ExpressionError{Message: "malformed date literal", Err: err}
	}
	out := make([]float64, ctx.N)
	for i, t := range ctx.Obs {
		var cmp bool
		switch op {
		case ">=":
			cmp = !t.Before(date)
		case "<=":
			cmp = !t.After(date)
		case ">":
			cmp = t.After(date)
		case "<":
			cmp = t.Before(date)
		case "==":
			cmp = t.Equal(date)
		case "!=":
			cmp = !t.Equal(date)
		default:
			return nil, fmt.Errorf("unsupported obs comparison operator %q", op)
		}
		out[i] = boolF(cmp)
	}
	return out, nil
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", time.RFC3339}

func parseDate(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func applyBinOp(op string, l, r float64) (float64, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case "**":
		return math.Pow(l, r), nil
	case ">=":
		return boolF(l >= r), nil
	case "<=":
		return boolF(l <= r), nil
	case ">":
		return boolF(l > r), nil
	case "<":
		return boolF(l < r), nil
	case "==":
		return boolF(l == r), nil
	case "!=":
		return boolF(l != r), nil
	case "and":
		return boolF(l != 0 && r != 0), nil
	case "or":
		return boolF(l != 0 || r != 0), nil
	default:
		return 0, fmt.Errorf("unknown operator %q", op)
	}
}

func boolF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func constArray(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Call is a function application: log/exp/sqrt/abs/sin/cos/tan or one of the
// transform primitives (lag/lead/adstock/dimret/dimret_adstock and their
// normalized variants).
type Call struct {
	Name string
	Args []Node
}

var unaryMathFuncs = map[string]func(float64) float64{
	"log":  math.Log,
	"exp":  math.Exp,
	"sqrt": math.Sqrt,
	"abs":  math.Abs,
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
}

func (c *Call) Eval(ctx *EvalContext) ([]float64, error) {
	if fn, ok := unaryMathFuncs[c.Name]; ok {
		if len(c.Args) != 1 {
			return nil, &ExpressionError{Message: fmt.Sprintf("%s expects 1 argument, got %d", c.Name, len(c.Args))}
		}
		x, err := c.Args[0].Eval(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(x))
		for i, v := range x {
			out[i] = fn(v)
			if math.IsNaN(out[i]) && v >= 0 {
				return nil, &ExpressionError{Message: fmt.Sprintf("%s produced NaN at index %d", c.Name, i)}
			}
		}
		return out, nil
	}

	switch c.Name {
	case "lag", "lead":
		x, k, err := seriesAndInt(ctx, c.Args, c.Name)
		if err != nil {
			return nil, err
		}
		if c.Name == "lag" {
			return transform.Lag(x, k), nil
		}
		return transform.Lead(x, k), nil
	case "adstock":
		x, r, err := seriesAndFloat(ctx, c.Args, "adstock")
		if err != nil {
			return nil, err
		}
		return transform.Adstock(x, r), nil
	case "n_adstock":
		x, r, err := seriesAndFloat(ctx, c.Args, "n_adstock")
		if err != nil {
			return nil, err
		}
		return transform.NormalizedAdstock(x, r), nil
	case "dimret":
		x, p, err := seriesAndFloat(ctx, c.Args, "dimret")
		if err != nil {
			return nil, err
		}
		return transform.Dimret(x, p, true)
	case "n_dimret":
		x, p, err := seriesAndFloat(ctx, c.Args, "n_dimret")
		if err != nil {
			return nil, err
		}
		return transform.NormalizedDimret(x, p, true)
	case "dimret_adstock":
		if len(c.Args) != 3 {
			return nil, &ExpressionError{Message: fmt.Sprintf("dimret_adstock expects 3 arguments, got %d", len(c.Args))}
		}
		x, err := c.Args[0].Eval(ctx)
		if err != nil {
			return nil, err
		}
		rArr, err := c.Args[1].Eval(ctx)
		if err != nil {
			return nil, err
		}
		pArr, err := c.Args[2].Eval(ctx)
		if err != nil {
			return nil, err
		}
		return transform.DimretAdstock(x, first(rArr), first(pArr), true)
	case "n_dimret_adstock":
		if len(c.Args) != 3 {
			return nil, &ExpressionError{Message: fmt.Sprintf("n_dimret_adstock expects 3 arguments, got %d", len(c.Args))}
		}
		x, err := c.Args[0].Eval(ctx)
		if err != nil {
			return nil, err
		}
		rArr, err := c.Args[1].Eval(ctx)
		if err != nil {
			return nil, err
		}
		pArr, err := c.Args[2].Eval(ctx)
		if err != nil {
			return nil, err
		}
		return transform.NormalizedDimretAdstock(x, first(rArr), first(pArr), true)
	default:
		return nil, &ExpressionError{Message: fmt.Sprintf("unknown function %q", c.Name)}
	}
}

func first(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return x[0]
}

func seriesAndInt(ctx *EvalContext, args []Node, name string) ([]float64, int, error) {
	if len(args) != 2 {
		return nil, 0, &ExpressionError{Message: fmt.Sprintf("%s expects 2 arguments, got %d", name, len(args))}
	}
	x, err := args[0].Eval(ctx)
	if err != nil {
		return nil, 0, err
	}
	kArr, err := args[1].Eval(ctx)
	if err != nil {
		return nil, 0, err
	}
	return x, int(first(kArr)), nil
}

func seriesAndFloat(ctx *EvalContext, args []Node, name string) ([]float64, float64, error) {
	if len(args) != 2 {
		return nil, 0, &ExpressionError{Message: fmt.Sprintf("%s expects 2 arguments, got %d", name, len(args))}
	}
	x, err := args[0].Eval(ctx)
	if err != nil {
		return nil, 0, err
	}
	pArr, err := args[1].Eval(ctx)
	if err != nil {
		return nil, 0, err
	}
	return x, first(pArr), nil
}

// Evaluate parses and evaluates src over ctx, handling the "unresolved
// dimension -> all zero" rule centrally so individual nodes stay simple.
func Evaluate(src string, ctx *EvalContext) ([]float64, error) {
	node, err := Parse(src)
	if err != nil {
		return nil, &ExpressionError{Expression: src, Message: "parse error", Err: err}
	}
	out, err := node.Eval(ctx)
	if err != nil {
		if err == errUnresolvedDim {
			return constArray(0, ctx.N), nil
		}
		return nil, &ExpressionError{Expression: src, Message: "evaluation error", Err: err}
	}
	for i, v := range out {
		if (math.IsNaN(v) || math.IsInf(v, 0)) && v != 0 {
			return nil, &ExpressionError{Expression: src, Message: fmt.Sprintf("non-finite result at index %d", i)}
		}
	}
	return out, nil
}

var xsTokenPattern = regexp.MustCompile(`^(.*?)\.(\w+)\.(.*)$`)

// parseWordAsColumnRef splits a raw identifier-ish word into a ColumnRef,
// recognizing the embedded ".crosssection." / ".dim." marker per spec §4.1.
func parseWordAsColumnRef(word string) *ColumnRef {
	m := xsTokenPattern.FindStringSubmatch(word)
	if m == nil {
		return &ColumnRef{Prefix: word, Kind: xsNone}
	}
	prefix, dim, suffix := m[1], m[2], m[3]
	if dim == "crosssection" {
		return &ColumnRef{Prefix: prefix, Kind: xsCrossSection, Suffix: suffix}
	}
	return &ColumnRef{Prefix: prefix, Kind: xsDim, Dim: dim, Suffix: suffix}
}

// parseStandaloneXSToken recognizes a bare ".dim." with nothing else in the
// word, used in logical comparisons like (.region. == 'ang').
func parseStandaloneXSToken(word string) (*XSToken, bool) {
	if len(word) < 3 || word[0] != '.' || word[len(word)-1] != '.' {
		return nil, false
	}
	inner := word[1 : len(word)-1]
	if inner == "" {
		return nil, false
	}
	for _, r := range inner {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return nil, false
		}
	}
	return &XSToken{Dim: inner}, true
}

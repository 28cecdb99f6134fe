package grid

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/san-kum/mesagrid/internal/namelist"
)

// Condition decides whether a run is removed from the grid. Returning true
// excludes the run.
type Condition interface {
	Exclude(opts *namelist.Options) (bool, error)
}

// ConditionFunc adapts a plain function to Condition.
type ConditionFunc func(opts *namelist.Options) (bool, error)

func (f ConditionFunc) Exclude(opts *namelist.Options) (bool, error) {
	return f(opts)
}

// Excluded reports whether any of conds excludes opts. An empty list keeps
// every run.
func Excluded(opts *namelist.Options, conds []Condition) (bool, error) {
	for _, c := range conds {
		ex, err := c.Exclude(opts)
		if err != nil {
			return false, err
		}
		if ex {
			return true, nil
		}
	}
	return false, nil
}

// Expression is a Condition written as an HCL expression over the run's
// options, e.g. "m2 / m1 < 0.5".
type Expression struct {
	Source string
	expr   hclsyntax.Expression
}

// ParseCondition compiles src.
func ParseCondition(src string) (*Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "condition", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "parsing condition %q", src)
	}
	return &Expression{Source: src, expr: expr}, nil
}

// ParseConditions compiles every expression of srcs.
func ParseConditions(srcs []string) ([]Condition, error) {
	out := make([]Condition, 0, len(srcs))
	for _, src := range srcs {
		c, err := ParseCondition(src)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Exclude evaluates the expression with every option whose name is a valid
// identifier bound as a variable.
func (e *Expression) Exclude(opts *namelist.Options) (bool, error) {
	vars := make(map[string]cty.Value, opts.Len())
	for _, k := range opts.Keys() {
		if !hclsyntax.ValidIdentifier(k) {
			continue
		}
		v, _ := opts.Get(k)
		if cv, ok := toCty(v); ok {
			vars[k] = cv
		}
	}

	val, diags := e.expr.Value(&hcl.EvalContext{Variables: vars})
	if diags.HasErrors() {
		return false, errors.Wrapf(diags, "evaluating condition %q", e.Source)
	}
	if val.IsNull() || !val.IsKnown() {
		return false, errors.Errorf("condition %q has no value", e.Source)
	}
	b, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, errors.Wrapf(err, "condition %q is not a boolean", e.Source)
	}
	return b.True(), nil
}

func (e *Expression) String() string {
	return e.Source
}

func toCty(v any) (cty.Value, bool) {
	switch x := v.(type) {
	case int:
		return cty.NumberIntVal(int64(x)), true
	case int64:
		return cty.NumberIntVal(x), true
	case float64:
		return cty.NumberFloatVal(x), true
	case bool:
		return cty.BoolVal(x), true
	case string:
		return cty.StringVal(x), true
	}
	return cty.NilVal, false
}

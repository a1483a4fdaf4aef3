package compiler

import (
	"cuelang.org/go/cue"

	"github.com/eskang/RosAlloy/internal/ir"
)

// compileExpr parses a structured expression node. A bare string is a
// name reference; otherwise the node is a struct with exactly one
// operator field.
func compileExpr(v cue.Value, field string) (ir.Expr, error) {
	if s, err := v.String(); err == nil {
		return ir.Name(s), nil
	}

	op, opVal, err := operatorField(v, field)
	if err != nil {
		return nil, err
	}

	switch op {
	case "name":
		s, err := opVal.String()
		if err != nil {
			return nil, errf(opVal, field, "name must be a string")
		}
		return ir.Name(s), nil
	case "var":
		s, err := opVal.String()
		if err != nil {
			return nil, errf(opVal, field, "var must be a string")
		}
		return ir.Var(s), nil
	case "union", "diff", "intersect", "join", "product":
		operands, err := exprList(opVal, field, op)
		if err != nil {
			return nil, err
		}
		if len(operands) < 2 {
			return nil, errf(opVal, field, "%s needs at least two operands", op)
		}
		return foldExpr(op, operands), nil
	case "transpose":
		inner, err := compileExpr(opVal, field)
		if err != nil {
			return nil, err
		}
		return ir.Transpose(inner), nil
	case "call":
		fun, err := stringField(opVal, "fun")
		if err != nil {
			return nil, errf(opVal, field, "call needs a fun name")
		}
		args, err := argList(opVal, field)
		if err != nil {
			return nil, err
		}
		return ir.Call(fun, args...), nil
	case "first", "last", "next", "prevs":
		sig, err := opVal.String()
		if err != nil {
			return nil, errf(opVal, field, "%s must name an ordered signature", op)
		}
		return ir.Name(ir.OrderingRelName(sig, op)), nil
	default:
		return nil, errf(v, field, "unknown expression operator %q", op)
	}
}

func foldExpr(op string, operands []ir.Expr) ir.Expr {
	e := operands[0]
	for _, next := range operands[1:] {
		switch op {
		case "union":
			e = ir.Union(e, next)
		case "diff":
			e = ir.Diff(e, next)
		case "intersect":
			e = ir.Intersect(e, next)
		case "join":
			e = ir.Join(e, next)
		case "product":
			e = ir.Product(e, next)
		}
	}
	return e
}

// compileFormula parses a structured formula node: a struct with exactly
// one connective field.
func compileFormula(v cue.Value, field string) (ir.Formula, error) {
	op, opVal, err := operatorField(v, field)
	if err != nil {
		return nil, err
	}

	switch op {
	case "in", "eq":
		l, r, err := pairOf(opVal, field, op, compileExpr)
		if err != nil {
			return nil, err
		}
		if op == "in" {
			return ir.In(l, r), nil
		}
		return ir.Eq(l, r), nil
	case "not":
		inner, err := compileFormula(opVal, field)
		if err != nil {
			return nil, err
		}
		return ir.Not(inner), nil
	case "and", "or":
		iter, lerr := opVal.List()
		if lerr != nil {
			return nil, errf(opVal, field, "%s must be a list of formulas", op)
		}
		var fs []ir.Formula
		for iter.Next() {
			f, err := compileFormula(iter.Value(), field)
			if err != nil {
				return nil, err
			}
			fs = append(fs, f)
		}
		if op == "and" {
			return ir.And(fs...), nil
		}
		return ir.Or(fs...), nil
	case "implies", "iff":
		l, r, err := pairOf(opVal, field, op, compileFormula)
		if err != nil {
			return nil, err
		}
		if op == "implies" {
			return ir.Implies(l, r), nil
		}
		return ir.Iff(l, r), nil
	case "all":
		return compileQuant(opVal, field, ir.CardNo, true)
	case "some", "no", "one", "lone":
		// With a var field the node quantifies; without one it is a
		// cardinality test on an expression.
		if opVal.LookupPath(cue.ParsePath("var")).Exists() {
			return compileQuant(opVal, field, multKind(op), false)
		}
		e, err := compileExpr(opVal, field)
		if err != nil {
			return nil, err
		}
		return ir.FmlCard{Kind: multKind(op), E: e}, nil
	case "pred":
		name, err := stringField(opVal, "name")
		if err != nil {
			return nil, errf(opVal, field, "pred needs a name")
		}
		args, err := argList(opVal, field)
		if err != nil {
			return nil, err
		}
		return ir.PredCall(name, args...), nil
	default:
		return nil, errf(v, field, "unknown formula operator %q", op)
	}
}

func compileQuant(v cue.Value, field string, kind ir.MultKind, all bool) (ir.Formula, error) {
	name, err := stringField(v, "var")
	if err != nil {
		return nil, errf(v, field, "quantifier needs a var")
	}
	overVal := v.LookupPath(cue.ParsePath("over"))
	if !overVal.Exists() {
		return nil, errf(v, field, "quantifier needs an over domain")
	}
	over, err := compileExpr(overVal, field)
	if err != nil {
		return nil, err
	}
	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return nil, errf(v, field, "quantifier needs a body")
	}
	body, err := compileFormula(bodyVal, field)
	if err != nil {
		return nil, err
	}
	return ir.FmlQuant{Kind: kind, All: all, Var: name, Over: over, Body: body}, nil
}

func multKind(op string) ir.MultKind {
	switch op {
	case "some":
		return ir.CardSome
	case "no":
		return ir.CardNo
	case "one":
		return ir.CardOne
	default:
		return ir.CardLone
	}
}

// operatorField returns the single field of an operator struct.
func operatorField(v cue.Value, field string) (string, cue.Value, error) {
	iter, err := v.Fields()
	if err != nil {
		return "", cue.Value{}, errf(v, field, "expected an operator struct: %v", err)
	}
	var (
		label string
		inner cue.Value
		n     int
	)
	for iter.Next() {
		label = iter.Label()
		inner = iter.Value()
		n++
	}
	if n != 1 {
		return "", cue.Value{}, errf(v, field, "operator structs take exactly one field, got %d", n)
	}
	return label, inner, nil
}

func exprList(v cue.Value, field, op string) ([]ir.Expr, error) {
	iter, err := v.List()
	if err != nil {
		return nil, errf(v, field, "%s must be a list of expressions", op)
	}
	var out []ir.Expr
	for iter.Next() {
		e, err := compileExpr(iter.Value(), field)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func argList(v cue.Value, field string) ([]ir.Expr, error) {
	av := v.LookupPath(cue.ParsePath("args"))
	if !av.Exists() {
		return nil, nil
	}
	return exprList(av, field, "args")
}

// pairOf parses an {l, r} struct with a shared element compiler.
func pairOf[T any](v cue.Value, field, op string, compile func(cue.Value, string) (T, error)) (T, T, error) {
	var zero T
	lv := v.LookupPath(cue.ParsePath("l"))
	rv := v.LookupPath(cue.ParsePath("r"))
	if !lv.Exists() || !rv.Exists() {
		return zero, zero, errf(v, field, "%s needs l and r operands", op)
	}
	l, err := compile(lv, field)
	if err != nil {
		return zero, zero, err
	}
	r, err := compile(rv, field)
	if err != nil {
		return zero, zero, err
	}
	return l, r, nil
}

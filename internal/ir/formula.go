package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Formula is a boolean constraint over relational expressions.
type Formula interface {
	isFormula()
	String() string
}

// FmlIn asserts L is a subset of R (membership when L is a singleton).
type FmlIn struct{ L, R Expr }

// FmlEq asserts L and R denote the same tuple set.
type FmlEq struct{ L, R Expr }

// MultKind identifies a cardinality test on an expression.
type MultKind int

const (
	// CardSome requires a non-empty tuple set.
	CardSome MultKind = iota
	// CardNo requires an empty tuple set.
	CardNo
	// CardOne requires exactly one tuple.
	CardOne
	// CardLone requires at most one tuple.
	CardLone
)

func (k MultKind) String() string {
	return [...]string{"some", "no", "one", "lone"}[k]
}

// FmlCard applies a cardinality test to an expression.
type FmlCard struct {
	Kind MultKind
	E    Expr
}

// FmlNot negates a formula.
type FmlNot struct{ F Formula }

// FmlAnd is the conjunction of its operands (true when empty).
type FmlAnd struct{ Fs []Formula }

// FmlOr is the disjunction of its operands (false when empty).
type FmlOr struct{ Fs []Formula }

// FmlImplies is material implication.
type FmlImplies struct{ L, R Formula }

// FmlIff is bi-implication.
type FmlIff struct{ L, R Formula }

// FmlQuant binds Var over the unary expression Over and applies Kind to
// the witnesses of Body.
type FmlQuant struct {
	Kind MultKind
	// QuantAll distinguishes "all x" from the cardinality quantifiers;
	// when true, Kind is ignored.
	All  bool
	Var  string
	Over Expr
	Body Formula
}

// FmlCall instantiates a named predicate with argument expressions.
type FmlCall struct {
	Pred string
	Args []Expr
}

func (FmlIn) isFormula()      {}
func (FmlEq) isFormula()      {}
func (FmlCard) isFormula()    {}
func (FmlNot) isFormula()     {}
func (FmlAnd) isFormula()     {}
func (FmlOr) isFormula()      {}
func (FmlImplies) isFormula() {}
func (FmlIff) isFormula()     {}
func (FmlQuant) isFormula()   {}
func (FmlCall) isFormula()    {}

func (f FmlIn) String() string   { return fmt.Sprintf("%s in %s", f.L, f.R) }
func (f FmlEq) String() string   { return fmt.Sprintf("%s = %s", f.L, f.R) }
func (f FmlCard) String() string { return fmt.Sprintf("%s %s", f.Kind, f.E) }
func (f FmlNot) String() string  { return fmt.Sprintf("not (%s)", f.F) }

func (f FmlAnd) String() string { return joinFormulas(f.Fs, " and ") }
func (f FmlOr) String() string  { return joinFormulas(f.Fs, " or ") }

func (f FmlImplies) String() string { return fmt.Sprintf("(%s) => (%s)", f.L, f.R) }
func (f FmlIff) String() string     { return fmt.Sprintf("(%s) <=> (%s)", f.L, f.R) }

func (f FmlQuant) String() string {
	kind := "all"
	if !f.All {
		kind = f.Kind.String()
	}
	return fmt.Sprintf("%s %s: %s | %s", kind, f.Var, f.Over, f.Body)
}

func (f FmlCall) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s[%s]", f.Pred, strings.Join(args, ", "))
}

func joinFormulas(fs []Formula, sep string) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = fmt.Sprintf("(%s)", f)
	}
	return strings.Join(parts, sep)
}

// Builder helpers.

// In is l in r.
func In(l, r Expr) Formula { return FmlIn{L: l, R: r} }

// Eq is l = r.
func Eq(l, r Expr) Formula { return FmlEq{L: l, R: r} }

// Some is some e.
func Some(e Expr) Formula { return FmlCard{Kind: CardSome, E: e} }

// No is no e.
func No(e Expr) Formula { return FmlCard{Kind: CardNo, E: e} }

// One is one e.
func One(e Expr) Formula { return FmlCard{Kind: CardOne, E: e} }

// Lone is lone e.
func Lone(e Expr) Formula { return FmlCard{Kind: CardLone, E: e} }

// Not negates f.
func Not(f Formula) Formula { return FmlNot{F: f} }

// And conjoins.
func And(fs ...Formula) Formula { return FmlAnd{Fs: fs} }

// Or disjoins.
func Or(fs ...Formula) Formula { return FmlOr{Fs: fs} }

// Implies is l => r.
func Implies(l, r Formula) Formula { return FmlImplies{L: l, R: r} }

// Iff is l <=> r.
func Iff(l, r Formula) Formula { return FmlIff{L: l, R: r} }

// All is all v: over | body.
func All(v string, over Expr, body Formula) Formula {
	return FmlQuant{All: true, Var: v, Over: over, Body: body}
}

// Exists is some v: over | body.
func Exists(v string, over Expr, body Formula) Formula {
	return FmlQuant{Kind: CardSome, Var: v, Over: over, Body: body}
}

// ExistsOne is one v: over | body.
func ExistsOne(v string, over Expr, body Formula) Formula {
	return FmlQuant{Kind: CardOne, Var: v, Over: over, Body: body}
}

// ForNo is no v: over | body.
func ForNo(v string, over Expr, body Formula) Formula {
	return FmlQuant{Kind: CardNo, Var: v, Over: over, Body: body}
}

// PredCall instantiates a predicate.
func PredCall(pred string, args ...Expr) Formula { return FmlCall{Pred: pred, Args: args} }

// SubstituteExpr replaces free variable references in e according to env.
// Substitution is purely syntactic; quantifier bodies shadow their bound
// variable (handled in SubstituteFormula).
func SubstituteExpr(e Expr, env map[string]Expr) Expr {
	switch x := e.(type) {
	case ExprVar:
		if repl, ok := env[x.Name]; ok {
			return repl
		}
		return x
	case ExprName:
		return x
	case ExprBin:
		return ExprBin{Op: x.Op, L: SubstituteExpr(x.L, env), R: SubstituteExpr(x.R, env)}
	case ExprTranspose:
		return ExprTranspose{E: SubstituteExpr(x.E, env)}
	case ExprCall:
		args := make([]Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = SubstituteExpr(a, env)
		}
		return ExprCall{Fun: x.Fun, Args: args}
	default:
		return e
	}
}

// SubstituteFormula replaces free variable references in f according to
// env. A quantifier shadows its own variable within its body.
func SubstituteFormula(f Formula, env map[string]Expr) Formula {
	switch x := f.(type) {
	case FmlIn:
		return FmlIn{L: SubstituteExpr(x.L, env), R: SubstituteExpr(x.R, env)}
	case FmlEq:
		return FmlEq{L: SubstituteExpr(x.L, env), R: SubstituteExpr(x.R, env)}
	case FmlCard:
		return FmlCard{Kind: x.Kind, E: SubstituteExpr(x.E, env)}
	case FmlNot:
		return FmlNot{F: SubstituteFormula(x.F, env)}
	case FmlAnd:
		return FmlAnd{Fs: substituteAll(x.Fs, env)}
	case FmlOr:
		return FmlOr{Fs: substituteAll(x.Fs, env)}
	case FmlImplies:
		return FmlImplies{L: SubstituteFormula(x.L, env), R: SubstituteFormula(x.R, env)}
	case FmlIff:
		return FmlIff{L: SubstituteFormula(x.L, env), R: SubstituteFormula(x.R, env)}
	case FmlQuant:
		inner := env
		if _, shadowed := env[x.Var]; shadowed {
			inner = make(map[string]Expr, len(env))
			for k, v := range env {
				if k != x.Var {
					inner[k] = v
				}
			}
		}
		return FmlQuant{
			Kind: x.Kind,
			All:  x.All,
			Var:  x.Var,
			Over: SubstituteExpr(x.Over, env),
			Body: SubstituteFormula(x.Body, inner),
		}
	case FmlCall:
		args := make([]Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = SubstituteExpr(a, env)
		}
		return FmlCall{Pred: x.Pred, Args: args}
	default:
		return f
	}
}

func substituteAll(fs []Formula, env map[string]Expr) []Formula {
	out := make([]Formula, len(fs))
	for i, f := range fs {
		out[i] = SubstituteFormula(f, env)
	}
	return out
}

// Refs returns the sorted set of relation and signature names a formula
// references, with predicate and function calls expanded through the
// model. The solver uses this to re-check only the facts touching a
// relation whose bounds changed.
func (m *Model) Refs(f Formula) []string {
	seen := make(map[string]bool)
	m.formulaRefs(f, seen, make(map[string]bool))
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (m *Model) formulaRefs(f Formula, seen map[string]bool, visiting map[string]bool) {
	switch x := f.(type) {
	case FmlIn:
		m.exprRefs(x.L, seen, visiting)
		m.exprRefs(x.R, seen, visiting)
	case FmlEq:
		m.exprRefs(x.L, seen, visiting)
		m.exprRefs(x.R, seen, visiting)
	case FmlCard:
		m.exprRefs(x.E, seen, visiting)
	case FmlNot:
		m.formulaRefs(x.F, seen, visiting)
	case FmlAnd:
		for _, g := range x.Fs {
			m.formulaRefs(g, seen, visiting)
		}
	case FmlOr:
		for _, g := range x.Fs {
			m.formulaRefs(g, seen, visiting)
		}
	case FmlImplies:
		m.formulaRefs(x.L, seen, visiting)
		m.formulaRefs(x.R, seen, visiting)
	case FmlIff:
		m.formulaRefs(x.L, seen, visiting)
		m.formulaRefs(x.R, seen, visiting)
	case FmlQuant:
		m.exprRefs(x.Over, seen, visiting)
		m.formulaRefs(x.Body, seen, visiting)
	case FmlCall:
		for _, a := range x.Args {
			m.exprRefs(a, seen, visiting)
		}
		if p, ok := m.PredByName(x.Pred); ok && !visiting["pred:"+x.Pred] {
			visiting["pred:"+x.Pred] = true
			m.formulaRefs(p.Body, seen, visiting)
		}
	}
}

func (m *Model) exprRefs(e Expr, seen map[string]bool, visiting map[string]bool) {
	switch x := e.(type) {
	case ExprName:
		seen[x.Name] = true
	case ExprVar:
		// bound variables carry no relation dependency
	case ExprBin:
		m.exprRefs(x.L, seen, visiting)
		m.exprRefs(x.R, seen, visiting)
	case ExprTranspose:
		m.exprRefs(x.E, seen, visiting)
	case ExprCall:
		for _, a := range x.Args {
			m.exprRefs(a, seen, visiting)
		}
		if fn, ok := m.FunByName(x.Fun); ok && !visiting["fun:"+x.Fun] {
			visiting["fun:"+x.Fun] = true
			m.exprRefs(fn.Body, seen, visiting)
		}
	}
}

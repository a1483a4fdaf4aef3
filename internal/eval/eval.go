// Package eval implements three-valued evaluation of formulas over
// partial relation values.
//
// While the search is still deciding tuples, a relation's value is a
// lower/upper bound pair, so a formula may be definitely true, definitely
// false, or not yet determined. Evaluation is monotone: once a formula
// reaches True or False under some bounds, narrowing the bounds further
// never changes the answer. The solver relies on this to prune a branch
// the moment any fact evaluates to False, and to accept early when the
// goal is True.
//
// On fully decided bounds the evaluator degenerates to classical
// two-valued semantics and never returns Unknown.
package eval

import (
	"github.com/eskang/RosAlloy/internal/ir"
	"github.com/eskang/RosAlloy/internal/relstore"
	"github.com/eskang/RosAlloy/internal/universe"
)

// Val is a Kleene truth value.
type Val int8

const (
	// False means no refinement of the current bounds satisfies the
	// formula.
	False Val = iota
	// Unknown means undecided tuples still influence the outcome.
	Unknown
	// True means every refinement of the current bounds satisfies the
	// formula.
	True
)

func (v Val) String() string {
	return [...]string{"false", "unknown", "true"}[v]
}

// Not negates under Kleene semantics; Unknown stays Unknown.
func (v Val) Not() Val { return True - v }

func and(a, b Val) Val {
	if a < b {
		return a
	}
	return b
}

func or(a, b Val) Val {
	if a > b {
		return a
	}
	return b
}

// Env binds quantifier variables to atoms. Binding returns a new frame;
// the zero value (nil) is the empty environment.
type Env struct {
	parent *Env
	name   string
	atom   universe.Atom
}

// Bind extends the environment with one binding.
func (e *Env) Bind(name string, atom universe.Atom) *Env {
	return &Env{parent: e, name: name, atom: atom}
}

// Lookup resolves a variable, innermost binding first.
func (e *Env) Lookup(name string) (universe.Atom, bool) {
	for f := e; f != nil; f = f.parent {
		if f.name == name {
			return f.atom, true
		}
	}
	return universe.Atom{}, false
}

// Evaluator evaluates expressions and formulas against a store. The model
// must have passed Validate; evaluation panics on names the validator
// would have rejected.
type Evaluator struct {
	model *ir.Model
	store *relstore.Store
}

// New builds an evaluator over a model and store. The store must hold a
// value for every leaf signature extent and every relation, ordering
// relations included.
func New(m *ir.Model, s *relstore.Store) *Evaluator {
	return &Evaluator{model: m, store: s}
}

// Expr evaluates a relational expression to bounds. Every operator is
// monotone in its operands; note difference swaps the roles, since a
// tuple is definitely in L - R only when it is definitely in L and
// definitely not in R.
func (ev *Evaluator) Expr(e ir.Expr, env *Env) relstore.Bounds {
	switch x := e.(type) {
	case ir.ExprName:
		return ev.resolve(x.Name)
	case ir.ExprVar:
		atom, ok := env.Lookup(x.Name)
		if !ok {
			panic("eval: unbound variable " + x.Name)
		}
		return relstore.Exact(relstore.Singleton(atom))
	case ir.ExprBin:
		l := ev.Expr(x.L, env)
		r := ev.Expr(x.R, env)
		switch x.Op {
		case ir.OpUnion:
			return relstore.Range(l.Lower.Union(r.Lower), l.Upper.Union(r.Upper))
		case ir.OpIntersect:
			return relstore.Range(l.Lower.Intersect(r.Lower), l.Upper.Intersect(r.Upper))
		case ir.OpDiff:
			return relstore.Range(l.Lower.Diff(r.Upper), l.Upper.Diff(r.Lower))
		case ir.OpJoin:
			return relstore.Range(l.Lower.Join(r.Lower), l.Upper.Join(r.Upper))
		case ir.OpProduct:
			return relstore.Range(l.Lower.Product(r.Lower), l.Upper.Product(r.Upper))
		}
		panic("eval: unknown binary operator")
	case ir.ExprTranspose:
		b := ev.Expr(x.E, env)
		return relstore.Range(b.Lower.Transpose(), b.Upper.Transpose())
	case ir.ExprCall:
		fn, ok := ev.model.FunByName(x.Fun)
		if !ok {
			panic("eval: call to undeclared function " + x.Fun)
		}
		return ev.Expr(ir.SubstituteExpr(fn.Body, bindArgs(fn.Params, x.Args)), env)
	default:
		panic("eval: unknown expression node")
	}
}

// Formula evaluates a formula to a Kleene truth value.
func (ev *Evaluator) Formula(f ir.Formula, env *Env) Val {
	switch x := f.(type) {
	case ir.FmlIn:
		return ev.subset(ev.Expr(x.L, env), ev.Expr(x.R, env))
	case ir.FmlEq:
		l := ev.Expr(x.L, env)
		r := ev.Expr(x.R, env)
		return and(ev.subset(l, r), ev.subset(r, l))
	case ir.FmlCard:
		b := ev.Expr(x.E, env)
		return cardVerdict(x.Kind, b.Lower.Len(), b.Upper.Len()-b.Lower.Len())
	case ir.FmlNot:
		return ev.Formula(x.F, env).Not()
	case ir.FmlAnd:
		v := True
		for _, g := range x.Fs {
			v = and(v, ev.Formula(g, env))
			if v == False {
				return False
			}
		}
		return v
	case ir.FmlOr:
		v := False
		for _, g := range x.Fs {
			v = or(v, ev.Formula(g, env))
			if v == True {
				return True
			}
		}
		return v
	case ir.FmlImplies:
		return or(ev.Formula(x.L, env).Not(), ev.Formula(x.R, env))
	case ir.FmlIff:
		l := ev.Formula(x.L, env)
		r := ev.Formula(x.R, env)
		return and(or(l.Not(), r), or(r.Not(), l))
	case ir.FmlQuant:
		return ev.quant(x, env)
	case ir.FmlCall:
		p, ok := ev.model.PredByName(x.Pred)
		if !ok {
			panic("eval: call to undeclared predicate " + x.Pred)
		}
		return ev.Formula(ir.SubstituteFormula(p.Body, bindArgs(p.Params, x.Args)), env)
	default:
		panic("eval: unknown formula node")
	}
}

// subset decides l in r over bounds: definitely true when even l's upper
// bound fits inside r's lower bound, definitely false when some definite
// tuple of l is already outside r's upper bound.
func (ev *Evaluator) subset(l, r relstore.Bounds) Val {
	if l.Upper.SubsetOf(r.Lower) {
		return True
	}
	if !l.Lower.SubsetOf(r.Upper) {
		return False
	}
	return Unknown
}

// quant evaluates a quantified formula by counting witnesses. A definite
// witness is a definite domain atom whose body is True; a possible
// witness is any atom that could still turn out to satisfy the body,
// either because the body is Unknown or because the atom's domain
// membership is.
//
// "all" is evaluated as the absence of counter-witnesses to the body.
func (ev *Evaluator) quant(q ir.FmlQuant, env *Env) Val {
	dom := ev.Expr(q.Over, env)
	kind := q.Kind
	negate := false
	if q.All {
		kind = ir.CardNo
		negate = true
	}

	definite, possible := 0, 0
	count := func(atoms []relstore.Tuple, member bool) {
		for _, t := range atoms {
			v := ev.Formula(q.Body, env.Bind(q.Var, t[0]))
			if negate {
				v = v.Not()
			}
			switch {
			case member && v == True:
				definite++
			case member && v == Unknown:
				possible++
			case !member && v != False:
				possible++
			}
		}
	}
	count(dom.Lower.Tuples(), true)
	count(dom.Upper.Diff(dom.Lower).Tuples(), false)
	return cardVerdict(kind, definite, possible)
}

// FailingWitness finds the first binding that refutes a universally
// quantified formula, for diagnostics when a fact is False. ok is false
// when the formula is not a universal quantifier or no single definite
// domain atom refutes the body.
func (ev *Evaluator) FailingWitness(f ir.Formula, env *Env) (universe.Atom, bool) {
	q, ok := f.(ir.FmlQuant)
	if !ok || !q.All {
		return universe.Atom{}, false
	}
	for _, t := range ev.Expr(q.Over, env).Lower.Tuples() {
		if ev.Formula(q.Body, env.Bind(q.Var, t[0])) == False {
			return t[0], true
		}
	}
	return universe.Atom{}, false
}

// cardVerdict decides a cardinality test from the number of definite
// elements and the number of further possible ones.
func cardVerdict(kind ir.MultKind, definite, possible int) Val {
	switch kind {
	case ir.CardSome:
		switch {
		case definite >= 1:
			return True
		case definite+possible == 0:
			return False
		default:
			return Unknown
		}
	case ir.CardNo:
		switch {
		case definite >= 1:
			return False
		case definite+possible == 0:
			return True
		default:
			return Unknown
		}
	case ir.CardOne:
		switch {
		case definite >= 2:
			return False
		case definite+possible == 0:
			return False
		case definite == 1 && possible == 0:
			return True
		default:
			return Unknown
		}
	case ir.CardLone:
		switch {
		case definite >= 2:
			return False
		case definite+possible <= 1:
			return True
		default:
			return Unknown
		}
	}
	panic("eval: unknown cardinality kind")
}

// resolve looks a name up in the store, falling back to the union of leaf
// extents for abstract signatures.
func (ev *Evaluator) resolve(name string) relstore.Bounds {
	if b, ok := ev.store.Bounds(name); ok {
		return b
	}
	if s, ok := ev.model.SigByName(name); ok && s.Abstract {
		lower := relstore.EmptySet()
		upper := relstore.EmptySet()
		for _, leaf := range ev.model.Leaves() {
			if !ev.model.Descends(leaf.Name, name) {
				continue
			}
			if b, ok := ev.store.Bounds(leaf.Name); ok {
				lower = lower.Union(b.Lower)
				upper = upper.Union(b.Upper)
			}
		}
		return relstore.Range(lower, upper)
	}
	panic("eval: no store value for " + name)
}

func bindArgs(params []ir.Param, args []ir.Expr) map[string]ir.Expr {
	bound := make(map[string]ir.Expr, len(params))
	for i, p := range params {
		bound[p.Name] = args[i]
	}
	return bound
}

package ir

import "fmt"

// ModelError reports a semantic problem in a model: an undeclared
// signature or relation, an arity mismatch, or a malformed declaration.
// Model errors surface at load time; a model that fails validation never
// reaches the solver.
type ModelError struct {
	// Name identifies the offending declaration (signature, relation,
	// fact, predicate, function, or command name).
	Name string
	// Reason describes the problem.
	Reason string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model error in %q: %s", e.Name, e.Reason)
}

func modelErrf(name, format string, args ...any) *ModelError {
	return &ModelError{Name: name, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the model's internal consistency: unique names, a
// well-formed signature tree, resolvable references, and arity-correct
// formulas. Returns a *ModelError describing the first problem found.
func (m *Model) Validate() error {
	names := make(map[string]string) // name -> kind, shared sig/rel namespace

	for _, s := range m.Sigs {
		if s.Name == "" {
			return modelErrf("(sig)", "signature with empty name")
		}
		if kind, dup := names[s.Name]; dup {
			return modelErrf(s.Name, "name already declared as %s", kind)
		}
		names[s.Name] = "signature"
	}

	for _, s := range m.Sigs {
		if s.Parent != "" {
			parent, ok := m.SigByName(s.Parent)
			if !ok {
				return modelErrf(s.Name, "parent signature %q not declared", s.Parent)
			}
			if !parent.Abstract {
				return modelErrf(s.Name, "parent signature %q must be abstract", s.Parent)
			}
		}
		if s.Abstract && s.Mult != MultSet {
			return modelErrf(s.Name, "abstract signature cannot carry %s multiplicity", s.Mult)
		}
		if s.Ordered && s.Abstract {
			return modelErrf(s.Name, "ordered signature cannot be abstract")
		}
		if err := m.checkSigCycle(s); err != nil {
			return err
		}
	}

	for _, r := range m.OrderingRels() {
		names[r.Name] = "ordering relation"
	}
	for _, r := range m.Rels {
		if r.Name == "" {
			return modelErrf("(rel)", "relation with empty name")
		}
		if kind, dup := names[r.Name]; dup {
			return modelErrf(r.Name, "name already declared as %s", kind)
		}
		names[r.Name] = "relation"
		if len(r.Columns) == 0 {
			return modelErrf(r.Name, "relation must have at least one column")
		}
		for i, col := range r.Columns {
			if _, ok := m.SigByName(col); !ok {
				return modelErrf(r.Name, "column %d references undeclared signature %q", i, col)
			}
		}
	}

	// Recursion through predicate/function calls would make bounded
	// evaluation non-terminating; reject it up front.
	if err := m.checkCallGraph(); err != nil {
		return err
	}

	for _, f := range m.Facts {
		if err := m.checkFormula(f.Name, f.Body, paramScope(nil)); err != nil {
			return err
		}
	}
	for _, p := range m.Preds {
		if err := m.checkFormula(p.Name, p.Body, paramScope(p.Params)); err != nil {
			return err
		}
	}
	for _, fn := range m.Funs {
		if _, err := m.exprArity(fn.Name, fn.Body, paramScope(fn.Params)); err != nil {
			return err
		}
	}

	for _, c := range m.Commands {
		p, ok := m.PredByName(c.Pred)
		if !ok {
			return modelErrf(c.Name, "command references undeclared predicate %q", c.Pred)
		}
		if len(p.Params) != 0 {
			return modelErrf(c.Name, "command predicate %q must take no parameters", c.Pred)
		}
	}

	return nil
}

func (m *Model) checkSigCycle(s Sig) error {
	slow := s.Name
	seen := map[string]bool{}
	for cur := s.Name; cur != ""; {
		if seen[cur] {
			return modelErrf(slow, "signature inheritance cycle through %q", cur)
		}
		seen[cur] = true
		sig, ok := m.SigByName(cur)
		if !ok {
			return nil // undeclared parent reported elsewhere
		}
		cur = sig.Parent
	}
	return nil
}

// checkCallGraph rejects recursive predicate/function call chains.
func (m *Model) checkCallGraph() error {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int)

	var visitFormula func(owner string, f Formula) error
	var visitExpr func(owner string, e Expr) error

	var visitPred func(name string) error
	var visitFun func(name string) error

	visitPred = func(name string) error {
		key := "pred:" + name
		switch state[key] {
		case inStack:
			return modelErrf(name, "recursive predicate call chain")
		case done:
			return nil
		}
		state[key] = inStack
		if p, ok := m.PredByName(name); ok {
			if err := visitFormula(name, p.Body); err != nil {
				return err
			}
		}
		state[key] = done
		return nil
	}
	visitFun = func(name string) error {
		key := "fun:" + name
		switch state[key] {
		case inStack:
			return modelErrf(name, "recursive function call chain")
		case done:
			return nil
		}
		state[key] = inStack
		if fn, ok := m.FunByName(name); ok {
			if err := visitExpr(name, fn.Body); err != nil {
				return err
			}
		}
		state[key] = done
		return nil
	}

	visitExpr = func(owner string, e Expr) error {
		switch x := e.(type) {
		case ExprBin:
			if err := visitExpr(owner, x.L); err != nil {
				return err
			}
			return visitExpr(owner, x.R)
		case ExprTranspose:
			return visitExpr(owner, x.E)
		case ExprCall:
			for _, a := range x.Args {
				if err := visitExpr(owner, a); err != nil {
					return err
				}
			}
			return visitFun(x.Fun)
		}
		return nil
	}
	visitFormula = func(owner string, f Formula) error {
		switch x := f.(type) {
		case FmlIn:
			if err := visitExpr(owner, x.L); err != nil {
				return err
			}
			return visitExpr(owner, x.R)
		case FmlEq:
			if err := visitExpr(owner, x.L); err != nil {
				return err
			}
			return visitExpr(owner, x.R)
		case FmlCard:
			return visitExpr(owner, x.E)
		case FmlNot:
			return visitFormula(owner, x.F)
		case FmlAnd:
			for _, g := range x.Fs {
				if err := visitFormula(owner, g); err != nil {
					return err
				}
			}
		case FmlOr:
			for _, g := range x.Fs {
				if err := visitFormula(owner, g); err != nil {
					return err
				}
			}
		case FmlImplies:
			if err := visitFormula(owner, x.L); err != nil {
				return err
			}
			return visitFormula(owner, x.R)
		case FmlIff:
			if err := visitFormula(owner, x.L); err != nil {
				return err
			}
			return visitFormula(owner, x.R)
		case FmlQuant:
			if err := visitExpr(owner, x.Over); err != nil {
				return err
			}
			return visitFormula(owner, x.Body)
		case FmlCall:
			for _, a := range x.Args {
				if err := visitExpr(owner, a); err != nil {
					return err
				}
			}
			return visitPred(x.Pred)
		}
		return nil
	}

	for _, p := range m.Preds {
		if err := visitPred(p.Name); err != nil {
			return err
		}
	}
	for _, fn := range m.Funs {
		if err := visitFun(fn.Name); err != nil {
			return err
		}
	}
	for _, f := range m.Facts {
		if err := visitFormula(f.Name, f.Body); err != nil {
			return err
		}
	}
	return nil
}

func paramScope(params []Param) map[string]bool {
	vars := make(map[string]bool, len(params))
	for _, p := range params {
		vars[p.Name] = true
	}
	return vars
}

func (m *Model) checkFormula(owner string, f Formula, vars map[string]bool) error {
	switch x := f.(type) {
	case FmlIn:
		return m.checkSameArity(owner, x.L, x.R, vars)
	case FmlEq:
		return m.checkSameArity(owner, x.L, x.R, vars)
	case FmlCard:
		_, err := m.exprArity(owner, x.E, vars)
		return err
	case FmlNot:
		return m.checkFormula(owner, x.F, vars)
	case FmlAnd:
		for _, g := range x.Fs {
			if err := m.checkFormula(owner, g, vars); err != nil {
				return err
			}
		}
		return nil
	case FmlOr:
		for _, g := range x.Fs {
			if err := m.checkFormula(owner, g, vars); err != nil {
				return err
			}
		}
		return nil
	case FmlImplies:
		if err := m.checkFormula(owner, x.L, vars); err != nil {
			return err
		}
		return m.checkFormula(owner, x.R, vars)
	case FmlIff:
		if err := m.checkFormula(owner, x.L, vars); err != nil {
			return err
		}
		return m.checkFormula(owner, x.R, vars)
	case FmlQuant:
		n, err := m.exprArity(owner, x.Over, vars)
		if err != nil {
			return err
		}
		if n != 1 {
			return modelErrf(owner, "quantifier over %q must range over a unary expression, got arity %d", x.Over, n)
		}
		inner := make(map[string]bool, len(vars)+1)
		for v := range vars {
			inner[v] = true
		}
		inner[x.Var] = true
		return m.checkFormula(owner, x.Body, inner)
	case FmlCall:
		p, ok := m.PredByName(x.Pred)
		if !ok {
			return modelErrf(owner, "call to undeclared predicate %q", x.Pred)
		}
		if len(x.Args) != len(p.Params) {
			return modelErrf(owner, "predicate %q takes %d arguments, got %d", x.Pred, len(p.Params), len(x.Args))
		}
		for _, a := range x.Args {
			n, err := m.exprArity(owner, a, vars)
			if err != nil {
				return err
			}
			if n != 1 {
				return modelErrf(owner, "predicate argument %q must be unary, got arity %d", a, n)
			}
		}
		return nil
	default:
		return modelErrf(owner, "unknown formula node %T", f)
	}
}

func (m *Model) checkSameArity(owner string, l, r Expr, vars map[string]bool) error {
	ln, err := m.exprArity(owner, l, vars)
	if err != nil {
		return err
	}
	rn, err := m.exprArity(owner, r, vars)
	if err != nil {
		return err
	}
	if ln != rn {
		return modelErrf(owner, "arity mismatch: %q has arity %d, %q has arity %d", l, ln, r, rn)
	}
	return nil
}

// exprArity resolves names and computes the column count of an expression.
func (m *Model) exprArity(owner string, e Expr, vars map[string]bool) (int, error) {
	switch x := e.(type) {
	case ExprName:
		if n, ok := m.Arity(x.Name); ok {
			return n, nil
		}
		return 0, modelErrf(owner, "reference to undeclared signature or relation %q", x.Name)
	case ExprVar:
		if !vars[x.Name] {
			return 0, modelErrf(owner, "unbound variable %q", x.Name)
		}
		return 1, nil
	case ExprBin:
		ln, err := m.exprArity(owner, x.L, vars)
		if err != nil {
			return 0, err
		}
		rn, err := m.exprArity(owner, x.R, vars)
		if err != nil {
			return 0, err
		}
		switch x.Op {
		case OpJoin:
			n := ln + rn - 2
			if n < 1 {
				return 0, modelErrf(owner, "join %q of two unary expressions has no columns", x)
			}
			return n, nil
		case OpProduct:
			return ln + rn, nil
		default:
			if ln != rn {
				return 0, modelErrf(owner, "arity mismatch in %q: %d vs %d", x, ln, rn)
			}
			return ln, nil
		}
	case ExprTranspose:
		n, err := m.exprArity(owner, x.E, vars)
		if err != nil {
			return 0, err
		}
		if n != 2 {
			return 0, modelErrf(owner, "transpose requires a binary expression, %q has arity %d", x.E, n)
		}
		return 2, nil
	case ExprCall:
		fn, ok := m.FunByName(x.Fun)
		if !ok {
			return 0, modelErrf(owner, "call to undeclared function %q", x.Fun)
		}
		if len(x.Args) != len(fn.Params) {
			return 0, modelErrf(owner, "function %q takes %d arguments, got %d", x.Fun, len(fn.Params), len(x.Args))
		}
		for _, a := range x.Args {
			n, err := m.exprArity(owner, a, vars)
			if err != nil {
				return 0, err
			}
			if n != 1 {
				return 0, modelErrf(owner, "function argument %q must be unary, got arity %d", a, n)
			}
		}
		return m.exprArity(x.Fun, fn.Body, paramScope(fn.Params))
	default:
		return 0, modelErrf(owner, "unknown expression node %T", e)
	}
}

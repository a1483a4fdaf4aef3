package ir

import (
	"fmt"
	"strings"
)

// Expr is a relational expression. Expressions evaluate to tuple sets.
type Expr interface {
	isExpr()
	String() string
}

// ExprName references a declared relation, signature extent, or ordering
// relation by name. Signatures and relations share one namespace.
type ExprName struct{ Name string }

// ExprVar references a quantifier-bound variable (a singleton atom).
type ExprVar struct{ Name string }

// ExprBinKind identifies a binary relational operator.
type ExprBinKind int

const (
	// OpUnion is set union (+).
	OpUnion ExprBinKind = iota
	// OpDiff is set difference (-).
	OpDiff
	// OpIntersect is set intersection (&).
	OpIntersect
	// OpJoin is the relational dot join: tuples of the left and right
	// operands are merged where the left's last column equals the right's
	// first, dropping the matched column pair.
	OpJoin
	// OpProduct is the cartesian product (->).
	OpProduct
)

// ExprBin applies a binary relational operator.
type ExprBin struct {
	Op   ExprBinKind
	L, R Expr
}

// ExprTranspose reverses the columns of a binary expression (~).
type ExprTranspose struct{ E Expr }

// ExprCall instantiates a named function with argument expressions.
type ExprCall struct {
	Fun  string
	Args []Expr
}

func (ExprName) isExpr()      {}
func (ExprVar) isExpr()       {}
func (ExprBin) isExpr()       {}
func (ExprTranspose) isExpr() {}
func (ExprCall) isExpr()      {}

func (e ExprName) String() string { return e.Name }
func (e ExprVar) String() string  { return e.Name }

func (e ExprBin) String() string {
	op := map[ExprBinKind]string{
		OpUnion:     " + ",
		OpDiff:      " - ",
		OpIntersect: " & ",
		OpJoin:      ".",
		OpProduct:   " -> ",
	}[e.Op]
	return fmt.Sprintf("(%s%s%s)", e.L, op, e.R)
}

func (e ExprTranspose) String() string { return fmt.Sprintf("~%s", e.E) }

func (e ExprCall) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s[%s]", e.Fun, strings.Join(args, ", "))
}

// Builder helpers. Tests and fixtures construct ASTs through these so the
// model reads close to its surface syntax.

// Name references a relation or signature.
func Name(name string) Expr { return ExprName{Name: name} }

// Var references a bound variable.
func Var(name string) Expr { return ExprVar{Name: name} }

// Union is l + r.
func Union(l, r Expr) Expr { return ExprBin{Op: OpUnion, L: l, R: r} }

// Diff is l - r.
func Diff(l, r Expr) Expr { return ExprBin{Op: OpDiff, L: l, R: r} }

// Intersect is l & r.
func Intersect(l, r Expr) Expr { return ExprBin{Op: OpIntersect, L: l, R: r} }

// Join is the dot join l.r; it folds left over additional operands, so
// Join(a, b, c) is (a.b).c.
func Join(exprs ...Expr) Expr {
	e := exprs[0]
	for _, next := range exprs[1:] {
		e = ExprBin{Op: OpJoin, L: e, R: next}
	}
	return e
}

// Product is l -> r.
func Product(l, r Expr) Expr { return ExprBin{Op: OpProduct, L: l, R: r} }

// Transpose is ~e.
func Transpose(e Expr) Expr { return ExprTranspose{E: e} }

// Call instantiates a function.
func Call(fun string, args ...Expr) Expr { return ExprCall{Fun: fun, Args: args} }

// First references the first-atom ordering relation of an ordered sig.
func First(sig string) Expr { return Name(OrderingRelName(sig, OrdFirst)) }

// Last references the last-atom ordering relation of an ordered sig.
func Last(sig string) Expr { return Name(OrderingRelName(sig, OrdLast)) }

// Next references the successor ordering relation of an ordered sig.
func Next(sig string) Expr { return Name(OrderingRelName(sig, OrdNext)) }

// Prevs references the strict-predecessors ordering relation of an
// ordered sig.
func Prevs(sig string) Expr { return Name(OrderingRelName(sig, OrdPrevs)) }

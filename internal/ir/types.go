package ir

import "fmt"

// Mult is a multiplicity annotation on signatures and relations.
type Mult int

const (
	// MultSet places no cardinality constraint (the default).
	MultSet Mult = iota
	// MultOne requires exactly one: one atom for a signature, exactly one
	// tuple per column prefix for a relation.
	MultOne
	// MultLone requires at most one.
	MultLone
)

func (m Mult) String() string {
	switch m {
	case MultOne:
		return "one"
	case MultLone:
		return "lone"
	default:
		return "set"
	}
}

// Sig declares a signature: a named set of atoms. Signatures form a
// single-inheritance tree; a signature with children must be abstract, and
// the children's atom sets partition the parent's.
type Sig struct {
	Name string
	// Parent is the name of the parent signature, or "" for a root.
	Parent string
	// Abstract signatures own no atoms of their own; their extent is the
	// union of their children's extents.
	Abstract bool
	// Mult constrains the signature's cardinality (one/lone); MultSet
	// leaves it to the scope.
	Mult Mult
	// Ordered signatures get a total order generated per scope, exposed
	// through the ordering relations (see OrderingRels).
	Ordered bool
}

// Rel declares a relation: a named set of atom tuples. Columns name the
// signature each tuple position is drawn from (subtypes included).
type Rel struct {
	Name    string
	Columns []string
	// Mult constrains the number of tuples per prefix: for MultOne, every
	// live combination of the first len(Columns)-1 columns must appear in
	// exactly one tuple; MultLone in at most one. For a unary relation the
	// prefix is empty and the constraint is on the whole tuple set.
	Mult Mult
}

// Arity returns the number of columns.
func (r Rel) Arity() int { return len(r.Columns) }

// Fact is an unconditional constraint every instance must satisfy.
type Fact struct {
	Name string
	Body Formula
}

// Param is a named predicate or function parameter bound to a signature.
type Param struct {
	Name string
	Sig  string
}

// Pred is a named, parameterized constraint template.
type Pred struct {
	Name   string
	Params []Param
	Body   Formula
}

// Fun is a named, parameterized relational expression template.
type Fun struct {
	Name   string
	Params []Param
	Body   Expr
}

// CommandKind distinguishes check commands (search for a counterexample to
// a property) from run commands (search for a witness of a predicate).
type CommandKind int

const (
	// CommandCheck solves facts plus the negated predicate.
	CommandCheck CommandKind = iota
	// CommandRun solves facts plus the predicate directly.
	CommandRun
)

func (k CommandKind) String() string {
	if k == CommandRun {
		return "run"
	}
	return "check"
}

// ScopeSpec requests per-signature cardinality bounds for one analysis run.
type ScopeSpec struct {
	// Default is the bound applied to signatures without an explicit entry.
	Default int
	// Bounds overrides the default per signature name.
	Bounds map[string]int
	// Exact marks signatures whose bound is exact rather than an upper
	// bound. One-signatures and ordered signatures are always exact.
	Exact map[string]bool
}

// Bound returns the requested bound for sig and whether it was explicit.
func (s ScopeSpec) Bound(sig string) (int, bool) {
	if n, ok := s.Bounds[sig]; ok {
		return n, true
	}
	return s.Default, false
}

// Command names an analysis to perform: check or run a predicate within a
// scope.
type Command struct {
	Name  string
	Kind  CommandKind
	Pred  string
	Scope ScopeSpec
}

// Model is a complete abstract model: the engine's input.
type Model struct {
	Name     string
	Sigs     []Sig
	Rels     []Rel
	Facts    []Fact
	Preds    []Pred
	Funs     []Fun
	Commands []Command
}

// SigByName returns the signature declaration, if present.
func (m *Model) SigByName(name string) (Sig, bool) {
	for _, s := range m.Sigs {
		if s.Name == name {
			return s, true
		}
	}
	return Sig{}, false
}

// RelByName returns the relation declaration, if present. Ordering
// relations of ordered signatures are included.
func (m *Model) RelByName(name string) (Rel, bool) {
	for _, r := range m.Rels {
		if r.Name == name {
			return r, true
		}
	}
	for _, r := range m.OrderingRels() {
		if r.Name == name {
			return r, true
		}
	}
	return Rel{}, false
}

// PredByName returns the predicate declaration, if present.
func (m *Model) PredByName(name string) (Pred, bool) {
	for _, p := range m.Preds {
		if p.Name == name {
			return p, true
		}
	}
	return Pred{}, false
}

// FunByName returns the function declaration, if present.
func (m *Model) FunByName(name string) (Fun, bool) {
	for _, f := range m.Funs {
		if f.Name == name {
			return f, true
		}
	}
	return Fun{}, false
}

// CommandByName returns the command declaration, if present.
func (m *Model) CommandByName(name string) (Command, bool) {
	for _, c := range m.Commands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

// Children returns the direct subtypes of sig, in declaration order.
func (m *Model) Children(sig string) []Sig {
	var kids []Sig
	for _, s := range m.Sigs {
		if s.Parent == sig {
			kids = append(kids, s)
		}
	}
	return kids
}

// Leaves returns the non-abstract signatures, in declaration order. Only
// leaves own atoms; an abstract signature's extent is the union of its
// descendants' extents.
func (m *Model) Leaves() []Sig {
	var leaves []Sig
	for _, s := range m.Sigs {
		if !s.Abstract {
			leaves = append(leaves, s)
		}
	}
	return leaves
}

// Descends reports whether sub equals anc or lies below it in the
// signature tree.
func (m *Model) Descends(sub, anc string) bool {
	for sub != "" {
		if sub == anc {
			return true
		}
		s, ok := m.SigByName(sub)
		if !ok {
			return false
		}
		sub = s.Parent
	}
	return false
}

// Ordering relation name suffixes. For an ordered signature S the scope
// manager installs S/first and S/last (unary) and S/next and S/prevs
// (binary) as ordinary exact relations the evaluator can join against.
const (
	OrdFirst = "first"
	OrdLast  = "last"
	OrdNext  = "next"
	OrdPrevs = "prevs"
)

// OrderingRelName builds the reserved relation name for an ordered
// signature, e.g. OrderingRelName("Time", OrdNext) == "Time/next".
func OrderingRelName(sig, which string) string {
	return fmt.Sprintf("%s/%s", sig, which)
}

// OrderingRels returns the implicit relation declarations generated for
// every ordered signature.
func (m *Model) OrderingRels() []Rel {
	var rels []Rel
	for _, s := range m.Sigs {
		if !s.Ordered {
			continue
		}
		rels = append(rels,
			Rel{Name: OrderingRelName(s.Name, OrdFirst), Columns: []string{s.Name}},
			Rel{Name: OrderingRelName(s.Name, OrdLast), Columns: []string{s.Name}},
			Rel{Name: OrderingRelName(s.Name, OrdNext), Columns: []string{s.Name, s.Name}},
			Rel{Name: OrderingRelName(s.Name, OrdPrevs), Columns: []string{s.Name, s.Name}},
		)
	}
	return rels
}

// Arity returns the column count of the named signature (1), declared
// relation, or ordering relation. The second result is false for unknown
// names.
func (m *Model) Arity(name string) (int, bool) {
	if _, ok := m.SigByName(name); ok {
		return 1, true
	}
	if r, ok := m.RelByName(name); ok {
		return r.Arity(), true
	}
	return 0, false
}

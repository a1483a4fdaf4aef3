package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eskang/RosAlloy/internal/ir"
	"github.com/eskang/RosAlloy/internal/relstore"
	"github.com/eskang/RosAlloy/internal/universe"
)

func atom(sig string, idx int) universe.Atom {
	return universe.Atom{Sig: sig, Idx: idx}
}

func unary(atoms ...universe.Atom) relstore.TupleSet {
	return relstore.FromAtoms(atoms)
}

func pair(a, b universe.Atom) relstore.Tuple {
	return relstore.Tuple{a, b}
}

// evalModel declares a small messaging vocabulary: messages are stamped
// with a time and nodes send messages.
func evalModel() *ir.Model {
	return &ir.Model{
		Name: "eval",
		Sigs: []ir.Sig{
			{Name: "Time", Ordered: true},
			{Name: "Node", Abstract: true},
			{Name: "Sender", Parent: "Node", Mult: ir.MultOne},
			{Name: "Receiver", Parent: "Node", Mult: ir.MultOne},
			{Name: "Msg"},
		},
		Rels: []ir.Rel{
			{Name: "at", Columns: []string{"Msg", "Time"}, Mult: ir.MultOne},
			{Name: "sent", Columns: []string{"Node", "Msg"}},
		},
		Preds: []ir.Pred{
			{
				Name:   "stamped",
				Params: []ir.Param{{Name: "m", Sig: "Msg"}},
				Body:   ir.Some(ir.Join(ir.Var("m"), ir.Name("at"))),
			},
		},
		Funs: []ir.Fun{
			{
				Name:   "msgsAt",
				Params: []ir.Param{{Name: "t", Sig: "Time"}},
				Body:   ir.Join(ir.Name("at"), ir.Var("t")),
			},
		},
	}
}

// decidedStore pins every extent and relation: two times, one sender, one
// receiver, two messages, both stamped, the sender sent both.
func decidedStore() *relstore.Store {
	return relstore.NewStore(map[string]relstore.Bounds{
		"Time":     relstore.Exact(unary(atom("Time", 0), atom("Time", 1))),
		"Sender":   relstore.Exact(unary(atom("Sender", 0))),
		"Receiver": relstore.Exact(unary(atom("Receiver", 0))),
		"Msg":      relstore.Exact(unary(atom("Msg", 0), atom("Msg", 1))),
		"at": relstore.Exact(relstore.NewTupleSet(
			pair(atom("Msg", 0), atom("Time", 0)),
			pair(atom("Msg", 1), atom("Time", 1)),
		)),
		"sent": relstore.Exact(relstore.NewTupleSet(
			pair(atom("Sender", 0), atom("Msg", 0)),
			pair(atom("Sender", 0), atom("Msg", 1)),
		)),
	})
}

func TestClassicalEvaluationOnDecidedStore(t *testing.T) {
	m := evalModel()
	s := decidedStore()
	s.Set("Time/first", relstore.Exact(unary(atom("Time", 0))))
	ev := New(m, s)

	tests := []struct {
		name string
		f    ir.Formula
		want Val
	}{
		{"subset holds", ir.In(ir.Join(ir.Name("Sender"), ir.Name("sent")), ir.Name("Msg")), True},
		{"subset fails", ir.In(ir.Name("Msg"), ir.Join(ir.Name("Receiver"), ir.Name("sent"))), False},
		{"every message stamped once", ir.All("m", ir.Name("Msg"), ir.One(ir.Join(ir.Var("m"), ir.Name("at")))), True},
		{"receiver sent nothing", ir.No(ir.Join(ir.Name("Receiver"), ir.Name("sent"))), True},
		{"witness via ordering relation", ir.Exists("m", ir.Name("Msg"), ir.In(ir.Join(ir.Var("m"), ir.Name("at")), ir.First("Time"))), True},
		{"negation", ir.Not(ir.Some(ir.Join(ir.Name("Receiver"), ir.Name("sent")))), True},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ev.Formula(tt.f, nil),
				"decided bounds must evaluate classically")
		})
	}
}

func TestUnknownUntilDecided(t *testing.T) {
	m := evalModel()
	s := decidedStore()
	// Reopen sent: nothing decided in, everything still possible.
	allSent := relstore.NewTupleSet(
		pair(atom("Sender", 0), atom("Msg", 0)),
		pair(atom("Sender", 0), atom("Msg", 1)),
	)
	s.Set("sent", relstore.Range(relstore.EmptySet(), allSent))
	ev := New(m, s)

	f := ir.Some(ir.Name("sent"))
	assert.Equal(t, Unknown, ev.Formula(f, nil))

	// Deciding one tuple in settles it.
	b, _ := s.Bounds("sent")
	s.Set("sent", b.Include(pair(atom("Sender", 0), atom("Msg", 0))))
	assert.Equal(t, True, ev.Formula(f, nil))

	// An empty upper bound settles the negation.
	s.Set("sent", relstore.Range(relstore.EmptySet(), relstore.EmptySet()))
	assert.Equal(t, True, ev.Formula(ir.No(ir.Name("sent")), nil))
}

func TestDifferenceSwapsBounds(t *testing.T) {
	m := evalModel()
	s := decidedStore()
	// stamped messages undecided: lower empty, upper everything.
	s.Set("at", relstore.Range(relstore.EmptySet(), relstore.NewTupleSet(
		pair(atom("Msg", 0), atom("Time", 0)),
		pair(atom("Msg", 1), atom("Time", 1)),
	)))
	ev := New(m, s)

	// Msg - at.Time: no message is definitely unstamped while at is open,
	// but every message still possibly is.
	b := ev.Expr(ir.Diff(ir.Name("Msg"), ir.Join(ir.Name("at"), ir.Name("Time"))), nil)
	assert.True(t, b.Lower.Empty())
	assert.Equal(t, 2, b.Upper.Len())
}

func TestQuantifierOverPossibleDomainAtoms(t *testing.T) {
	m := evalModel()
	s := decidedStore()
	// Msg$1 may or may not exist in this candidate.
	s.Set("Msg", relstore.Range(unary(atom("Msg", 0)), unary(atom("Msg", 0), atom("Msg", 1))))
	// Msg$1 is definitely unstamped, Msg$0 definitely stamped.
	s.Set("at", relstore.Exact(relstore.NewTupleSet(pair(atom("Msg", 0), atom("Time", 0)))))
	ev := New(m, s)

	f := ir.All("m", ir.Name("Msg"), ir.Some(ir.Join(ir.Var("m"), ir.Name("at"))))
	assert.Equal(t, Unknown, ev.Formula(f, nil),
		"a counter-witness that only possibly exists must not falsify")

	// Once Msg$1 definitely exists the counter-witness is real.
	s.Set("Msg", relstore.Exact(unary(atom("Msg", 0), atom("Msg", 1))))
	assert.Equal(t, False, ev.Formula(f, nil))

	// And once it definitely does not, the quantifier closes true.
	s.Set("Msg", relstore.Exact(unary(atom("Msg", 0))))
	assert.Equal(t, True, ev.Formula(f, nil))
}

func TestAbstractSigResolvesToLeafUnion(t *testing.T) {
	m := evalModel()
	ev := New(m, decidedStore())

	b := ev.Expr(ir.Name("Node"), nil)
	require.True(t, b.Decided())
	assert.True(t, b.Lower.Equal(unary(atom("Receiver", 0), atom("Sender", 0))))
}

func TestPredAndFunCalls(t *testing.T) {
	m := evalModel()
	ev := New(m, decidedStore())

	assert.Equal(t, True, ev.Formula(ir.All("m", ir.Name("Msg"), ir.PredCall("stamped", ir.Var("m"))), nil))

	b := ev.Expr(ir.Call("msgsAt", ir.Name("Time")), nil)
	assert.Equal(t, 2, b.Lower.Len(), "every message is stamped at some time")
}

func TestFailingWitness(t *testing.T) {
	m := evalModel()
	s := decidedStore()
	// Msg$1 loses its stamp: the universal fails on exactly that atom.
	s.Set("at", relstore.Exact(relstore.NewTupleSet(pair(atom("Msg", 0), atom("Time", 0)))))
	ev := New(m, s)

	f := ir.All("m", ir.Name("Msg"), ir.Some(ir.Join(ir.Var("m"), ir.Name("at"))))
	require.Equal(t, False, ev.Formula(f, nil))

	w, ok := ev.FailingWitness(f, nil)
	require.True(t, ok)
	assert.Equal(t, "Msg$1", w.ID())

	// A satisfied universal has no failing witness.
	_, ok = ev.FailingWitness(ir.All("m", ir.Name("Msg"), ir.Lone(ir.Join(ir.Var("m"), ir.Name("at")))), nil)
	assert.False(t, ok)
}

func TestCardinalityVerdicts(t *testing.T) {
	tests := []struct {
		kind               ir.MultKind
		definite, possible int
		want               Val
	}{
		{ir.CardSome, 1, 0, True},
		{ir.CardSome, 0, 2, Unknown},
		{ir.CardSome, 0, 0, False},
		{ir.CardNo, 0, 0, True},
		{ir.CardNo, 0, 1, Unknown},
		{ir.CardNo, 1, 5, False},
		{ir.CardOne, 1, 0, True},
		{ir.CardOne, 1, 1, Unknown},
		{ir.CardOne, 2, 0, False},
		{ir.CardOne, 0, 0, False},
		{ir.CardOne, 0, 1, Unknown},
		{ir.CardLone, 0, 0, True},
		{ir.CardLone, 1, 0, True},
		{ir.CardLone, 0, 2, Unknown},
		{ir.CardLone, 2, 0, False},
	}
	for _, tt := range tests {
		got := cardVerdict(tt.kind, tt.definite, tt.possible)
		assert.Equal(t, tt.want, got, "%s with %d definite, %d possible", tt.kind, tt.definite, tt.possible)
	}
}

func TestKleeneConnectives(t *testing.T) {
	assert.Equal(t, Unknown, Unknown.Not())
	assert.Equal(t, False, True.Not())
	assert.Equal(t, False, and(Unknown, False))
	assert.Equal(t, Unknown, and(Unknown, True))
	assert.Equal(t, True, or(Unknown, True))
	assert.Equal(t, Unknown, or(Unknown, False))
}

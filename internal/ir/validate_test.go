package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseModel returns a small well-formed model used across validation tests.
func baseModel() *Model {
	return &Model{
		Name: "base",
		Sigs: []Sig{
			{Name: "Time", Ordered: true},
			{Name: "Node", Abstract: true},
			{Name: "Sender", Parent: "Node", Mult: MultOne},
			{Name: "Receiver", Parent: "Node", Mult: MultOne},
			{Name: "Msg"},
		},
		Rels: []Rel{
			{Name: "sent", Columns: []string{"Node", "Msg", "Time"}},
			{Name: "at", Columns: []string{"Msg", "Time"}, Mult: MultOne},
		},
	}
}

func TestValidateAcceptsWellFormedModel(t *testing.T) {
	m := baseModel()
	m.Facts = []Fact{
		{Name: "initEmpty", Body: No(Join(Name("sent"), First("Time")))},
		{Name: "oneAtATime", Body: All("t", Name("Time"), Lone(Join(Name("at"), Var("t"))))},
	}
	m.Preds = []Pred{
		{Name: "delivered", Body: Exists("m", Name("Msg"),
			In(Var("m"), Join(Name("Receiver"), Join(Name("sent"), Name("Time")))))},
	}
	m.Commands = []Command{
		{Name: "sanity", Kind: CommandRun, Pred: "delivered", Scope: ScopeSpec{Default: 3}},
	}

	require.NoError(t, m.Validate())
}

func TestValidateRejectsUndeclaredNames(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Model)
		owner  string
		want   string
	}{
		{
			name: "unknown relation in fact",
			mutate: func(m *Model) {
				m.Facts = []Fact{{Name: "bad", Body: Some(Name("nope"))}}
			},
			owner: "bad",
			want:  "undeclared signature or relation",
		},
		{
			name: "unknown column signature",
			mutate: func(m *Model) {
				m.Rels = append(m.Rels, Rel{Name: "extra", Columns: []string{"Ghost"}})
			},
			owner: "extra",
			want:  "undeclared signature",
		},
		{
			name: "unknown parent",
			mutate: func(m *Model) {
				m.Sigs = append(m.Sigs, Sig{Name: "Orphan", Parent: "Ghost"})
			},
			owner: "Orphan",
			want:  "not declared",
		},
		{
			name: "command without predicate",
			mutate: func(m *Model) {
				m.Commands = []Command{{Name: "c", Kind: CommandCheck, Pred: "missing"}}
			},
			owner: "c",
			want:  "undeclared predicate",
		},
		{
			name: "unbound variable",
			mutate: func(m *Model) {
				m.Facts = []Fact{{Name: "bad", Body: Some(Var("x"))}}
			},
			owner: "bad",
			want:  "unbound variable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := baseModel()
			tt.mutate(m)
			err := m.Validate()
			require.Error(t, err)
			var me *ModelError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tt.owner, me.Name, "the error names the declaration being checked")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateRejectsArityMismatches(t *testing.T) {
	m := baseModel()
	m.Facts = []Fact{
		{Name: "bad", Body: Eq(Name("sent"), Name("at"))}, // arity 3 vs 2
	}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arity mismatch")
}

func TestValidateRejectsNonUnaryQuantifierDomain(t *testing.T) {
	m := baseModel()
	m.Facts = []Fact{
		{Name: "bad", Body: All("x", Name("at"), Some(Var("x")))},
	}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unary")
}

func TestValidateRejectsDuplicateNames(t *testing.T) {
	m := baseModel()
	m.Rels = append(m.Rels, Rel{Name: "Time", Columns: []string{"Msg"}})
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already declared")
}

func TestValidateRejectsNonAbstractParent(t *testing.T) {
	m := baseModel()
	m.Sigs = append(m.Sigs, Sig{Name: "Sub", Parent: "Msg"})
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be abstract")
}

func TestValidateRejectsRecursivePredicates(t *testing.T) {
	m := baseModel()
	m.Preds = []Pred{
		{Name: "a", Body: PredCall("b")},
		{Name: "b", Body: PredCall("a")},
	}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recursive")
}

func TestValidateRejectsTransposeOfNonBinary(t *testing.T) {
	m := baseModel()
	m.Facts = []Fact{{Name: "bad", Body: Some(Transpose(Name("sent")))}}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transpose")
}

func TestOrderingRelsReserved(t *testing.T) {
	m := baseModel()

	// The ordered Time signature generates four ordering relations.
	ords := m.OrderingRels()
	require.Len(t, ords, 4)

	next, ok := m.RelByName("Time/next")
	require.True(t, ok)
	assert.Equal(t, []string{"Time", "Time"}, next.Columns)

	// Declaring a relation under a reserved ordering name is an error.
	m.Rels = append(m.Rels, Rel{Name: "Time/next", Columns: []string{"Time", "Time"}})
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already declared")
}

func TestDescends(t *testing.T) {
	m := baseModel()
	assert.True(t, m.Descends("Sender", "Node"))
	assert.True(t, m.Descends("Sender", "Sender"))
	assert.False(t, m.Descends("Node", "Sender"))
	assert.False(t, m.Descends("Msg", "Node"))
}

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstituteFormulaReplacesFreeVariables(t *testing.T) {
	f := In(Var("x"), Join(Var("y"), Name("sent")))
	got := SubstituteFormula(f, map[string]Expr{
		"x": Name("Msg"),
		"y": Name("Sender"),
	})
	assert.Equal(t, "Msg in (Sender.sent)", got.String())
}

func TestSubstituteFormulaRespectsShadowing(t *testing.T) {
	// The inner quantifier rebinds x; only the outer occurrence changes.
	f := And(
		Some(Var("x")),
		All("x", Name("Time"), Some(Var("x"))),
	)
	got := SubstituteFormula(f, map[string]Expr{"x": Name("Msg")})
	assert.Equal(t, "(some Msg) and (all x: Time | some x)", got.String())
}

func TestRefsCollectsRelationNames(t *testing.T) {
	m := baseModel()
	f := All("t", Name("Time"),
		Implies(
			Some(Join(Name("at"), Var("t"))),
			In(Var("t"), Join(Name("Msg"), Name("at"))),
		))
	assert.Equal(t, []string{"Msg", "Time", "at"}, m.Refs(f))
}

func TestRefsExpandsPredAndFunCalls(t *testing.T) {
	m := baseModel()
	m.Funs = []Fun{{
		Name:   "inboxAt",
		Params: []Param{{Name: "t", Sig: "Time"}},
		Body:   Join(Name("sent"), Var("t")),
	}}
	m.Preds = []Pred{{
		Name: "busy",
		Body: Some(Call("inboxAt", First("Time"))),
	}}
	require.NoError(t, m.Validate())

	refs := m.Refs(PredCall("busy"))
	assert.Contains(t, refs, "sent")
	assert.Contains(t, refs, "Time/first")
}

func TestFormulaStringRendering(t *testing.T) {
	f := All("t", Diff(Name("Time"), Last("Time")),
		Lone(Join(Name("at"), Var("t"))))
	assert.Equal(t, "all t: (Time - Time/last) | lone (at.t)", f.String())

	g := ForNo("e", Name("Msg"), In(Var("e"), Product(Name("Msg"), Name("Time"))))
	assert.Equal(t, "no e: Msg | e in (Msg -> Time)", g.String())
}

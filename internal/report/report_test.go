package report

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eskang/RosAlloy/internal/checker"
	"github.com/eskang/RosAlloy/internal/ir"
)

// clockModel stamps messages onto an ordered timeline, so reports carry a
// trace section.
func clockModel() *ir.Model {
	return &ir.Model{
		Name: "clock",
		Sigs: []ir.Sig{
			{Name: "Time", Ordered: true},
			{Name: "Msg"},
		},
		Rels: []ir.Rel{
			{Name: "at", Columns: []string{"Msg", "Time"}, Mult: ir.MultOne},
		},
		Preds: []ir.Pred{
			{Name: "stamped", Body: ir.Some(ir.Name("at"))},
			{Name: "unstamped", Body: ir.No(ir.Name("at"))},
		},
		Commands: []ir.Command{
			{Name: "findStamp", Kind: ir.CommandRun, Pred: "stamped", Scope: ir.ScopeSpec{
				Bounds: map[string]int{"Time": 2, "Msg": 1},
			}},
			{Name: "checkUnstamped", Kind: ir.CommandCheck, Pred: "unstamped", Scope: ir.ScopeSpec{
				Bounds: map[string]int{"Time": 2, "Msg": 1},
				Exact:  map[string]bool{"Msg": true},
			}},
		},
	}
}

func execute(t *testing.T, command string) *checker.Result {
	t.Helper()
	res, err := checker.Execute(context.Background(), clockModel(), command)
	require.NoError(t, err)
	return res
}

func TestTextReportForWitness(t *testing.T) {
	res := execute(t, "findStamp")
	require.Equal(t, checker.VerdictSatisfiable, res.Verdict)

	text := Text(clockModel(), res)
	assert.Contains(t, text, "model clock")
	assert.Contains(t, text, "command findStamp (run stamped)")
	assert.Contains(t, text, "verdict satisfiable")
	assert.Contains(t, text, "Time exactly 2")
	assert.Contains(t, text, "Msg in 0..1")
	assert.Contains(t, text, "instance:")
	assert.Contains(t, text, "Msg = {Msg$0}")
	assert.Contains(t, text, "trace over Time:")
	assert.NotContains(t, text, "note: verified", "the scope caveat belongs to verified verdicts only")
}

func TestTextReportTraceGroupsByStep(t *testing.T) {
	res := execute(t, "findStamp")
	text := Text(clockModel(), res)

	lines := strings.Split(text, "\n")
	var t0, t1 string
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "Time$0:") {
			t0 = l
		}
		if strings.HasPrefix(strings.TrimSpace(l), "Time$1:") {
			t1 = l
		}
	}
	require.NotEmpty(t, t0)
	require.NotEmpty(t, t1)
	// Exclude-first search rules Time$0 out, then mult-one propagation
	// forces the stamp onto the last remaining step.
	assert.Contains(t, t0, "(no events)")
	assert.Contains(t, t1, "at={(Msg$0, Time$1)}")
}

func TestTextReportVerifiedCarriesCaveat(t *testing.T) {
	// With exactly one message and mult-one stamping, "no at" has a
	// counterexample; force verification instead by checking stamped's
	// negation is impossible: a check on stamped itself.
	m := clockModel()
	m.Facts = []ir.Fact{{Name: "always", Body: ir.Some(ir.Name("at"))}}
	m.Commands = append(m.Commands, ir.Command{
		Name: "checkStamped", Kind: ir.CommandCheck, Pred: "stamped",
		Scope: ir.ScopeSpec{Bounds: map[string]int{"Time": 2, "Msg": 1}},
	})
	res, err := checker.Execute(context.Background(), m, "checkStamped")
	require.NoError(t, err)
	require.Equal(t, checker.VerdictVerified, res.Verdict)

	text := Text(m, res)
	assert.Contains(t, text, "verdict verified")
	assert.Contains(t, text, "note: verified within the scope above only")
	assert.NotContains(t, text, "instance:")
}

func TestJSONReportIsCanonical(t *testing.T) {
	res := execute(t, "findStamp")
	m := clockModel()

	raw, err := JSON(m, res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "satisfiable", decoded["verdict"])
	assert.Equal(t, "run", decoded["kind"])
	assert.Equal(t, res.RunID.String(), decoded["run_id"])

	inst, ok := decoded["instance"].(map[string]any)
	require.True(t, ok)
	rels := inst["rels"].(map[string]any)
	assert.Contains(t, rels, "at")
	assert.Contains(t, rels, "Time/next")

	// Serializing twice is byte-identical.
	again, err := JSON(m, res)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestDigestIdentifiesContent(t *testing.T) {
	m := clockModel()
	a := execute(t, "findStamp")
	b := execute(t, "findStamp")

	da, err := Digest(m, a)
	require.NoError(t, err)
	db, err := Digest(m, b)
	require.NoError(t, err)

	assert.Len(t, da, 64)
	assert.NotEqual(t, da, db, "distinct runs digest differently by run id")
}

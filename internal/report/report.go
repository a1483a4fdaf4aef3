// Package report renders command results for humans and machines.
//
// The text form is a fixed-layout summary: verdict, the scope the verdict
// holds under, search statistics, the instance if one was found, and a
// step-by-step trace along each ordered signature. The JSON form is
// canonical (RFC 8785) so equal results serialize byte-identically and
// can be content-addressed.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/eskang/RosAlloy/internal/checker"
	"github.com/eskang/RosAlloy/internal/ir"
	"github.com/eskang/RosAlloy/internal/relstore"
	"github.com/eskang/RosAlloy/internal/solver"
	"github.com/eskang/RosAlloy/internal/universe"
)

// Text renders a result as a human-readable report.
func Text(m *ir.Model, res *checker.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "model %s\n", res.Model)
	fmt.Fprintf(&b, "command %s (%s %s)\n", res.Command, res.Kind, predOf(m, res.Command))
	fmt.Fprintf(&b, "run %s\n", res.RunID)
	fmt.Fprintf(&b, "verdict %s\n", res.Verdict)
	fmt.Fprintf(&b, "scope %s\n", scopeLine(res.Scope))
	if res.Verdict == checker.VerdictVerified {
		b.WriteString("note: verified within the scope above only; larger scopes are unexplored\n")
	}
	fmt.Fprintf(&b, "search: %d nodes, %d vectors, %s\n",
		res.Stats.Nodes, res.Stats.Vectors, res.Stats.Elapsed.Round(time.Microsecond))

	if res.Instance != nil {
		b.WriteString("\ninstance:\n")
		writeInstance(&b, m, res.Instance)
		writeTraces(&b, m, res.Instance)
	}
	return b.String()
}

func predOf(m *ir.Model, command string) string {
	if cmd, ok := m.CommandByName(command); ok {
		return cmd.Pred
	}
	return "?"
}

func scopeLine(table *universe.Table) string {
	parts := make([]string, 0, len(table.Entries))
	for _, e := range table.Entries {
		if e.Exact() {
			parts = append(parts, fmt.Sprintf("%s exactly %d", e.Sig, e.Max))
		} else {
			parts = append(parts, fmt.Sprintf("%s in %d..%d", e.Sig, e.Min, e.Max))
		}
	}
	return strings.Join(parts, ", ")
}

func writeInstance(b *strings.Builder, m *ir.Model, inst *solver.Instance) {
	for _, sig := range m.Sigs {
		atoms := inst.Sigs[sig.Name]
		ids := make([]string, len(atoms))
		for i, a := range atoms {
			ids[i] = a.ID()
		}
		fmt.Fprintf(b, "  %s = {%s}\n", sig.Name, strings.Join(ids, ", "))
	}
	for _, r := range m.Rels {
		fmt.Fprintf(b, "  %s = %s\n", r.Name, renderTuples(inst.Rels[r.Name]))
	}
}

func renderTuples(ts relstore.TupleSet) string {
	parts := make([]string, 0, ts.Len())
	for _, t := range ts.Tuples() {
		ids := make([]string, len(t))
		for i, a := range t {
			ids[i] = a.ID()
		}
		parts = append(parts, "("+strings.Join(ids, ", ")+")")
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// writeTraces renders, for every ordered signature, the instance step by
// step: at each atom of the order, the tuples of every relation that
// mentions that step.
func writeTraces(b *strings.Builder, m *ir.Model, inst *solver.Instance) {
	for _, sig := range m.Sigs {
		if !sig.Ordered {
			continue
		}
		steps := inst.Sigs[sig.Name]
		if len(steps) == 0 {
			continue
		}
		fmt.Fprintf(b, "\ntrace over %s:\n", sig.Name)
		for _, step := range steps {
			fmt.Fprintf(b, "  %s:", step.ID())
			wrote := false
			for _, r := range m.Rels {
				col, ok := stepColumn(m, r, sig.Name)
				if !ok {
					continue
				}
				at := inst.Rels[r.Name].Restrict(col, relstore.Singleton(step))
				if at.Empty() {
					continue
				}
				fmt.Fprintf(b, " %s=%s", r.Name, renderTuples(at))
				wrote = true
			}
			if !wrote {
				b.WriteString(" (no events)")
			}
			b.WriteString("\n")
		}
	}
}

// stepColumn finds the column of a relation drawn from the ordered
// signature, preferring the last such column.
func stepColumn(m *ir.Model, r ir.Rel, sig string) (int, bool) {
	for i := len(r.Columns) - 1; i >= 0; i-- {
		if m.Descends(r.Columns[i], sig) || r.Columns[i] == sig {
			return i, true
		}
	}
	return 0, false
}

// Payload builds the canonical JSON payload for a result. Every value is
// a string, integer, bool, or nesting of those, as canonical JSON rejects
// floats.
func Payload(m *ir.Model, res *checker.Result) map[string]any {
	scope := make([]any, 0, len(res.Scope.Entries))
	for _, e := range res.Scope.Entries {
		scope = append(scope, map[string]any{
			"sig": e.Sig,
			"min": e.Min,
			"max": e.Max,
		})
	}

	payload := map[string]any{
		"engine_version": ir.EngineVersion,
		"ir_version":     ir.IRVersion,
		"run_id":         res.RunID.String(),
		"model":          res.Model,
		"command":        res.Command,
		"kind":           res.Kind.String(),
		"verdict":        string(res.Verdict),
		"scope":          scope,
		"stats": map[string]any{
			"nodes":      res.Stats.Nodes,
			"vectors":    res.Stats.Vectors,
			"elapsed_us": res.Stats.Elapsed.Microseconds(),
		},
	}
	if res.Instance != nil {
		payload["instance"] = instancePayload(m, res.Instance)
	}
	return payload
}

func instancePayload(m *ir.Model, inst *solver.Instance) map[string]any {
	sigs := make(map[string]any, len(inst.Sigs))
	for name, atoms := range inst.Sigs {
		ids := make([]string, len(atoms))
		for i, a := range atoms {
			ids[i] = a.ID()
		}
		sort.Strings(ids)
		sigs[name] = ids
	}
	rels := make(map[string]any, len(inst.Rels))
	for name, ts := range inst.Rels {
		tuples := make([]any, 0, ts.Len())
		for _, t := range ts.Tuples() {
			ids := make([]string, len(t))
			for i, a := range t {
				ids[i] = a.ID()
			}
			tuples = append(tuples, ids)
		}
		rels[name] = tuples
	}
	return map[string]any{"sigs": sigs, "rels": rels}
}

// JSON renders a result as canonical JSON.
func JSON(m *ir.Model, res *checker.Result) ([]byte, error) {
	return ir.MarshalCanonical(Payload(m, res))
}

// Digest returns the canonical content digest of a result.
func Digest(m *ir.Model, res *checker.Result) (string, error) {
	return ir.Digest(Payload(m, res))
}

// Package harness provides a conformance testing framework for the
// analysis pipeline.
//
// A scenario names a model and the verdict each of its commands must
// produce. The harness compiles the model, executes every listed
// command, archives each run in a scenario-scoped in-memory archive, and
// compares verdicts against the expectations. Golden files additionally
// pin the rendered reports, with volatile lines (run ids, search timing)
// scrubbed so reruns stay byte-identical.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/eskang/RosAlloy/internal/checker"
	"github.com/eskang/RosAlloy/internal/cli"
	"github.com/eskang/RosAlloy/internal/ir"
	"github.com/eskang/RosAlloy/internal/report"
	"github.com/eskang/RosAlloy/internal/solver"
	"github.com/eskang/RosAlloy/internal/store"
)

// Outcome is the recorded execution of one scenario command.
type Outcome struct {
	Command string
	// Want is the verdict the scenario expects.
	Want checker.Verdict
	// Got is the checker result actually produced.
	Got *checker.Result
	// Report is the rendered text report for Got.
	Report string
	// Archived is the run as read back from the scenario archive.
	Archived store.Run
}

// Result collects a scenario execution.
type Result struct {
	Scenario string
	Outcomes []Outcome
	// Failures lists every expectation the execution missed.
	Failures []string
}

// Pass reports whether every command produced its expected verdict.
func (r *Result) Pass() bool { return len(r.Failures) == 0 }

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory archive for isolation.
// An error means the scenario could not be executed at all; a missed
// verdict is a failure on the result, not an error.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	m, err := cli.LoadModel(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("loading scenario model: %w", err)
	}

	archive, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening scenario archive: %w", err)
	}
	defer archive.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	result := &Result{Scenario: scenario.Name}

	for _, want := range scenario.Commands {
		cmd, ok := m.CommandByName(want.Command)
		if !ok {
			return nil, fmt.Errorf("model %q has no command %q", m.Name, want.Command)
		}

		res, err := checker.ExecuteCommand(ctx, m, cmd,
			checker.WithBudget(solver.Budget{MaxNodes: scenario.BudgetNodes}),
			checker.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("executing command %q: %w", want.Command, err)
		}

		archived, err := archiveRun(ctx, archive, m, res)
		if err != nil {
			return nil, fmt.Errorf("archiving command %q: %w", want.Command, err)
		}

		outcome := Outcome{
			Command:  want.Command,
			Want:     checker.Verdict(want.Verdict),
			Got:      res,
			Report:   report.Text(m, res),
			Archived: archived,
		}
		result.Outcomes = append(result.Outcomes, outcome)

		if res.Verdict != outcome.Want {
			result.Failures = append(result.Failures, fmt.Sprintf(
				"command %s: want verdict %s, got %s",
				want.Command, outcome.Want, res.Verdict))
		}
	}
	return result, nil
}

// archiveRun writes the result to the archive and reads it back, so the
// outcome carries exactly what the archive persisted.
func archiveRun(ctx context.Context, archive *store.Store, m *ir.Model, res *checker.Result) (store.Run, error) {
	raw, err := report.JSON(m, res)
	if err != nil {
		return store.Run{}, err
	}
	digest, err := report.Digest(m, res)
	if err != nil {
		return store.Run{}, err
	}
	run := store.Run{
		ID:            res.RunID.String(),
		Model:         res.Model,
		Command:       res.Command,
		Kind:          res.Kind.String(),
		Verdict:       string(res.Verdict),
		Nodes:         res.Stats.Nodes,
		Vectors:       res.Stats.Vectors,
		ElapsedUS:     res.Stats.Elapsed.Microseconds(),
		Digest:        digest,
		Report:        string(raw),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	if err := archive.WriteRun(ctx, run); err != nil {
		return store.Run{}, err
	}
	return archive.GetRun(ctx, run.ID)
}

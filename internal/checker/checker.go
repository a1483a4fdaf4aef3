// Package checker executes analysis commands and maps raw search results
// to verdicts.
//
// A check command searches for a counterexample: the facts conjoined with
// the negated property. Finding one refutes the property; exhausting the
// scope verifies it within that scope and no further. A run command
// searches for a witness of the predicate directly. The two commands share
// one solver; only the goal polarity and the verdict mapping differ.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eskang/RosAlloy/internal/ir"
	"github.com/eskang/RosAlloy/internal/solver"
	"github.com/eskang/RosAlloy/internal/universe"
)

// Verdict is the user-facing conclusion of one command.
type Verdict string

const (
	// VerdictVerified means no counterexample exists within the scope.
	VerdictVerified Verdict = "verified"
	// VerdictCounterexample means the property fails on a concrete
	// instance.
	VerdictCounterexample Verdict = "counterexample"
	// VerdictSatisfiable means the run predicate has a witness.
	VerdictSatisfiable Verdict = "satisfiable"
	// VerdictUnsatisfiable means the run predicate has no witness within
	// the scope.
	VerdictUnsatisfiable Verdict = "unsatisfiable"
	// VerdictTimeout means the budget ran out before a conclusion.
	VerdictTimeout Verdict = "timeout"
)

// Conclusive reports whether the verdict settles the command, as opposed
// to a budget stop.
func (v Verdict) Conclusive() bool { return v != VerdictTimeout }

// Result is the outcome of executing one command.
type Result struct {
	// RunID uniquely identifies this execution for reports and archives.
	RunID   uuid.UUID
	Model   string
	Command string
	Kind    ir.CommandKind
	Verdict Verdict
	// Instance is the counterexample or witness; nil for verified,
	// unsatisfiable, and timeout verdicts.
	Instance *solver.Instance
	// Scope records the bounds the verdict holds under. A verified
	// verdict says nothing beyond them.
	Scope *universe.Table
	Stats solver.Stats
}

// Option configures command execution.
type Option func(*config)

type config struct {
	budget  solver.Budget
	workers int
	log     *slog.Logger
}

// WithBudget bounds the underlying search.
func WithBudget(b solver.Budget) Option {
	return func(c *config) { c.budget = b }
}

// WithWorkers sets the search parallelism.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) { c.log = log }
}

// Execute runs one named command of a validated model.
func Execute(ctx context.Context, m *ir.Model, name string, opts ...Option) (*Result, error) {
	cmd, ok := m.CommandByName(name)
	if !ok {
		return nil, fmt.Errorf("checker: model %q has no command %q", m.Name, name)
	}
	return ExecuteCommand(ctx, m, cmd, opts...)
}

// ExecuteCommand runs a command against a validated model.
func ExecuteCommand(ctx context.Context, m *ir.Model, cmd ir.Command, opts ...Option) (*Result, error) {
	cfg := config{workers: 1, log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	table, err := universe.Resolve(cmd.Scope, m)
	if err != nil {
		return nil, err
	}

	goal := ir.Formula(ir.PredCall(cmd.Pred))
	if cmd.Kind == ir.CommandCheck {
		goal = ir.Not(goal)
	}

	res := &Result{
		RunID:   uuid.New(),
		Model:   m.Name,
		Command: cmd.Name,
		Kind:    cmd.Kind,
		Scope:   table,
	}
	cfg.log.Info("executing command",
		"run_id", res.RunID,
		"model", m.Name,
		"command", cmd.Name,
		"kind", cmd.Kind.String())

	start := time.Now()
	out, err := solver.Solve(ctx, m, goal, table,
		solver.WithBudget(cfg.budget),
		solver.WithWorkers(cfg.workers),
		solver.WithLogger(cfg.log))
	if err != nil {
		return nil, fmt.Errorf("checker: command %q: %w", cmd.Name, err)
	}

	res.Stats = out.Stats
	res.Verdict = verdictFor(cmd.Kind, out.Status)
	res.Instance = out.Instance
	cfg.log.Info("command finished",
		"run_id", res.RunID,
		"verdict", string(res.Verdict),
		"nodes", out.Stats.Nodes,
		"elapsed", time.Since(start))
	return res, nil
}

// verdictFor maps a search status to the command's verdict vocabulary.
func verdictFor(kind ir.CommandKind, status solver.Status) Verdict {
	switch status {
	case solver.StatusTimeout:
		return VerdictTimeout
	case solver.StatusSat:
		if kind == ir.CommandCheck {
			return VerdictCounterexample
		}
		return VerdictSatisfiable
	default:
		if kind == ir.CommandCheck {
			return VerdictVerified
		}
		return VerdictUnsatisfiable
	}
}

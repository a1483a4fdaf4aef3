package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/eskang/RosAlloy/internal/checker"
	"github.com/eskang/RosAlloy/internal/ir"
	"github.com/eskang/RosAlloy/internal/report"
	"github.com/eskang/RosAlloy/internal/solver"
	"github.com/eskang/RosAlloy/internal/store"
)

// SolveOptions holds flags for the solve command.
type SolveOptions struct {
	*RootOptions
	Command     string
	BudgetNodes int64
	Budget      time.Duration
	Workers     int
	Archive     string
}

// NewSolveCommand builds the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "solve <model>",
		Short: "Execute a model's analysis commands",
		Long: `Execute the check and run commands of a model.

Without --command every declared command executes in order. The exit code
is 0 when every verdict is expected (verified checks, satisfiable runs),
1 when any command finds a counterexample, comes back unsatisfiable, or
times out, and 2 for model or usage errors.

Example:
  rosalloy solve model.cue
  rosalloy solve model.cue --command checkSafe --budget 30s --workers 4
  rosalloy solve specs/ --archive runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Command, "command", "", "execute a single named command")
	cmd.Flags().Int64Var(&opts.BudgetNodes, "budget-nodes", 0, "abort after this many search nodes (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.Budget, "budget", 0, "abort after this much wall-clock time (0 = unlimited)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "parallel search workers")
	cmd.Flags().StringVar(&opts.Archive, "archive", "", "append verdicts to this SQLite archive")

	return cmd
}

func runSolve(opts *SolveOptions, path string, cmd *cobra.Command) error {
	log := newLogger(opts.Verbose)

	m, err := LoadModel(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading model", err)
	}

	commands := m.Commands
	if opts.Command != "" {
		c, ok := m.CommandByName(opts.Command)
		if !ok {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("model %q has no command %q", m.Name, opts.Command))
		}
		commands = []ir.Command{c}
	}
	if len(commands) == 0 {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("model %q declares no commands", m.Name))
	}

	var archive *store.Store
	if opts.Archive != "" {
		archive, err = store.Open(opts.Archive)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening archive", err)
		}
		defer func() {
			if closeErr := archive.Close(); closeErr != nil {
				log.Error("closing archive", "error", closeErr)
			}
		}()
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	failed := 0
	for _, c := range commands {
		res, err := checker.ExecuteCommand(cmd.Context(), m, c,
			checker.WithBudget(solver.Budget{MaxNodes: opts.BudgetNodes, MaxDuration: opts.Budget}),
			checker.WithWorkers(opts.Workers),
			checker.WithLogger(log))
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("command %q", c.Name), err)
		}

		if !expected(res.Verdict) {
			failed++
		}
		if err := emit(out, m, res); err != nil {
			return WrapExitError(ExitCommandError, "writing report", err)
		}
		if archive != nil {
			if err := archiveRun(cmd, archive, m, res); err != nil {
				return WrapExitError(ExitCommandError, "archiving run", err)
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("%d of %d commands failed", failed, len(commands)))
	}
	return nil
}

// expected reports whether a verdict counts as success for exit-code
// purposes.
func expected(v checker.Verdict) bool {
	return v == checker.VerdictVerified || v == checker.VerdictSatisfiable
}

func emit(out *OutputFormatter, m *ir.Model, res *checker.Result) error {
	if out.Format == "json" {
		raw, err := report.JSON(m, res)
		if err != nil {
			return err
		}
		return out.Raw(raw)
	}
	return out.Text(report.Text(m, res))
}

func archiveRun(cmd *cobra.Command, archive *store.Store, m *ir.Model, res *checker.Result) error {
	raw, err := report.JSON(m, res)
	if err != nil {
		return err
	}
	digest, err := report.Digest(m, res)
	if err != nil {
		return err
	}
	return archive.WriteRun(cmd.Context(), store.Run{
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
	})
}

// newLogger configures structured logging on stderr; debug level when
// verbose.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand builds the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <model>",
		Short: "Compile a model and report whether it is well-formed",
		Long: `Compile a model without executing any commands.

Exits 0 when the model compiles and passes structural validation, 1 when
it does not, and 2 when the path cannot be read.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			m, err := LoadModel(args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "invalid model", err)
			}
			return out.Text(fmt.Sprintf(
				"model %s: %d signatures, %d relations, %d facts, %d predicates, %d functions, %d commands",
				m.Name, len(m.Sigs), len(m.Rels), len(m.Facts), len(m.Preds), len(m.Funs), len(m.Commands)))
		},
	}
	return cmd
}

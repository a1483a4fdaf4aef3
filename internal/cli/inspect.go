package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eskang/RosAlloy/internal/ir"
)

// NewInspectCommand builds the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "inspect <model>",
		Short:         "Print a model's declarations and content digest",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := LoadModel(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "loading model", err)
			}
			digest, err := ir.Digest(modelPayload(m))
			if err != nil {
				return WrapExitError(ExitCommandError, "digesting model", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Text(renderModel(m, digest))
		},
	}
	return cmd
}

func renderModel(m *ir.Model, digest string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "model %s\n", m.Name)
	fmt.Fprintf(&b, "digest %s\n", digest)

	b.WriteString("\nsignatures:\n")
	for _, s := range m.Sigs {
		fmt.Fprintf(&b, "  %s%s\n", s.Name, sigQualifiers(s))
	}
	if len(m.Rels) > 0 {
		b.WriteString("\nrelations:\n")
		for _, r := range m.Rels {
			fmt.Fprintf(&b, "  %s: %s%s\n", r.Name, strings.Join(r.Columns, " -> "), multSuffix(r.Mult))
		}
	}
	if len(m.Facts) > 0 {
		b.WriteString("\nfacts:\n")
		for _, f := range m.Facts {
			fmt.Fprintf(&b, "  %s: %s\n", f.Name, f.Body)
		}
	}
	if len(m.Preds) > 0 {
		b.WriteString("\npredicates:\n")
		for _, p := range m.Preds {
			fmt.Fprintf(&b, "  %s%s: %s\n", p.Name, paramList(p.Params), p.Body)
		}
	}
	if len(m.Funs) > 0 {
		b.WriteString("\nfunctions:\n")
		for _, f := range m.Funs {
			fmt.Fprintf(&b, "  %s%s: %s\n", f.Name, paramList(f.Params), f.Body)
		}
	}
	if len(m.Commands) > 0 {
		b.WriteString("\ncommands:\n")
		for _, c := range m.Commands {
			fmt.Fprintf(&b, "  %s: %s %s\n", c.Name, c.Kind, c.Pred)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func sigQualifiers(s ir.Sig) string {
	var quals []string
	if s.Abstract {
		quals = append(quals, "abstract")
	}
	if s.Ordered {
		quals = append(quals, "ordered")
	}
	if s.Mult == ir.MultOne {
		quals = append(quals, "one")
	}
	if s.Mult == ir.MultLone {
		quals = append(quals, "lone")
	}
	if s.Parent != "" {
		quals = append(quals, "extends "+s.Parent)
	}
	if len(quals) == 0 {
		return ""
	}
	return " (" + strings.Join(quals, ", ") + ")"
}

func multSuffix(m ir.Mult) string {
	switch m {
	case ir.MultOne:
		return " (one)"
	case ir.MultLone:
		return " (lone)"
	default:
		return ""
	}
}

func paramList(params []ir.Param) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + ": " + p.Sig
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// modelPayload renders a model as canonical-JSON-compatible data for
// content addressing. Formula and expression bodies use their stable
// string rendering.
func modelPayload(m *ir.Model) map[string]any {
	sigs := make([]any, 0, len(m.Sigs))
	for _, s := range m.Sigs {
		sigs = append(sigs, map[string]any{
			"name":     s.Name,
			"parent":   s.Parent,
			"abstract": s.Abstract,
			"ordered":  s.Ordered,
			"mult":     int(s.Mult),
		})
	}
	rels := make([]any, 0, len(m.Rels))
	for _, r := range m.Rels {
		rels = append(rels, map[string]any{
			"name":    r.Name,
			"columns": r.Columns,
			"mult":    int(r.Mult),
		})
	}
	facts := make([]any, 0, len(m.Facts))
	for _, f := range m.Facts {
		facts = append(facts, map[string]any{"name": f.Name, "body": f.Body.String()})
	}
	preds := make([]any, 0, len(m.Preds))
	for _, p := range m.Preds {
		preds = append(preds, map[string]any{"name": p.Name, "body": p.Body.String()})
	}
	funs := make([]any, 0, len(m.Funs))
	for _, f := range m.Funs {
		funs = append(funs, map[string]any{"name": f.Name, "body": f.Body.String()})
	}
	cmds := make([]any, 0, len(m.Commands))
	for _, c := range m.Commands {
		cmds = append(cmds, map[string]any{
			"name": c.Name,
			"kind": c.Kind.String(),
			"pred": c.Pred,
		})
	}
	return map[string]any{
		"ir_version": ir.IRVersion,
		"model":      m.Name,
		"sigs":       sigs,
		"rels":       rels,
		"facts":      facts,
		"preds":      preds,
		"funs":       funs,
		"commands":   cmds,
	}
}

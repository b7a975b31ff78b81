package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/orcabase/orca/internal/docgen"
)

// Docgen expands a documentation template into a registered DAG.
func Docgen() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docgen [flags] <template-file>",
		Short: "Generate a documentation DAG from a template",
		Long: `Generate a documentation DAG from a template file.

The template's top-level sections each become a drafting node fanning
out from the codebase summary chain; the generated definition is
registered in the DAG directory and can be launched with orca start.

Example:
  orca docgen templates/design_doc.json --dag-id design_docs
  orca start design_docs --param codebase_path=./src
`,
		Args: cobra.ExactArgs(1),
		RunE: run(runDocgen),
	}
	cmd.Flags().String("dag-id", "", "id for the generated DAG (default: derived from the template name)")
	return cmd
}

func runDocgen(ctx *Context, cmd *cobra.Command, args []string) error {
	tpl, err := docgen.LoadTemplate(args[0])
	if err != nil {
		return err
	}

	dagID, _ := cmd.Flags().GetString("dag-id")
	if dagID == "" {
		dagID = slugify(tpl.Name)
	}

	def, err := docgen.SaveDocumentationDAG(ctx, ctx.DAGs, tpl, dagID)
	if err != nil {
		return err
	}
	cmd.Printf("dag %s generated: %d nodes\n", def.DagID, len(def.Nodes))
	return nil
}

func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, slug)
	return strings.Trim(slug, "_")
}

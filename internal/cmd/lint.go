package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sextant-dev/sextant/internal/chart"
	"github.com/sextant-dev/sextant/internal/template"
	"github.com/sextant-dev/sextant/internal/ui"
)

var (
	lintValueFiles []string
	lintSetValues  []string
)

// lintCmd represents the lint command.
var lintCmd = &cobra.Command{
	Use:   "lint [chart-dir]",
	Short: "Validate a chart without emitting manifests",
	Long: `Parse a chart and run a full render, reporting problems instead of output.

Lint catches the same errors render would: malformed directives, references
to values that do not exist, and invalid chart metadata. Values overlays are
applied the same way as render, so linting against the overlay you deploy
with checks exactly what deployment would execute.

Examples:
  sextant lint
  sextant lint ./chart -f prod.yaml`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLint,
}

func init() {
	lintCmd.Flags().StringArrayVarP(&lintValueFiles, "values", "f", nil, "Values overlay file (repeatable, later files win)")
	lintCmd.Flags().StringArrayVar(&lintSetValues, "set", nil, "Set a value on the command line (key.path=value, repeatable)")

	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) {
	ui.Header("=== Chart Lint ===")
	ui.Plain("")

	c, implicit, err := loadChart(args)
	if err != nil {
		ui.Fatal("Failed to load chart: %v", err)
	}
	ui.Success("Chart %s loaded (%d templates)", c.Meta.Name, len(c.TemplateNames()))
	if len(c.TemplateNames()) == 0 {
		ui.Warning("Chart has no renderable templates")
	}

	overlay, err := buildOverlay(append(implicit, lintValueFiles...), lintSetValues)
	if err != nil {
		ui.Fatal("%v", err)
	}

	_, err = c.Render(chart.RenderOptions{Values: overlay})
	if err != nil {
		var unresolved *template.UnresolvedReferenceError
		var malformed *template.MalformedDirectiveError
		switch {
		case errors.As(err, &unresolved):
			ui.Fatal("Unresolved reference: %v", err)
		case errors.As(err, &malformed):
			ui.Fatal("Malformed directive: %v", err)
		default:
			ui.Fatal("Render failed: %v", err)
		}
	}

	ui.Plain("")
	ui.Success("Chart renders cleanly")
}

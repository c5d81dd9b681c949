package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sextant-dev/sextant/internal/chart"
	"github.com/sextant-dev/sextant/internal/config"
	"github.com/sextant-dev/sextant/internal/fileutil"
	"github.com/sextant-dev/sextant/internal/ui"
	"github.com/sextant-dev/sextant/internal/values"
)

var (
	renderValueFiles []string
	renderSetValues  []string
	renderOutput     string
	renderRelease    string
	renderNamespace  string
)

// renderCmd represents the render command.
var renderCmd = &cobra.Command{
	Use:   "render [chart-dir]",
	Short: "Render chart templates to Kubernetes manifests",
	Long: `Render a chart's templates against its values and print the manifests.

The chart directory is resolved in order: the positional argument, then the
chart/ directory of the enclosing project, then the embedded worker chart.
Values are layered lowest to highest: chart defaults, then each --values
file in order, then --set overrides.

Examples:
  # Render the embedded chart with its defaults
  sextant render

  # Render a chart directory with an overlay
  sextant render ./chart -f prod.yaml

  # Override single values
  sextant render --set replicaCount=3 --set environmentVariables.LOG_LEVEL=debug

  # Write manifests into a directory
  sextant render -o rendered/`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRender,
}

func init() {
	renderCmd.Flags().StringArrayVarP(&renderValueFiles, "values", "f", nil, "Values overlay file (repeatable, later files win)")
	renderCmd.Flags().StringArrayVar(&renderSetValues, "set", nil, "Set a value on the command line (key.path=value, repeatable)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output directory (prints to stdout if not set)")
	renderCmd.Flags().StringVar(&renderRelease, "release", "dev", "Release name bound to .Release.Name")
	renderCmd.Flags().StringVar(&renderNamespace, "namespace", "default", "Namespace bound to .Release.Namespace")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) {
	c, implicit, err := loadChart(args)
	if err != nil {
		ui.Fatal("Failed to load chart: %v", err)
	}

	overlay, err := buildOverlay(append(implicit, renderValueFiles...), renderSetValues)
	if err != nil {
		ui.Fatal("%v", err)
	}

	docs, err := c.Render(chart.RenderOptions{
		Values:      overlay,
		ReleaseName: renderRelease,
		Namespace:   renderNamespace,
	})
	if err != nil {
		ui.Fatal("Render failed: %v", err)
	}

	if renderOutput == "" {
		for _, name := range c.TemplateNames() {
			fmt.Printf("---\n# Source: %s\n%s", name, docs[name])
		}
		return
	}

	ui.Info("Rendering %d template(s) to %s", len(c.TemplateNames()), renderOutput)
	for _, name := range c.TemplateNames() {
		outPath := filepath.Join(renderOutput, filepath.Base(name))
		if err := fileutil.WriteFile(outPath, []byte(docs[name])); err != nil {
			ui.Fatal("Failed to write %s: %v", outPath, err)
		}
		ui.Success("%s → %s", name, outPath)
	}
}

// loadChart resolves the chart to render: explicit directory argument,
// project chart discovered from the working directory, or the embedded
// builtin chart. A discovered project contributes its root values.yaml as
// the lowest overlay file.
func loadChart(args []string) (*chart.Chart, []string, error) {
	if len(args) > 0 {
		c, err := chart.Load(args[0])
		return c, nil, err
	}
	if cfg, err := config.Load(); err == nil {
		c, err := chart.Load(cfg.ChartDir)
		if err != nil {
			return nil, nil, err
		}
		if cfg.ValuesFile != "" {
			return c, []string{cfg.ValuesFile}, nil
		}
		return c, nil, nil
	}
	c, err := chart.Builtin()
	return c, nil, err
}

// buildOverlay layers values files and --set overrides into a single
// overlay map. Later files win over earlier files; --set wins over files.
func buildOverlay(files, sets []string) (*values.Map, error) {
	overlay := values.New()

	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read values file: %w", err)
		}
		parsed, err := values.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		overlay = values.Merge(overlay, parsed)
	}

	for _, set := range sets {
		key, raw, ok := strings.Cut(set, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q (expected key.path=value)", set)
		}
		overlay.SetPath(key, parseScalar(raw))
	}

	if overlay.Len() == 0 {
		return nil, nil
	}
	return overlay, nil
}

// parseScalar interprets a --set value the way YAML would: numbers and
// booleans become typed values, everything else stays a string.
func parseScalar(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case bool, int, int64, float64, string, nil:
		return v
	default:
		return raw
	}
}

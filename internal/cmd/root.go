// Package cmd provides the CLI commands for sextant.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sextant",
	Short: "Chart-style manifest rendering for Kubernetes",
	Long: `sextant - chart-style manifest rendering

Renders Kubernetes manifests from a chart directory (chart.yaml, values.yaml,
templates/) merged with values overlays, without touching a cluster.

RENDER
  render [chart-dir]    Render chart templates to manifests
    --values, -f <file> Apply a values overlay (repeatable, later wins)
    --set key=value     Override a single value (repeatable)
    --output, -o <dir>  Write manifests to a directory instead of stdout
    --release <name>    Release name bound to .Release.Name (default "dev")
    --namespace <ns>    Namespace bound to .Release.Namespace

DIAGNOSTICS
  lint [chart-dir]      Parse and validate a chart without rendering output

MAINTENANCE
  update                Update sextant to the latest version`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Version template
	rootCmd.SetVersionTemplate("sextant version {{.Version}}\n")
}

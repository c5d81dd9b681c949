package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// completeChartDirs completes the chart-dir positional: directories that
// contain a chart.yaml, searched one level below the current directory.
func completeChartDirs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Don't complete if we already have an argument
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	entries, err := os.ReadDir(".")
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(e.Name(), "chart.yaml")); err != nil {
			continue
		}
		if strings.HasPrefix(e.Name(), toComplete) {
			names = append(names, e.Name())
		}
	}

	return names, cobra.ShellCompDirectiveNoFileComp
}

// completeValuesFiles completes --values with YAML files only.
func completeValuesFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
}

// registerCompletions registers all dynamic completions for commands.
// This is called from init() to set up completions after all commands are defined.
func registerCompletions() {
	renderCmd.ValidArgsFunction = completeChartDirs
	lintCmd.ValidArgsFunction = completeChartDirs

	// Completions are optional; ignore registration failures.
	_ = renderCmd.RegisterFlagCompletionFunc("values", completeValuesFiles)
	_ = lintCmd.RegisterFlagCompletionFunc("values", completeValuesFiles)
}

func init() {
	// Use a deferred registration via cobra.OnInitialize to ensure
	// all commands are registered before we add completions
	cobra.OnInitialize(registerCompletions)
}

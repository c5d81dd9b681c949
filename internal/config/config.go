// Package config handles project discovery and configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the sextant project configuration.
type Config struct {
	// Root is the project root directory (contains chart/).
	Root string

	// ChartDir is the path to the chart directory.
	ChartDir string

	// ValuesFile is the path to the project-level values overlay, if any.
	ValuesFile string
}

// FindRoot searches upward from the current directory to find the project
// root. The project root is identified by a chart/ directory containing a
// chart.yaml.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		chartMeta := filepath.Join(dir, "chart", "chart.yaml")
		if _, err := os.Stat(chartMeta); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("project root not found (no chart/chart.yaml)")
}

// Load finds the project root and returns a Config. ValuesFile is set only
// when a values.yaml exists at the root.
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Root:     root,
		ChartDir: filepath.Join(root, "chart"),
	}
	valuesFile := filepath.Join(root, "values.yaml")
	if _, err := os.Stat(valuesFile); err == nil {
		cfg.ValuesFile = valuesFile
	}

	return cfg, nil
}

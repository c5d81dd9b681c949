package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOverlay(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	prod := filepath.Join(dir, "prod.yaml")
	require.NoError(t, os.WriteFile(base, []byte("replicaCount: 2\nimage:\n  tag: '1.0'\n"), 0644))
	require.NoError(t, os.WriteFile(prod, []byte("replicaCount: 5\n"), 0644))

	t.Run("later files win", func(t *testing.T) {
		overlay, err := buildOverlay([]string{base, prod}, nil)
		require.NoError(t, err)

		v, _ := overlay.Get("replicaCount")
		assert.Equal(t, 5, v)
		tag, ok := overlay.Lookup("image.tag")
		require.True(t, ok)
		assert.Equal(t, "1.0", tag)
	})

	t.Run("set wins over files", func(t *testing.T) {
		overlay, err := buildOverlay([]string{base}, []string{"replicaCount=7"})
		require.NoError(t, err)

		v, _ := overlay.Get("replicaCount")
		assert.Equal(t, 7, v)
	})

	t.Run("set creates nested paths", func(t *testing.T) {
		overlay, err := buildOverlay(nil, []string{"environmentVariables.LOG_LEVEL=debug"})
		require.NoError(t, err)

		v, ok := overlay.Lookup("environmentVariables.LOG_LEVEL")
		require.True(t, ok)
		assert.Equal(t, "debug", v)
	})

	t.Run("no inputs yields nil overlay", func(t *testing.T) {
		overlay, err := buildOverlay(nil, nil)
		require.NoError(t, err)
		assert.Nil(t, overlay)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := buildOverlay([]string{filepath.Join(dir, "nope.yaml")}, nil)
		require.Error(t, err)
	})

	t.Run("set without equals errors", func(t *testing.T) {
		_, err := buildOverlay(nil, []string{"replicaCount"})
		require.Error(t, err)
	})
}

func TestParseScalar(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{name: "integer", in: "3", want: 3},
		{name: "boolean", in: "true", want: true},
		{name: "float", in: "1.5", want: 1.5},
		{name: "string", in: "debug", want: "debug"},
		{name: "quoted number stays a string", in: "'120'", want: "120"},
		{name: "empty is nil", in: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseScalar(tt.in))
		})
	}
}

func TestLoadChartExplicitDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "templates"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chart.yaml"), []byte("name: demo\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates", "cm.yaml"), []byte("a: 1\n"), 0644))

	c, implicit, err := loadChart([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, "demo", c.Meta.Name)
	assert.Empty(t, implicit)
}

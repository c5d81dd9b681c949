package chart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sextant-dev/sextant/internal/values"
)

func TestMetadataValidate(t *testing.T) {
	tests := []struct {
		name    string
		meta    Metadata
		wantErr error
	}{
		{
			name: "valid metadata",
			meta: Metadata{APIVersion: APIVersionV1, Kind: KindChart, Name: "worker"},
		},
		{
			name: "empty apiVersion and kind are accepted",
			meta: Metadata{Name: "worker"},
		},
		{
			name:    "unsupported apiVersion",
			meta:    Metadata{APIVersion: "sextant.dev/v9", Name: "worker"},
			wantErr: ErrUnsupportedAPIVersion,
		},
		{
			name:    "wrong kind",
			meta:    Metadata{Kind: "Deployment", Name: "worker"},
			wantErr: ErrInvalidKind,
		},
		{
			name:    "missing name",
			meta:    Metadata{APIVersion: APIVersionV1, Kind: KindChart},
			wantErr: ErrMissingName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.meta.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuiltinChart(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	assert.Equal(t, "worker", c.Meta.Name)
	assert.Equal(t, []string{"templates/deployment.yaml"}, c.TemplateNames())
	assert.True(t, c.Values.Has("replicaCount"))
}

// The helpers file starts with an underscore; it must still ship inside the
// embedded chart or every include() in the builtin templates breaks.
func TestBuiltinChartEmbedsHelpers(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	docs, err := c.Render(RenderOptions{})
	require.NoError(t, err)

	doc := docs["templates/deployment.yaml"]
	assert.Contains(t, doc, "name: dev-worker")
	assert.Contains(t, doc, "app.kubernetes.io/managed-by: sextant")
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeChartFile(t, dir, "chart.yaml", "apiVersion: sextant.dev/v1\nkind: Chart\nname: demo\nappVersion: '3.1'\n")
	writeChartFile(t, dir, "values.yaml", "greeting: hello\n")
	writeChartFile(t, dir, "templates/_helpers.tpl", `{{- define "demo.name" -}}{{ .Chart.Name }}{{- end -}}`)
	writeChartFile(t, dir, "templates/cm.yaml", "name: {{ include(\"demo.name\", .) }}\ndata: {{ .Values.greeting }}\n")

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "demo", c.Meta.Name)
	assert.Equal(t, []string{"templates/cm.yaml"}, c.TemplateNames())

	docs, err := c.Render(RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, "name: demo\ndata: hello\n", docs["templates/cm.yaml"])
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing chart.yaml", func(t *testing.T) {
		_, err := Load(t.TempDir())
		require.Error(t, err)
	})

	t.Run("invalid metadata", func(t *testing.T) {
		dir := t.TempDir()
		writeChartFile(t, dir, "chart.yaml", "kind: NotAChart\nname: x\n")
		writeChartFile(t, dir, "templates/cm.yaml", "a: 1\n")

		_, err := Load(dir)
		assert.ErrorIs(t, err, ErrInvalidKind)
	})

	t.Run("malformed template fails the load", func(t *testing.T) {
		dir := t.TempDir()
		writeChartFile(t, dir, "chart.yaml", "name: x\n")
		writeChartFile(t, dir, "templates/bad.yaml", "a: {{ if .Values.x }}\n")

		_, err := Load(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing {{ end }}")
	})
}

func TestRenderDefaults(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	docs, err := c.Render(RenderOptions{})
	require.NoError(t, err)
	doc := parseManifest(t, docs["templates/deployment.yaml"])

	assert.Equal(t, "apps/v1", dig(t, doc, "apiVersion"))
	assert.Equal(t, "Deployment", dig(t, doc, "kind"))
	assert.Equal(t, "dev-worker", dig(t, doc, "metadata", "name"))
	assert.Equal(t, "default", dig(t, doc, "metadata", "namespace"))
	assert.Equal(t, 1, dig(t, doc, "spec", "replicas"))

	container := digContainer(t, doc)
	assert.Equal(t, "ghcr.io/sextant-dev/worker:1.0.0", dig(t, container, "image"))
	assert.Equal(t, []any{"--level", "info", "--check-interval", "120"}, dig(t, container, "args"))

	// no environment variables configured: no env block, no annotations
	assert.NotContains(t, container, "env")
	meta := dig(t, doc, "spec", "template", "metadata").(map[string]any)
	assert.NotContains(t, meta, "annotations")

	assert.Equal(t, "default", dig(t, doc, "spec", "template", "spec", "serviceAccountName"))
}

func TestRenderWithOverrides(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	overlay, err := values.Parse([]byte(`
replicaCount: 3
environmentVariables:
  LOG_LEVEL: debug
`))
	require.NoError(t, err)

	docs, err := c.Render(RenderOptions{Values: overlay, ReleaseName: "prod", Namespace: "workers"})
	require.NoError(t, err)
	doc := parseManifest(t, docs["templates/deployment.yaml"])

	assert.Equal(t, "prod-worker", dig(t, doc, "metadata", "name"))
	assert.Equal(t, "workers", dig(t, doc, "metadata", "namespace"))
	assert.Equal(t, 3, dig(t, doc, "spec", "replicas"))

	container := digContainer(t, doc)
	assert.Equal(t, []any{"--level", "debug", "--check-interval", "120"}, dig(t, container, "args"))

	env := dig(t, container, "env").([]any)
	require.Len(t, env, 1)
	entry := env[0].(map[string]any)
	assert.Equal(t, "LOG_LEVEL", entry["name"])
	ref := dig(t, entry, "valueFrom", "secretKeyRef")
	assert.Equal(t, "prod-worker", dig(t, ref, "name"))
	assert.Equal(t, "LOG_LEVEL", dig(t, ref, "key"))
}

func TestRenderDryRunFlag(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	overlay, err := values.Parse([]byte("environmentVariables:\n  DRY_RUN: true\n"))
	require.NoError(t, err)

	docs, err := c.Render(RenderOptions{Values: overlay})
	require.NoError(t, err)
	container := digContainer(t, parseManifest(t, docs["templates/deployment.yaml"]))

	args := dig(t, container, "args").([]any)
	assert.Contains(t, args, "--dry-run")
}

func TestRenderCheckIntervalStaysQuoted(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	overlay, err := values.Parse([]byte("environmentVariables:\n  CHECK_INTERVAL: 30\n"))
	require.NoError(t, err)

	docs, err := c.Render(RenderOptions{Values: overlay})
	require.NoError(t, err)
	container := digContainer(t, parseManifest(t, docs["templates/deployment.yaml"]))

	args := dig(t, container, "args").([]any)
	assert.Contains(t, args, "30")
	assert.NotContains(t, args, 30)
}

func TestRenderPodAnnotations(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	overlay, err := values.Parse([]byte("podAnnotations:\n  checksum/config: abc123\n  team: platform\n"))
	require.NoError(t, err)

	docs, err := c.Render(RenderOptions{Values: overlay})
	require.NoError(t, err)
	doc := parseManifest(t, docs["templates/deployment.yaml"])

	ann := dig(t, doc, "spec", "template", "metadata", "annotations").(map[string]any)
	assert.Equal(t, "abc123", ann["checksum/config"])
	assert.Equal(t, "platform", ann["team"])
}

func TestRenderEnvOrderFollowsDocument(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	overlay, err := values.Parse([]byte(`
environmentVariables:
  ZEBRA: z
  ALPHA: a
  MIKE: m
`))
	require.NoError(t, err)

	docs, err := c.Render(RenderOptions{Values: overlay})
	require.NoError(t, err)
	container := digContainer(t, parseManifest(t, docs["templates/deployment.yaml"]))

	env := dig(t, container, "env").([]any)
	names := make([]string, len(env))
	for i, e := range env {
		names[i] = e.(map[string]any)["name"].(string)
	}
	assert.Equal(t, []string{"ZEBRA", "ALPHA", "MIKE"}, names)
}

func TestRenderIsRepeatable(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	overlay, err := values.Parse([]byte("environmentVariables:\n  B: 2\n  A: 1\n"))
	require.NoError(t, err)
	opts := RenderOptions{Values: overlay}

	first, err := c.Render(opts)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := c.Render(opts)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRenderFailsAtomically(t *testing.T) {
	dir := t.TempDir()
	writeChartFile(t, dir, "chart.yaml", "name: x\n")
	writeChartFile(t, dir, "templates/a.yaml", "ok: {{ .Values.present }}\n")
	writeChartFile(t, dir, "templates/b.yaml", "bad: {{ .Values.missing }}\n")

	c, err := Load(dir)
	require.NoError(t, err)

	overlay, err := values.Parse([]byte("present: 1\n"))
	require.NoError(t, err)

	docs, err := c.Render(RenderOptions{Values: overlay})
	require.Error(t, err)
	assert.Nil(t, docs)
}

func writeChartFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func parseManifest(t *testing.T, doc string) map[string]any {
	t.Helper()
	require.False(t, strings.Contains(doc, "{{"), "unrendered directive in output:\n%s", doc)

	var out map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(doc), &out), "output is not valid YAML:\n%s", doc)
	return out
}

// dig walks nested map[string]any keys.
func dig(t *testing.T, v any, path ...string) any {
	t.Helper()
	for _, key := range path {
		m, ok := v.(map[string]any)
		require.True(t, ok, "expected mapping at %q", key)
		v, ok = m[key]
		require.True(t, ok, "missing key %q", key)
	}
	return v
}

func digContainer(t *testing.T, doc map[string]any) map[string]any {
	t.Helper()
	containers := dig(t, doc, "spec", "template", "spec", "containers").([]any)
	require.Len(t, containers, 1)
	return containers[0].(map[string]any)
}

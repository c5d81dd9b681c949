package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "unterminated directive", text: "a: {{ .Values.x"},
		{name: "unterminated if block", text: "{{ if .Values.x }}body"},
		{name: "unterminated with block", text: "{{ with .Values.x }}body"},
		{name: "unterminated range block", text: "{{ range k, v := .Values.x }}body"},
		{name: "stray end", text: "a\n{{ end }}"},
		{name: "stray else", text: "{{ else }}"},
		{name: "else after end", text: "{{ if .x }}a{{ end }}{{ else }}"},
		{name: "empty directive", text: "{{ }}"},
		{name: "if without condition", text: "{{ if }}a{{ end }}"},
		{name: "range without variables", text: "{{ range .Values.x }}a{{ end }}"},
		{name: "range with single variable", text: "{{ range v := .Values.x }}a{{ end }}"},
		{name: "define without name", text: "{{ define }}a{{ end }}"},
		{name: "define with bare name", text: "{{ define name }}a{{ end }}"},
		{name: "duplicate define", text: `{{ define "a" }}x{{ end }}{{ define "a" }}y{{ end }}`},
		{name: "unterminated string literal", text: `{{ .x | default("oops) }}`},
		{name: "pipeline into a bare path", text: "{{ .a | .b }}"},
		{name: "missing close paren", text: "{{ default(1 }}"},
		{name: "trailing tokens", text: "{{ .a .b }}"},
		{name: "second path after whitespace", text: "{{ .Values.a .Values.b }}"},
		{name: "space inside dotted path", text: "{{ .a. b }}"},
		{name: "space before path dot", text: "{{ .a .b.c }}"},
		{name: "stray character", text: "{{ .a @ }}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test", tt.text)
			require.Error(t, err)

			var malformed *MalformedDirectiveError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestParseBlockErrorPointsAtOpener(t *testing.T) {
	_, err := Parse("test", "a\nb\n{{ if .Values.x }}\nnever closed")
	require.Error(t, err)

	var malformed *MalformedDirectiveError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 3, malformed.Pos.Line)
	assert.Contains(t, malformed.Message, "missing {{ end }}")
}

// Whitespace splits a reference but is still fine everywhere the grammar
// expects separate tokens.
func TestParseWhitespaceBetweenTokens(t *testing.T) {
	valid := []string{
		"{{ .a.b | default( 1 , 2 ) }}",
		"{{ default(.a.b, \"x\") }}",
		"{{ range k , v := .Values.env }}{{ k }}{{ end }}",
	}
	for _, text := range valid {
		_, err := Parse("test", text)
		assert.NoError(t, err, "text %q", text)
	}
}

func TestParseLiteralBraces(t *testing.T) {
	// }} inside a quoted string must not terminate the directive
	tmpl, err := Parse("test", `{{ .Values.x | default("}}") }}`)
	require.NoError(t, err)
	require.NotNil(t, tmpl)
}

func TestDefinedTemplates(t *testing.T) {
	tmpl, err := Parse("test", `{{ define "b" }}2{{ end }}{{ define "a" }}1{{ end }}body`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tmpl.DefinedTemplates())
}

func TestAddHelpers(t *testing.T) {
	t.Run("merges defines from helper files", func(t *testing.T) {
		tmpl, err := Parse("doc", `{{ include("helper.name", .) }}`)
		require.NoError(t, err)
		require.NoError(t, tmpl.AddHelpers("helpers", `{{ define "helper.name" }}ok{{ end }}`))

		out, err := tmpl.Execute(nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	})

	t.Run("rejects a duplicate name", func(t *testing.T) {
		tmpl, err := Parse("doc", `{{ define "x" }}1{{ end }}body`)
		require.NoError(t, err)

		err = tmpl.AddHelpers("helpers", `{{ define "x" }}2{{ end }}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "defined twice")
	})
}

// Package chart loads chart directories (metadata, default values, and
// templates) and renders them into Kubernetes manifests. Rendering stops at
// producing documents; nothing here talks to a cluster.
package chart

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sextant-dev/sextant/internal/template"
	"github.com/sextant-dev/sextant/internal/values"
)

// API version and kind constants for chart metadata.
const (
	// APIVersionV1 is the current API version for sextant charts.
	APIVersionV1 = "sextant.dev/v1"

	// KindChart identifies a chart metadata file.
	KindChart = "Chart"
)

// SupportedAPIVersions lists all API versions that can be loaded.
var SupportedAPIVersions = []string{APIVersionV1}

// Validation errors for chart metadata.
var (
	// ErrUnsupportedAPIVersion indicates an unknown or unsupported API version.
	ErrUnsupportedAPIVersion = errors.New("unsupported API version")

	// ErrInvalidKind indicates the metadata kind is not Chart.
	ErrInvalidKind = errors.New("invalid chart kind")

	// ErrMissingName indicates chart.yaml has no name.
	ErrMissingName = errors.New("chart name is required")
)

// all: is required so the _-prefixed helpers file is embedded too.
//
//go:embed all:builtin
var builtinFS embed.FS

// Metadata is the contents of chart.yaml.
type Metadata struct {
	// APIVersion identifies the schema version (e.g., "sextant.dev/v1").
	APIVersion string `yaml:"apiVersion,omitempty"`

	// Kind identifies the file type ("Chart").
	Kind string `yaml:"kind,omitempty"`

	// Name is the chart name, bound to .Chart.Name during rendering.
	Name string `yaml:"name"`

	// Version is the chart version.
	Version string `yaml:"version,omitempty"`

	// AppVersion is the workload version, the default image tag.
	AppVersion string `yaml:"appVersion,omitempty"`

	// Description is a one-line summary.
	Description string `yaml:"description,omitempty"`
}

// Validate checks the metadata the same way manifests are gated on
// apiVersion/kind: empty fields are allowed for backwards compatibility,
// wrong ones are not.
func (m Metadata) Validate() error {
	if m.APIVersion != "" {
		supported := false
		for _, v := range SupportedAPIVersions {
			if m.APIVersion == v {
				supported = true
				break
			}
		}
		if !supported {
			return fmt.Errorf("%w: %s (supported: %v)", ErrUnsupportedAPIVersion, m.APIVersion, SupportedAPIVersions)
		}
	}
	if m.Kind != "" && m.Kind != KindChart {
		return fmt.Errorf("%w: got %s, expected %s", ErrInvalidKind, m.Kind, KindChart)
	}
	if m.Name == "" {
		return ErrMissingName
	}
	return nil
}

// Chart is a loaded chart: metadata, default values, and parsed templates.
type Chart struct {
	// Meta is the chart.yaml contents.
	Meta Metadata

	// Values holds the chart's default values (values.yaml), overlaid by
	// user-supplied values at render time.
	Values *values.Map

	templates map[string]*template.Template
	order     []string
}

// Load reads a chart from a directory containing chart.yaml, an optional
// values.yaml, and a templates/ directory.
func Load(dir string) (*Chart, error) {
	return loadFS(os.DirFS(dir), ".")
}

// Builtin returns the embedded worker Deployment chart, used when no chart
// directory is given.
func Builtin() (*Chart, error) {
	return loadFS(builtinFS, "builtin")
}

func loadFS(fsys fs.FS, root string) (*Chart, error) {
	metaRaw, err := fs.ReadFile(fsys, path.Join(root, "chart.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read chart.yaml: %w", err)
	}
	var meta Metadata
	if err := yaml.Unmarshal(metaRaw, &meta); err != nil {
		return nil, fmt.Errorf("parse chart.yaml: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("chart.yaml: %w", err)
	}

	vals := values.New()
	if raw, err := fs.ReadFile(fsys, path.Join(root, "values.yaml")); err == nil {
		if vals, err = values.Parse(raw); err != nil {
			return nil, fmt.Errorf("values.yaml: %w", err)
		}
	}

	entries, err := fs.ReadDir(fsys, path.Join(root, "templates"))
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	type source struct {
		name string
		text string
	}
	var helpers, docs []source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".tpl") {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(root, "templates", name))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		src := source{name: "templates/" + name, text: string(raw)}
		if strings.HasPrefix(name, "_") {
			helpers = append(helpers, src)
		} else {
			docs = append(docs, src)
		}
	}

	c := &Chart{Meta: meta, Values: vals, templates: make(map[string]*template.Template)}
	var errs []error
	for _, d := range docs {
		t, err := template.Parse(d.name, d.text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, h := range helpers {
			if err := t.AddHelpers(h.name, h.text); err != nil {
				errs = append(errs, err)
			}
		}
		c.templates[d.name] = t
		c.order = append(c.order, d.name)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// TemplateNames lists the renderable templates in stable order.
func (c *Chart) TemplateNames() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// RenderOptions parameterize one render call.
type RenderOptions struct {
	// Values overlays the chart's default values. May be nil.
	Values *values.Map

	// ReleaseName is bound to .Release.Name; defaults to "dev".
	ReleaseName string

	// Namespace is bound to .Release.Namespace; defaults to "default".
	Namespace string
}

// Render executes every renderable template against the merged value tree
// and returns the finished documents keyed by template name. A render
// either yields all documents or fails with the first error; no partial
// manifest is returned.
func (c *Chart) Render(opts RenderOptions) (map[string]string, error) {
	vals := c.Values
	if opts.Values != nil {
		vals = values.Merge(c.Values, opts.Values)
	}
	ctx := c.renderContext(vals, opts)

	out := make(map[string]string, len(c.order))
	for _, name := range c.order {
		doc, err := c.templates[name].Execute(ctx)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		out[name] = doc
	}
	return out, nil
}

func (c *Chart) renderContext(vals *values.Map, opts RenderOptions) *values.Map {
	release := opts.ReleaseName
	if release == "" {
		release = "dev"
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "default"
	}
	return values.New().
		Set("Values", vals).
		Set("Chart", values.New().
			Set("Name", c.Meta.Name).
			Set("Version", c.Meta.Version).
			Set("AppVersion", c.Meta.AppVersion)).
		Set("Release", values.New().
			Set("Name", release).
			Set("Namespace", namespace))
}

// Package template implements the directive language used to render chart
// documents: {{ path }} substitution with default() fallback, if/with
// conditionals, range over ordered mappings, toYaml/nindent fragment
// embedding, named sub-templates via define/include, and {{- -}} trim
// markers.
//
// Rendering is a pure, synchronous pass over the parsed tree: an Execute
// call either produces the whole document or fails with a single error,
// never partial output. A parsed Template is immutable and safe for
// concurrent Execute calls.
package template

import (
	"fmt"
	"sort"
)

// Template is a parsed template plus the named sub-templates visible to its
// include calls.
type Template struct {
	name  string
	nodes []Node
	defs  map[string][]Node
}

// Parse parses text into a renderable Template. Define blocks in the source
// become named sub-templates; everything else is the main body.
func Parse(name, text string) (*Template, error) {
	nodes, defs, err := parse(name, text)
	if err != nil {
		return nil, err
	}
	return &Template{name: name, nodes: nodes, defs: defs}, nil
}

// Name returns the template's name.
func (t *Template) Name() string { return t.name }

// AddHelpers parses text and merges its define blocks into t's named
// template set. Text outside define blocks is ignored, matching the
// convention that helper files carry only definitions.
func (t *Template) AddHelpers(name, text string) error {
	_, defs, err := parse(name, text)
	if err != nil {
		return err
	}
	for n, body := range defs {
		if _, exists := t.defs[n]; exists {
			return fmt.Errorf("%s: template %q defined twice", name, n)
		}
		t.defs[n] = body
	}
	return nil
}

// DefinedTemplates lists the names available to include, sorted.
func (t *Template) DefinedTemplates() []string {
	names := make([]string, 0, len(t.defs))
	for n := range t.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Execute renders the template against data and returns the finished
// document. On error no output is returned; a half-rendered document would
// be structurally invalid.
func (t *Template) Execute(data any) (string, error) {
	r := &renderer{t: t}
	if err := r.walk(t.nodes, &scope{dot: data, root: data}); err != nil {
		return "", err
	}
	return r.out.String(), nil
}

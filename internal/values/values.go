// Package values implements the value tree bound to template variables.
// Mappings preserve their YAML document order, so iterating a mapping is
// stable across renders and follows insertion order, not sort order.
package values

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Map is an insertion-ordered string-keyed mapping. Nested mappings decoded
// from YAML are themselves *Map values, sequences are []any, and scalars
// keep the native type YAML resolves them to.
type Map struct {
	keys []string
	vals map[string]any
}

// New creates an empty Map.
func New() *Map {
	return &Map{vals: make(map[string]any)}
}

// Set binds key to v. An existing key keeps its original position; a new
// key is appended. Returns m for chaining.
func (m *Map) Set(key string, v any) *Map {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
	return m
}

// Get returns the value bound to key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Has reports whether key is bound.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Lookup resolves a dotted path like "image.repository". Any missing
// segment, including a missing ancestor, reports the leaf as absent.
func (m *Map) Lookup(path string) (any, bool) {
	var cur any = m
	for _, seg := range strings.Split(path, ".") {
		node, ok := cur.(*Map)
		if !ok {
			return nil, false
		}
		if cur, ok = node.Get(seg); !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath binds a dotted path, creating intermediate mappings as needed.
// A non-mapping intermediate is replaced.
func (m *Map) SetPath(path string, v any) {
	segs := strings.Split(path, ".")
	cur := m
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur.vals[seg].(*Map)
		if !ok {
			next = New()
			cur.Set(seg, next)
		}
		cur = next
	}
	cur.Set(segs[len(segs)-1], v)
}

// Clone returns a deep copy: nested Maps and sequences are copied, scalars
// are shared.
func (m *Map) Clone() *Map {
	if m == nil {
		return New()
	}
	out := New()
	for _, k := range m.keys {
		out.Set(k, cloneValue(m.vals[k]))
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case *Map:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Merge layers overlay over base and returns a new Map. Mappings merge
// recursively; anything else in the overlay replaces the base value. Keys
// already in base keep their position, new keys append in overlay order,
// so repeated merges of the same inputs iterate identically.
func Merge(base, overlay *Map) *Map {
	out := base.Clone()
	if overlay == nil {
		return out
	}
	for _, k := range overlay.keys {
		ov := overlay.vals[k]
		if bm, ok := out.vals[k].(*Map); ok {
			if om, ok := ov.(*Map); ok {
				out.Set(k, Merge(bm, om))
				continue
			}
		}
		out.Set(k, cloneValue(ov))
	}
	return out
}

// Parse decodes YAML into an ordered Map. An empty document yields an
// empty Map.
func Parse(data []byte) (*Map, error) {
	m := New()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse values: %w", err)
	}
	return m, nil
}

// UnmarshalYAML implements yaml.Unmarshaler, preserving key order.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	for node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Tag == "!!null" {
		m.keys = nil
		m.vals = make(map[string]any)
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping, got %s", node.Line, node.Tag)
	}
	m.keys = nil
	m.vals = make(map[string]any)
	for i := 0; i+1 < len(node.Content); i += 2 {
		v, err := decodeNode(node.Content[i+1])
		if err != nil {
			return err
		}
		m.Set(node.Content[i].Value, v)
	}
	return nil
}

func decodeNode(n *yaml.Node) (any, error) {
	for n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.DocumentNode:
		return decodeNode(n.Content[0])
	case yaml.MappingNode:
		m := New()
		if err := m.UnmarshalYAML(n); err != nil {
			return nil, err
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// MarshalYAML implements yaml.Marshaler, emitting keys in insertion order.
func (m *Map) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if m == nil {
		return node, nil
	}
	for _, k := range m.keys {
		vn, err := encodeValue(m.vals[k])
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			vn,
		)
	}
	return node, nil
}

func encodeValue(v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case *Map:
		n, err := x.MarshalYAML()
		if err != nil {
			return nil, err
		}
		return n.(*yaml.Node), nil
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range x {
			en, err := encodeValue(e)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, en)
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(v); err != nil {
			return nil, err
		}
		return node, nil
	}
}

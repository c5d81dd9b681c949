package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sextant-dev/sextant/internal/values"
)

// absentValue flows through a pipeline in place of a lookup that found no
// binding. Only default() consumes it; a truthiness test treats it as falsy;
// anything else that touches it fails the render with an
// UnresolvedReferenceError. A missing ancestor makes the leaf absent, so
// nested lookups below a missing parent still reach their default.
type absentValue struct {
	path string
	pos  Position
}

// scope is one frame of the context stack: the dot rebound by with, the
// root reachable through $, and the variables bound by enclosing ranges.
type scope struct {
	dot  any
	root any
	vars map[string]any
}

func (s *scope) child(dot any) *scope {
	return &scope{dot: dot, root: s.root, vars: s.vars}
}

func (s *scope) bind(key string, kv any, value string, vv any) *scope {
	vars := make(map[string]any, len(s.vars)+2)
	for k, v := range s.vars {
		vars[k] = v
	}
	vars[key] = kv
	vars[value] = vv
	return &scope{dot: s.dot, root: s.root, vars: vars}
}

const maxIncludeDepth = 32

// renderer holds the mutable state of one Execute call. A failed walk
// leaves no partial output observable: Execute discards the builder.
type renderer struct {
	t     *Template
	out   strings.Builder
	depth int
}

func (r *renderer) walk(nodes []Node, s *scope) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case *TextNode:
			r.out.WriteString(n.Text)

		case *ActionNode:
			v, err := r.evalPipeline(n.Pipe, s)
			if err != nil {
				return err
			}
			if a, ok := v.(absentValue); ok {
				return &UnresolvedReferenceError{Path: a.path, Pos: a.pos}
			}
			str, err := stringifyScalar(v)
			if err != nil {
				return &MalformedDirectiveError{Directive: n.Pipe.Raw, Pos: n.Pos, Message: err.Error()}
			}
			// A spliced sub-template may span lines; re-align its
			// continuation lines under the directive's own column unless a
			// pipeline stage (nindent) already placed them.
			if n.Indent > 0 && endsWithInclude(n.Pipe) && strings.Contains(str, "\n") {
				str = strings.ReplaceAll(str, "\n", "\n"+strings.Repeat(" ", n.Indent))
			}
			r.out.WriteString(str)

		case *IfNode:
			v, err := r.evalPipeline(n.Pipe, s)
			if err != nil {
				return err
			}
			body := n.Else
			if truthy(v) {
				body = n.Body
			}
			if err := r.walk(body, s); err != nil {
				return err
			}

		case *WithNode:
			v, err := r.evalPipeline(n.Pipe, s)
			if err != nil {
				return err
			}
			if truthy(v) {
				err = r.walk(n.Body, s.child(v))
			} else {
				err = r.walk(n.Else, s)
			}
			if err != nil {
				return err
			}

		case *RangeNode:
			if err := r.walkRange(n, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *renderer) walkRange(n *RangeNode, s *scope) error {
	v, err := r.evalPipeline(n.Pipe, s)
	if err != nil {
		return err
	}
	switch target := v.(type) {
	case nil:
		// no entries, nothing to emit
	case absentValue:
		// absent mapping behaves like an empty one
	case *values.Map:
		for _, k := range target.Keys() {
			entry, _ := target.Get(k)
			if err := r.walk(n.Body, s.bind(n.Key, k, n.Value, entry)); err != nil {
				return err
			}
		}
	case []any:
		for i, entry := range target {
			if err := r.walk(n.Body, s.bind(n.Key, i, n.Value, entry)); err != nil {
				return err
			}
		}
	case map[string]any:
		// plain Go maps have no defined order; iterate sorted so repeated
		// renders stay stable
		keys := make([]string, 0, len(target))
		for k := range target {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := r.walk(n.Body, s.bind(n.Key, k, n.Value, target[k])); err != nil {
				return err
			}
		}
	default:
		return &MalformedDirectiveError{
			Directive: "range " + n.Pipe.Raw,
			Pos:       n.Pos,
			Message:   fmt.Sprintf("range target must be a mapping or sequence, got %T", v),
		}
	}
	return nil
}

func (r *renderer) evalPipeline(p *Pipeline, s *scope) (any, error) {
	v, err := r.evalExpr(p.First, s)
	if err != nil {
		return nil, err
	}
	for _, call := range p.Calls {
		if v, err = r.evalCall(call, s, v, true); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (r *renderer) evalExpr(e Expr, s *scope) (any, error) {
	switch e := e.(type) {
	case *LitExpr:
		return e.Val, nil
	case *PathExpr:
		return resolvePath(e, s), nil
	case *CallExpr:
		return r.evalCall(e, s, nil, false)
	default:
		return nil, fmt.Errorf("unknown expression type %T", e)
	}
}

// resolvePath walks a dotted reference through the context stack. Any
// missing segment, including a missing ancestor, yields an absent value.
func resolvePath(e *PathExpr, s *scope) any {
	var cur any
	segs := e.Segs
	switch e.Kind {
	case pathDot:
		cur = s.dot
	case pathRoot:
		cur = s.root
	case pathBare:
		if v, ok := s.vars[segs[0]]; ok {
			cur = v
			segs = segs[1:]
		} else {
			cur = s.dot
		}
	}
	for _, seg := range segs {
		switch m := cur.(type) {
		case *values.Map:
			v, ok := m.Get(seg)
			if !ok {
				return absentValue{path: e.Raw, pos: e.Pos}
			}
			cur = v
		case map[string]any:
			v, ok := m[seg]
			if !ok {
				return absentValue{path: e.Raw, pos: e.Pos}
			}
			cur = v
		default:
			return absentValue{path: e.Raw, pos: e.Pos}
		}
	}
	return cur
}

func (r *renderer) evalCall(c *CallExpr, s *scope, piped any, hasPiped bool) (any, error) {
	args := make([]any, 0, len(c.Args)+1)
	for _, a := range c.Args {
		v, err := r.evalExpr(a, s)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	if hasPiped {
		args = append(args, piped)
	}
	return r.callFunc(c.Fn, args, c.Pos)
}

// endsWithInclude reports whether the pipeline's final stage is an include
// splice (either a bare include(...) term or a trailing | include(...)).
func endsWithInclude(p *Pipeline) bool {
	if len(p.Calls) > 0 {
		return p.Calls[len(p.Calls)-1].Fn == "include"
	}
	call, ok := p.First.(*CallExpr)
	return ok && call.Fn == "include"
}

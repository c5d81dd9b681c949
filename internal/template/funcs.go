package template

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/sextant-dev/sextant/internal/values"
)

// String helpers are borrowed from sprig rather than reimplemented; the
// engine adapts them to its own calling convention (piped value appended as
// the final argument).
var (
	sprigFuncs = sprig.TxtFuncMap()

	sprigIndent     = sprigFuncs["indent"].(func(int, string) string)
	sprigNindent    = sprigFuncs["nindent"].(func(int, string) string)
	sprigQuote      = sprigFuncs["quote"].(func(...any) string)
	sprigUpper      = sprigFuncs["upper"].(func(string) string)
	sprigLower      = sprigFuncs["lower"].(func(string) string)
	sprigTrunc      = sprigFuncs["trunc"].(func(int, string) string)
	sprigB64enc     = sprigFuncs["b64enc"].(func(string) string)
	sprigTrimSuffix = sprigFuncs["trimSuffix"].(func(string, string) string)
)

// callFunc dispatches one function call. default and include see raw
// arguments; every other function requires fully resolved ones, so an
// absent value reaching them fails the render.
func (r *renderer) callFunc(fn string, args []any, pos Position) (any, error) {
	switch fn {
	case "default":
		if len(args) != 2 {
			return nil, &MalformedDirectiveError{Directive: fn, Pos: pos, Message: "default takes a fallback plus the piped value"}
		}
		// The fallback applies only when the subject is entirely absent;
		// 0, "" and false are present values and pass through.
		fallback, subject := args[0], args[1]
		if _, ok := subject.(absentValue); ok {
			return fallback, nil
		}
		return subject, nil

	case "include":
		return r.include(args, pos)
	}

	for _, a := range args {
		if ab, ok := a.(absentValue); ok {
			return nil, &UnresolvedReferenceError{Path: ab.path, Pos: ab.pos}
		}
	}

	switch fn {
	case "toYaml":
		if err := wantArgs(fn, args, 1, pos); err != nil {
			return nil, err
		}
		return toYAML(args[0])
	case "nindent":
		n, s, err := intStringArgs(fn, args, pos)
		if err != nil {
			return nil, err
		}
		return sprigNindent(n, s), nil
	case "indent":
		n, s, err := intStringArgs(fn, args, pos)
		if err != nil {
			return nil, err
		}
		return sprigIndent(n, s), nil
	case "quote":
		if err := wantArgs(fn, args, 1, pos); err != nil {
			return nil, err
		}
		return sprigQuote(args[0]), nil
	case "upper":
		s, err := stringArg(fn, args, pos)
		if err != nil {
			return nil, err
		}
		return sprigUpper(s), nil
	case "lower":
		s, err := stringArg(fn, args, pos)
		if err != nil {
			return nil, err
		}
		return sprigLower(s), nil
	case "b64enc":
		s, err := stringArg(fn, args, pos)
		if err != nil {
			return nil, err
		}
		return sprigB64enc(s), nil
	case "trunc":
		n, s, err := intStringArgs(fn, args, pos)
		if err != nil {
			return nil, err
		}
		return sprigTrunc(n, s), nil
	case "trimSuffix":
		if err := wantArgs(fn, args, 2, pos); err != nil {
			return nil, err
		}
		suffix, err := scalarString(fn, args[0], pos)
		if err != nil {
			return nil, err
		}
		s, err := scalarString(fn, args[1], pos)
		if err != nil {
			return nil, err
		}
		return sprigTrimSuffix(suffix, s), nil
	default:
		return nil, &MalformedDirectiveError{Directive: fn, Pos: pos, Message: "unknown function"}
	}
}

// include renders a named sub-template against the given context and
// splices the result at the call site.
func (r *renderer) include(args []any, pos Position) (any, error) {
	if len(args) != 2 {
		return nil, &MalformedDirectiveError{Directive: "include", Pos: pos, Message: "include takes a template name and a context"}
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, &MalformedDirectiveError{Directive: "include", Pos: pos, Message: "include needs a quoted template name"}
	}
	body, ok := r.t.defs[name]
	if !ok {
		return nil, &MalformedDirectiveError{Directive: "include", Pos: pos, Message: fmt.Sprintf("template %q is not defined", name)}
	}
	if r.depth >= maxIncludeDepth {
		return nil, &MalformedDirectiveError{Directive: "include", Pos: pos, Message: fmt.Sprintf("include depth exceeds %d, likely a recursive template", maxIncludeDepth)}
	}
	ctx := args[1]
	sub := &renderer{t: r.t, depth: r.depth + 1}
	if err := sub.walk(body, &scope{dot: ctx, root: ctx}); err != nil {
		return nil, err
	}
	return sub.out.String(), nil
}

// toYAML serializes a value into a two-space-indented YAML fragment with no
// trailing newline, ready for nindent. Ordered mappings keep their key
// order. The transform is purely textual downstream: nindent prefixes every
// line, whatever the fragment's internal depth.
func toYAML(v any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("toYaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("toYaml: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// stringifyScalar renders a scalar as it should appear in output. Mappings
// and sequences must go through toYaml first.
func stringifyScalar(v any) (string, error) {
	switch v.(type) {
	case *values.Map, map[string]any, []any:
		return "", fmt.Errorf("cannot write a %T directly, serialize it with toYaml", v)
	case nil:
		return "", nil
	}
	return cast.ToStringE(v)
}

// truthy implements the truthiness used by if and with: absent values,
// false, empty strings, numeric zero, and empty collections are falsy.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case absentValue:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case *values.Map:
		return x.Len() > 0
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	}
	if n, err := cast.ToFloat64E(v); err == nil {
		return n != 0
	}
	return true
}

func wantArgs(fn string, args []any, n int, pos Position) error {
	if len(args) != n {
		return &MalformedDirectiveError{Directive: fn, Pos: pos, Message: fmt.Sprintf("%s takes %d argument(s), got %d", fn, n, len(args))}
	}
	return nil
}

func stringArg(fn string, args []any, pos Position) (string, error) {
	if err := wantArgs(fn, args, 1, pos); err != nil {
		return "", err
	}
	return scalarString(fn, args[0], pos)
}

func intStringArgs(fn string, args []any, pos Position) (int, string, error) {
	if err := wantArgs(fn, args, 2, pos); err != nil {
		return 0, "", err
	}
	n, err := cast.ToIntE(args[0])
	if err != nil {
		return 0, "", &MalformedDirectiveError{Directive: fn, Pos: pos, Message: fmt.Sprintf("%s needs an integer, got %v", fn, args[0])}
	}
	s, err := scalarString(fn, args[1], pos)
	if err != nil {
		return 0, "", err
	}
	return n, s, nil
}

func scalarString(fn string, v any, pos Position) (string, error) {
	s, err := stringifyScalar(v)
	if err != nil {
		return "", &MalformedDirectiveError{Directive: fn, Pos: pos, Message: err.Error()}
	}
	return s, nil
}

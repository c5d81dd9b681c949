package template

import "fmt"

// Position locates a directive in template source.
type Position struct {
	Name string // template name
	Line int    // 1-based line
	Col  int    // 1-based column
}

// String returns the position as name:line:col.
func (p Position) String() string {
	if p.Name != "" {
		return fmt.Sprintf("%s:%d:%d", p.Name, p.Line, p.Col)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// UnresolvedReferenceError reports a value lookup that found no binding and
// had no default to fall back on. The render producing it returns no output.
type UnresolvedReferenceError struct {
	// Path is the unresolved reference as written in the template.
	Path string
	// Pos is where the reference appears.
	Pos Position
}

// Error implements the error interface.
func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference %q at %s", e.Path, e.Pos)
}

// MalformedDirectiveError reports a structurally invalid directive: an
// unterminated block, a stray end, an invalid range target, or a bad
// expression. The render producing it returns no output.
type MalformedDirectiveError struct {
	// Directive is the offending directive text, when known.
	Directive string
	// Pos is where the directive appears.
	Pos Position
	// Message describes what is wrong.
	Message string
}

// Error implements the error interface.
func (e *MalformedDirectiveError) Error() string {
	if e.Directive != "" {
		return fmt.Sprintf("malformed directive {{ %s }} at %s: %s", e.Directive, e.Pos, e.Message)
	}
	return fmt.Sprintf("malformed directive at %s: %s", e.Pos, e.Message)
}

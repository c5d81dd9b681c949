package template

import (
	"fmt"
	"strconv"
	"strings"
)

// Pipeline is one directive expression: an initial term piped through zero
// or more function calls, each call receiving the piped value as its final
// argument.
type Pipeline struct {
	First Expr
	Calls []*CallExpr
	Pos   Position
	Raw   string
}

// Expr is a term in a pipeline.
type Expr interface {
	exprNode()
}

// LitExpr is a literal: a quoted string, a number, or a boolean.
type LitExpr struct {
	Val any
}

type pathKind int

const (
	pathDot  pathKind = iota // relative to the current context (".", ".a.b")
	pathRoot                 // relative to the root context ("$", "$.a.b")
	pathBare                 // loop variable or current-context key ("key", "a.b")
)

// PathExpr is a dotted value reference.
type PathExpr struct {
	Kind pathKind
	Segs []string
	Raw  string
	Pos  Position
}

// CallExpr is a function call, either standalone or as a pipeline stage.
type CallExpr struct {
	Fn   string
	Args []Expr
	Pos  Position
}

func (*LitExpr) exprNode()  {}
func (*PathExpr) exprNode() {}
func (*CallExpr) exprNode() {}

type tokKind int

const (
	tEOF tokKind = iota
	tIdent
	tNumber
	tString
	tDot
	tDollar
	tPipe
	tComma
	tLparen
	tRparen
	tDeclare // :=
)

// token records its byte offsets in the source so the path parser can tell
// ".a.b" (one reference) apart from ".a .b" (a reference plus a stray token).
type token struct {
	kind tokKind
	val  string
	pos  int // byte offset of the token's first byte
	end  int // byte offset just past the token
}

func tokenize(src string, pos Position) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '|':
			toks = append(toks, token{kind: tPipe, pos: i, end: i + 1})
			i++
		case c == ',':
			toks = append(toks, token{kind: tComma, pos: i, end: i + 1})
			i++
		case c == '(':
			toks = append(toks, token{kind: tLparen, pos: i, end: i + 1})
			i++
		case c == ')':
			toks = append(toks, token{kind: tRparen, pos: i, end: i + 1})
			i++
		case c == '.':
			toks = append(toks, token{kind: tDot, pos: i, end: i + 1})
			i++
		case c == '$':
			toks = append(toks, token{kind: tDollar, pos: i, end: i + 1})
			i++
		case c == ':':
			if i+1 >= len(src) || src[i+1] != '=' {
				return nil, &MalformedDirectiveError{Directive: src, Pos: pos, Message: "expected := in expression"}
			}
			toks = append(toks, token{kind: tDeclare, pos: i, end: i + 2})
			i += 2
		case c == '"':
			j := i + 1
			for j < len(src) {
				if src[j] == '\\' {
					j += 2
					continue
				}
				if src[j] == '"' {
					break
				}
				j++
			}
			if j >= len(src) {
				return nil, &MalformedDirectiveError{Directive: src, Pos: pos, Message: "unterminated string literal"}
			}
			unq, err := strconv.Unquote(src[i : j+1])
			if err != nil {
				return nil, &MalformedDirectiveError{Directive: src, Pos: pos, Message: "invalid string literal: " + err.Error()}
			}
			toks = append(toks, token{kind: tString, val: unq, pos: i, end: j + 1})
			i = j + 1
		case c >= '0' && c <= '9' || (c == '-' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9'):
			j := i + 1
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tNumber, val: src[i:j], pos: i, end: j})
			i = j
		case isIdentByte(c):
			j := i + 1
			for j < len(src) && isIdentByte(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tIdent, val: src[i:j], pos: i, end: j})
			i = j
		default:
			return nil, &MalformedDirectiveError{Directive: src, Pos: pos, Message: fmt.Sprintf("unexpected character %q in expression", c)}
		}
	}
	return append(toks, token{kind: tEOF, pos: len(src), end: len(src)}), nil
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

type exprParser struct {
	toks []token
	i    int
	src  string
	pos  Position
}

func (p *exprParser) peek() token { return p.toks[p.i] }

func (p *exprParser) next() token {
	t := p.toks[p.i]
	if t.kind != tEOF {
		p.i++
	}
	return t
}

func (p *exprParser) errf(format string, args ...any) error {
	return &MalformedDirectiveError{Directive: p.src, Pos: p.pos, Message: fmt.Sprintf(format, args...)}
}

// parsePipeline parses "expr | fn(args) | fn(args)".
func parsePipeline(src string, pos Position) (*Pipeline, error) {
	toks, err := tokenize(src, pos)
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks, src: strings.TrimSpace(src), pos: pos}
	pipe, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tEOF {
		return nil, p.errf("unexpected trailing tokens in expression")
	}
	return pipe, nil
}

func (p *exprParser) parsePipeline() (*Pipeline, error) {
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var calls []*CallExpr
	for p.peek().kind == tPipe {
		p.next()
		tok := p.next()
		if tok.kind != tIdent {
			return nil, p.errf("pipeline stage must be a function call")
		}
		call, err := p.parseCall(tok.val)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return &Pipeline{First: first, Calls: calls, Pos: p.pos, Raw: p.src}, nil
}

func (p *exprParser) parseExpr() (Expr, error) {
	tok := p.next()
	switch tok.kind {
	case tString:
		return &LitExpr{Val: tok.val}, nil
	case tNumber:
		if n, err := strconv.ParseInt(tok.val, 10, 64); err == nil {
			return &LitExpr{Val: int(n)}, nil
		}
		f, err := strconv.ParseFloat(tok.val, 64)
		if err != nil {
			return nil, p.errf("invalid number %q", tok.val)
		}
		return &LitExpr{Val: f}, nil
	case tDot:
		return p.parsePath(pathDot, nil, tok.end)
	case tDollar:
		return p.parsePath(pathRoot, nil, tok.end)
	case tIdent:
		switch tok.val {
		case "true":
			return &LitExpr{Val: true}, nil
		case "false":
			return &LitExpr{Val: false}, nil
		}
		if p.peek().kind == tLparen {
			return p.parseCall(tok.val)
		}
		return p.parsePath(pathBare, []string{tok.val}, tok.end)
	default:
		return nil, p.errf("expected a value, path, or function call")
	}
}

// parsePath consumes the remaining ".seg" pairs of a dotted reference. For
// dot and root paths the first segment may follow the leading token
// directly (".name", "$.name"). Only tokens that touch the reference belong
// to it: end is the byte offset just past what has been consumed so far,
// and a dot or name separated by whitespace is left for the caller, which
// rejects it as a trailing token.
func (p *exprParser) parsePath(kind pathKind, segs []string, end int) (Expr, error) {
	if kind != pathBare && p.peek().kind == tIdent && p.peek().pos == end {
		tok := p.next()
		segs = append(segs, tok.val)
		end = tok.end
	}
	for p.peek().kind == tDot && p.peek().pos == end {
		dot := p.next()
		tok := p.next()
		if tok.kind != tIdent || tok.pos != dot.end {
			return nil, p.errf("expected a name after . in path")
		}
		segs = append(segs, tok.val)
		end = tok.end
	}
	return &PathExpr{Kind: kind, Segs: segs, Raw: rawPath(kind, segs), Pos: p.pos}, nil
}

func rawPath(kind pathKind, segs []string) string {
	joined := strings.Join(segs, ".")
	switch kind {
	case pathDot:
		return "." + joined
	case pathRoot:
		if joined == "" {
			return "$"
		}
		return "$." + joined
	default:
		return joined
	}
}

func (p *exprParser) parseCall(fn string) (*CallExpr, error) {
	if tok := p.next(); tok.kind != tLparen {
		return nil, p.errf("expected ( after function name %s", fn)
	}
	call := &CallExpr{Fn: fn, Pos: p.pos}
	if p.peek().kind == tRparen {
		p.next()
		return call, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		switch p.next().kind {
		case tComma:
			continue
		case tRparen:
			return call, nil
		default:
			return nil, p.errf("expected , or ) in arguments of %s", fn)
		}
	}
}

// parseRangeHeader parses "key, value := pipeline".
func parseRangeHeader(src string, pos Position) (string, string, *Pipeline, error) {
	toks, err := tokenize(src, pos)
	if err != nil {
		return "", "", nil, err
	}
	p := &exprParser{toks: toks, src: strings.TrimSpace(src), pos: pos}

	key := p.next()
	if key.kind != tIdent {
		return "", "", nil, p.errf("range needs key and value variables (range key, value := path)")
	}
	if p.next().kind != tComma {
		return "", "", nil, p.errf("range needs key and value variables (range key, value := path)")
	}
	value := p.next()
	if value.kind != tIdent {
		return "", "", nil, p.errf("range needs key and value variables (range key, value := path)")
	}
	if p.next().kind != tDeclare {
		return "", "", nil, p.errf("expected := after range variables")
	}
	pipe, err := p.parsePipeline()
	if err != nil {
		return "", "", nil, err
	}
	if p.peek().kind != tEOF {
		return "", "", nil, p.errf("unexpected trailing tokens in range")
	}
	return key.val, value.val, pipe, nil
}

// parseDefineHeader parses the quoted name of a define block.
func parseDefineHeader(src string, pos Position) (string, error) {
	toks, err := tokenize(src, pos)
	if err != nil {
		return "", err
	}
	p := &exprParser{toks: toks, src: strings.TrimSpace(src), pos: pos}
	tok := p.next()
	if tok.kind != tString || tok.val == "" {
		return "", p.errf("define needs a quoted template name")
	}
	if p.peek().kind != tEOF {
		return "", p.errf("unexpected trailing tokens after define name")
	}
	return tok.val, nil
}

package template

import (
	"fmt"
	"strings"
)

// Node is an element of a parsed template tree.
type Node interface {
	position() Position
}

// TextNode is a raw text chunk copied verbatim into the output.
type TextNode struct {
	Text string
	Pos  Position
}

// ActionNode is a {{ pipeline }} substitution.
type ActionNode struct {
	Pipe *Pipeline
	Pos  Position
	// Indent is the directive's source indentation depth. Multi-line
	// include output is re-aligned under this column (see render.go).
	Indent int
}

// IfNode is a {{ if pipeline }} ... {{ else }} ... {{ end }} block.
type IfNode struct {
	Pipe *Pipeline
	Body []Node
	Else []Node
	Pos  Position
}

// WithNode is a {{ with pipeline }} block; the body renders with the dot
// rebound to the pipeline's value, and only when that value is truthy.
type WithNode struct {
	Pipe *Pipeline
	Body []Node
	Else []Node
	Pos  Position
}

// RangeNode is a {{ range key, value := pipeline }} loop over an ordered
// mapping or a sequence.
type RangeNode struct {
	Key   string
	Value string
	Pipe  *Pipeline
	Body  []Node
	Pos   Position
}

func (n *TextNode) position() Position   { return n.Pos }
func (n *ActionNode) position() Position { return n.Pos }
func (n *IfNode) position() Position     { return n.Pos }
func (n *WithNode) position() Position   { return n.Pos }
func (n *RangeNode) position() Position  { return n.Pos }

// parse builds the node tree for one template source and collects its
// define blocks into a named-template set.
func parse(name, text string) ([]Node, map[string][]Node, error) {
	items, err := lex(name, text)
	if err != nil {
		return nil, nil, err
	}
	p := &parser{items: items, defs: make(map[string][]Node)}
	body, _, err := p.parseList(nil, "", Position{})
	if err != nil {
		return nil, nil, err
	}
	return body, p.defs, nil
}

type parser struct {
	items []item
	i     int
	defs  map[string][]Node
}

// parseList consumes nodes until one of the stop keywords appears at the
// current nesting level. A nil stop set means parse to end of input; running
// out of input inside a block is a malformed-directive error attributed to
// the opening directive.
func (p *parser) parseList(stops []string, opener string, openerPos Position) ([]Node, string, error) {
	var nodes []Node
	for p.i < len(p.items) {
		it := p.items[p.i]
		p.i++

		if !it.action {
			nodes = append(nodes, &TextNode{Text: it.text, Pos: it.pos})
			continue
		}

		word, rest := splitKeyword(it.text)
		switch word {
		case "end", "else":
			for _, s := range stops {
				if s == word {
					return nodes, word, nil
				}
			}
			return nil, "", &MalformedDirectiveError{Directive: it.text, Pos: it.pos, Message: "unexpected " + word}

		case "if", "with":
			pipe, err := parsePipeline(rest, it.pos)
			if err != nil {
				return nil, "", err
			}
			body, stop, err := p.parseList([]string{"end", "else"}, it.text, it.pos)
			if err != nil {
				return nil, "", err
			}
			var elseBody []Node
			if stop == "else" {
				if elseBody, _, err = p.parseList([]string{"end"}, it.text, it.pos); err != nil {
					return nil, "", err
				}
			}
			if word == "if" {
				nodes = append(nodes, &IfNode{Pipe: pipe, Body: body, Else: elseBody, Pos: it.pos})
			} else {
				nodes = append(nodes, &WithNode{Pipe: pipe, Body: body, Else: elseBody, Pos: it.pos})
			}

		case "range":
			key, value, pipe, err := parseRangeHeader(rest, it.pos)
			if err != nil {
				return nil, "", err
			}
			body, _, err := p.parseList([]string{"end"}, it.text, it.pos)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, &RangeNode{Key: key, Value: value, Pipe: pipe, Body: body, Pos: it.pos})

		case "define":
			defName, err := parseDefineHeader(rest, it.pos)
			if err != nil {
				return nil, "", err
			}
			body, _, err := p.parseList([]string{"end"}, it.text, it.pos)
			if err != nil {
				return nil, "", err
			}
			if _, dup := p.defs[defName]; dup {
				return nil, "", &MalformedDirectiveError{Directive: it.text, Pos: it.pos, Message: fmt.Sprintf("template %q defined twice", defName)}
			}
			p.defs[defName] = body

		default:
			pipe, err := parsePipeline(it.text, it.pos)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, &ActionNode{Pipe: pipe, Pos: it.pos, Indent: it.indent})
		}
	}

	if stops != nil {
		return nil, "", &MalformedDirectiveError{Directive: opener, Pos: openerPos, Message: "unterminated block: missing {{ end }}"}
	}
	return nodes, "", nil
}

// splitKeyword returns the first word of an action and the remainder.
func splitKeyword(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

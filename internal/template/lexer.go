package template

import "strings"

const (
	leftDelim  = "{{"
	rightDelim = "}}"
)

// item is a lexed unit of template source: a raw text chunk, or the contents
// of one {{ ... }} action with delimiters and trim markers stripped.
type item struct {
	text   string
	pos    Position
	action bool
	indent int // column depth of the action's opening delimiter, 0-based
}

// lex splits input into text and action items and applies trim markers.
// A {{- marker removes the whitespace run (including newlines) before the
// action; a -}} marker removes the run after it. Directive-only lines
// therefore leave no blank lines or stray indentation behind.
func lex(name, input string) ([]item, error) {
	var (
		items    []item
		line     = 1
		col      = 1
		trimNext bool
	)

	advance := func(s string) {
		for _, r := range s {
			if r == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}
	}

	for len(input) > 0 {
		open := strings.Index(input, leftDelim)
		if open < 0 {
			text := input
			if trimNext {
				text = strings.TrimLeft(text, " \t\r\n")
			}
			if text != "" {
				items = append(items, item{text: text, pos: Position{name, line, col}})
			}
			break
		}

		text := input[:open]
		textPos := Position{name, line, col}
		advance(text)
		actionPos := Position{name, line, col}
		advance(leftDelim)
		rest := input[open+len(leftDelim):]

		// Left trim marker: {{- followed by whitespace.
		if len(rest) > 1 && rest[0] == '-' && isSpace(rest[1]) {
			text = strings.TrimRight(text, " \t\r\n")
			advance("-")
			rest = rest[1:]
		}
		if trimNext {
			text = strings.TrimLeft(text, " \t\r\n")
			trimNext = false
		}
		if text != "" {
			items = append(items, item{text: text, pos: textPos})
		}

		raw, consumed, err := scanAction(rest, actionPos)
		if err != nil {
			return nil, err
		}
		advance(rest[:consumed])
		input = rest[consumed:]

		// Right trim marker: whitespace then - immediately before }}.
		if n := len(raw); n > 0 && raw[n-1] == '-' && (n == 1 || isSpace(raw[n-2])) {
			trimNext = true
			raw = raw[:n-1]
		}

		items = append(items, item{
			text:   strings.TrimSpace(raw),
			pos:    actionPos,
			action: true,
			indent: actionPos.Col - 1,
		})
	}

	return items, nil
}

// scanAction consumes action contents up to the closing delimiter, honoring
// double-quoted strings so a }} inside a literal does not end the action.
func scanAction(s string, pos Position) (string, int, error) {
	inStr := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch c {
			case '\\':
				i++
			case '"':
				inStr = false
			}
			continue
		}
		switch {
		case c == '"':
			inStr = true
		case c == '}' && strings.HasPrefix(s[i:], rightDelim):
			return s[:i], i + len(rightDelim), nil
		}
	}
	return "", 0, &MalformedDirectiveError{Pos: pos, Message: "unterminated directive: missing closing }}"}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

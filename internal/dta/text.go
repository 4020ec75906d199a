package dta

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// parseText parses the textual encoding. The whole input is one implicit
// top-level list; `(a b)` and `(a b)(c d)` both parse, yielding a root list
// with one and two children respectively.
func parseText(data []byte) (Node, error) {
	p := &textParser{input: string(data)}

	children, err := p.parseNodes(0)
	if err != nil {
		return Node{}, err
	}

	p.skipSpace()

	if p.pos < len(p.input) {
		return Node{}, fmt.Errorf("%w: unexpected %q at offset %d", ErrSyntax, p.input[p.pos], p.pos)
	}

	return Node{Kind: KindList, List: children}, nil
}

type textParser struct {
	input string
	pos   int
}

// parseNodes parses zero or more nodes until ')' or end of input.
func (p *textParser) parseNodes(depth int) ([]Node, error) {
	if depth > maxDepth {
		return nil, ErrTooDeep
	}

	var nodes []Node

	for {
		p.skipSpace()

		if p.pos >= len(p.input) || p.input[p.pos] == ')' {
			return nodes, nil
		}

		node, err := p.parseNode(depth)
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, node)
	}
}

func (p *textParser) parseNode(depth int) (Node, error) {
	switch c := p.input[p.pos]; {
	case c == '(':
		p.pos++

		children, err := p.parseNodes(depth + 1)
		if err != nil {
			return Node{}, err
		}

		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return Node{}, fmt.Errorf("%w: unclosed list", ErrSyntax)
		}

		p.pos++

		return Node{Kind: KindList, List: children}, nil

	case c == '"':
		return p.parseString()

	default:
		return p.parseAtom()
	}
}

func (p *textParser) parseString() (Node, error) {
	p.pos++ // opening quote

	var sb strings.Builder

	for p.pos < len(p.input) {
		c := p.input[p.pos]

		switch c {
		case '"':
			p.pos++

			return Node{Kind: KindString, Str: sb.String()}, nil

		case '\\':
			p.pos++
			if p.pos >= len(p.input) {
				return Node{}, fmt.Errorf("%w: dangling escape", ErrSyntax)
			}

			switch esc := p.input[p.pos]; esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(esc)
			}

			p.pos++

		default:
			sb.WriteByte(c)
			p.pos++
		}
	}

	return Node{}, fmt.Errorf("%w: unterminated string", ErrSyntax)
}

// parseAtom parses a symbol or number token ending at whitespace, a paren,
// or a comment.
func (p *textParser) parseAtom() (Node, error) {
	start := p.pos

	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '(' || c == ')' || c == ';' || c == '"' || unicode.IsSpace(rune(c)) {
			break
		}

		p.pos++
	}

	token := p.input[start:p.pos]
	if token == "" {
		return Node{}, fmt.Errorf("%w: empty token at offset %d", ErrSyntax, start)
	}

	if i, err := strconv.ParseInt(token, 10, 64); err == nil {
		return Node{Kind: KindInt, Int: i}, nil
	}

	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return Node{Kind: KindFloat, Float: f}, nil
	}

	return Node{Kind: KindSymbol, Sym: token}, nil
}

func (p *textParser) skipSpace() {
	for p.pos < len(p.input) {
		c := p.input[p.pos]

		switch {
		case unicode.IsSpace(rune(c)):
			p.pos++

		case c == ';':
			// Line comment.
			for p.pos < len(p.input) && p.input[p.pos] != '\n' {
				p.pos++
			}

		default:
			return
		}
	}
}

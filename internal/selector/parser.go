// Package selector parses a CSS subset (tag, *, .class, #id, attribute
// tests, descendant and child combinators) and compiles it to SQL over the
// nodes and attributes tables.
package selector

import (
	"fmt"
	"strings"
)

type parser struct {
	tokens []token
	pos    int
}

// Parse turns selector text into a tree. Unsupported syntax is rejected with
// *SyntaxError, never skipped.
func Parse(input string) (Selector, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	p.skipSpace()
	if p.peek().kind == tokEOF {
		return nil, &SyntaxError{Offset: 0, Reason: "empty selector"}
	}

	var sel Selector
	sel, err = p.compound()
	if err != nil {
		return nil, err
	}

	for {
		sawSpace := p.skipSpace()
		tok := p.peek()

		var kind Combinator
		switch {
		case tok.kind == tokEOF:
			return sel, nil
		case tok.kind == tokGreater:
			p.advance()
			p.skipSpace()
			kind = Child
		case sawSpace:
			kind = Descendant
		default:
			return nil, p.unexpected(tok)
		}

		if p.peek().kind == tokEOF {
			combinator := tok.raw
			if kind == Descendant {
				combinator = " "
			}
			return nil, &SyntaxError{Offset: tok.offset, Token: combinator, Reason: "combinator must be followed by a selector"}
		}

		right, err := p.compound()
		if err != nil {
			return nil, err
		}
		sel = &Combined{Left: sel, Right: right, Kind: kind}
	}
}

// MustParse is Parse for selectors known to be valid; it panics otherwise.
func MustParse(input string) Selector {
	sel, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return sel
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) skipSpace() bool {
	skipped := false
	for p.peek().kind == tokSpace {
		p.advance()
		skipped = true
	}
	return skipped
}

func (p *parser) compound() (*Compound, error) {
	c := &Compound{}

	switch tok := p.peek(); tok.kind {
	case tokIdent:
		p.advance()
		c.Simples = append(c.Simples, Tag{Name: tok.text})
	case tokStar:
		p.advance()
		c.Simples = append(c.Simples, Universal{})
	}

	for {
		tok := p.peek()
		switch tok.kind {
		case tokDot, tokHash:
			p.advance()
			name := p.peek()
			if name.kind != tokIdent {
				return nil, p.expected(name, "a name after "+tok.raw)
			}
			p.advance()
			if tok.kind == tokDot {
				c.Simples = append(c.Simples, Class{Name: name.text})
			} else {
				c.Simples = append(c.Simples, ID{Name: name.text})
			}

		case tokLBracket:
			attr, err := p.attribute()
			if err != nil {
				return nil, err
			}
			c.Simples = append(c.Simples, attr)

		default:
			if len(c.Simples) == 0 {
				return nil, p.expected(tok, "a tag, *, class, id or attribute selector")
			}
			return c, nil
		}
	}
}

func (p *parser) attribute() (Attr, error) {
	open := p.advance()
	p.skipSpace()

	name := p.peek()
	if name.kind != tokIdent {
		return Attr{}, p.expected(name, "an attribute name")
	}
	p.advance()
	p.skipSpace()

	attr := Attr{Name: name.text, Op: Exists}

	if tok := p.peek(); tok.kind == tokOp {
		p.advance()
		attr.Op = opFromSymbol(tok.raw)
		p.skipSpace()

		value := p.peek()
		if value.kind != tokString && value.kind != tokIdent {
			return Attr{}, p.expected(value, "an attribute value")
		}
		p.advance()
		attr.Value = value.text
		p.skipSpace()
	}

	end := p.peek()
	if end.kind == tokEOF {
		return Attr{}, &SyntaxError{Offset: open.offset, Token: "[", Reason: "unterminated attribute selector"}
	}
	if end.kind != tokRBracket {
		return Attr{}, p.expected(end, "]")
	}
	p.advance()
	return attr, nil
}

func opFromSymbol(symbol string) AttrOp {
	for op, s := range attrOpSymbols {
		if s == symbol {
			return op
		}
	}
	panic(fmt.Sprintf("selector: unknown attribute operator %q", symbol))
}

func (p *parser) expected(tok token, what string) *SyntaxError {
	if tok.kind == tokInvalid {
		return p.unexpected(tok)
	}
	if tok.kind == tokEOF {
		return &SyntaxError{Offset: tok.offset, Reason: "expected " + what + ", found end of input"}
	}
	return &SyntaxError{Offset: tok.offset, Token: tok.raw, Reason: "expected " + what}
}

// unexpected explains why a token cannot appear where it does.
func (p *parser) unexpected(tok token) *SyntaxError {
	err := &SyntaxError{Offset: tok.offset, Token: tok.raw}
	switch {
	case tok.raw == "+" || tok.raw == "~":
		err.Reason = "sibling combinators are not supported"
	case strings.HasPrefix(tok.raw, ":"):
		err.Reason = "pseudo-classes are not supported"
	case tok.raw == ",":
		err.Reason = "selector lists are not supported"
	case tok.raw == "~=" || tok.raw == "|=":
		err.Reason = fmt.Sprintf("attribute operator %s is not supported", tok.raw)
	case tok.kind == tokInvalid:
		err.Reason = "unexpected character"
	default:
		err.Reason = "unexpected token"
	}
	return err
}

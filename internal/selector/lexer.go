package selector

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokStar
	tokDot
	tokHash
	tokLBracket
	tokRBracket
	tokGreater
	tokSpace
	tokOp
	tokInvalid
)

type token struct {
	kind   tokenKind
	text   string // decoded value for idents and strings, raw source otherwise
	raw    string
	offset int
}

func isIdentRune(r rune) bool {
	return r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

type lexer struct {
	input string
	pos   int
}

// lex splits the whole input into tokens, ending with tokEOF. Characters
// outside the grammar become tokInvalid tokens so the parser can name them.
func lex(input string) ([]token, error) {
	l := &lexer{input: input}
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) peek() (rune, int) {
	if l.pos >= len(l.input) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(l.input[l.pos:])
}

func (l *lexer) emit(kind tokenKind, start int) token {
	raw := l.input[start:l.pos]
	return token{kind: kind, text: raw, raw: raw, offset: start}
}

func (l *lexer) next() (token, error) {
	start := l.pos
	r, size := l.peek()
	if size == 0 {
		return token{kind: tokEOF, offset: start}, nil
	}

	switch {
	case unicode.IsSpace(r):
		for size > 0 && unicode.IsSpace(r) {
			l.pos += size
			r, size = l.peek()
		}
		return l.emit(tokSpace, start), nil

	case isIdentRune(r) || r == '\\':
		return l.ident()

	case r == '"' || r == '\'':
		return l.quoted(r)
	}

	l.pos += size
	switch r {
	case '.':
		return l.emit(tokDot, start), nil
	case '#':
		return l.emit(tokHash, start), nil
	case '[':
		return l.emit(tokLBracket, start), nil
	case ']':
		return l.emit(tokRBracket, start), nil
	case '>':
		return l.emit(tokGreater, start), nil
	case '=':
		return l.emit(tokOp, start), nil
	case '*', '^', '$', '~', '|':
		if next, _ := l.peek(); next == '=' {
			l.pos++
			if r == '~' || r == '|' {
				return l.emit(tokInvalid, start), nil
			}
			return l.emit(tokOp, start), nil
		}
		if r == '*' {
			return l.emit(tokStar, start), nil
		}
		return l.emit(tokInvalid, start), nil
	case ':':
		// swallow the pseudo-class name so errors show ":hover", "::before"
		for next, n := l.peek(); n > 0 && (next == ':' || isIdentRune(next)); next, n = l.peek() {
			l.pos += n
		}
		return l.emit(tokInvalid, start), nil
	}
	return l.emit(tokInvalid, start), nil
}

// ident reads an identifier; a backslash escapes the next rune, so
// "x\:item" names the tag "x:item".
func (l *lexer) ident() (token, error) {
	start := l.pos
	var b strings.Builder
	for {
		r, size := l.peek()
		if size == 0 {
			break
		}
		if r == '\\' {
			l.pos += size
			esc, n := l.peek()
			if n == 0 {
				return token{}, &SyntaxError{Offset: start, Token: l.input[start:], Reason: "incomplete escape sequence"}
			}
			b.WriteRune(esc)
			l.pos += n
			continue
		}
		if !isIdentRune(r) {
			break
		}
		b.WriteRune(r)
		l.pos += size
	}
	return token{kind: tokIdent, text: b.String(), raw: l.input[start:l.pos], offset: start}, nil
}

// quoted reads a string delimited by quote; a backslash escapes the next rune.
func (l *lexer) quoted(quote rune) (token, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for {
		r, size := l.peek()
		if size == 0 {
			return token{}, &SyntaxError{Offset: start, Token: l.input[start:], Reason: "unterminated string"}
		}
		l.pos += size
		if r == quote {
			break
		}
		if r == '\\' {
			esc, n := l.peek()
			if n == 0 {
				return token{}, &SyntaxError{Offset: start, Token: l.input[start:], Reason: "unterminated string"}
			}
			r = esc
			l.pos += n
		}
		b.WriteRune(r)
	}
	return token{kind: tokString, text: b.String(), raw: l.input[start:l.pos], offset: start}, nil
}

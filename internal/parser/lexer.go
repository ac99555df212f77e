package parser

import (
	"fmt"
	"unicode/utf8"
)

// TokenType identifies a lexical token of the formula grammar.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL
	IDENT
	NUMBER
	SEP    // "=" or "~"
	PLUS   // "+"
	COLON  // ":"
	STAR   // "*"
	LPAREN // "("
	RPAREN // ")"
	PIPE   // "|"
	SLASH  // "/"
)

var tokenNames = map[TokenType]string{
	EOF:     "end of formula",
	ILLEGAL: "illegal character",
	IDENT:   "identifier",
	NUMBER:  "number",
	SEP:     "'=' or '~'",
	PLUS:    "'+'",
	COLON:   "':'",
	STAR:    "'*'",
	LPAREN:  "'('",
	RPAREN:  "')'",
	PIPE:    "'|'",
	SLASH:   "'/'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is one lexeme with its byte offset in the source.
type Token struct {
	Type    TokenType
	Literal string
	Offset  int
}

// Lexer splits a formula line into tokens. Whitespace is insignificant.
type Lexer struct {
	src string
	pos int
}

// NewLexer creates a lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src}
}

// Tokenize returns every token including the trailing EOF.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.next()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens
		}
	}
}

func (l *Lexer) next() Token {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Offset: len(l.src)}
	}
	start := l.pos
	c := l.src[l.pos]
	switch {
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return Token{Type: IDENT, Literal: l.src[start:l.pos], Offset: start}
	case isDigit(c):
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		return Token{Type: NUMBER, Literal: l.src[start:l.pos], Offset: start}
	}

	l.pos++
	lit := string(c)
	switch c {
	case '=', '~':
		return Token{Type: SEP, Literal: lit, Offset: start}
	case '+':
		return Token{Type: PLUS, Literal: lit, Offset: start}
	case ':':
		return Token{Type: COLON, Literal: lit, Offset: start}
	case '*':
		return Token{Type: STAR, Literal: lit, Offset: start}
	case '(':
		return Token{Type: LPAREN, Literal: lit, Offset: start}
	case ')':
		return Token{Type: RPAREN, Literal: lit, Offset: start}
	case '|':
		return Token{Type: PIPE, Literal: lit, Offset: start}
	case '/':
		return Token{Type: SLASH, Literal: lit, Offset: start}
	}

	// report whole runes so the hint never splits a multi-byte character
	_, size := utf8.DecodeRuneInString(l.src[start:])
	l.pos = start + size
	return Token{Type: ILLEGAL, Literal: l.src[start:l.pos], Offset: start}
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

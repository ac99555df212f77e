// Package parser turns one line of R-style formula text into a
// formula.Formula: the dependent variable, the raw predictor terms with
// shorthand already expanded, and the raw random-effect clauses.
//
// The parser knows nothing about variable kinds. Blank input is the
// "no formula yet" state and yields an empty Formula without error.
package parser

import (
	"fmt"
	"strings"

	"mcspec/domain/core"
	"mcspec/domain/formula"
)

// Parser is a recursive-descent parser over a token slice.
type Parser struct {
	source string
	tokens []Token
	pos    int
}

// New creates a parser for source.
func New(source string) *Parser {
	return &Parser{
		source: source,
		tokens: NewLexer(source).Tokenize(),
	}
}

// Parse is shorthand for New(source).Parse().
func Parse(source string) (*formula.Formula, error) {
	return New(source).Parse()
}

// Parse parses the whole input. Errors are *core.ParseError.
func (p *Parser) Parse() (*formula.Formula, error) {
	f := &formula.Formula{Source: p.source}
	if strings.TrimSpace(p.source) == "" {
		return f, nil
	}
	for _, tok := range p.tokens {
		if tok.Type == ILLEGAL {
			return nil, p.errorAt(tok, fmt.Sprintf("unexpected character %q", tok.Literal))
		}
	}

	dep, err := p.parseDependent()
	if err != nil {
		return nil, err
	}
	f.Dependent = dep

	if p.check(EOF) {
		return nil, p.errorAt(p.current(), "empty right-hand side")
	}

	seen := make(map[string]bool)
	addTerm := func(t formula.RawTerm) {
		key := t.Key()
		if seen[key] {
			return
		}
		seen[key] = true
		f.Terms = append(f.Terms, t)
	}

	for {
		if p.check(LPAREN) {
			re, err := p.parseRandomEffect()
			if err != nil {
				return nil, err
			}
			f.RandomEffects = append(f.RandomEffects, re)
		} else {
			terms, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			for _, t := range terms {
				addTerm(t)
			}
		}

		switch p.current().Type {
		case EOF:
			return f, nil
		case PLUS:
		case SEP:
			return nil, p.errorAt(p.current(), "only one '=' or '~' is allowed")
		case RPAREN:
			return nil, p.errorAt(p.current(), "unbalanced ')'")
		default:
			return nil, p.unexpected("expected '+' between terms")
		}
		plus := p.advance()
		if p.check(EOF) {
			return nil, p.errorAt(plus, "dangling '+' at end of formula")
		}
	}
}

// parseDependent parses: identifier sep
func (p *Parser) parseDependent() (string, error) {
	tok := p.current()
	switch tok.Type {
	case IDENT:
	case SEP:
		return "", p.errorAt(tok, "missing dependent variable before separator")
	default:
		return "", p.errorAt(tok, "formula must start with the dependent variable")
	}
	p.advance()

	switch p.current().Type {
	case SEP:
		p.advance()
		return tok.Literal, nil
	case EOF, IDENT:
		return "", p.errorAt(p.current(), "missing '=' or '~' between dependent variable and predictors")
	default:
		if p.hasLaterSeparator() {
			return "", p.errorAt(p.current(), "left-hand side must be a single dependent variable")
		}
		return "", p.errorAt(p.current(), "missing '=' or '~' between dependent variable and predictors")
	}
}

// parseTerm parses: identifier {":" identifier} | identifier "*" identifier {"*" identifier}
func (p *Parser) parseTerm() ([]formula.RawTerm, error) {
	tok := p.current()
	switch tok.Type {
	case IDENT:
	case NUMBER:
		return nil, p.errorAt(tok, "numeric terms are not supported outside random-effect clauses")
	case SEP:
		return nil, p.errorAt(tok, "only one '=' or '~' is allowed")
	case RPAREN:
		return nil, p.errorAt(tok, "unbalanced ')'")
	case PLUS, COLON, STAR, PIPE, SLASH:
		return nil, p.errorAt(tok, fmt.Sprintf("dangling %s", tok.Type))
	default:
		return nil, p.unexpected("expected a predictor")
	}
	p.advance()

	ids := []string{tok.Literal}
	var op TokenType
	for p.check(COLON) || p.check(STAR) {
		opTok := p.advance()
		if op != 0 && opTok.Type != op {
			return nil, p.errorAt(opTok, "cannot mix ':' and '*' in one term; separate them with '+'")
		}
		op = opTok.Type
		if !p.check(IDENT) {
			return nil, p.errorAt(opTok, fmt.Sprintf("dangling %s", opTok.Type))
		}
		id := p.advance()
		for _, prev := range ids {
			if prev == id.Literal {
				return nil, p.errorAt(id, fmt.Sprintf("variable %q repeated in one interaction", id.Literal))
			}
		}
		ids = append(ids, id.Literal)
	}

	if op == STAR {
		return ExpandShorthand(ids), nil
	}
	return []formula.RawTerm{formula.NewRawTerm(ids...)}, nil
}

// parseRandomEffect parses: "(" "1" ["+" identifier] "|" identifier ["/" identifier] ")"
func (p *Parser) parseRandomEffect() (formula.RawRandomEffect, error) {
	open := p.advance()
	re := formula.RawRandomEffect{Offset: open.Offset}

	one := p.current()
	if one.Type != NUMBER || one.Literal != "1" {
		if one.Type == EOF {
			return re, p.unclosed(open)
		}
		return re, p.errorAt(one, "random effects must start with intercept '1'")
	}
	p.advance()

	if p.check(PLUS) {
		plus := p.advance()
		if !p.check(IDENT) {
			if p.check(EOF) {
				return re, p.unclosed(open)
			}
			return re, p.errorAt(plus, "expected random slope variable after '+'")
		}
		re.Slope = p.advance().Literal
		if p.check(PLUS) {
			return re, p.errorAt(p.current(), "only one random slope per clause is supported")
		}
	}

	if !p.check(PIPE) {
		if p.check(EOF) {
			return re, p.unclosed(open)
		}
		return re, p.unexpected("expected '|' in random-effect clause")
	}
	pipe := p.advance()

	if !p.check(IDENT) {
		if p.check(EOF) {
			return re, p.unclosed(open)
		}
		return re, p.errorAt(pipe, "expected grouping variable after '|'")
	}
	re.Group = p.advance().Literal

	if p.check(SLASH) {
		slash := p.advance()
		if !p.check(IDENT) {
			if p.check(EOF) {
				return re, p.unclosed(open)
			}
			return re, p.errorAt(slash, "expected nested grouping variable after '/'")
		}
		re.Subgroup = p.advance().Literal
		if re.Subgroup == re.Group {
			return re, p.errorAt(p.previous(), fmt.Sprintf("group %q cannot be nested in itself", re.Group))
		}
		if p.check(SLASH) {
			return re, p.errorAt(p.current(), "only one level of nesting per clause is supported")
		}
	}

	if !p.check(RPAREN) {
		if p.check(EOF) {
			return re, p.unclosed(open)
		}
		return re, p.unexpected("expected ')' to close random-effect clause")
	}
	closeTok := p.advance()
	re.Text = p.source[open.Offset : closeTok.Offset+1]
	return re, nil
}

// ExpandShorthand expands a*b*... into every non-empty combination of ids,
// ordered by size and then by position: a, b, c, a:b, a:c, b:c, a:b:c.
func ExpandShorthand(ids []string) []formula.RawTerm {
	var out []formula.RawTerm
	for size := 1; size <= len(ids); size++ {
		combine(ids, size, 0, nil, func(combo []string) {
			out = append(out, formula.NewRawTerm(combo...))
		})
	}
	return out
}

func combine(ids []string, size, start int, acc []string, emit func([]string)) {
	if len(acc) == size {
		emit(acc)
		return
	}
	for i := start; i <= len(ids)-(size-len(acc)); i++ {
		combine(ids, size, i+1, append(acc, ids[i]), emit)
	}
}

func (p *Parser) current() Token {
	return p.tokens[p.pos]
}

func (p *Parser) previous() Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) check(t TokenType) bool {
	return p.current().Type == t
}

func (p *Parser) hasLaterSeparator() bool {
	for _, tok := range p.tokens[p.pos:] {
		if tok.Type == SEP {
			return true
		}
	}
	return false
}

func (p *Parser) errorAt(tok Token, msg string) *core.ParseError {
	frag := tok.Literal
	if tok.Type == EOF {
		frag = p.tail(tok.Offset)
	}
	return &core.ParseError{Fragment: frag, Offset: tok.Offset, Message: msg}
}

func (p *Parser) unexpected(msg string) *core.ParseError {
	tok := p.current()
	return p.errorAt(tok, fmt.Sprintf("%s, found %s", msg, tok.Type))
}

func (p *Parser) unclosed(open Token) *core.ParseError {
	return &core.ParseError{
		Fragment: strings.TrimSpace(p.source[open.Offset:]),
		Offset:   open.Offset,
		Message:  "unbalanced '(' in random-effect clause",
	}
}

// tail returns the last word before offset, used as context at end of input.
func (p *Parser) tail(offset int) string {
	text := strings.TrimSpace(p.source[:offset])
	if i := strings.LastIndexAny(text, " \t"); i >= 0 {
		return text[i+1:]
	}
	return text
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package query

import "strings"

// Parser builds a search-expression AST plus a list of raw pipeline command
// strings from a token stream.
type Parser struct {
	toks []Token
	pos  int
}

// NewParser builds a Parser over the given token stream (as returned by
// Lexer.Tokenize).
func NewParser(toks []Token) *Parser {
	return &Parser{toks: toks}
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(kind TokenKind) (Token, error) {
	if p.cur().Kind != kind {
		return Token{}, &SyntaxError{Position: p.cur().Position, Expected: kind.String(), Message: "got " + p.cur().Kind.String()}
	}
	return p.advance(), nil
}

// ParsePipeline splits the raw source on top-level "|" into a search
// expression and a sequence of raw command token lists, then parses the
// search expression. Pipe characters inside quoted strings/regex literals
// are already consumed as part of those tokens by the Lexer, so a simple
// token-level split on TokPipe is correct. Each returned command segment
// ends with its own TokEOF sentinel so it can be fed straight into a fresh
// Parser.
func ParsePipeline(src string) (Expr, [][]Token, error) {
	lex := NewLexer(src)
	toks, err := lex.Tokenize()
	if err != nil {
		return nil, nil, err
	}

	var segments [][]Token
	var cur []Token
	for _, t := range toks {
		if t.Kind == TokPipe {
			cur = append(cur, Token{Kind: TokEOF, Position: t.Position})
			segments = append(segments, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
		if t.Kind == TokEOF {
			segments = append(segments, cur)
			break
		}
	}

	if len(segments) == 0 {
		return nil, nil, &SyntaxError{Position: 0, Message: "empty query"}
	}

	p := NewParser(segments[0])
	expr, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	if p.cur().Kind != TokEOF {
		return nil, nil, &SyntaxError{Position: p.cur().Position, Message: "unexpected trailing input " + p.cur().Text}
	}

	return expr, segments[1:], nil
}

func (p *Parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	operands := []Expr{left}
	for p.cur().Kind == TokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return &OrExpr{Operands: operands}, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	operands := []Expr{left}
	for {
		if p.cur().Kind == TokAnd {
			p.advance()
			right, err := p.parseNot()
			if err != nil {
				return nil, err
			}
			operands = append(operands, right)
			continue
		}
		if p.startsAtom() {
			right, err := p.parseNot()
			if err != nil {
				return nil, err
			}
			operands = append(operands, right)
			continue
		}
		break
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return &AndExpr{Operands: operands}, nil
}

// startsAtom reports whether the current token can begin an atom, used for
// implicit-AND juxtaposition ("andExpr := notExpr ('AND'? notExpr)*").
func (p *Parser) startsAtom() bool {
	switch p.cur().Kind {
	case TokLParen, TokBareword, TokString, TokRegex, TokNot:
		return true
	default:
		return false
	}
}

func (p *Parser) parseNot() (Expr, error) {
	if p.cur().Kind == TokNot {
		p.advance()
		operand, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return &NotExpr{Operand: operand}, nil
	}
	return p.parseAtom()
}

func (p *Parser) parseAtom() (Expr, error) {
	switch p.cur().Kind {
	case TokLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case TokString:
		t := p.advance()
		return &TermExpr{Value: t.Text, Phrase: true}, nil
	case TokRegex:
		t := p.advance()
		return &RegexExpr{Pattern: t.Text}, nil
	case TokBareword:
		return p.parseFieldTermOrTerm()
	default:
		return nil, &SyntaxError{Position: p.cur().Position, Expected: "term, field comparison, or '('", Message: "got " + p.cur().Kind.String()}
	}
}

func (p *Parser) parseFieldTermOrTerm() (Expr, error) {
	ident := p.advance()
	op, ok := fieldOpFor(p.cur().Kind)
	if !ok {
		// plain bareword term
		return &TermExpr{Value: ident.Text, Wildcard: hasWildcard(ident.Text)}, nil
	}
	p.advance() // consume operator

	switch p.cur().Kind {
	case TokString:
		v := p.advance()
		return &FieldTermExpr{Field: ident.Text, Op: op, Value: v.Text, Phrase: true}, nil
	case TokRegex:
		v := p.advance()
		return &FieldTermExpr{Field: ident.Text, Op: op, Value: v.Text, Regex: true}, nil
	case TokLBracket:
		rng, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		return &FieldTermExpr{Field: ident.Text, Op: op, Range: rng}, nil
	case TokBareword:
		v := p.advance()
		return &FieldTermExpr{Field: ident.Text, Op: op, Value: v.Text, Wildcard: hasWildcard(v.Text)}, nil
	default:
		return nil, &SyntaxError{Position: p.cur().Position, Expected: "value", Message: "got " + p.cur().Kind.String()}
	}
}

func (p *Parser) parseRange() (*RangeExpr, error) {
	if _, err := p.expect(TokLBracket); err != nil {
		return nil, err
	}
	from, err := p.parseRangeValue()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokTo); err != nil {
		return nil, err
	}
	to, err := p.parseRangeValue()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRBracket); err != nil {
		return nil, err
	}
	return &RangeExpr{From: from, To: to}, nil
}

func (p *Parser) parseRangeValue() (string, error) {
	switch p.cur().Kind {
	case TokBareword, TokString:
		return p.advance().Text, nil
	default:
		return "", &SyntaxError{Position: p.cur().Position, Expected: "range bound", Message: "got " + p.cur().Kind.String()}
	}
}

func fieldOpFor(k TokenKind) (FieldTermOp, bool) {
	switch k {
	case TokEq, TokColon:
		return FieldEq, true
	case TokNeq:
		return FieldNeq, true
	case TokGt:
		return FieldGt, true
	case TokGte:
		return FieldGte, true
	case TokLt:
		return FieldLt, true
	case TokLte:
		return FieldLte, true
	default:
		return "", false
	}
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

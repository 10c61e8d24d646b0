// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package query implements the SPL-subset lexer, parser, and compiler: it
// turns a pipeline expression ("searchExpr | cmd1 | cmd2 | ...") into a
// model.CompiledQuery.
package query

import "fmt"

// TokenKind identifies the lexical class of a Token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokBareword
	TokString
	TokRegex
	TokAnd
	TokOr
	TokNot
	TokTo
	TokAs
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokPipe
	TokComma
	TokEq   // =
	TokColon // :
	TokNeq  // !=
	TokGt   // >
	TokGte  // >=
	TokLt   // <
	TokLte  // <=
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "EOF"
	case TokIdent:
		return "identifier"
	case TokBareword:
		return "bareword"
	case TokString:
		return "quoted string"
	case TokRegex:
		return "regex literal"
	case TokAnd:
		return "AND"
	case TokOr:
		return "OR"
	case TokNot:
		return "NOT"
	case TokTo:
		return "TO"
	case TokAs:
		return "AS"
	case TokLParen:
		return "("
	case TokRParen:
		return ")"
	case TokLBracket:
		return "["
	case TokRBracket:
		return "]"
	case TokPipe:
		return "|"
	case TokComma:
		return ","
	case TokEq:
		return "="
	case TokColon:
		return ":"
	case TokNeq:
		return "!="
	case TokGt:
		return ">"
	case TokGte:
		return ">="
	case TokLt:
		return "<"
	case TokLte:
		return "<="
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

// Token is one lexical unit produced by the Lexer.
type Token struct {
	Kind     TokenKind
	Text     string // literal text, unescaped for strings/regex
	Position int    // byte offset in the source the token starts at
}

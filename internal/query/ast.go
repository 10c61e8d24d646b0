// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package query

// Expr is a node of the parsed search expression, before compilation to a
// model.IndexPredicate.
type Expr interface{ exprNode() }

// AndExpr is the conjunction of two or more operands.
type AndExpr struct{ Operands []Expr }

// OrExpr is the disjunction of two or more operands.
type OrExpr struct{ Operands []Expr }

// NotExpr negates Operand.
type NotExpr struct{ Operand Expr }

// TermExpr matches Value (quoted = phrase, bareword with */? = wildcard)
// against the default "message" field.
type TermExpr struct {
	Value    string
	Phrase   bool
	Wildcard bool
}

// RegexExpr matches Pattern against the default "message" field.
type RegexExpr struct{ Pattern string }

// FieldTermOp is the comparison operator of a FieldTermExpr.
type FieldTermOp string

const (
	FieldEq  FieldTermOp = "="
	FieldNeq FieldTermOp = "!="
	FieldGt  FieldTermOp = ">"
	FieldGte FieldTermOp = ">="
	FieldLt  FieldTermOp = "<"
	FieldLte FieldTermOp = "<="
)

// FieldTermExpr is `field OP value`, where value may be a quoted phrase, a
// bareword (possibly wildcarded), a regex literal, or a range.
type FieldTermExpr struct {
	Field    string
	Op       FieldTermOp
	Value    string
	Phrase   bool
	Wildcard bool
	Regex    bool
	Range    *RangeExpr
}

// RangeExpr is `[from TO to]`.
type RangeExpr struct {
	From string
	To   string
}

func (*AndExpr) exprNode()       {}
func (*OrExpr) exprNode()        {}
func (*NotExpr) exprNode()       {}
func (*TermExpr) exprNode()      {}
func (*RegexExpr) exprNode()     {}
func (*FieldTermExpr) exprNode() {}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package search

import (
	"fmt"
	"strings"

	"github.com/tomtom215/cartographus/internal/apperr"
	"github.com/tomtom215/cartographus/internal/query"
)

// comparison is one `field OP value` term of a where/eval expression. The
// compiler only ever hands the pipeline a raw token string (the schema a
// where/eval clause runs against narrows after a stats command, so it can't
// be resolved to a field-typed expression tree at compile time); evalExpr
// re-tokenizes it here and evaluates against a Row at pipeline run time.
type comparison struct {
	field string
	op    query.TokenKind
	value string
}

// parseComparisons tokenizes a raw where/eval expression into a conjunction
// of `field OP value` terms. AND is the only supported boolean combinator;
// OR/NOT/parenthesized groups are out of scope for this implementation, as
// is full eval arithmetic - eval supports only `field = <field-or-literal>`
// assignment.
func parseComparisons(expr string) ([]comparison, error) {
	toks, err := query.NewLexer(expr).Tokenize()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "search.parseComparisons", "tokenize expression", err)
	}

	var terms []comparison
	i := 0
	for i < len(toks) && toks[i].Kind != query.TokEOF {
		if toks[i].Kind == query.TokAnd {
			i++
			continue
		}
		if i+2 >= len(toks) {
			return nil, apperr.New(apperr.KindInvalidInput, "search.parseComparisons", fmt.Sprintf("incomplete expression near %q", toks[i].Text))
		}
		field := toks[i]
		op := toks[i+1]
		val := toks[i+2]
		if field.Kind != query.TokIdent && field.Kind != query.TokBareword {
			return nil, apperr.New(apperr.KindInvalidInput, "search.parseComparisons", fmt.Sprintf("expected field name, got %q", field.Text))
		}
		switch op.Kind {
		case query.TokEq, query.TokNeq, query.TokGt, query.TokGte, query.TokLt, query.TokLte:
		default:
			return nil, apperr.New(apperr.KindInvalidInput, "search.parseComparisons", fmt.Sprintf("expected comparison operator, got %q", op.Text))
		}
		terms = append(terms, comparison{field: strings.ToLower(field.Text), op: op.Kind, value: val.Text})
		i += 3
	}
	return terms, nil
}

// evalWhere reports whether row satisfies every comparison in expr (an
// implicit AND across terms).
func evalWhere(row Row, expr []comparison) bool {
	for _, c := range expr {
		if !matchComparison(row, c) {
			return false
		}
	}
	return true
}

func matchComparison(row Row, c comparison) bool {
	actual, ok := rowValue(row, c.field)
	if !ok {
		return c.op == query.TokNeq
	}
	switch c.op {
	case query.TokEq:
		return strings.EqualFold(actual, c.value)
	case query.TokNeq:
		return !strings.EqualFold(actual, c.value)
	case query.TokGt:
		return numericOrZero(actual) > numericOrZero(c.value)
	case query.TokGte:
		return numericOrZero(actual) >= numericOrZero(c.value)
	case query.TokLt:
		return numericOrZero(actual) < numericOrZero(c.value)
	case query.TokLte:
		return numericOrZero(actual) <= numericOrZero(c.value)
	default:
		return false
	}
}

// evalAssign applies an `eval field = <field-or-literal>` expression to row,
// mutating it in place.
func evalAssign(row Row, expr string) error {
	toks, err := query.NewLexer(expr).Tokenize()
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "search.evalAssign", "tokenize eval expression", err)
	}
	if len(toks) < 3 || toks[0].Kind == query.TokEOF {
		return apperr.New(apperr.KindInvalidInput, "search.evalAssign", fmt.Sprintf("malformed eval expression %q", expr))
	}
	target := toks[0]
	if target.Kind != query.TokIdent && target.Kind != query.TokBareword {
		return apperr.New(apperr.KindInvalidInput, "search.evalAssign", fmt.Sprintf("eval target must be a field name, got %q", target.Text))
	}
	if toks[1].Kind != query.TokEq {
		return apperr.New(apperr.KindInvalidInput, "search.evalAssign", "eval expression must be field = value")
	}
	source := toks[2]
	if source.Kind == query.TokIdent || source.Kind == query.TokBareword {
		if v, ok := rowValue(row, source.Text); ok {
			row[strings.ToLower(target.Text)] = v
			return nil
		}
	}
	row[strings.ToLower(target.Text)] = source.Text
	return nil
}

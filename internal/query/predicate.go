// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tomtom215/cartographus/internal/model"
)

// fieldValue resolves a field name against a LogEvent's built-in columns
// first, falling back to Metadata.
func fieldValue(e *model.LogEvent, name string) (string, bool) {
	switch strings.ToLower(name) {
	case "id":
		return e.ID, true
	case "level":
		return e.Level, true
	case "source":
		return e.Source, true
	case "message":
		return e.Message, true
	case "rawcontent":
		return e.RawContent, true
	case "timestamp", "ingesttime":
		return strconv.FormatInt(e.IngestTime.UnixMilli(), 10), true
	case "recordtime":
		if e.RecordTime.IsZero() {
			return "", false
		}
		return strconv.FormatInt(e.RecordTime.UnixMilli(), 10), true
	default:
		v, ok := e.Metadata[name]
		return v, ok
	}
}

// compareValues compares a and b, preferring numeric comparison when both
// parse as floats, else falling back to lexicographic string comparison.
// Returns -1, 0, or 1.
func compareValues(a, b string) int {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func wildcardToRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

// TermPredicate matches a bareword (optionally wildcarded) against the
// message field, case-insensitively.
type TermPredicate struct {
	Value    string
	Wildcard bool
	re       *regexp.Regexp
}

func newTermPredicate(value string, wildcard bool) (*TermPredicate, error) {
	tp := &TermPredicate{Value: value, Wildcard: wildcard}
	if wildcard {
		re, err := wildcardToRegexp(strings.ToLower(value))
		if err != nil {
			return nil, err
		}
		tp.re = re
	}
	return tp, nil
}

func (t *TermPredicate) Match(e *model.LogEvent) bool {
	msg := strings.ToLower(e.Message)
	if t.Wildcard {
		for _, tok := range strings.Fields(msg) {
			if t.re.MatchString(tok) {
				return true
			}
		}
		return t.re.MatchString(msg)
	}
	return strings.Contains(msg, strings.ToLower(t.Value))
}

func (t *TermPredicate) String() string { return t.Value }

// PhrasePredicate matches an exact quoted phrase as a substring of message.
type PhrasePredicate struct{ Phrase string }

func (p *PhrasePredicate) Match(e *model.LogEvent) bool {
	return strings.Contains(strings.ToLower(e.Message), strings.ToLower(p.Phrase))
}
func (p *PhrasePredicate) String() string { return `"` + p.Phrase + `"` }

// RegexPredicate matches a compiled regex against the message field.
type RegexPredicate struct {
	Pattern string
	re      *regexp.Regexp
}

func newRegexPredicate(pattern string) (*RegexPredicate, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexPredicate{Pattern: pattern, re: re}, nil
}

func (r *RegexPredicate) Match(e *model.LogEvent) bool { return r.re.MatchString(e.Message) }
func (r *RegexPredicate) String() string               { return "/" + r.Pattern + "/" }

// FieldPredicate compares a named field's value against Value using Op.
type FieldPredicate struct {
	Field string
	Op    FieldTermOp
	Value string
}

func (f *FieldPredicate) Match(e *model.LogEvent) bool {
	v, ok := fieldValue(e, f.Field)
	if !ok {
		return false
	}
	cmp := compareValues(v, f.Value)
	switch f.Op {
	case FieldEq:
		return cmp == 0
	case FieldNeq:
		return cmp != 0
	case FieldGt:
		return cmp > 0
	case FieldGte:
		return cmp >= 0
	case FieldLt:
		return cmp < 0
	case FieldLte:
		return cmp <= 0
	default:
		return false
	}
}
func (f *FieldPredicate) String() string { return f.Field + string(f.Op) + f.Value }

// FieldWildcardPredicate applies a wildcard match against one named field.
type FieldWildcardPredicate struct {
	Field   string
	Pattern string
	re      *regexp.Regexp
}

func newFieldWildcardPredicate(field, pattern string) (*FieldWildcardPredicate, error) {
	re, err := wildcardToRegexp(strings.ToLower(pattern))
	if err != nil {
		return nil, err
	}
	return &FieldWildcardPredicate{Field: field, Pattern: pattern, re: re}, nil
}

func (f *FieldWildcardPredicate) Match(e *model.LogEvent) bool {
	v, ok := fieldValue(e, f.Field)
	if !ok {
		return false
	}
	return f.re.MatchString(strings.ToLower(v))
}
func (f *FieldWildcardPredicate) String() string { return f.Field + "=" + f.Pattern }

// FieldRegexPredicate applies a compiled regex against one named field.
type FieldRegexPredicate struct {
	Field   string
	Pattern string
	re      *regexp.Regexp
}

func newFieldRegexPredicate(field, pattern string) (*FieldRegexPredicate, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &FieldRegexPredicate{Field: field, Pattern: pattern, re: re}, nil
}

func (f *FieldRegexPredicate) Match(e *model.LogEvent) bool {
	v, ok := fieldValue(e, f.Field)
	if !ok {
		return false
	}
	return f.re.MatchString(v)
}
func (f *FieldRegexPredicate) String() string { return f.Field + "=/" + f.Pattern + "/" }

// RangePredicate matches when a field's value falls within [From, To]
// inclusive, comparing numerically when possible.
type RangePredicate struct {
	Field string
	From  string
	To    string
}

func (r *RangePredicate) Match(e *model.LogEvent) bool {
	v, ok := fieldValue(e, r.Field)
	if !ok {
		return false
	}
	return compareValues(v, r.From) >= 0 && compareValues(v, r.To) <= 0
}
func (r *RangePredicate) String() string { return r.Field + "=[" + r.From + " TO " + r.To + "]" }

// AndPredicate is the conjunction of Operands.
type AndPredicate struct{ Operands []model.IndexPredicate }

func (a *AndPredicate) Match(e *model.LogEvent) bool {
	for _, op := range a.Operands {
		if !op.Match(e) {
			return false
		}
	}
	return true
}
func (a *AndPredicate) String() string { return joinPredicates(a.Operands, " AND ") }

// OrPredicate is the disjunction of Operands.
type OrPredicate struct{ Operands []model.IndexPredicate }

func (o *OrPredicate) Match(e *model.LogEvent) bool {
	for _, op := range o.Operands {
		if op.Match(e) {
			return true
		}
	}
	return false
}
func (o *OrPredicate) String() string { return joinPredicates(o.Operands, " OR ") }

// NotPredicate negates Operand.
type NotPredicate struct{ Operand model.IndexPredicate }

func (n *NotPredicate) Match(e *model.LogEvent) bool { return !n.Operand.Match(e) }
func (n *NotPredicate) String() string               { return "NOT " + n.Operand.String() }

// MatchAllPredicate matches every event; used for the empty search term.
type MatchAllPredicate struct{}

func (MatchAllPredicate) Match(*model.LogEvent) bool { return true }
func (MatchAllPredicate) String() string             { return "*" }

func joinPredicates(ops []model.IndexPredicate, sep string) string {
	var sb strings.Builder
	for i, op := range ops {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(op.String())
	}
	return sb.String()
}

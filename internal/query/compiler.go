// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/cartographus/internal/cache"
	"github.com/tomtom215/cartographus/internal/model"
)

// parsed is the time-independent half of a compiled query: the predicate
// tree and pipeline, cached by raw query text since the same saved query
// (a dashboard search, an alarm's Query) is recompiled on every poll with
// only its [start, end] window changing.
type parsed struct {
	predicate model.IndexPredicate
	pipeline  []model.PipelineCommand
}

// parseCache is an LFU cache of parsed queries: alarm evaluation and
// repeated dashboard searches skew heavily toward a small set of saved
// query strings, which is exactly the access pattern an LFU eviction
// policy is suited to over a plain TTL cache.
var parseCache = cache.NewLFU(2048, 10*time.Minute)

// Compile parses and compiles raw (a "searchExpr | cmd1 | cmd2 | ..."
// pipeline expression) into a model.CompiledQuery scoped to [start, end].
func Compile(raw string, start, end time.Time) (*model.CompiledQuery, error) {
	p, err := parseCached(raw)
	if err != nil {
		return nil, err
	}

	cq := &model.CompiledQuery{
		Raw:       raw,
		Predicate: p.predicate,
		StartTime: start,
		EndTime:   end,
		Pipeline:  p.pipeline,
	}
	return cq, nil
}

func parseCached(raw string) (parsed, error) {
	if v, ok := parseCache.Get(raw); ok {
		return v.(parsed), nil
	}

	expr, cmdSegs, err := ParsePipeline(raw)
	if err != nil {
		return parsed{}, err
	}

	pred, err := compileExpr(expr)
	if err != nil {
		return parsed{}, err
	}

	// schema == nil means "any field on LogEvent is addressable"; once a
	// stats command runs, schema narrows to its output columns and every
	// later command must only reference those.
	var schema map[string]bool
	var pipeline []model.PipelineCommand
	for _, seg := range cmdSegs {
		cmd, outSchema, err := compileCommand(seg, schema)
		if err != nil {
			return parsed{}, err
		}
		pipeline = append(pipeline, cmd)
		if outSchema != nil {
			schema = outSchema
		}
	}

	p := parsed{predicate: pred, pipeline: pipeline}
	parseCache.Set(raw, p)
	return p, nil
}

func compileExpr(e Expr) (model.IndexPredicate, error) {
	switch n := e.(type) {
	case nil:
		return MatchAllPredicate{}, nil
	case *AndExpr:
		ops := make([]model.IndexPredicate, 0, len(n.Operands))
		for _, o := range n.Operands {
			p, err := compileExpr(o)
			if err != nil {
				return nil, err
			}
			ops = append(ops, p)
		}
		return &AndPredicate{Operands: ops}, nil
	case *OrExpr:
		ops := make([]model.IndexPredicate, 0, len(n.Operands))
		for _, o := range n.Operands {
			p, err := compileExpr(o)
			if err != nil {
				return nil, err
			}
			ops = append(ops, p)
		}
		return &OrPredicate{Operands: ops}, nil
	case *NotExpr:
		p, err := compileExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		return &NotPredicate{Operand: p}, nil
	case *TermExpr:
		if n.Phrase {
			return &PhrasePredicate{Phrase: n.Value}, nil
		}
		return newTermPredicate(n.Value, n.Wildcard)
	case *RegexExpr:
		return newRegexPredicate(n.Pattern)
	case *FieldTermExpr:
		return compileFieldTerm(n)
	default:
		return nil, &SyntaxError{Message: "unrecognized expression node"}
	}
}

func compileFieldTerm(n *FieldTermExpr) (model.IndexPredicate, error) {
	if n.Range != nil {
		return &RangePredicate{Field: n.Field, From: n.Range.From, To: n.Range.To}, nil
	}
	if n.Regex {
		return newFieldRegexPredicate(n.Field, n.Value)
	}
	if n.Wildcard {
		return newFieldWildcardPredicate(n.Field, n.Value)
	}
	return &FieldPredicate{Field: n.Field, Op: n.Op, Value: n.Value}, nil
}

// compileCommand parses one pipeline stage's token list and returns the
// compiled command plus, for stats, the resulting output schema (nil for
// every other command kind, meaning "schema unchanged").
func compileCommand(toks []Token, schema map[string]bool) (model.PipelineCommand, map[string]bool, error) {
	if len(toks) == 0 || toks[0].Kind == TokEOF {
		return model.PipelineCommand{}, nil, &SyntaxError{Message: "empty pipeline command"}
	}
	name := strings.ToLower(toks[0].Text)
	rest := toks[1:]

	switch name {
	case "stats":
		return compileStats(rest)
	case "where":
		return compileWhere(rest, schema)
	case "eval":
		return compileEval(rest, schema)
	case "sort":
		return compileSort(rest, schema)
	case "head":
		return compileHead(rest)
	case "rename":
		return compileRename(rest, schema)
	default:
		return model.PipelineCommand{}, nil, &SyntaxError{Position: toks[0].Position, Message: "unknown command " + toks[0].Text}
	}
}

func compileStats(toks []Token) (model.PipelineCommand, map[string]bool, error) {
	cmd := model.PipelineCommand{Kind: model.CmdStats}
	schema := map[string]bool{}
	i := 0

	for i < len(toks) && toks[i].Kind != TokEOF {
		if strings.EqualFold(toks[i].Text, "by") {
			i++
			for i < len(toks) && toks[i].Kind != TokEOF {
				if toks[i].Kind == TokComma {
					i++
					continue
				}
				cmd.GroupBy = append(cmd.GroupBy, toks[i].Text)
				schema[toks[i].Text] = true
				i++
			}
			break
		}
		if toks[i].Kind == TokComma {
			i++
			continue
		}

		fn := model.StatsAggFunc(strings.ToLower(toks[i].Text))
		term := model.StatsTerm{Func: fn}
		i++

		if fn != model.AggCount {
			if i >= len(toks) || toks[i].Kind != TokLParen {
				return cmd, nil, &SyntaxError{Position: toks[i-1].Position, Expected: "(", Message: "stats function requires a field argument"}
			}
			i++
			if i >= len(toks) || toks[i].Kind != TokBareword {
				return cmd, nil, &SyntaxError{Position: toks[i].Position, Expected: "field name"}
			}
			term.Field = toks[i].Text
			i++
			if i >= len(toks) || toks[i].Kind != TokRParen {
				return cmd, nil, &SyntaxError{Position: toks[i].Position, Expected: ")"}
			}
			i++
		}

		term.Alias = string(term.Func)
		if term.Field != "" {
			term.Alias = string(term.Func) + "_" + term.Field
		}
		if i < len(toks) && toks[i].Kind == TokAs {
			i++
			if i >= len(toks) || toks[i].Kind != TokBareword {
				return cmd, nil, &SyntaxError{Position: toks[i].Position, Expected: "alias"}
			}
			term.Alias = toks[i].Text
			i++
		}

		cmd.StatsTerms = append(cmd.StatsTerms, term)
		schema[term.Alias] = true
	}

	if len(cmd.StatsTerms) == 0 {
		return cmd, nil, &SyntaxError{Message: "stats requires at least one aggregation"}
	}
	return cmd, schema, nil
}

func checkSchema(schema map[string]bool, field string) error {
	if schema == nil {
		return nil
	}
	if !schema[field] {
		return &UnknownFieldError{Name: field}
	}
	return nil
}

func rawExprString(toks []Token) string {
	var sb strings.Builder
	for _, t := range toks {
		if t.Kind == TokEOF {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		if t.Kind == TokString {
			sb.WriteByte('"')
			sb.WriteString(t.Text)
			sb.WriteByte('"')
		} else {
			sb.WriteString(t.Text)
		}
	}
	return sb.String()
}

func compileWhere(toks []Token, schema map[string]bool) (model.PipelineCommand, map[string]bool, error) {
	if len(toks) == 0 || toks[0].Kind == TokEOF {
		return model.PipelineCommand{}, nil, &SyntaxError{Message: "where requires an expression"}
	}
	if toks[0].Kind == TokBareword {
		if err := checkSchema(schema, toks[0].Text); err != nil {
			return model.PipelineCommand{}, nil, err
		}
	}
	return model.PipelineCommand{Kind: model.CmdWhere, Expr: rawExprString(toks)}, nil, nil
}

func compileEval(toks []Token, schema map[string]bool) (model.PipelineCommand, map[string]bool, error) {
	if len(toks) < 2 || toks[0].Kind != TokBareword {
		return model.PipelineCommand{}, nil, &SyntaxError{Message: "eval requires field = expression"}
	}
	field := toks[0].Text
	if toks[1].Kind != TokEq {
		return model.PipelineCommand{}, nil, &SyntaxError{Position: toks[1].Position, Expected: "="}
	}
	return model.PipelineCommand{Kind: model.CmdEval, RenameTo: field, Expr: rawExprString(toks[2:])}, nil, nil
}

func compileSort(toks []Token, schema map[string]bool) (model.PipelineCommand, map[string]bool, error) {
	cmd := model.PipelineCommand{Kind: model.CmdSort}
	i := 0
	for i < len(toks) && toks[i].Kind != TokEOF {
		if toks[i].Kind == TokComma {
			i++
			continue
		}
		if toks[i].Kind != TokBareword {
			return cmd, nil, &SyntaxError{Position: toks[i].Position, Expected: "field name"}
		}
		field := toks[i].Text
		if err := checkSchema(schema, field); err != nil {
			return cmd, nil, err
		}
		desc := false
		i++
		if i < len(toks) && toks[i].Kind == TokBareword {
			switch strings.ToLower(toks[i].Text) {
			case "desc":
				desc = true
				i++
			case "asc":
				i++
			}
		}
		cmd.SortFields = append(cmd.SortFields, model.SortField{Field: field, Desc: desc})
	}
	if len(cmd.SortFields) == 0 {
		return cmd, nil, &SyntaxError{Message: "sort requires at least one field"}
	}
	return cmd, nil, nil
}

func compileHead(toks []Token) (model.PipelineCommand, map[string]bool, error) {
	if len(toks) == 0 || toks[0].Kind != TokBareword {
		return model.PipelineCommand{}, nil, &SyntaxError{Message: "head requires a row count"}
	}
	n, err := strconv.Atoi(toks[0].Text)
	if err != nil {
		return model.PipelineCommand{}, nil, &TypeMismatchError{Field: "head", Expected: "integer", Got: toks[0].Text}
	}
	return model.PipelineCommand{Kind: model.CmdHead, Limit: n}, nil, nil
}

func compileRename(toks []Token, schema map[string]bool) (model.PipelineCommand, map[string]bool, error) {
	if len(toks) < 3 || toks[0].Kind != TokBareword || toks[1].Kind != TokAs || toks[2].Kind != TokBareword {
		return model.PipelineCommand{}, nil, &SyntaxError{Message: "rename requires 'a AS b'"}
	}
	if err := checkSchema(schema, toks[0].Text); err != nil {
		return model.PipelineCommand{}, nil, err
	}
	var outSchema map[string]bool
	if schema != nil {
		outSchema = make(map[string]bool, len(schema))
		for k := range schema {
			outSchema[k] = true
		}
		delete(outSchema, toks[0].Text)
		outSchema[toks[2].Text] = true
	}
	return model.PipelineCommand{Kind: model.CmdRename, RenameFrom: toks[0].Text, RenameTo: toks[2].Text}, outSchema, nil
}

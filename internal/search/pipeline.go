// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tomtom215/cartographus/internal/apperr"
	"github.com/tomtom215/cartographus/internal/model"
)

// runPipeline executes cmds in order against rows, returning the final
// row set. stats and sort require full materialization; where/eval/head
// filter or truncate the working set in place.
func runPipeline(rows []Row, cmds []model.PipelineCommand) ([]Row, error) {
	for _, cmd := range cmds {
		var err error
		switch cmd.Kind {
		case model.CmdWhere:
			rows, err = applyWhere(rows, cmd.Expr)
		case model.CmdEval:
			rows, err = applyEval(rows, cmd.Expr)
		case model.CmdStats:
			rows, err = applyStats(rows, cmd.StatsTerms, cmd.GroupBy)
		case model.CmdSort:
			applySort(rows, cmd.SortFields)
		case model.CmdHead:
			if cmd.Limit >= 0 && cmd.Limit < len(rows) {
				rows = rows[:cmd.Limit]
			}
		case model.CmdRename:
			applyRename(rows, cmd.RenameFrom, cmd.RenameTo)
		default:
			return nil, apperr.New(apperr.KindInvalidInput, "search.runPipeline", fmt.Sprintf("unsupported pipeline command %q", cmd.Kind))
		}
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func applyWhere(rows []Row, expr string) ([]Row, error) {
	terms, err := parseComparisons(expr)
	if err != nil {
		return nil, err
	}
	out := rows[:0:0]
	for _, r := range rows {
		if evalWhere(r, terms) {
			out = append(out, r)
		}
	}
	return out, nil
}

func applyEval(rows []Row, expr string) ([]Row, error) {
	for _, r := range rows {
		if err := evalAssign(r, expr); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func applyRename(rows []Row, from, to string) {
	from, to = strings.ToLower(from), strings.ToLower(to)
	for _, r := range rows {
		if v, ok := r[from]; ok {
			r[to] = v
			delete(r, from)
		}
	}
}

func applySort(rows []Row, fields []model.SortField) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, f := range fields {
			field := strings.ToLower(f.Field)
			a, b := rows[i][field], rows[j][field]
			if a == b {
				continue
			}
			less := compareRowValues(a, b)
			if f.Desc {
				return !less
			}
			return less
		}
		return false
	})
}

func compareRowValues(a, b string) bool {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		return af < bf
	}
	return a < b
}

// applyStats groups rows by groupBy and computes each term's aggregate,
// producing one output row per group. An empty groupBy produces a single
// row summarizing all input rows.
func applyStats(rows []Row, terms []model.StatsTerm, groupBy []string) ([]Row, error) {
	type group struct {
		key      string
		fields   map[string]string
		values   map[string][]string
		rowCount int
	}

	order := make([]string, 0)
	groups := make(map[string]*group)

	for _, r := range rows {
		var keyParts []string
		fields := make(map[string]string, len(groupBy))
		for _, g := range groupBy {
			g = strings.ToLower(g)
			v := r[g]
			fields[g] = v
			keyParts = append(keyParts, v)
		}
		key := strings.Join(keyParts, "\x1f")
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, fields: fields, values: make(map[string][]string)}
			groups[key] = g
			order = append(order, key)
		}
		g.rowCount++
		for _, term := range terms {
			field := strings.ToLower(term.Field)
			if v, ok := r[field]; ok {
				g.values[field] = append(g.values[field], v)
			}
		}
	}

	out := make([]Row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row := make(Row, len(groupBy)+len(terms))
		for k, v := range g.fields {
			row[k] = v
		}
		for _, term := range terms {
			name := term.Alias
			if name == "" {
				name = string(term.Func) + "_" + term.Field
			}
			var v string
			var err error
			if term.Func == model.AggCount && term.Field == "" {
				v = strconv.Itoa(g.rowCount)
			} else {
				v, err = aggregate(term, g.values[strings.ToLower(term.Field)])
			}
			if err != nil {
				return nil, err
			}
			row[strings.ToLower(name)] = v
		}
		out = append(out, row)
	}
	return out, nil
}

func aggregate(term model.StatsTerm, values []string) (string, error) {
	switch term.Func {
	case model.AggCount:
		return strconv.Itoa(len(values)), nil
	case model.AggDistinctCount:
		seen := make(map[string]struct{}, len(values))
		for _, v := range values {
			seen[v] = struct{}{}
		}
		return strconv.Itoa(len(seen)), nil
	case model.AggSum, model.AggAvg, model.AggMin, model.AggMax:
		return numericAggregate(term.Func, values)
	default:
		return "", apperr.New(apperr.KindInvalidInput, "search.aggregate", fmt.Sprintf("unsupported stats function %q", term.Func))
	}
}

func numericAggregate(fn model.StatsAggFunc, values []string) (string, error) {
	var nums []float64
	for _, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "", apperr.Wrap(apperr.KindTypeMismatch, "search.numericAggregate", fmt.Sprintf("%s requires numeric values, got %q", fn, v), err)
		}
		nums = append(nums, f)
	}
	if len(nums) == 0 {
		return "0", nil
	}
	switch fn {
	case model.AggSum:
		var sum float64
		for _, n := range nums {
			sum += n
		}
		return formatFloat(sum), nil
	case model.AggAvg:
		var sum float64
		for _, n := range nums {
			sum += n
		}
		return formatFloat(sum / float64(len(nums))), nil
	case model.AggMin:
		min := nums[0]
		for _, n := range nums[1:] {
			if n < min {
				min = n
			}
		}
		return formatFloat(min), nil
	case model.AggMax:
		max := nums[0]
		for _, n := range nums[1:] {
			if n > max {
				max = n
			}
		}
		return formatFloat(max), nil
	}
	return "0", nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

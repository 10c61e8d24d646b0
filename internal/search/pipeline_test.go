// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package search

import (
	"testing"

	"github.com/tomtom215/cartographus/internal/model"
)

func TestApplyWhereFiltersRows(t *testing.T) {
	rows := []Row{{"level": "error"}, {"level": "info"}}
	out, err := applyWhere(rows, `level = "error"`)
	if err != nil {
		t.Fatalf("applyWhere() error = %v", err)
	}
	if len(out) != 1 || out[0]["level"] != "error" {
		t.Fatalf("applyWhere() = %+v, want 1 error row", out)
	}
}

func TestApplyEvalCopiesFieldValue(t *testing.T) {
	rows := []Row{{"source": "api"}}
	out, err := applyEval(rows, `origin = source`)
	if err != nil {
		t.Fatalf("applyEval() error = %v", err)
	}
	if out[0]["origin"] != "api" {
		t.Fatalf("applyEval() origin = %q, want api", out[0]["origin"])
	}
}

func TestApplyEvalAssignsLiteral(t *testing.T) {
	rows := []Row{{}}
	out, err := applyEval(rows, `status = "seen"`)
	if err != nil {
		t.Fatalf("applyEval() error = %v", err)
	}
	if out[0]["status"] != "seen" {
		t.Fatalf("applyEval() status = %q, want seen", out[0]["status"])
	}
}

func TestApplyStatsCountsByGroup(t *testing.T) {
	rows := []Row{
		{"source": "a"}, {"source": "a"}, {"source": "b"},
	}
	terms := []model.StatsTerm{{Func: model.AggCount, Field: "source", Alias: "count"}}
	out, err := applyStats(rows, terms, []string{"source"})
	if err != nil {
		t.Fatalf("applyStats() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("applyStats() groups = %d, want 2", len(out))
	}
	counts := map[string]string{}
	for _, r := range out {
		counts[r["source"]] = r["count"]
	}
	if counts["a"] != "2" || counts["b"] != "1" {
		t.Errorf("applyStats() counts = %+v, want a=2 b=1", counts)
	}
}

func TestApplyStatsBareCountByGroup(t *testing.T) {
	rows := []Row{
		{"source": "a", "level": "INFO"}, {"source": "a", "level": "ERROR"}, {"source": "b", "level": "INFO"},
	}
	terms := []model.StatsTerm{{Func: model.AggCount, Alias: "count"}}
	out, err := applyStats(rows, terms, []string{"source"})
	if err != nil {
		t.Fatalf("applyStats() error = %v", err)
	}
	counts := map[string]string{}
	for _, r := range out {
		counts[r["source"]] = r["count"]
	}
	if counts["a"] != "2" || counts["b"] != "1" {
		t.Errorf("applyStats() bare count = %+v, want a=2 b=1", counts)
	}
}

func TestApplyStatsSumRejectsNonNumeric(t *testing.T) {
	rows := []Row{{"duration": "not-a-number"}}
	terms := []model.StatsTerm{{Func: model.AggSum, Field: "duration", Alias: "total"}}
	if _, err := applyStats(rows, terms, nil); err == nil {
		t.Error("expected sum over non-numeric field to error")
	}
}

func TestApplySortOrdersDescending(t *testing.T) {
	rows := []Row{{"n": "1"}, {"n": "3"}, {"n": "2"}}
	applySort(rows, []model.SortField{{Field: "n", Desc: true}})
	if rows[0]["n"] != "3" || rows[2]["n"] != "1" {
		t.Errorf("applySort() = %+v, want descending by n", rows)
	}
}

func TestRunPipelineHeadTruncates(t *testing.T) {
	rows := []Row{{"n": "1"}, {"n": "2"}, {"n": "3"}}
	out, err := runPipeline(rows, []model.PipelineCommand{{Kind: model.CmdHead, Limit: 2}})
	if err != nil {
		t.Fatalf("runPipeline() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("runPipeline() head = %d rows, want 2", len(out))
	}
}

func TestApplyRenameMovesKey(t *testing.T) {
	rows := []Row{{"old": "v"}}
	applyRename(rows, "old", "new")
	if rows[0]["new"] != "v" {
		t.Error("expected renamed key to carry the original value")
	}
	if _, ok := rows[0]["old"]; ok {
		t.Error("expected old key to be removed after rename")
	}
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package query

import (
	"testing"
	"time"

	"github.com/tomtom215/cartographus/internal/model"
)

func TestCompileTermMatchesMessage(t *testing.T) {
	cq, err := Compile("hello", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}

	e := &model.LogEvent{Message: "hello world"}
	if !cq.Predicate.Match(e) {
		t.Error("expected predicate to match")
	}

	e2 := &model.LogEvent{Message: "goodbye world"}
	if cq.Predicate.Match(e2) {
		t.Error("expected predicate not to match")
	}
}

func TestCompileFieldTermAndSource(t *testing.T) {
	cq, err := Compile(`"hello world" AND source=s`, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}

	match := &model.LogEvent{Message: "hello world", Source: "s"}
	if !cq.Predicate.Match(match) {
		t.Error("expected predicate to match")
	}

	noSource := &model.LogEvent{Message: "hello world", Source: "other"}
	if cq.Predicate.Match(noSource) {
		t.Error("expected predicate not to match a different source")
	}
}

func TestCompileImplicitAnd(t *testing.T) {
	cq, err := Compile(`error level=WARN`, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	e := &model.LogEvent{Message: "error seen", Level: "WARN"}
	if !cq.Predicate.Match(e) {
		t.Error("expected implicit AND of juxtaposed terms to match")
	}
}

func TestCompileOrNot(t *testing.T) {
	cq, err := Compile(`(a OR b) NOT c`, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !cq.Predicate.Match(&model.LogEvent{Message: "a here"}) {
		t.Error("expected match on a")
	}
	if cq.Predicate.Match(&model.LogEvent{Message: "a and c"}) {
		t.Error("expected NOT c to exclude this event")
	}
}

func TestCompileWildcard(t *testing.T) {
	cq, err := Compile(`err*`, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !cq.Predicate.Match(&model.LogEvent{Message: "error: timeout"}) {
		t.Error("expected wildcard to match token prefix")
	}
}

func TestCompileRange(t *testing.T) {
	cq, err := Compile(`status=[400 TO 499]`, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	inRange := &model.LogEvent{Metadata: map[string]string{"status": "404"}}
	if !cq.Predicate.Match(inRange) {
		t.Error("expected 404 to be within [400 TO 499]")
	}
	outOfRange := &model.LogEvent{Metadata: map[string]string{"status": "200"}}
	if cq.Predicate.Match(outOfRange) {
		t.Error("expected 200 to be outside [400 TO 499]")
	}
}

func TestCompilePipelineStats(t *testing.T) {
	cq, err := Compile(`error | stats count by source`, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if len(cq.Pipeline) != 1 {
		t.Fatalf("expected 1 pipeline stage, got %d", len(cq.Pipeline))
	}
	stage := cq.Pipeline[0]
	if stage.Kind != model.CmdStats {
		t.Errorf("expected stats stage, got %v", stage.Kind)
	}
	if len(stage.StatsTerms) != 1 || stage.StatsTerms[0].Func != model.AggCount {
		t.Errorf("expected a single count term, got %+v", stage.StatsTerms)
	}
	if len(stage.GroupBy) != 1 || stage.GroupBy[0] != "source" {
		t.Errorf("expected group by source, got %+v", stage.GroupBy)
	}
}

func TestCompileUnknownFieldAfterStatsFails(t *testing.T) {
	_, err := Compile(`error | stats count by source | sort missing_field`, time.Time{}, time.Time{})
	if err == nil {
		t.Fatal("expected compile to fail on a field outside the aggregate schema")
	}
	if _, ok := err.(*UnknownFieldError); !ok {
		t.Errorf("expected UnknownFieldError, got %T: %v", err, err)
	}
}

func TestCompileHeadHonorsLimit(t *testing.T) {
	cq, err := Compile(`* | head 10`, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if cq.Pipeline[0].Kind != model.CmdHead || cq.Pipeline[0].Limit != 10 {
		t.Errorf("expected head stage with limit 10, got %+v", cq.Pipeline[0])
	}
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile(`source=`, time.Time{}, time.Time{})
	if err == nil {
		t.Fatal("expected a syntax error for a dangling field comparison")
	}
	if _, ok := err.(*SyntaxError); !ok {
		t.Errorf("expected *SyntaxError, got %T", err)
	}
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package search implements the C7 search executor: it fingerprints a
// compiled query, consults the search cache, fans the predicate out across
// partitions, and runs the post-match pipeline (stats/where/eval/sort/
// head/rename) against the merged results.
package search

import (
	"strconv"
	"strings"

	"github.com/tomtom215/cartographus/internal/model"
)

// Row is a pipeline-stage record: either a LogEvent's addressable fields
// (before any stats command narrows the schema) or an aggregate/evaluated
// row produced by stats/eval.
type Row map[string]string

func rowFromEvent(e *model.LogEvent) Row {
	r := Row{
		"id":         e.ID,
		"level":      e.Level,
		"source":     e.Source,
		"message":    e.Message,
		"rawcontent": e.RawContent,
		"timestamp":  strconv.FormatInt(e.IngestTime.UnixMilli(), 10),
	}
	if !e.RecordTime.IsZero() {
		r["recordtime"] = strconv.FormatInt(e.RecordTime.UnixMilli(), 10)
	}
	for k, v := range e.Metadata {
		r[k] = v
	}
	return r
}

func rowsFromEvents(events []*model.LogEvent) []Row {
	rows := make([]Row, len(events))
	for i, e := range events {
		rows[i] = rowFromEvent(e)
	}
	return rows
}

func rowValue(r Row, field string) (string, bool) {
	v, ok := r[strings.ToLower(field)]
	return v, ok
}

func numericOrZero(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"encoding/csv"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/tomtom215/cartographus/internal/cache"
	"github.com/tomtom215/cartographus/internal/query"
	"github.com/tomtom215/cartographus/internal/search"
)

const (
	defaultSearchLimit = 200
	maxSearchLimit     = 10000
)

// parseSearchWindow reads q/start/end/limit from the query string and
// compiles the query, defaulting the window to the last hour when start/end
// are absent.
func parseSearchWindow(r *http.Request) (raw string, start, end time.Time, limit int, err error) {
	raw = r.URL.Query().Get("q")
	if raw == "" {
		raw = "*"
	}

	end = time.Now()
	start = end.Add(-time.Hour)
	if s := r.URL.Query().Get("start"); s != "" {
		if start, err = time.Parse(time.RFC3339, s); err != nil {
			return
		}
	}
	if e := r.URL.Query().Get("end"); e != "" {
		if end, err = time.Parse(time.RFC3339, e); err != nil {
			return
		}
	}

	limit = queryIntParam(r, "limit", defaultSearchLimit)
	if limit <= 0 || limit > maxSearchLimit {
		limit = defaultSearchLimit
	}
	return
}

// Search compiles the saved-query language expression in q and runs it
// against the partitioned index, returning matching rows as a JSON array.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	raw, start, end, limit, err := parseSearchWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_TIME_RANGE", "start/end must be RFC3339 timestamps", err)
		return
	}

	cq, err := query.Compile(raw, start, end)
	if err != nil {
		respondError(w, http.StatusBadRequest, "QUERY_ERROR", err.Error(), err)
		return
	}

	rows, err := h.executor.Run(r.Context(), cq, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SEARCH_FAILED", "search execution failed", err)
		return
	}

	respondJSON(w, http.StatusOK, rows, len(rows))
}

// rowTime returns the effective timestamp of a search.Row: recordtime when
// present, else the ingest timestamp.
func rowTime(row search.Row) time.Time {
	ms := row["recordtime"]
	if ms == "" {
		ms = row["timestamp"]
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(n)
}

// Histogram buckets matching rows into fixed-width time intervals and
// returns a count per bucket, oldest first — the log-volume-over-time
// chart every log viewer needs.
func (h *Handler) Histogram(w http.ResponseWriter, r *http.Request) {
	raw, start, end, _, err := parseSearchWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_TIME_RANGE", "start/end must be RFC3339 timestamps", err)
		return
	}

	interval := time.Minute
	if iv := r.URL.Query().Get("interval"); iv != "" {
		parsed, err := time.ParseDuration(iv)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_INTERVAL", "interval must be a Go duration like 1m or 30s", err)
			return
		}
		interval = parsed
	}

	cq, err := query.Compile(raw, start, end)
	if err != nil {
		respondError(w, http.StatusBadRequest, "QUERY_ERROR", err.Error(), err)
		return
	}

	rows, err := h.executor.Run(r.Context(), cq, -1)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SEARCH_FAILED", "search execution failed", err)
		return
	}

	numBuckets := int(end.Sub(start)/interval) + 1
	if numBuckets <= 0 {
		numBuckets = 1
	}
	counts := cache.NewFenwickTree(numBuckets)
	for _, row := range rows {
		t := rowTime(row)
		if t.IsZero() {
			continue
		}
		idx := int(t.Sub(start) / interval)
		if idx < 0 || idx >= numBuckets {
			continue
		}
		counts.Update(idx, 1)
	}

	type point struct {
		Timestamp int64 `json:"timestamp"`
		Count     int   `json:"count"`
	}
	points := make([]point, 0, numBuckets)
	for i := 0; i < numBuckets; i++ {
		if count := counts.Get(i); count > 0 {
			points = append(points, point{
				Timestamp: start.Add(time.Duration(i) * interval).UnixMilli(),
				Count:     int(count),
			})
		}
	}

	respondJSON(w, http.StatusOK, points, len(points))
}

// TimeAggregation is Histogram generalized with an optional groupBy field:
// each bucket reports a count per distinct value of that field instead of a
// single total, e.g. error volume per source over time.
func (h *Handler) TimeAggregation(w http.ResponseWriter, r *http.Request) {
	raw, start, end, _, err := parseSearchWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_TIME_RANGE", "start/end must be RFC3339 timestamps", err)
		return
	}

	groupBy := r.URL.Query().Get("groupBy")
	if groupBy == "" {
		groupBy = "source"
	}

	interval := time.Minute
	if iv := r.URL.Query().Get("interval"); iv != "" {
		parsed, err := time.ParseDuration(iv)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_INTERVAL", "interval must be a Go duration like 1m or 30s", err)
			return
		}
		interval = parsed
	}

	cq, err := query.Compile(raw, start, end)
	if err != nil {
		respondError(w, http.StatusBadRequest, "QUERY_ERROR", err.Error(), err)
		return
	}

	rows, err := h.executor.Run(r.Context(), cq, -1)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SEARCH_FAILED", "search execution failed", err)
		return
	}

	type bucketKey struct {
		ts    int64
		value string
	}
	counts := make(map[bucketKey]int)
	for _, row := range rows {
		t := rowTime(row)
		if t.IsZero() {
			continue
		}
		key := bucketKey{ts: t.Truncate(interval).UnixMilli(), value: row[groupBy]}
		counts[key]++
	}

	type point struct {
		Timestamp int64  `json:"timestamp"`
		Value     string `json:"value"`
		Count     int    `json:"count"`
	}
	points := make([]point, 0, len(counts))
	for k, count := range counts {
		points = append(points, point{Timestamp: k.ts, Value: k.value, Count: count})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Timestamp != points[j].Timestamp {
			return points[i].Timestamp < points[j].Timestamp
		}
		return points[i].Value < points[j].Value
	})

	respondJSON(w, http.StatusOK, points, len(points))
}

// Export streams matching rows as CSV or JSON depending on the format
// query parameter (default json), for operators pulling a result set into
// another tool.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	raw, start, end, limit, err := parseSearchWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_TIME_RANGE", "start/end must be RFC3339 timestamps", err)
		return
	}
	if limit == defaultSearchLimit {
		limit = maxSearchLimit
	}

	cq, err := query.Compile(raw, start, end)
	if err != nil {
		respondError(w, http.StatusBadRequest, "QUERY_ERROR", err.Error(), err)
		return
	}

	rows, err := h.executor.Run(r.Context(), cq, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "SEARCH_FAILED", "search execution failed", err)
		return
	}

	if r.URL.Query().Get("format") != "csv" {
		respondJSON(w, http.StatusOK, rows, len(rows))
		return
	}

	columns := exportColumns(rows)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="export.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write(columns)
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = row[col]
		}
		_ = cw.Write(record)
	}
	cw.Flush()
}

// exportColumns collects the union of every row's keys, id/timestamp/source
// first, the rest sorted for a stable column order across calls.
func exportColumns(rows []search.Row) []string {
	seen := map[string]bool{}
	var rest []string
	for _, row := range rows {
		for k := range row {
			if seen[k] {
				continue
			}
			seen[k] = true
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)

	fixed := []string{"id", "timestamp", "recordtime", "source", "level", "message"}
	columns := make([]string, 0, len(rest)+len(fixed))
	used := map[string]bool{}
	for _, f := range fixed {
		if seen[f] {
			columns = append(columns, f)
			used[f] = true
		}
	}
	for _, k := range rest {
		if !used[k] {
			columns = append(columns, k)
		}
	}
	return columns
}

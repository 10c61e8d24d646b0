// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package ingest

import (
	"bufio"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/tomtom215/cartographus/internal/extract"
	"github.com/tomtom215/cartographus/internal/model"
)

// HTTPPushConfig describes one bearer-authenticated push endpoint.
type HTTPPushConfig struct {
	SourceID string
	Token    string
	// MaxEventsPerSecond caps sustained ingestion for this source; 0
	// disables the limiter. Bursts up to the same size are allowed.
	MaxEventsPerSecond int
}

// HTTPPush handles POST bodies of newline-delimited raw log lines for one
// source. It is registered into the chi router by the API layer rather
// than owning its own listener, since every push source shares the HTTP
// server's port.
type HTTPPush struct {
	cfg       HTTPPushConfig
	sink      Sink
	extractor *extract.Extractor
	limiter   *rate.Limiter
}

func NewHTTPPush(cfg HTTPPushConfig, sink Sink, extractor *extract.Extractor) *HTTPPush {
	h := &HTTPPush{cfg: cfg, sink: sink, extractor: extractor}
	if cfg.MaxEventsPerSecond > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(cfg.MaxEventsPerSecond), cfg.MaxEventsPerSecond)
	}
	return h
}

// ServeHTTP implements http.Handler. Each line of the request body becomes
// one LogEvent; a bearer token mismatch yields 401.
func (h *HTTPPush) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var accepted, limited int
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if h.limiter != nil && !h.limiter.Allow() {
			limited++
			continue
		}
		event := model.NewLogEvent(h.cfg.SourceID, line)
		recordAccepted(ctx, "http_push", h.cfg.SourceID, h.extractor, h.sink, event)
		accepted++
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"accepted":` + strconv.Itoa(accepted) + `,"rateLimited":` + strconv.Itoa(limited) + `}`))
}

func (h *HTTPPush) authorized(r *http.Request) bool {
	if h.cfg.Token == "" {
		return true
	}
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return false
	}
	provided := strings.TrimPrefix(auth, prefix)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.cfg.Token)) == 1
}


// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HTTPPush routes a push request to the configured source's
// *ingest.HTTPPush by the {sourceId} path parameter, matched against the
// sources wired in at startup.
func (h *Handler) HTTPPush(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "sourceId")
	source, ok := h.httpPush[sourceID]
	if !ok {
		respondError(w, http.StatusNotFound, "UNKNOWN_SOURCE", "no http-push source configured with that id", nil)
		return
	}
	source.ServeHTTP(w, r)
}

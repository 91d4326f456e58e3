// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// respondSuccess writes the uniform success envelope.
func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	respondSuccessCached(w, r, status, data, false)
}

// respondSuccessCached is respondSuccess with the cache flag surfaced
// in the response metadata.
func respondSuccessCached(w http.ResponseWriter, r *http.Request, status int, data interface{}, cached bool) {
	writeEnvelope(w, r, status, models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
			Cached:    cached,
		},
	})
}

// respondError writes the uniform error envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeEnvelope(w, r, status, models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
		Error: &models.APIError{Code: code, Message: message},
	})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, envelope models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		ctxLogger := logging.Ctx(r.Context())
		ctxLogger.Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeBody decodes a JSON request body into out with a size cap.
func decodeBody(r *http.Request, out interface{}) error {
	const maxBodySize = 1 << 20 // 1MB
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize)).Decode(out)
}

// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pulsegraph/pulsegraph/internal/logging"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

// validate checks request bodies against their struct tags.
var validate = validator.New()

// handleSync triggers a sync run for one user. The request body is an
// optional SyncOptions override; the response is the itemized result,
// including the sync_in_progress short circuit.
func (rt *Router) handleSync(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var opts models.SyncOptions
	if r.ContentLength > 0 {
		if err := decodeBody(r, &opts); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid_body", "request body is not valid sync options")
			return
		}
	}

	result, err := rt.sync.TriggerSync(r.Context(), userID, opts)
	if err != nil {
		ctxLogger := logging.Ctx(r.Context())
		ctxLogger.Error().Err(err).Str("user_id", userID).Msg("Sync failed")
		respondError(w, r, http.StatusInternalServerError, "sync_failed", err.Error())
		return
	}

	status := http.StatusOK
	if len(result.Failures) == 1 && result.Failures[0].Reason == models.ReasonSyncInProgress {
		status = http.StatusConflict
	}
	respondSuccess(w, r, status, result)
}

// syncStatusResponse is the payload of the sync status endpoint.
type syncStatusResponse struct {
	UserID     string     `json:"user_id"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

func (rt *Router) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	resp := syncStatusResponse{UserID: userID}
	if t, ok := rt.sync.LastSyncTime(userID); ok {
		resp.LastSyncAt = &t
	}
	respondSuccess(w, r, http.StatusOK, resp)
}

func (rt *Router) handleReport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	report, cached, err := rt.reports.GenerateComprehensiveReport(r.Context(), userID, nil)
	if err != nil {
		ctxLogger := logging.Ctx(r.Context())
		ctxLogger.Error().Err(err).Str("user_id", userID).Msg("Report generation failed")
		respondError(w, r, http.StatusInternalServerError, "report_failed", err.Error())
		return
	}
	respondSuccessCached(w, r, http.StatusOK, report, cached)
}

func (rt *Router) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	dashboard, err := rt.reports.GetRealTimeDashboard(r.Context(), userID)
	if err != nil {
		ctxLogger := logging.Ctx(r.Context())
		ctxLogger.Error().Err(err).Str("user_id", userID).Msg("Dashboard build failed")
		respondError(w, r, http.StatusInternalServerError, "dashboard_failed", err.Error())
		return
	}
	respondSuccess(w, r, http.StatusOK, dashboard)
}

func (rt *Router) handlePredictions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var draft models.ContentDraft
	if err := decodeBody(r, &draft); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "request body is not a valid content draft")
		return
	}
	if err := validate.Struct(draft); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_draft", "draft title is required")
		return
	}

	predictions, err := rt.reports.PredictMultiPlatformPerformance(r.Context(), userID, draft)
	if err != nil {
		ctxLogger := logging.Ctx(r.Context())
		ctxLogger.Error().Err(err).Str("user_id", userID).Msg("Prediction failed")
		respondError(w, r, http.StatusInternalServerError, "prediction_failed", err.Error())
		return
	}
	respondSuccess(w, r, http.StatusOK, predictions)
}

func (rt *Router) handleConfigure(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var patch models.AnalyticsConfigPatch
	if err := decodeBody(r, &patch); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "request body is not a valid configuration patch")
		return
	}

	merged, err := rt.reports.ConfigureUserAnalytics(r.Context(), userID, patch)
	if err != nil {
		ctxLogger := logging.Ctx(r.Context())
		ctxLogger.Error().Err(err).Str("user_id", userID).Msg("Configuration update failed")
		respondError(w, r, http.StatusInternalServerError, "config_failed", err.Error())
		return
	}
	respondSuccess(w, r, http.StatusOK, merged)
}

func (rt *Router) handleUpsertContent(w http.ResponseWriter, r *http.Request) {
	var content models.Content
	if err := decodeBody(r, &content); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_body", "request body is not a valid content item")
		return
	}
	if content.ID == "" || content.UserID == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_content", "content id and user_id are required")
		return
	}

	if err := rt.contents.UpsertContent(r.Context(), content); err != nil {
		ctxLogger := logging.Ctx(r.Context())
		ctxLogger.Error().Err(err).Str("content_id", content.ID).Msg("Content upsert failed")
		respondError(w, r, http.StatusInternalServerError, "storage_failed", err.Error())
		return
	}
	respondSuccess(w, r, http.StatusCreated, content)
}

// healthResponse is the payload of the health endpoint.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK

	if err := rt.health.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}
	respondSuccess(w, r, status, resp)
}

// Pulsegraph - Social Engagement Sync and Analytics Engine
// Copyright 2026 Pulsegraph contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pulsegraph/pulsegraph

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/pulsegraph/pulsegraph/internal/config"
	"github.com/pulsegraph/pulsegraph/internal/models"
)

type fakeSyncService struct {
	result   models.SyncResult
	err      error
	lastSync map[string]time.Time
	gotOpts  models.SyncOptions
}

func (f *fakeSyncService) TriggerSync(_ context.Context, userID string, opts models.SyncOptions) (models.SyncResult, error) {
	f.gotOpts = opts
	if f.err != nil {
		return models.SyncResult{}, f.err
	}
	result := f.result
	result.UserID = userID
	return result, nil
}

func (f *fakeSyncService) LastSyncTime(userID string) (time.Time, bool) {
	t, ok := f.lastSync[userID]
	return t, ok
}

type fakeReportService struct {
	report      models.CompositeReport
	cached      bool
	reportErr   error
	dashboard   models.DashboardPayload
	predictions []models.PlatformPrediction
	configured  models.AnalyticsConfig
}

func (f *fakeReportService) GenerateComprehensiveReport(_ context.Context, userID string, _ *models.AnalyticsConfigPatch) (models.CompositeReport, bool, error) {
	if f.reportErr != nil {
		return models.CompositeReport{}, false, f.reportErr
	}
	report := f.report
	report.UserID = userID
	return report, f.cached, nil
}

func (f *fakeReportService) GetRealTimeDashboard(_ context.Context, userID string) (models.DashboardPayload, error) {
	dash := f.dashboard
	dash.UserID = userID
	return dash, nil
}

func (f *fakeReportService) PredictMultiPlatformPerformance(context.Context, string, models.ContentDraft) ([]models.PlatformPrediction, error) {
	return f.predictions, nil
}

func (f *fakeReportService) ConfigureUserAnalytics(context.Context, string, models.AnalyticsConfigPatch) (models.AnalyticsConfig, error) {
	return f.configured, nil
}

type fakeContentWriter struct {
	got models.Content
	err error
}

func (f *fakeContentWriter) UpsertContent(_ context.Context, c models.Content) error {
	f.got = c
	return f.err
}

type fakeHealth struct{ err error }

func (f *fakeHealth) Ping(context.Context) error { return f.err }

type apiFixture struct {
	handler  http.Handler
	sync     *fakeSyncService
	reports  *fakeReportService
	contents *fakeContentWriter
	health   *fakeHealth
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	f := &apiFixture{
		sync:     &fakeSyncService{lastSync: map[string]time.Time{}},
		reports:  &fakeReportService{},
		contents: &fakeContentWriter{},
		health:   &fakeHealth{},
	}
	rt := NewRouter(config.ServerConfig{}, f.sync, f.reports, f.contents, f.health, nil)
	f.handler = rt.Handler()
	return f
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()

	var envelope models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v (%s)", err, rec.Body.String())
	}
	return envelope
}

func TestHandleSyncSuccess(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.sync.result = models.SyncResult{Attempted: 4, Succeeded: 4, Failures: []models.FailureRecord{}}

	rec := doRequest(t, f.handler, http.MethodPost, "/api/v1/users/u1/sync", models.SyncOptions{Concurrency: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.sync.gotOpts.Concurrency != 2 {
		t.Errorf("expected options forwarded, got %+v", f.sync.gotOpts)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope.Status != "success" {
		t.Errorf("expected success envelope, got %+v", envelope)
	}
	if envelope.Metadata.RequestID == "" {
		t.Error("expected a request id in the response metadata")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected the request id echoed in the header")
	}
}

func TestHandleSyncInProgressConflict(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.sync.result = models.SyncResult{
		Failures: []models.FailureRecord{{Reason: models.ReasonSyncInProgress}},
	}

	rec := doRequest(t, f.handler, http.MethodPost, "/api/v1/users/u1/sync", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for an in-progress sync, got %d", rec.Code)
	}
}

func TestHandleSyncError(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.sync.err = errors.New("storage down")

	rec := doRequest(t, f.handler, http.MethodPost, "/api/v1/users/u1/sync", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != "sync_failed" {
		t.Errorf("expected sync_failed error, got %+v", envelope.Error)
	}
}

func TestHandleSyncStatus(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.sync.lastSync["u1"] = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	rec := doRequest(t, f.handler, http.MethodGet, "/api/v1/users/u1/sync/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("2026-08-01T12:00:00Z")) {
		t.Errorf("expected last sync time in body: %s", rec.Body.String())
	}

	rec = doRequest(t, f.handler, http.MethodGet, "/api/v1/users/never/sync/status", nil)
	if bytes.Contains(rec.Body.Bytes(), []byte("last_sync_at")) {
		t.Errorf("expected no last_sync_at for unsynced user: %s", rec.Body.String())
	}
}

func TestHandleReportCachedFlag(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.reports.cached = true
	f.reports.report = models.CompositeReport{DataQuality: models.DataQuality{Completeness: 100}}

	rec := doRequest(t, f.handler, http.MethodGet, "/api/v1/users/u1/report", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if !envelope.Metadata.Cached {
		t.Error("expected cached flag in metadata")
	}
}

func TestHandlePredictionsValidation(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	rec := doRequest(t, f.handler, http.MethodPost, "/api/v1/users/u1/predictions", models.ContentDraft{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a draft without title, got %d", rec.Code)
	}

	f.reports.predictions = []models.PlatformPrediction{{Source: models.SourceYouTube, Confidence: 0.8}}
	rec = doRequest(t, f.handler, http.MethodPost, "/api/v1/users/u1/predictions", models.ContentDraft{Title: "launch"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleConfigure(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.reports.configured = models.DefaultAnalyticsConfig()

	keywords := []string{"golang"}
	rec := doRequest(t, f.handler, http.MethodPut, "/api/v1/users/u1/analytics-config", models.AnalyticsConfigPatch{Keywords: &keywords})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleUpsertContent(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	content := models.Content{
		ID:       "c1",
		UserID:   "u1",
		Title:    "hello",
		External: map[string]string{models.SourceYouTube: "yt-1"},
	}

	rec := doRequest(t, f.handler, http.MethodPost, "/api/v1/contents", content)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.contents.got.ID != "c1" || f.contents.got.External[models.SourceYouTube] != "yt-1" {
		t.Errorf("expected content forwarded to storage, got %+v", f.contents.got)
	}

	rec = doRequest(t, f.handler, http.MethodPost, "/api/v1/contents", models.Content{Title: "no ids"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing ids, got %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	rec := doRequest(t, f.handler, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	f.health.err = errors.New("connection refused")
	rec = doRequest(t, f.handler, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when storage is down, got %d", rec.Code)
	}
}

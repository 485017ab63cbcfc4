package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nimbusvr/trackshop-backend/internal/tracking"
	"github.com/nimbusvr/trackshop-backend/pkg/db/models"
)

type adminRepoStub struct {
	record  *models.TrackingRecord
	records []models.TrackingRecord
	updates map[string]any
}

func (s *adminRepoStub) FindByID(context.Context, uuid.UUID) (*models.TrackingRecord, error) {
	return s.record, nil
}

func (s *adminRepoStub) Update(_ context.Context, _ uuid.UUID, fields map[string]any) error {
	s.updates = fields
	return nil
}

func (s *adminRepoStub) List(context.Context) ([]models.TrackingRecord, error) {
	return s.records, nil
}

func adminRouter(repo *adminRepoStub) http.Handler {
	r := chi.NewRouter()
	r.Put("/api/admin/v1/tracking/{id}", AdminUpdateTracking(repo, tracking.NewGuard(), testLogger()))
	r.Get("/api/admin/v1/tracking", AdminListTracking(repo, testLogger()))
	return r
}

func TestAdminUpdateTrackingAppliesPartialEdit(t *testing.T) {
	record := sampleRecord()
	repo := &adminRepoStub{record: record}

	body := `{"numeroTrackers": 8, "colorCase": "Purple"}`
	req := httptest.NewRequest(http.MethodPut, "/api/admin/v1/tracking/"+record.ID.String(), strings.NewReader(body))
	rec := httptest.NewRecorder()
	adminRouter(repo).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.updates["tracker_count"] != 8 {
		t.Fatalf("expected tracker count update, got %v", repo.updates)
	}
	if repo.updates["case_color"] != "Purple" {
		t.Fatalf("expected case color update, got %v", repo.updates)
	}
	if _, touched := repo.updates["user_hash"]; touched {
		t.Fatalf("non-identity edits must not change the hash")
	}
}

func TestAdminUpdateTrackingFieldLevelErrors(t *testing.T) {
	repo := &adminRepoStub{record: sampleRecord()}

	body := `{"numeroTrackers": 0}`
	req := httptest.NewRequest(http.MethodPut, "/api/admin/v1/tracking/"+repo.record.ID.String(), strings.NewReader(body))
	rec := httptest.NewRecorder()
	adminRouter(repo).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var envelope struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Details["numeroTrackers"] == "" {
		t.Fatalf("expected a field-level message, got %v", envelope.Error.Details)
	}
	if repo.updates != nil {
		t.Fatalf("invalid edits must not reach the store")
	}
}

func TestAdminUpdateTrackingUnknownRecord(t *testing.T) {
	repo := &adminRepoStub{}

	req := httptest.NewRequest(http.MethodPut, "/api/admin/v1/tracking/"+uuid.NewString(), strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	adminRouter(repo).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdminUpdateTrackingBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/api/admin/v1/tracking/not-a-uuid", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	adminRouter(&adminRepoStub{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminListTracking(t *testing.T) {
	repo := &adminRepoStub{records: []models.TrackingRecord{*sampleRecord(), *sampleRecord()}}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/tracking", nil)
	rec := httptest.NewRecorder()
	adminRouter(repo).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected 2 records, got %d", len(envelope.Data))
	}
}

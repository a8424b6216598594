package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pysugar/connector-gate/internal/auth/refresh"
	"github.com/pysugar/connector-gate/internal/credential"
	"github.com/pysugar/connector-gate/internal/db/models"
	"github.com/pysugar/connector-gate/internal/providers/catalog"
	"gorm.io/gorm"
)

type stubRefresher struct {
	result *refresh.Refreshed
	err    error
}

func (s *stubRefresher) Refresh(ctx context.Context, rec *models.SecretRecord) (*refresh.Refreshed, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestServer(t *testing.T, refresher refresh.Refresher) (*credential.GormStore, http.Handler) {
	t.Helper()
	// A file-backed db: the pure-Go driver gives each pooled connection
	// its own private ":memory:" database.
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "credentials.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.SecretRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := credential.NewGormStore(db)
	return store, NewRouter(store, catalog.Default(), refresher)
}

func TestIdentitiesListMasksSecrets(t *testing.T) {
	store, handler := newTestServer(t, &stubRefresher{})
	secret := "pat_0123456789abcdef0123456789abcdef"
	if err := store.Save(context.Background(), &models.SecretRecord{
		Provider:    "airtable",
		IdentityKey: "default",
		AccessToken: secret,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/identities?provider=airtable", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if strings.Contains(body, secret) {
		t.Fatal("response leaked the raw secret")
	}

	var payload struct {
		Identities []struct {
			Provider    string `json:"provider"`
			IdentityKey string `json:"identity_key"`
			Kind        string `json:"kind"`
		} `json:"identities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Identities) != 1 {
		t.Fatalf("expected one identity, got %d", len(payload.Identities))
	}
	if payload.Identities[0].Kind != "static" {
		t.Fatalf("expected static kind, got %q", payload.Identities[0].Kind)
	}
}

func TestRefreshEndpointPersistsNewToken(t *testing.T) {
	refresher := &stubRefresher{result: &refresh.Refreshed{
		AccessToken: "fresh-token-abcdefghijklmno",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	store, handler := newTestServer(t, refresher)
	if err := store.Save(context.Background(), &models.SecretRecord{
		Provider:     "hubspot",
		IdentityKey:  "ops@example.com",
		AccessToken:  "old",
		RefreshToken: "rt",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/identities/hubspot/ops@example.com/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	got, err := store.Load(context.Background(), "hubspot", "ops@example.com")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.AccessToken != "fresh-token-abcdefghijklmno" {
		t.Fatalf("refreshed token not persisted, got %q", got.AccessToken)
	}
}

func TestRefreshEndpointRejectsStaticIdentity(t *testing.T) {
	store, handler := newTestServer(t, &stubRefresher{})
	if err := store.Save(context.Background(), &models.SecretRecord{
		Provider:    "replicate",
		IdentityKey: "default",
		AccessToken: "r8_key",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/identities/replicate/default/refresh", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for static identity, got %d", rec.Code)
	}
}

func TestRefreshEndpointUnknownIdentityIs404(t *testing.T) {
	_, handler := newTestServer(t, &stubRefresher{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/identities/hubspot/ghost/refresh", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestProvidersList(t *testing.T) {
	_, handler := newTestServer(t, &stubRefresher{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "airtable") {
		t.Fatalf("expected builtin providers in listing: %s", rec.Body.String())
	}
}

// Package server exposes the local admin API for inspecting configured
// identities, triggering refreshes, and listing providers. Secret
// material never leaves this surface unmasked.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pysugar/connector-gate/internal/auth/refresh"
	"github.com/pysugar/connector-gate/internal/credential"
	"github.com/pysugar/connector-gate/internal/providers/catalog"
	"github.com/pysugar/connector-gate/internal/util"
)

// NewRouter wires the admin routes.
func NewRouter(store credential.Store, cat *catalog.Catalog, refresher refresh.Refresher) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/providers", ProvidersHandler(cat))
		r.Get("/identities", IdentitiesHandler(store, cat))
		r.Post("/identities/{provider}/{key}/refresh", RefreshIdentityHandler(store, refresher))
	})

	return r
}

// identityView is the safe, render-ready shape of one record.
type identityView struct {
	Provider    string `json:"provider"`
	IdentityKey string `json:"identity_key"`
	Kind        string `json:"kind"` // "oauth" or "static"
	Token       string `json:"token"` // masked
	ExpiresAt   string `json:"expires_at,omitempty"`
	LastUsedAt  string `json:"last_used_at,omitempty"`
}

// ProvidersHandler lists catalog entries with their ceilings.
func ProvidersHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers := make([]map[string]interface{}, 0)
		for _, id := range cat.IDs() {
			info, err := cat.Get(id)
			if err != nil {
				continue
			}
			providers = append(providers, map[string]interface{}{
				"id":          info.ID,
				"enabled":     info.Enabled,
				"base_url":    info.BaseURL,
				"auth_mode":   info.AuthMode,
				"rate_limit":  map[string]interface{}{"requests": info.Limit, "window": info.Window.String()},
				"refreshable": info.TokenURL != "",
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"providers": providers})
	}
}

// IdentitiesHandler lists configured identities for one provider
// (?provider=) or every catalog provider.
func IdentitiesHandler(store credential.Store, cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerIDs := cat.IDs()
		if p := r.URL.Query().Get("provider"); p != "" {
			providerIDs = []string{p}
		}

		views := make([]identityView, 0)
		for _, providerID := range providerIDs {
			keys, err := store.List(r.Context(), providerID)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			for _, key := range keys {
				rec, err := store.Load(r.Context(), providerID, key)
				if err != nil {
					// A corrupt record is still worth listing so the user
					// can see it needs attention.
					views = append(views, identityView{
						Provider: providerID, IdentityKey: key, Kind: "corrupt",
					})
					continue
				}
				view := identityView{
					Provider:    providerID,
					IdentityKey: key,
					Kind:        "static",
					Token:       util.MaskSecret(rec.AccessToken),
				}
				if rec.Refreshable() {
					view.Kind = "oauth"
				}
				if !rec.ExpiresAt.IsZero() {
					view.ExpiresAt = rec.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
				}
				if !rec.LastUsedAt.IsZero() {
					view.LastUsedAt = rec.LastUsedAt.UTC().Format("2006-01-02T15:04:05Z")
				}
				views = append(views, view)
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"identities": views})
	}
}

// RefreshIdentityHandler forces a refresh for one identity and persists
// the result. A read-only store degrades to a warning in the response.
func RefreshIdentityHandler(store credential.Store, refresher refresh.Refresher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID := chi.URLParam(r, "provider")
		key := chi.URLParam(r, "key")

		rec, err := store.Load(r.Context(), providerID, key)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, credential.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		if !rec.Refreshable() {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "identity has no refresh mechanism",
			})
			return
		}

		got, err := refresher.Refresh(r.Context(), rec)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		rec.AccessToken = got.AccessToken
		rec.ExpiresAt = got.ExpiresAt
		if got.RefreshToken != "" {
			rec.RefreshToken = got.RefreshToken
		}

		result := map[string]string{
			"status": "ok",
			"token":  util.MaskSecret(rec.AccessToken),
		}
		if err := store.Save(r.Context(), rec); err != nil {
			if !errors.Is(err, credential.ErrWriteDenied) {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			result["warning"] = "store is read-only, refreshed token not persisted"
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

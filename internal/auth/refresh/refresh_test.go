package refresh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/pysugar/connector-gate/internal/db/models"
	"github.com/pysugar/connector-gate/internal/providers/catalog"
)

func catalogWithTokenURL(t *testing.T, tokenURL string) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/providers.yaml"
	content := "providers:\n  - id: hubspot\n    token_url: " + tokenURL + "\n"
	if err := writeFile(path, content); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	c, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func TestRefreshExchangesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "refresh_token" {
			t.Errorf("unexpected grant_type %q", got)
		}
		if got := r.Form.Get("refresh_token"); got != "rt-old" {
			t.Errorf("unexpected refresh_token %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-new","refresh_token":"rt-new","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	r := NewOAuthRefresher(catalogWithTokenURL(t, srv.URL))
	got, err := r.Refresh(context.Background(), &models.SecretRecord{
		Provider:     "hubspot",
		IdentityKey:  "ops@example.com",
		RefreshToken: "rt-old",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got.AccessToken != "at-new" {
		t.Fatalf("unexpected access token %q", got.AccessToken)
	}
	if got.RefreshToken != "rt-new" {
		t.Fatalf("rotated refresh token not surfaced, got %q", got.RefreshToken)
	}
	if got.ExpiresAt.IsZero() {
		t.Fatal("expected expiry to be set")
	}
}

func TestRefreshPermanentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	r := NewOAuthRefresher(catalogWithTokenURL(t, srv.URL))
	_, err := r.Refresh(context.Background(), &models.SecretRecord{
		Provider:     "hubspot",
		IdentityKey:  "ops@example.com",
		RefreshToken: "rt-revoked",
	})
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
}

func TestRefreshRequiresTokenEndpoint(t *testing.T) {
	// replicate is a static-key provider with no token endpoint.
	r := NewOAuthRefresher(catalog.Default())
	_, err := r.Refresh(context.Background(), &models.SecretRecord{
		Provider:     "replicate",
		IdentityKey:  "default",
		RefreshToken: "rt",
	})
	if err == nil {
		t.Fatal("expected error for provider without token endpoint")
	}
}

func TestResolveSecretRef(t *testing.T) {
	t.Setenv("GATE_TEST_CLIENT_SECRET", "from-env")

	tests := []struct {
		ref  string
		want string
	}{
		{"literal-secret", "literal-secret"},
		{"env://GATE_TEST_CLIENT_SECRET", "from-env"},
		{"env://GATE_TEST_UNSET", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ResolveSecretRef(tt.ref); got != tt.want {
			t.Fatalf("ResolveSecretRef(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestIsPermanentRefreshError(t *testing.T) {
	tests := []struct {
		name      string
		errText   string
		permanent bool
	}{
		{name: "invalid grant", errText: "oauth2: cannot fetch token: 400 Bad Request {\"error\":\"invalid_grant\"}", permanent: true},
		{name: "revoked", errText: "token has been expired or revoked", permanent: true},
		{name: "timeout", errText: "context deadline exceeded", permanent: false},
		{name: "temporary", errText: "temporarily_unavailable", permanent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isPermanentRefreshError(assertErr(tt.errText))
			if got != tt.permanent {
				t.Fatalf("expected %v, got %v", tt.permanent, got)
			}
		})
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

// Package refresh renews OAuth access tokens for refreshable records.
// The interactive authorization-code exchange that mints the first
// refresh token lives in the login package; this one only turns an
// existing refresh token into fresh access material.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pysugar/connector-gate/internal/db/models"
	"github.com/pysugar/connector-gate/internal/providers/catalog"
	"golang.org/x/oauth2"
)

// ErrPermanent marks refresh failures that only re-authentication can
// fix (revoked grant, invalid client). Transient failures are left
// unwrapped so callers retry later.
var ErrPermanent = errors.New("refresh permanently failed")

// Refreshed is the material produced by a successful refresh.
// RefreshToken is set only when the provider rotated it.
type Refreshed struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Refresher renews the access material of one record.
type Refresher interface {
	Refresh(ctx context.Context, rec *models.SecretRecord) (*Refreshed, error)
}

// OAuthRefresher refreshes against the provider's token endpoint from
// the catalog.
type OAuthRefresher struct {
	catalog *catalog.Catalog
}

// NewOAuthRefresher builds a refresher over the provider catalog.
func NewOAuthRefresher(cat *catalog.Catalog) *OAuthRefresher {
	return &OAuthRefresher{catalog: cat}
}

// Refresh exchanges the record's refresh token for fresh access material.
func (r *OAuthRefresher) Refresh(ctx context.Context, rec *models.SecretRecord) (*Refreshed, error) {
	if rec.RefreshToken == "" {
		return nil, fmt.Errorf("%s/%s has no refresh token", rec.Provider, rec.IdentityKey)
	}

	info, err := r.catalog.Get(rec.Provider)
	if err != nil {
		return nil, err
	}
	if info.TokenURL == "" {
		return nil, fmt.Errorf("provider %s has no token endpoint", rec.Provider)
	}

	conf := &oauth2.Config{
		ClientID:     rec.ClientID,
		ClientSecret: ResolveSecretRef(rec.ClientSecret),
		Endpoint:     oauth2.Endpoint{TokenURL: info.TokenURL},
	}
	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		if isPermanentRefreshError(err) {
			return nil, fmt.Errorf("%w: %v", ErrPermanent, err)
		}
		return nil, fmt.Errorf("refreshing token for %s/%s: %w", rec.Provider, rec.IdentityKey, err)
	}

	out := &Refreshed{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.Expiry,
	}
	// Persist rotated refresh token if provided (RFC 6749 compliance).
	if tok.RefreshToken != "" && tok.RefreshToken != rec.RefreshToken {
		out.RefreshToken = tok.RefreshToken
	}
	return out, nil
}

// ResolveSecretRef turns an env:// reference into its value; anything
// else is taken literally. Keeps client secrets out of the store when
// the operator prefers environment configuration.
func ResolveSecretRef(ref string) string {
	const prefix = "env://"
	if !strings.HasPrefix(ref, prefix) {
		return ref
	}
	return os.Getenv(strings.TrimPrefix(ref, prefix))
}

func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

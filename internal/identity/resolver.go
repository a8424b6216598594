// Package identity decides which configured identity an invocation
// should use. The ordering is fixed and callers depend on it: an
// explicit selection always wins, inference from a context string comes
// second, a sole configured identity third, and with several candidates
// the resolver fails rather than silently picking one.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/pysugar/connector-gate/internal/credential"
	"github.com/pysugar/connector-gate/internal/providers/catalog"
)

// ErrNotConfigured means zero identities exist for the provider and none
// was supplied.
var ErrNotConfigured = errors.New("no identities configured")

// AmbiguousError reports that several identities are configured and the
// invocation named none. It carries the candidates so the caller can
// prompt the user to disambiguate.
type AmbiguousError struct {
	Provider   string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("multiple identities configured for %s, specify one of: %s",
		e.Provider, strings.Join(e.Candidates, ", "))
}

// Resolver resolves an invocation to exactly one identity key.
type Resolver struct {
	store   credential.Store
	catalog *catalog.Catalog
}

// NewResolver builds a resolver over the credential store and provider
// catalog.
func NewResolver(store credential.Store, cat *catalog.Catalog) *Resolver {
	return &Resolver{store: store, catalog: cat}
}

// Resolve returns the identity key for one invocation.
//
// An explicit identity is used verbatim without validating it against the
// store: an invalid one surfaces naturally when the record is loaded.
// A context hint (often a filesystem path) is matched against the
// provider's identity pattern. Otherwise the sole configured identity is
// used; zero yields ErrNotConfigured and two or more an AmbiguousError.
func (r *Resolver) Resolve(ctx context.Context, providerID, explicit, contextHint string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if contextHint != "" {
		if key := r.infer(providerID, contextHint); key != "" {
			log.Printf("🔍 Inferred identity %s for %s from context", key, providerID)
			return key, nil
		}
	}

	keys, err := r.store.List(ctx, providerID)
	if err != nil {
		return "", fmt.Errorf("resolving identity for %s: %w", providerID, err)
	}
	switch len(keys) {
	case 0:
		return "", fmt.Errorf("%w for provider %s", ErrNotConfigured, providerID)
	case 1:
		return keys[0], nil
	default:
		return "", &AmbiguousError{Provider: providerID, Candidates: keys}
	}
}

func (r *Resolver) infer(providerID, contextHint string) string {
	info, err := r.catalog.Get(providerID)
	if err != nil || info.IdentityPattern == nil {
		return ""
	}
	return info.IdentityPattern.FindString(contextHint)
}

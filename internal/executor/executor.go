// Package executor is the single call surface connector scripts use to
// talk to a provider. It composes identity resolution, credential
// freshness, rate gating, transport, and bounded retry, and classifies
// every heterogeneous provider error shape into the closed Failure set.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pysugar/connector-gate/internal/auth/refresh"
	"github.com/pysugar/connector-gate/internal/credential"
	"github.com/pysugar/connector-gate/internal/db/models"
	"github.com/pysugar/connector-gate/internal/identity"
	"github.com/pysugar/connector-gate/internal/logging"
	"github.com/pysugar/connector-gate/internal/providers/catalog"
	"github.com/pysugar/connector-gate/internal/ratelimit"
	"github.com/pysugar/connector-gate/internal/transport"
	"github.com/pysugar/connector-gate/internal/util"
)

// freshnessWindow is how close to expiry a token may be before a
// pre-flight refresh is attempted. The provider's own 401 stays
// authoritative; the window only avoids predictable failures.
const freshnessWindow = 5 * time.Minute

// Invocation carries the caller's identity selection for one call.
type Invocation struct {
	Identity    string // explicit identity key, used verbatim when set
	ContextHint string // free-form string (often a path) for inference
}

// Request is the provider-shaped call to perform. A URL starting with
// "/" is joined to the provider's base URL from the catalog.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Executor resolves an identity, checks its secret, and performs the
// call under the provider's rate ceiling.
type Executor struct {
	store     credential.Store
	resolver  *identity.Resolver
	gate      *ratelimit.Gate
	transport transport.Transport
	refresher refresh.Refresher
	catalog   *catalog.Catalog
	policy    RetryPolicy

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithTransport replaces the outbound transport.
func WithTransport(t transport.Transport) Option {
	return func(e *Executor) { e.transport = t }
}

// WithRefresher sets the OAuth refresher. Without one, 401 responses
// are terminal.
func WithRefresher(r refresh.Refresher) Option {
	return func(e *Executor) { e.refresher = r }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Executor) { e.policy = p }
}

// WithGate injects the rate gate, letting tests construct independent
// windows.
func WithGate(g *ratelimit.Gate) Option {
	return func(e *Executor) { e.gate = g }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithSleep replaces the backoff suspension primitive, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// New builds an executor over a credential store and provider catalog.
func New(store credential.Store, cat *catalog.Catalog, opts ...Option) *Executor {
	e := &Executor{
		store:     store,
		resolver:  identity.NewResolver(store, cat),
		gate:      ratelimit.NewGate(),
		transport: transport.NewHTTPClient(),
		refresher: refresh.NewOAuthRefresher(cat),
		catalog:   cat,
		policy:    DefaultRetryPolicy(),
		now:       time.Now,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute performs one provider call. It returns the provider's 2xx
// response, a *Failure for the six recoverable outcomes, or a plain
// error for harder conditions (storage corruption, cancelled context).
func (e *Executor) Execute(ctx context.Context, providerID string, inv Invocation, req *Request) (*transport.Response, error) {
	info, err := e.catalog.Get(providerID)
	if err != nil {
		return nil, err
	}
	if !info.Enabled {
		return nil, fmt.Errorf("provider %s is disabled in the catalog", providerID)
	}

	callID := logging.CallID(ctx)
	if callID == "" {
		callID = logging.NewCallID()
		ctx = logging.WithCallID(ctx, callID)
	}

	// Step 1: resolution failures short-circuit before any network call.
	key, err := e.resolver.Resolve(ctx, providerID, inv.Identity, inv.ContextHint)
	if err != nil {
		var amb *identity.AmbiguousError
		if errors.As(err, &amb) {
			return nil, &Failure{Kind: AmbiguousIdentity, Provider: providerID, Candidates: amb.Candidates}
		}
		if errors.Is(err, identity.ErrNotConfigured) {
			return nil, &Failure{Kind: NotConfigured, Provider: providerID}
		}
		return nil, err
	}

	// Step 2: load the secret. Corruption and I/O pass through as plain
	// errors; only a cleanly missing record becomes NotConfigured.
	rec, err := e.store.Load(ctx, providerID, key)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, &Failure{Kind: NotConfigured, Provider: providerID,
				Detail: fmt.Sprintf("no credentials for identity %s", key)}
		}
		return nil, err
	}

	// Step 3: freshness check. Only a hint: a failed or unavailable
	// refresh never pre-empts the call, and an expired record without a
	// refresh mechanism still goes out (clock skew must not produce
	// false negatives; the provider's 401 decides).
	if e.expiringSoon(rec) && rec.Refreshable() && e.refresher != nil {
		if err := e.refreshAndPersist(ctx, rec); err != nil {
			log.Printf("⚠️ [%s] Pre-flight refresh failed for %s/%s, proceeding anyway: %v", callID, providerID, key, err)
		}
	}

	refreshTried := false
	attempt := 0
	windowKey := ratelimit.Key(providerID, key)

	for {
		// Step 4: the gate may suspend the caller until the window has
		// room. Re-checked on every retry since time has passed.
		if err := e.gate.Admit(ctx, windowKey, info.Limit, info.Window); err != nil {
			return nil, err
		}

		// Step 5: transport, with the secret attached per the provider's
		// scheme.
		resp, sendErr := e.transport.Send(ctx, e.authorize(info, rec, req))
		if sendErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("⚠️ [%s] %s call failed in transit: %v", callID, providerID, sendErr)
			if err := e.sleep(ctx, e.policy.Backoff); err != nil {
				return nil, err
			}
			if attempt < e.policy.MaxRetries {
				attempt++
				continue
			}
			return nil, &Failure{Kind: ProviderUnavailable, Provider: providerID, Detail: sendErr.Error()}
		}

		// Step 6: classify.
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := e.policy.Delay(resp)
			log.Printf("⏳ [%s] %s throttled the call, waiting %s before retry", callID, providerID, wait)
			if err := e.sleep(ctx, wait); err != nil {
				return nil, err
			}
			if attempt < e.policy.MaxRetries {
				attempt++
				continue
			}
			return nil, &Failure{Kind: RateLimitExceeded, Provider: providerID,
				Status: resp.StatusCode, Detail: util.TruncateBytes(resp.Body)}

		case resp.StatusCode == http.StatusUnauthorized:
			// One uncounted refresh-and-retry per call; a second 401 is
			// terminal.
			if !refreshTried && rec.Refreshable() && e.refresher != nil {
				refreshTried = true
				if err := e.refreshAndPersist(ctx, rec); err == nil {
					continue
				} else {
					log.Printf("❌ [%s] Refresh after 401 failed for %s/%s: %v", callID, providerID, key, err)
				}
			}
			return nil, &Failure{Kind: AuthExpired, Provider: providerID,
				Status: resp.StatusCode, Detail: util.TruncateBytes(resp.Body)}

		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// Caller errors are never retried.
			return nil, &Failure{Kind: RequestRejected, Provider: providerID,
				Status: resp.StatusCode, Detail: util.TruncateBytes(resp.Body)}

		default: // 5xx
			wait := e.policy.Delay(resp)
			log.Printf("⚠️ [%s] %s returned %d, waiting %s before retry", callID, providerID, resp.StatusCode, wait)
			if err := e.sleep(ctx, wait); err != nil {
				return nil, err
			}
			if attempt < e.policy.MaxRetries {
				attempt++
				continue
			}
			return nil, &Failure{Kind: ProviderUnavailable, Provider: providerID,
				Status: resp.StatusCode, Detail: util.TruncateBytes(resp.Body)}
		}
	}
}

func (e *Executor) expiringSoon(rec *models.SecretRecord) bool {
	return !rec.ExpiresAt.IsZero() && rec.ExpiresAt.Sub(e.now()) < freshnessWindow
}

// refreshAndPersist installs fresh material on the record and saves it.
// A WriteDenied store is tolerated: the refreshed token stays usable for
// the rest of the process.
func (e *Executor) refreshAndPersist(ctx context.Context, rec *models.SecretRecord) error {
	got, err := e.refresher.Refresh(ctx, rec)
	if err != nil {
		return err
	}

	rec.AccessToken = got.AccessToken
	rec.ExpiresAt = got.ExpiresAt
	if got.RefreshToken != "" {
		log.Printf("🔄 Rotating refresh token for %s/%s", rec.Provider, rec.IdentityKey)
		rec.RefreshToken = got.RefreshToken
	}
	rec.LastUsedAt = e.now()

	if err := e.store.Save(ctx, rec); err != nil {
		if errors.Is(err, credential.ErrWriteDenied) {
			log.Printf("⚠️ Refreshed token for %s/%s could not be persisted (read-only store), usable for this run only",
				rec.Provider, rec.IdentityKey)
			return nil
		}
		return err
	}
	log.Printf("✅ Refreshed token for %s/%s (expires: %s)", rec.Provider, rec.IdentityKey,
		rec.ExpiresAt.Format(time.RFC3339))
	return nil
}

// authorize builds the outbound request with the secret attached per the
// provider's scheme. The caller's request is never mutated.
func (e *Executor) authorize(info catalog.ProviderInfo, rec *models.SecretRecord, req *Request) *transport.Request {
	out := &transport.Request{
		Method: req.Method,
		URL:    req.URL,
		Header: make(http.Header, len(req.Header)+1),
		Body:   req.Body,
	}
	for name, values := range req.Header {
		for _, v := range values {
			out.Header.Add(name, v)
		}
	}
	if strings.HasPrefix(out.URL, "/") && info.BaseURL != "" {
		out.URL = info.BaseURL + out.URL
	}

	switch info.AuthMode {
	case catalog.AuthModeQuery:
		if u, err := url.Parse(out.URL); err == nil {
			q := u.Query()
			q.Set(info.AuthParam, rec.AccessToken)
			u.RawQuery = q.Encode()
			out.URL = u.String()
		}
	case catalog.AuthModeHeader:
		out.Header.Set(info.AuthHeader, rec.AccessToken)
	default: // bearer
		out.Header.Set("Authorization", "Bearer "+rec.AccessToken)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

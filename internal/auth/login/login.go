// Package login runs the interactive authorization-code grant that
// mints the first token for an OAuth provider. It starts a temporary
// localhost callback server, hands the user the consent URL, and waits
// for the provider to redirect back with the code.
package login

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pysugar/connector-gate/internal/auth/refresh"
	"github.com/pysugar/connector-gate/internal/providers/catalog"
	"golang.org/x/oauth2"
)

const (
	// preferredCallbackPort keeps the redirect URL stable so operators
	// can register it once in the provider's app settings.
	preferredCallbackPort = 8733

	callbackTimeout = 5 * time.Minute
)

// Result is the material produced by a completed consent flow.
type Result struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Flow is one interactive login against a catalog provider.
type Flow struct {
	Provider     catalog.ProviderInfo
	ClientID     string
	ClientSecret string // literal or env:// reference

	// Notify receives the consent URL. Defaults to printing it.
	Notify func(authURL string)
}

// Run starts the callback server, prints the consent URL, and blocks
// until the callback arrives, the context is cancelled, or the timeout
// elapses.
func (f *Flow) Run(ctx context.Context) (*Result, error) {
	if f.Provider.AuthURL == "" || f.Provider.TokenURL == "" {
		return nil, fmt.Errorf("provider %s does not support interactive login", f.Provider.ID)
	}
	if f.ClientID == "" {
		return nil, fmt.Errorf("provider %s: client id is required for login", f.Provider.ID)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", preferredCallbackPort))
	if err != nil {
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, fmt.Errorf("starting callback server: %w", err)
		}
		log.Printf("⚠️ Port %d in use, using a random port", preferredCallbackPort)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	state, err := newStateToken()
	if err != nil {
		return nil, err
	}

	conf := &oauth2.Config{
		ClientID:     f.ClientID,
		ClientSecret: refresh.ResolveSecretRef(f.ClientSecret),
		RedirectURL:  fmt.Sprintf("http://127.0.0.1:%d/oauth-callback", port),
		Scopes:       f.Provider.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  f.Provider.AuthURL,
			TokenURL: f.Provider.TokenURL,
		},
	}

	type outcome struct {
		result *Result
		err    error
	}
	results := make(chan outcome, 1)
	var once sync.Once
	deliver := func(o outcome) { once.Do(func() { results <- o }) }

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth-callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			deliver(outcome{err: fmt.Errorf("state token mismatch")})
			http.Error(w, "Invalid state token", http.StatusBadRequest)
			return
		}
		if msg := r.URL.Query().Get("error"); msg != "" {
			deliver(outcome{err: fmt.Errorf("authorization denied: %s", msg)})
			http.Error(w, "Authorization denied", http.StatusBadRequest)
			return
		}

		tok, err := conf.Exchange(r.Context(), r.URL.Query().Get("code"))
		if err != nil {
			deliver(outcome{err: fmt.Errorf("code exchange failed: %w", err)})
			http.Error(w, "Code exchange failed", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, successPage, f.Provider.ID)
		deliver(outcome{result: &Result{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresAt:    tok.Expiry,
		}})
	})

	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️ Callback server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if f.Notify != nil {
		f.Notify(authURL)
	} else {
		log.Printf("🔑 Open this URL in your browser to authorize %s:", f.Provider.ID)
		fmt.Println(authURL)
	}

	select {
	case o := <-results:
		return o.result, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(callbackTimeout):
		return nil, fmt.Errorf("timed out waiting for the authorization callback")
	}
}

func newStateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

const successPage = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<title>Login Successful</title>
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; background: #1a1a2e; color: #eee; text-align: center; }
		.success { color: #4ade80; font-size: 24px; margin-bottom: 10px; }
	</style>
</head>
<body>
	<div class="success">✅ Login Successful</div>
	<p>Authorization for <strong>%s</strong> is complete. You can close this tab.</p>
</body>
</html>`

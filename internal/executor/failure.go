package executor

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies terminal call outcomes. The set is closed: callers
// switch on it exhaustively instead of sniffing error strings.
type Kind string

const (
	// NotConfigured: no secret record exists for the resolved identity.
	NotConfigured Kind = "not_configured"
	// AmbiguousIdentity: several identities exist and none was selected.
	AmbiguousIdentity Kind = "ambiguous_identity"
	// AuthExpired: refresh unavailable, already attempted, or failed.
	AuthExpired Kind = "auth_expired"
	// RateLimitExceeded: retries exhausted under 429.
	RateLimitExceeded Kind = "rate_limit_exceeded"
	// RequestRejected: the provider rejected the request content (4xx
	// other than 401/429). Never retried.
	RequestRejected Kind = "request_rejected"
	// ProviderUnavailable: retries exhausted under 5xx or transport
	// failure.
	ProviderUnavailable Kind = "provider_unavailable"
)

// Failure is the tagged outcome the executor returns instead of raising.
// All six kinds are recoverable by the caller; the invoking script
// decides exit behavior. Storage corruption is deliberately not a
// Failure so it can never be mistaken for "not configured".
type Failure struct {
	Kind       Kind
	Provider   string
	Detail     string   // provider-specific text, surfaced verbatim
	Candidates []string // set for AmbiguousIdentity
	Status     int      // HTTP status that produced the failure, 0 if none
}

func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", f.Provider, f.Kind)
	if f.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", f.Status)
	}
	if len(f.Candidates) > 0 {
		fmt.Fprintf(&b, ": candidates %s", strings.Join(f.Candidates, ", "))
	}
	if f.Detail != "" {
		fmt.Fprintf(&b, ": %s", f.Detail)
	}
	return b.String()
}

// Guidance returns the user-facing recovery hint for the failure kind.
func (f *Failure) Guidance() string {
	switch f.Kind {
	case NotConfigured:
		return fmt.Sprintf("No credentials configured for %s. Run the provider's setup to add an identity.", f.Provider)
	case AmbiguousIdentity:
		return fmt.Sprintf("Multiple identities are configured for %s. Pass --identity to choose one of: %s.",
			f.Provider, strings.Join(f.Candidates, ", "))
	case AuthExpired:
		return fmt.Sprintf("Stored credentials for %s no longer work. Re-authenticate this identity.", f.Provider)
	case RateLimitExceeded:
		return fmt.Sprintf("%s rate limit hit and retries exhausted. Try again later.", f.Provider)
	case RequestRejected:
		return fmt.Sprintf("%s rejected the request. Check the request parameters.", f.Provider)
	case ProviderUnavailable:
		return fmt.Sprintf("%s is unavailable right now. This is transient, retry later.", f.Provider)
	default:
		return f.Error()
	}
}

// AsFailure extracts a Failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

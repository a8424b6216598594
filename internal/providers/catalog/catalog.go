// Package catalog holds the per-provider configuration this layer needs:
// the request-rate ceiling, the credential attachment scheme, the OAuth
// token endpoint when one exists, and the identity inference rule.
// Providers come from a YAML file, merged over a built-in set covering
// the stock connectors.
package catalog

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AuthModeBearer = "bearer"
	AuthModeQuery  = "query"
	AuthModeHeader = "header"

	defaultWindow = time.Minute
)

var providerIDRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// defaultIdentityPattern extracts an email-shaped token from a context
// string (typically a filesystem path). Providers can override it with
// identity_pattern in the catalog file.
var defaultIdentityPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

type fileConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig is the YAML shape of one catalog entry.
type ProviderConfig struct {
	ID              string          `yaml:"id"`
	Enabled         *bool           `yaml:"enabled"`
	BaseURL         string          `yaml:"base_url"`
	AuthMode        string          `yaml:"auth_mode"`
	AuthHeader      string          `yaml:"auth_header"`
	AuthParam       string          `yaml:"auth_param"`
	TokenURL        string          `yaml:"token_url"`
	AuthURL         string          `yaml:"auth_url"`
	Scopes          []string        `yaml:"scopes"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	IdentityPattern string          `yaml:"identity_pattern"`
	Capabilities    map[string]bool `yaml:"capabilities"`
}

// RateLimitConfig is the YAML shape of a provider's request ceiling.
type RateLimitConfig struct {
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"` // Go duration, e.g. "1s", "10s", "1m"
}

// ProviderInfo is a resolved catalog entry.
type ProviderInfo struct {
	ID              string
	Enabled         bool
	BaseURL         string
	AuthMode        string
	AuthHeader      string          // header name for AuthModeHeader
	AuthParam       string          // query parameter name for AuthModeQuery
	TokenURL        string          // OAuth token endpoint; empty means no refresh mechanism
	AuthURL         string          // OAuth authorization endpoint for interactive login
	Scopes          []string        // scopes requested during interactive login
	Limit           int             // requests per window; 0 means unlimited
	Window          time.Duration
	IdentityPattern *regexp.Regexp
	Capabilities    map[string]bool // defaults for absent record entries
}

// CapabilityDefault returns the provider-defined default for a capability
// absent from a record.
func (p ProviderInfo) CapabilityDefault(name string) bool {
	return p.Capabilities[name]
}

// Catalog is an immutable set of resolved providers.
type Catalog struct {
	byID map[string]ProviderInfo
}

// Default returns the built-in catalog covering the stock connectors.
func Default() *Catalog {
	c, err := build(builtinProviders())
	if err != nil {
		// Built-in entries are validated by tests; a failure here is a bug.
		panic(err)
	}
	return c
}

// Load reads the catalog file at path and merges it over the built-in
// set. File entries replace built-ins with the same id. An empty path
// returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading provider catalog %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing provider catalog %s: %w", path, err)
	}

	merged := builtinProviders()
	for _, pc := range cfg.Providers {
		merged[pc.ID] = pc
	}
	return build(merged)
}

// Get returns the resolved entry for a provider id, or an error naming
// the known providers so the caller can guide the user.
func (c *Catalog) Get(id string) (ProviderInfo, error) {
	info, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return ProviderInfo{}, fmt.Errorf("unknown provider %q (known: %s)", id, strings.Join(c.IDs(), ", "))
	}
	return info, nil
}

// IDs returns the sorted provider ids in the catalog.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func build(configs map[string]ProviderConfig) (*Catalog, error) {
	byID := make(map[string]ProviderInfo, len(configs))
	for id, pc := range configs {
		info, err := resolve(pc)
		if err != nil {
			return nil, err
		}
		byID[id] = info
	}
	return &Catalog{byID: byID}, nil
}

func resolve(pc ProviderConfig) (ProviderInfo, error) {
	id := strings.ToLower(strings.TrimSpace(pc.ID))
	if !providerIDRegexp.MatchString(id) {
		return ProviderInfo{}, fmt.Errorf("invalid provider id %q", pc.ID)
	}

	info := ProviderInfo{
		ID:              id,
		Enabled:         pc.Enabled == nil || *pc.Enabled,
		BaseURL:         strings.TrimRight(pc.BaseURL, "/"),
		AuthMode:        pc.AuthMode,
		AuthHeader:      pc.AuthHeader,
		AuthParam:       pc.AuthParam,
		TokenURL:        pc.TokenURL,
		AuthURL:         pc.AuthURL,
		Scopes:          pc.Scopes,
		Limit:           pc.RateLimit.Requests,
		Window:          defaultWindow,
		IdentityPattern: defaultIdentityPattern,
		Capabilities:    pc.Capabilities,
	}

	switch info.AuthMode {
	case "":
		info.AuthMode = AuthModeBearer
	case AuthModeBearer:
	case AuthModeQuery:
		if info.AuthParam == "" {
			info.AuthParam = "api_key"
		}
	case AuthModeHeader:
		if info.AuthHeader == "" {
			return ProviderInfo{}, fmt.Errorf("provider %s: auth_mode header requires auth_header", id)
		}
	default:
		return ProviderInfo{}, fmt.Errorf("provider %s: unsupported auth_mode %q", id, pc.AuthMode)
	}

	if pc.RateLimit.Window != "" {
		d, err := time.ParseDuration(pc.RateLimit.Window)
		if err != nil || d <= 0 {
			return ProviderInfo{}, fmt.Errorf("provider %s: invalid rate_limit.window %q", id, pc.RateLimit.Window)
		}
		info.Window = d
	}
	if info.Limit < 0 {
		return ProviderInfo{}, fmt.Errorf("provider %s: rate_limit.requests must not be negative", id)
	}

	if info.AuthURL != "" && info.TokenURL == "" {
		return ProviderInfo{}, fmt.Errorf("provider %s: auth_url requires token_url", id)
	}

	if pc.IdentityPattern != "" {
		re, err := regexp.Compile(pc.IdentityPattern)
		if err != nil {
			return ProviderInfo{}, fmt.Errorf("provider %s: invalid identity_pattern: %w", id, err)
		}
		info.IdentityPattern = re
	}

	return info, nil
}

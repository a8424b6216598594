package catalog

// builtinProviders returns the stock connector set. Ceilings follow the
// published limits of each provider's public API.
func builtinProviders() map[string]ProviderConfig {
	configs := []ProviderConfig{
		{
			ID:        "airtable",
			BaseURL:   "https://api.airtable.com/v0",
			AuthMode:  AuthModeBearer,
			RateLimit: RateLimitConfig{Requests: 5, Window: "1s"},
		},
		{
			ID:        "cloudflare",
			BaseURL:   "https://api.cloudflare.com/client/v4",
			AuthMode:  AuthModeBearer,
			RateLimit: RateLimitConfig{Requests: 1200, Window: "5m"},
		},
		{
			ID:        "google",
			BaseURL:   "https://www.googleapis.com",
			AuthMode:  AuthModeBearer,
			TokenURL:  "https://oauth2.googleapis.com/token",
			AuthURL:   "https://accounts.google.com/o/oauth2/auth",
			Scopes: []string{
				"https://www.googleapis.com/auth/drive",
				"https://www.googleapis.com/auth/spreadsheets",
				"https://www.googleapis.com/auth/userinfo.email",
			},
			RateLimit: RateLimitConfig{Requests: 100, Window: "1m"},
			Capabilities: map[string]bool{
				"drive":  true,
				"sheets": true,
			},
		},
		{
			ID:        "hubspot",
			BaseURL:   "https://api.hubapi.com",
			AuthMode:  AuthModeBearer,
			TokenURL:  "https://api.hubapi.com/oauth/v1/token",
			AuthURL:   "https://app.hubspot.com/oauth/authorize",
			Scopes:    []string{"crm.objects.contacts.read", "crm.objects.contacts.write"},
			RateLimit: RateLimitConfig{Requests: 100, Window: "10s"},
		},
		{
			ID:        "linkedin",
			BaseURL:   "https://api.linkedin.com/v2",
			AuthMode:  AuthModeBearer,
			TokenURL:  "https://www.linkedin.com/oauth/v2/accessToken",
			AuthURL:   "https://www.linkedin.com/oauth/v2/authorization",
			Scopes:    []string{"r_liteprofile", "w_member_social"},
			RateLimit: RateLimitConfig{Requests: 100, Window: "1m"},
		},
		{
			ID:        "meetup",
			BaseURL:   "https://api.meetup.com",
			AuthMode:  AuthModeBearer,
			TokenURL:  "https://secure.meetup.com/oauth2/access",
			AuthURL:   "https://secure.meetup.com/oauth2/authorize",
			RateLimit: RateLimitConfig{Requests: 500, Window: "1m"},
		},
		{
			ID:         "monday",
			BaseURL:    "https://api.monday.com/v2",
			AuthMode:   AuthModeHeader,
			AuthHeader: "Authorization",
			RateLimit:  RateLimitConfig{Requests: 60, Window: "1m"},
		},
		{
			ID:        "replicate",
			BaseURL:   "https://api.replicate.com/v1",
			AuthMode:  AuthModeBearer,
			RateLimit: RateLimitConfig{Requests: 600, Window: "1m"},
		},
		{
			ID:         "supabase",
			BaseURL:    "", // per-project URL, set via catalog file
			AuthMode:   AuthModeHeader,
			AuthHeader: "apikey",
			RateLimit:  RateLimitConfig{Requests: 100, Window: "1s"},
		},
		{
			ID:        "wordpress",
			BaseURL:   "https://public-api.wordpress.com/rest/v1.1",
			AuthMode:  AuthModeBearer,
			TokenURL:  "https://public-api.wordpress.com/oauth2/token",
			AuthURL:   "https://public-api.wordpress.com/oauth2/authorize",
			RateLimit: RateLimitConfig{Requests: 150, Window: "1m"},
		},
	}

	byID := make(map[string]ProviderConfig, len(configs))
	for _, pc := range configs {
		byID[pc.ID] = pc
	}
	return byID
}

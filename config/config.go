// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (e.g., the Kick chat monitor), use ValidateChatReady.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	// Kick OAuth
	KickClientID     string
	KickClientSecret string
	KickRedirectURI  string
	KickScopes       string
	// KickOAuthToken is a pre-obtained bearer token; when empty the stored
	// token from the oauth_tokens table is used instead.
	KickOAuthToken string

	// Reconnect backoff
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	ReconnectMaxAttempts int

	// HTTP
	HTTPAddr string

	// Database (empty disables persistence)
	DBDsn string

	// YouTube Data API key for title enrichment (empty disables)
	YTAPIKey string
}

// Load reads environment variables and applies defaults. It doesn't fail if
// Kick creds are missing; use ValidateChatReady() when you require the chat
// monitor. Missing optional variables disable features (persistence, titles).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.KickClientID = os.Getenv("KICK_CLIENT_ID")
	cfg.KickClientSecret = os.Getenv("KICK_CLIENT_SECRET")
	cfg.KickRedirectURI = os.Getenv("KICK_REDIRECT_URI")
	cfg.KickScopes = os.Getenv("KICK_SCOPES")
	cfg.KickOAuthToken = os.Getenv("KICK_OAUTH_TOKEN")

	var err error
	if cfg.ReconnectBaseDelay, err = durationEnv("CHAT_RECONNECT_BASE_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.ReconnectMaxDelay, err = durationEnv("CHAT_RECONNECT_MAX_DELAY", 30*time.Second); err != nil {
		return nil, err
	}
	cfg.ReconnectMaxAttempts = 5
	if v := os.Getenv("CHAT_RECONNECT_MAX_ATTEMPTS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid CHAT_RECONNECT_MAX_ATTEMPTS: %q", v)
		}
		cfg.ReconnectMaxAttempts = n
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.DBDsn = os.Getenv("DB_DSN")
	cfg.YTAPIKey = os.Getenv("YT_API_KEY")

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

// ValidateChatReady checks required fields when the chat monitor must run with
// an env-provided token (no OAuth flow / stored token).
func (c *Config) ValidateChatReady() error {
	if c.KickOAuthToken == "" {
		return fmt.Errorf("missing kick env: require KICK_OAUTH_TOKEN (or complete the OAuth flow with KICK_CLIENT_ID/KICK_CLIENT_SECRET)")
	}
	return nil
}

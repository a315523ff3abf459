package kickapi

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestOAuthConfigScopes(t *testing.T) {
	conf := OAuthConfig("id", "secret", "http://localhost/cb", "")
	joined := strings.Join(conf.Scopes, " ")
	for _, s := range []string{"chat:read", "chat:write", "channel:read", "user:read", "events:subscribe"} {
		if !strings.Contains(joined, s) {
			t.Errorf("default scopes missing %q: %v", s, conf.Scopes)
		}
	}

	conf = OAuthConfig("id", "secret", "http://localhost/cb", "chat:read,user:read")
	if len(conf.Scopes) != 2 || conf.Scopes[0] != "chat:read" || conf.Scopes[1] != "user:read" {
		t.Errorf("comma-separated scopes = %v", conf.Scopes)
	}
}

func TestBuildAuthorizeURL(t *testing.T) {
	conf := OAuthConfig("client-id", "secret", "http://localhost/cb", "")
	authURL, verifier, err := BuildAuthorizeURL(conf, "state123")
	if err != nil {
		t.Fatalf("BuildAuthorizeURL: %v", err)
	}
	if verifier == "" {
		t.Fatal("expected a PKCE verifier")
	}
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	if u.Host != "id.kick.com" {
		t.Errorf("host = %q", u.Host)
	}
	q := u.Query()
	if q.Get("state") != "state123" || q.Get("client_id") != "client-id" {
		t.Errorf("query = %v", q)
	}
	if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
		t.Errorf("missing PKCE challenge: %v", q)
	}
}

func TestBuildAuthorizeURLRequiresConfig(t *testing.T) {
	if _, _, err := BuildAuthorizeURL(OAuthConfig("", "", "", ""), "s"); err == nil {
		t.Error("expected error without clientID/redirectURI")
	}
}

func TestExchangeAuthCodeRequiresCode(t *testing.T) {
	conf := OAuthConfig("id", "secret", "http://localhost/cb", "")
	if _, err := ExchangeAuthCode(context.Background(), conf, "", "v"); err == nil {
		t.Error("expected error for empty code")
	}
}

func TestRefreshTokenRequiresToken(t *testing.T) {
	conf := OAuthConfig("id", "secret", "http://localhost/cb", "")
	if _, err := RefreshToken(context.Background(), conf, ""); err == nil {
		t.Error("expected error for empty refresh token")
	}
}

func TestComputeExpiry(t *testing.T) {
	now := time.Now()
	exp := ComputeExpiry(3600)
	if exp.Before(now.Add(59*time.Minute)) || exp.After(now.Add(61*time.Minute)) {
		t.Errorf("expiry %v not ~1h out", exp)
	}
	def := ComputeExpiry(0)
	if def.Before(now.Add(59 * time.Minute)) {
		t.Errorf("default expiry %v too soon", def)
	}
}

package kickapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Kick's identity provider uses the standard OAuth 2.1 code grant with PKCE.
var kickEndpoint = oauth2.Endpoint{
	AuthURL:  "https://id.kick.com/oauth/authorize",
	TokenURL: "https://id.kick.com/oauth/token",
}

const defaultScopes = "chat:write chat:read channel:read user:read events:subscribe"

// OAuthConfig builds the oauth2 config for Kick's identity provider.
// scopes may be comma or space separated; empty selects the defaults the
// chat monitor needs.
func OAuthConfig(clientID, clientSecret, redirectURI, scopes string) *oauth2.Config {
	if scopes == "" {
		scopes = defaultScopes
	}
	s := strings.ReplaceAll(scopes, ",", " ")
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     kickEndpoint,
		RedirectURL:  redirectURI,
		Scopes:       strings.Fields(s),
	}
}

// BuildAuthorizeURL constructs the user authorization URL with a fresh PKCE
// verifier. The verifier must be presented again at exchange time.
func BuildAuthorizeURL(conf *oauth2.Config, state string) (authURL, verifier string, err error) {
	if conf.ClientID == "" || conf.RedirectURL == "" {
		return "", "", errors.New("missing clientID or redirectURI")
	}
	verifier = oauth2.GenerateVerifier()
	authURL = conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	return authURL, verifier, nil
}

// ExchangeAuthCode exchanges an authorization code (plus the PKCE verifier
// from BuildAuthorizeURL) for access and refresh tokens.
func ExchangeAuthCode(ctx context.Context, conf *oauth2.Config, code, verifier string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("missing authorization code")
	}
	return conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
}

// RefreshToken exchanges a refresh token for a fresh access token.
func RefreshToken(ctx context.Context, conf *oauth2.Config, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, errors.New("missing refresh token")
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return ts.Token()
}

// ComputeExpiry returns absolute expiry time from seconds, defaulting to
// +60m when unknown.
func ComputeExpiry(seconds int) time.Time {
	if seconds <= 0 {
		return time.Now().Add(60 * time.Minute)
	}
	return time.Now().Add(time.Duration(seconds) * time.Second)
}

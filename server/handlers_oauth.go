package server

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	dbpkg "github.com/onnwee/clip-queue/db"
	"github.com/onnwee/clip-queue/kickapi"
)

const oauthStateTTL = 10 * time.Minute

// HandleOAuthStart mints a CSRF state plus PKCE verifier and redirects the
// browser to Kick's authorize page.
func (h *Handlers) HandleOAuthStart(w http.ResponseWriter, r *http.Request) {
	if h.deps.OAuth == nil || h.deps.OAuth.ClientID == "" {
		http.Error(w, "oauth not configured", http.StatusServiceUnavailable)
		return
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		http.Error(w, "state generation failed", http.StatusInternalServerError)
		return
	}
	state := hex.EncodeToString(buf)
	authURL, verifier, err := kickapi.BuildAuthorizeURL(h.deps.OAuth, state)
	if err != nil {
		slog.Error("failed to build authorize url", slog.Any("err", err))
		http.Error(w, "authorize url failed", http.StatusInternalServerError)
		return
	}
	h.addOAuthState(state, verifier, time.Now().Add(oauthStateTTL))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleOAuthCallback exchanges the authorization code for tokens and
// persists them so the chat session can bootstrap with a fresh credential.
func (h *Handlers) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		slog.Warn("oauth callback returned error",
			slog.String("error", errCode),
			slog.String("description", q.Get("error_description")))
		http.Error(w, "authorization denied: "+errCode, http.StatusBadRequest)
		return
	}
	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		http.Error(w, "missing code or state", http.StatusBadRequest)
		return
	}
	verifier, ok := h.takeOAuthState(state)
	if !ok {
		http.Error(w, "invalid or expired state", http.StatusBadRequest)
		return
	}
	tok, err := kickapi.ExchangeAuthCode(r.Context(), h.deps.OAuth, code, verifier)
	if err != nil {
		slog.Error("oauth code exchange failed", slog.Any("err", err))
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		return
	}
	if h.deps.DB != nil {
		scope := strings.Join(h.deps.OAuth.Scopes, " ")
		if err := dbpkg.UpsertOAuthToken(r.Context(), h.deps.DB, "kick", tok.AccessToken, tok.RefreshToken, tok.Expiry, scope); err != nil {
			slog.Error("failed to persist oauth token", slog.Any("err", err))
			http.Error(w, "token persistence failed", http.StatusInternalServerError)
			return
		}
	}
	slog.Info("kick oauth completed", slog.Time("expiry", tok.Expiry))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Kick account linked. You can close this tab.\n"))
}

// Package server exposes the HTTP API consumed by the player and queue
// display: queue snapshots and mutations, an SSE stream of queue changes,
// session status, health, metrics, and the Kick OAuth flow.
package server

import (
	"database/sql"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/clip-queue/chat"
	"github.com/onnwee/clip-queue/kickapi"
	"github.com/onnwee/clip-queue/queue"
)

const (
	// Maximum number of OAuth states to keep in memory
	maxOAuthStates = 10000
)

// Deps are the collaborators the handlers need. DB may be nil (persistence
// disabled). Session and Info are getters because the chat session only
// exists once the Kick bootstrap succeeded; both may return nil before that.
type Deps struct {
	Agg   *queue.Aggregator
	DB    *sql.DB
	OAuth *oauth2.Config
	// Session returns the chat session once one was opened.
	Session func() *chat.Session
	// Info returns the bootstrap result once available.
	Info func() *kickapi.BootstrapResult
}

// oauthState pairs the CSRF state with the PKCE verifier minted alongside it.
type oauthState struct {
	verifier string
	expires  time.Time
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	deps       Deps
	stateStore map[string]oauthState
	stateMu    sync.RWMutex
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		deps:       deps,
		stateStore: make(map[string]oauthState),
	}
}

// session resolves the current chat session, nil before bootstrap.
func (h *Handlers) session() *chat.Session {
	if h.deps.Session == nil {
		return nil
	}
	return h.deps.Session()
}

// cleanExpiredStates removes expired OAuth states from the store.
// Callers hold stateMu.
func (h *Handlers) cleanExpiredStates() {
	now := time.Now()
	for state, st := range h.stateStore {
		if now.After(st.expires) {
			delete(h.stateStore, state)
		}
	}
}

// addOAuthState stores a state+verifier pair, bounding memory growth.
func (h *Handlers) addOAuthState(state, verifier string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	if len(h.stateStore)%100 == 0 {
		h.cleanExpiredStates()
	}
	if len(h.stateStore) >= maxOAuthStates {
		// Refusing to add fails the flow, which beats unbounded growth.
		return
	}
	h.stateStore[state] = oauthState{verifier: verifier, expires: expiry}
}

// takeOAuthState consumes a state, returning its verifier and validity.
func (h *Handlers) takeOAuthState(state string) (string, bool) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	st, ok := h.stateStore[state]
	if !ok {
		return "", false
	}
	delete(h.stateStore, state)
	if time.Now().After(st.expires) {
		return "", false
	}
	return st.verifier, true
}

// Package testutil provides shared test helpers: a mock Kick API server with
// per-endpoint programmable handlers.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockKickServer creates a test server that mocks Kick v2 API responses
type MockKickServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockKickServer creates a new mock Kick API server
func NewMockKickServer(t *testing.T) *MockKickServer {
	t.Helper()
	m := &MockKickServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockProfile adds a handler for the /api/v2/user/me endpoint
func (m *MockKickServer) MockProfile(id int, username, avatarURL string) {
	m.Handlers["/api/v2/user/me"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         id,
			"username":   username,
			"avatar_url": avatarURL,
		})
	}
}

// MockChannel adds a handler for the /api/v2/channels/me endpoint
func (m *MockKickServer) MockChannel(id int, slug string, chatroomID int) {
	m.Handlers["/api/v2/channels/me"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       id,
			"slug":     slug,
			"chatroom": map[string]any{"id": chatroomID},
		})
	}
}

// MockChatConnection adds a handler for the channel chat endpoint
func (m *MockKickServer) MockChatConnection(channelPath, endpoint, auth string) {
	m.Handlers[channelPath] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"websocket": map[string]any{
				"endpoint": endpoint,
				"auth":     auth,
			},
		})
	}
}

// MockError adds a handler returning a fixed status code for a path
func (m *MockKickServer) MockError(path string, status int) {
	m.Handlers[path] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}
}

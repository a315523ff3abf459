package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/onnwee/clip-queue/chat"
)

// HandleHealthz is a liveness probe: the process is up and serving.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleReadyz reports readiness: the database (when configured) answers a
// ping and the chat session has not burned through its reconnect budget.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true

	if h.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.DB.PingContext(ctx); err != nil {
			checks["db"] = "unreachable: " + err.Error()
			ready = false
		} else {
			checks["db"] = "ok"
		}
	} else {
		checks["db"] = "disabled"
	}

	if sess := h.session(); sess != nil {
		st := sess.State()
		checks["chat"] = st.String()
		if st == chat.StateFailed {
			ready = false
		}
	} else {
		checks["chat"] = "not started"
	}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ready":  ready,
		"checks": checks,
	})
}

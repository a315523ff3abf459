package server

import (
	"encoding/json"
	"net/http"
)

// HandleStatus reports the chat session state, queue depth, and the channel
// identity the service bootstrapped against.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]any{
		"queue_depth": h.deps.Agg.Len(),
	}
	if sess := h.session(); sess != nil {
		resp["session"] = sess.State().String()
	} else {
		resp["session"] = "not started"
	}
	if h.deps.Info != nil {
		if info := h.deps.Info(); info != nil {
			resp["channel"] = map[string]any{
				"username":    info.Profile.Username,
				"avatar_url":  info.Profile.AvatarURL,
				"slug":        info.Channel.Slug,
				"chatroom_id": info.Channel.Chatroom.ID,
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

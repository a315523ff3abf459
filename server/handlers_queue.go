package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	dbpkg "github.com/onnwee/clip-queue/db"
)

// HandleQueue returns the ordered queue snapshot.
func (h *Handlers) HandleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries := h.deps.Agg.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"clips": entries,
		"count": len(entries),
	})
}

// HandleQueueNext pops the highest-ranked clip for the player. An empty queue
// is a normal idle state and answers 204, not an error.
func (h *Handlers) HandleQueueNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entry, ok := h.deps.Agg.PopNext()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if h.deps.DB != nil {
		if err := dbpkg.MarkClipPlayed(r.Context(), h.deps.DB, entry.URL, time.Now().UTC()); err != nil {
			slog.Warn("failed to mark clip played", slog.Any("err", err))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entry)
}

// HandleQueueClear empties the pending queue. The consumer's currently
// playing clip is its own business and is untouched.
func (h *Handlers) HandleQueueClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.deps.Agg.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// HandleQueueDispatcher routes /queue/{id} deletes and /queue/stream.
func (h *Handlers) HandleQueueDispatcher(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/queue/")
	switch {
	case rest == "stream":
		h.handleQueueSSE(w, r)
	case rest == "next":
		h.HandleQueueNext(w, r)
	case rest == "clear":
		h.HandleQueueClear(w, r)
	case rest != "" && !strings.Contains(rest, "/"):
		h.handleQueueRemove(w, r, rest)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handlers) handleQueueRemove(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Removal is idempotent; an unknown id still answers 204 so retries are
	// harmless, but we log the miss.
	if !h.deps.Agg.Remove(id) {
		slog.Debug("queue remove: id not present", slog.String("id", id))
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleQueueSSE pushes the ordered queue snapshot to the display via
// Server-Sent Events: once on connect, then on every queue change.
func (h *Handlers) handleQueueSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, cancel := h.deps.Agg.Subscribe()
	defer cancel()
	ctx := r.Context()
	enc := json.NewEncoder(w)

	send := func() bool {
		if _, err := w.Write([]byte("data: ")); err != nil {
			return false
		}
		if err := enc.Encode(h.deps.Agg.Snapshot()); err != nil {
			return false
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}
	if !send() {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if !send() {
				return
			}
		}
	}
}

package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/clip-queue/kickapi"
	"github.com/onnwee/clip-queue/queue"
)

func TestBackoffDelaySchedule(t *testing.T) {
	p := DefaultBackoff
	want := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, w := range want {
		attempt := i + 1
		if got := p.Delay(attempt); got != w {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, w)
		}
	}
}

func TestBackoffDelayNonDecreasing(t *testing.T) {
	p := BackoffPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: 3 * time.Second, MaxAttempts: 10}
	prev := time.Duration(0)
	for attempt := 1; attempt <= 12; attempt++ {
		d := p.Delay(attempt)
		if d < prev {
			t.Fatalf("Delay(%d) = %v decreased below %v", attempt, d, prev)
		}
		if d > p.MaxDelay {
			t.Fatalf("Delay(%d) = %v exceeds cap %v", attempt, d, p.MaxDelay)
		}
		prev = d
	}
}

func TestBackoffWithDefaults(t *testing.T) {
	p := BackoffPolicy{}.withDefaults()
	if p != DefaultBackoff {
		t.Errorf("withDefaults() = %+v, want %+v", p, DefaultBackoff)
	}
	custom := BackoffPolicy{BaseDelay: 5 * time.Millisecond, MaxDelay: time.Second, MaxAttempts: 2}
	if got := custom.withDefaults(); got != custom {
		t.Errorf("withDefaults() clobbered explicit policy: %+v", got)
	}
}

var testUpgrader = websocket.Upgrader{}

// wsEndpoint rewrites an httptest server URL into a ws:// endpoint.
func wsEndpoint(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// ackSubscriptions reads the client's subscribe frames and acknowledges each
// channel, completing the handshake that takes the session to Live.
func ackSubscriptions(t *testing.T, conn *websocket.Conn, n int) []string {
	t.Helper()
	channels := make([]string, 0, n)
	for i := 0; i < n; i++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read subscribe frame: %v", err)
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Event != EventSubscribe {
			t.Fatalf("unexpected frame %s: %v", data, err)
		}
		var sub struct {
			Auth    string `json:"auth"`
			Channel string `json:"channel"`
		}
		if err := json.Unmarshal(f.Data, &sub); err != nil {
			t.Fatalf("decode subscribe data: %v", err)
		}
		channels = append(channels, sub.Channel)
	}
	for _, ch := range channels {
		ack, _ := json.Marshal(Frame{Event: EventSubscriptionSucceeded, Channel: ch})
		if err := conn.WriteMessage(websocket.TextMessage, ack); err != nil {
			t.Fatalf("write ack: %v", err)
		}
	}
	return channels
}

// serverAck is ackSubscriptions for use inside handler goroutines, where
// failing the test directly is not allowed.
func serverAck(conn *websocket.Conn, n int) error {
	channels := make([]string, 0, n)
	for i := 0; i < n; i++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		var sub struct {
			Channel string `json:"channel"`
		}
		if err := json.Unmarshal(f.Data, &sub); err != nil {
			return err
		}
		channels = append(channels, sub.Channel)
	}
	for _, ch := range channels {
		ack, _ := json.Marshal(Frame{Event: EventSubscriptionSucceeded, Channel: ch})
		if err := conn.WriteMessage(websocket.TextMessage, ack); err != nil {
			return err
		}
	}
	return nil
}

func writeChatFrame(t *testing.T, conn *websocket.Conn, id, content, username string) {
	t.Helper()
	nested, _ := json.Marshal(map[string]any{
		"id":      id,
		"content": content,
		"sender":  map[string]string{"username": username},
	})
	raw, _ := json.Marshal(string(nested))
	b, _ := json.Marshal(Frame{Event: EventChatMessage, Data: raw})
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write chat frame: %v", err)
	}
}

// recordStates registers a listener and returns a channel of transitions.
func recordStates(s *Session) <-chan State {
	ch := make(chan State, 64)
	s.OnStateChange(func(st State) {
		select {
		case ch <- st:
		default:
		}
	})
	return ch
}

func waitState(t *testing.T, ch <-chan State, want State) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case st := <-ch:
			if st == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", want)
		}
	}
}

func waitQueueLen(t *testing.T, agg *queue.Aggregator, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if agg.Len() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("queue length never reached %d (got %d)", want, agg.Len())
}

func TestSessionGoesLiveAndRoutes(t *testing.T) {
	serverConn := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConn <- conn
	}))
	defer srv.Close()

	agg := queue.NewAggregator()
	sess := NewSession(kickapi.ConnectionParameters{Endpoint: wsEndpoint(srv), Auth: "tok"}, 42, &Router{Agg: agg}, BackoffPolicy{BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, MaxAttempts: 1})
	states := recordStates(sess)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.Open(ctx)
	defer sess.Disconnect()

	conn := <-serverConn
	defer func() { _ = conn.Close() }()
	channels := ackSubscriptions(t, conn, 2)
	waitState(t, states, StateLive)

	// Both the chatroom channel and its presence counterpart were requested.
	joined := strings.Join(channels, " ")
	if !strings.Contains(joined, "chatrooms.42.v2") || !strings.Contains(joined, "presence-chatrooms.42.v2") {
		t.Errorf("subscribed channels = %v", channels)
	}

	writeChatFrame(t, conn, "m1", "clip https://youtu.be/abc123", "alice")
	waitQueueLen(t, agg, 1)

	// A garbage frame and a malformed chat payload are dropped without
	// disturbing the session.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	badData, _ := json.Marshal("not-json")
	bad, _ := json.Marshal(Frame{Event: EventChatMessage, Data: badData})
	if err := conn.WriteMessage(websocket.TextMessage, bad); err != nil {
		t.Fatal(err)
	}
	writeChatFrame(t, conn, "m2", "another https://youtu.be/def456", "bob")
	waitQueueLen(t, agg, 2)
	if sess.State() != StateLive {
		t.Errorf("state = %v, want live after dropped frames", sess.State())
	}

	// The broker ping gets answered with a pong.
	ping, _ := json.Marshal(Frame{Event: EventPing})
	if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	var pong Frame
	if err := json.Unmarshal(data, &pong); err != nil || pong.Event != EventPong {
		t.Errorf("expected pong frame, got %s", data)
	}
}

func TestSessionFailsAfterBudget(t *testing.T) {
	// Endpoint that never upgrades: every dial fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusBadRequest)
	}))
	defer srv.Close()

	sess := NewSession(kickapi.ConnectionParameters{Endpoint: wsEndpoint(srv)}, 1, &Router{}, BackoffPolicy{BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, MaxAttempts: 2})
	states := recordStates(sess)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.Open(ctx)
	waitState(t, states, StateFailed)
	if sess.State() != StateFailed {
		t.Errorf("state = %v, want failed", sess.State())
	}
}

func TestSessionReconnectsAndRecovers(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if dials.Add(1) == 1 {
			// First socket dies before any ack.
			_ = conn.Close()
			return
		}
		if err := serverAck(conn, 2); err != nil {
			return
		}
		// Hold the socket open until the test finishes.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	sess := NewSession(kickapi.ConnectionParameters{Endpoint: wsEndpoint(srv), Auth: "tok"}, 7, &Router{}, BackoffPolicy{BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, MaxAttempts: 5})
	states := recordStates(sess)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.Open(ctx)
	defer sess.Disconnect()

	waitState(t, states, StateReconnecting)
	waitState(t, states, StateLive)
	if n := dials.Load(); n < 2 {
		t.Errorf("dials = %d, want at least 2", n)
	}
}

func TestSessionReopenAfterFailed(t *testing.T) {
	var accept atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !accept.Load() {
			http.Error(w, "no", http.StatusBadRequest)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if err := serverAck(conn, 2); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	sess := NewSession(kickapi.ConnectionParameters{Endpoint: wsEndpoint(srv), Auth: "tok"}, 3, &Router{}, BackoffPolicy{BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, MaxAttempts: 1})
	states := recordStates(sess)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.Open(ctx)
	waitState(t, states, StateFailed)

	// Open restarts with a fresh reconnect budget.
	accept.Store(true)
	sess.Open(ctx)
	defer sess.Disconnect()
	waitState(t, states, StateLive)
}

func TestDisconnectIdempotent(t *testing.T) {
	sess := NewSession(kickapi.ConnectionParameters{Endpoint: "ws://127.0.0.1:1"}, 1, &Router{}, BackoffPolicy{})
	sess.Disconnect()
	sess.Disconnect()
	if sess.State() != StateIdle {
		t.Errorf("state = %v, want idle", sess.State())
	}
}

func TestStateStrings(t *testing.T) {
	want := map[State]string{
		StateIdle:         "idle",
		StateConnecting:   "connecting",
		StateSubscribing:  "subscribing",
		StateLive:         "live",
		StateReconnecting: "reconnecting",
		StateFailed:       "failed",
	}
	for st, s := range want {
		if st.String() != s {
			t.Errorf("State(%d).String() = %q, want %q", st, st.String(), s)
		}
	}
}

package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/clip-queue/kickapi"
	"github.com/onnwee/clip-queue/telemetry"
)

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateSubscribing
	StateLive
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateLive:
		return "live"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BackoffPolicy governs reconnect scheduling: delay for attempt n is
// min(BaseDelay * 2^n, MaxDelay). Once the counter exceeds MaxAttempts the
// session gives up and reports Failed.
type BackoffPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultBackoff mirrors the broker-friendly schedule: 2s, 4s, 8s, 16s, 30s.
var DefaultBackoff = BackoffPolicy{BaseDelay: time.Second, MaxDelay: 30 * time.Second, MaxAttempts: 5}

func (p BackoffPolicy) withDefaults() BackoffPolicy {
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBackoff.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultBackoff.MaxDelay
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultBackoff.MaxAttempts
	}
	return p
}

// Delay returns the capped exponential delay for the given attempt number
// (first reconnect is attempt 1).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Session manages one logical subscription to a chatroom's realtime channels.
// It owns the socket; all frames are read by a single goroutine and handed to
// the router in arrival order. A monotonically increasing epoch guards against
// stale goroutines touching state after Disconnect or a re-Open.
type Session struct {
	params   kickapi.ConnectionParameters
	channels []string
	router   *Router
	policy   BackoffPolicy
	dialer   *websocket.Dialer

	mu      sync.Mutex
	state   State
	epoch   int
	cancel  context.CancelFunc
	conn    *websocket.Conn
	onState []func(State)
}

// NewSession prepares a session for a chatroom. It subscribes to the message
// channel and its presence counterpart, both authenticated with the token
// from the connection parameters.
func NewSession(params kickapi.ConnectionParameters, chatroomID int, router *Router, policy BackoffPolicy) *Session {
	return &Session{
		params:   params,
		channels: []string{ChatroomChannel(chatroomID), PresenceChannel(chatroomID)},
		router:   router,
		policy:   policy.withDefaults(),
		dialer:   websocket.DefaultDialer,
	}
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnStateChange registers a listener invoked synchronously on every state
// transition. Register before Open.
func (s *Session) OnStateChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = append(s.onState, fn)
}

// Open starts (or restarts) the session. Any pending reconnect from a prior
// run is cancelled and the attempt counter starts fresh, so Open is also the
// way out of Failed. The session runs until ctx is cancelled, Disconnect is
// called, or the reconnect budget is exhausted.
func (s *Session) Open(ctx context.Context) {
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	go s.run(runCtx, epoch)
}

// Disconnect tears the session down: cancels any pending reconnect, closes
// the socket and returns to Idle. Safe to call from any state; calling it
// while Idle is a no-op. No frames are routed after it returns.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.epoch++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	conn := s.conn
	s.conn = nil
	wasIdle := s.state == StateIdle
	s.state = StateIdle
	fns := append([]func(State){}, s.onState...)
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	telemetry.SetSessionLive(false)
	if !wasIdle {
		for _, fn := range fns {
			fn(StateIdle)
		}
	}
}

func (s *Session) sameEpoch(epoch int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == epoch
}

// setState transitions the state machine, ignoring calls from a stale epoch.
// Reports whether the caller still owns the session.
func (s *Session) setState(epoch int, st State) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	if s.state == st {
		s.mu.Unlock()
		return true
	}
	s.state = st
	fns := append([]func(State){}, s.onState...)
	s.mu.Unlock()
	telemetry.SetSessionLive(st == StateLive)
	for _, fn := range fns {
		fn(st)
	}
	return true
}

// run is the connect/stream/backoff loop. One run goroutine exists per epoch;
// superseded runs notice via setState and exit without touching anything.
func (s *Session) run(ctx context.Context, epoch int) {
	attempt := 0
	for {
		if !s.setState(epoch, StateConnecting) {
			return
		}
		conn, resp, err := s.dialer.DialContext(ctx, s.params.Endpoint, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		wentLive := false
		if err == nil {
			wentLive, err = s.stream(ctx, epoch, conn)
		}
		if ctx.Err() != nil {
			return
		}
		if wentLive {
			// A completed handshake resets the budget; the next loss starts
			// a fresh attempt sequence.
			attempt = 0
		}
		slog.Warn("chat transport lost", slog.Any("err", err), slog.Int("attempt", attempt))
		if !s.setState(epoch, StateReconnecting) {
			return
		}
		if attempt >= s.policy.MaxAttempts {
			slog.Error("chat reconnect budget exhausted", slog.Int("attempts", attempt))
			telemetry.Inc(telemetry.SessionsFailed)
			s.setState(epoch, StateFailed)
			return
		}
		attempt++
		telemetry.Inc(telemetry.ReconnectAttempts)
		delay := s.policy.Delay(attempt)
		slog.Info("chat reconnect scheduled", slog.Int("attempt", attempt), slog.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// stream owns one socket: sends the subscription requests, then reads frames
// until the transport errors out. Returns whether the session reached Live on
// this socket.
func (s *Session) stream(ctx context.Context, epoch int, conn *websocket.Conn) (bool, error) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		_ = conn.Close()
		return false, ctx.Err()
	}
	s.conn = conn
	s.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		_ = conn.Close()
	}()

	if !s.setState(epoch, StateSubscribing) {
		return false, nil
	}
	pending := make(map[string]bool, len(s.channels))
	for _, ch := range s.channels {
		b, err := subscribeFrame(ch, s.params.Auth)
		if err != nil {
			return false, err
		}
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return false, err
		}
		pending[ch] = true
	}

	wentLive := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return wentLive, err
		}
		if !s.sameEpoch(epoch) {
			return wentLive, nil
		}
		telemetry.Inc(telemetry.FramesReceived)
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			telemetry.Inc(telemetry.FramesDropped)
			slog.Warn("malformed frame", slog.Any("err", err))
			continue
		}
		res, rerr := s.router.Route(frame)
		if rerr != nil {
			telemetry.Inc(telemetry.FramesDropped)
			slog.Warn("frame dropped", slog.String("event", frame.Event), slog.Any("err", rerr))
			continue
		}
		switch res.Action {
		case ActionSubscribed:
			if pending[res.Channel] {
				delete(pending, res.Channel)
				if len(pending) == 0 {
					if !s.setState(epoch, StateLive) {
						return wentLive, nil
					}
					wentLive = true
					slog.Info("chat session live", slog.Int("channels", len(s.channels)))
				}
			}
		case ActionPing:
			if err := conn.WriteMessage(websocket.TextMessage, pongFrame()); err != nil {
				return wentLive, err
			}
		case ActionIgnored:
			telemetry.Inc(telemetry.FramesDropped)
			slog.Debug("unhandled frame", slog.String("event", frame.Event))
		}
	}
}

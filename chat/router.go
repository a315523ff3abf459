package chat

import (
	"time"

	"github.com/onnwee/clip-queue/extract"
	"github.com/onnwee/clip-queue/queue"
	"github.com/onnwee/clip-queue/telemetry"
)

// Action tells the session what a routed frame means for its state machine.
type Action int

const (
	// ActionIgnored covers unrecognized tags and malformed payloads; the
	// frame is dropped and the session carries on.
	ActionIgnored Action = iota
	// ActionEstablished is the broker's connection handshake ack.
	ActionEstablished
	// ActionSubscribed acknowledges one channel subscription.
	ActionSubscribed
	// ActionPing asks the session to answer with a pong.
	ActionPing
	// ActionChat is an ordinary chat message, already fed downstream.
	ActionChat
)

// RouteResult is the outcome of routing one frame.
type RouteResult struct {
	Action  Action
	Channel string // set for ActionSubscribed
}

// Router classifies inbound frames and feeds chat content to the extractor
// and the aggregator. It holds no transport state; the session calls Route
// synchronously for each frame, so downstream calls never run concurrently
// for one session.
type Router struct {
	Agg *queue.Aggregator

	// OnChat, when set, observes every decoded chat message (e.g. to archive
	// it). Called synchronously in frame order.
	OnChat func(Message)
	// OnClip, when set, observes every queue mutation caused by a clip
	// sighting, with the candidate that caused it and whether a new entry
	// was created.
	OnClip func(entry queue.Entry, cand queue.Candidate, created bool)

	// Now is the clock used to stamp messages; tests override it.
	Now func() time.Time
}

func (r *Router) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Route dispatches one frame by its event tag. Lifecycle frames are reported
// back to the session and not forwarded further. Chat frames are decoded and
// their clip links submitted to the aggregator. A decode failure is returned
// as an error with ActionIgnored; it must never take the session down.
func (r *Router) Route(frame Frame) (RouteResult, error) {
	switch frame.Event {
	case EventConnectionEstablished:
		return RouteResult{Action: ActionEstablished}, nil
	case EventSubscriptionSucceeded:
		return RouteResult{Action: ActionSubscribed, Channel: frame.Channel}, nil
	case EventPing:
		return RouteResult{Action: ActionPing}, nil
	case EventChatMessage:
		msg, err := decodeChatMessage(frame.Data, r.now())
		if err != nil {
			return RouteResult{Action: ActionIgnored}, err
		}
		telemetry.Inc(telemetry.ChatMessages)
		if r.OnChat != nil {
			r.OnChat(msg)
		}
		r.submitClips(msg)
		return RouteResult{Action: ActionChat}, nil
	default:
		return RouteResult{Action: ActionIgnored}, nil
	}
}

func (r *Router) submitClips(msg Message) {
	if r.Agg == nil {
		return
	}
	for _, m := range extract.Extract(msg.Content) {
		cand := queue.Candidate{
			URL:         m.URL,
			Platform:    m.Platform,
			Submitter:   msg.Sender,
			SubmittedAt: msg.ReceivedAt,
		}
		entry, created := r.Agg.Submit(cand)
		telemetry.Inc(telemetry.ClipsSubmitted)
		if !created {
			telemetry.Inc(telemetry.ClipsDeduped)
		}
		if r.OnClip != nil {
			r.OnClip(entry, cand, created)
		}
	}
}

// Package chat maintains the realtime connection to Kick's chat broker and
// turns inbound traffic into clip submissions.
//
// It provides two pieces:
//   - Session: the lifecycle of one logical subscription. It dials the
//     websocket endpoint resolved during bootstrap, subscribes to the
//     chatroom (and presence) channels, and recovers from transport loss
//     with capped exponential backoff until the attempt budget runs out.
//   - Router: classifies inbound frames by their event tag. Lifecycle frames
//     feed the session state machine; chat frames are decoded, scanned for
//     clip links, and folded into the queue. Malformed frames are dropped
//     without tearing the session down.
//
// The broker speaks the Pusher protocol subset Kick uses: subscriptions are
// pusher:subscribe frames carrying a per-channel auth token, acks arrive as
// pusher_internal:subscription_succeeded, and chat messages arrive as
// App\Events\ChatMessageEvent frames whose data field is string-encoded JSON.
package chat

package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Pusher event tags used by Kick's chat broker.
const (
	EventConnectionEstablished = "pusher:connection_established"
	EventSubscriptionSucceeded = "pusher_internal:subscription_succeeded"
	EventSubscribe             = "pusher:subscribe"
	EventPing                  = "pusher:ping"
	EventPong                  = "pusher:pong"
	EventChatMessage           = `App\Events\ChatMessageEvent`
)

// Frame is one discrete message unit on the realtime transport. Data is left
// raw: its shape depends on the event tag, and for chat messages it is a
// string-encoded nested JSON document.
type Frame struct {
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
	Channel string          `json:"channel,omitempty"`
}

// ChatroomChannel returns the message channel name for a chatroom.
func ChatroomChannel(chatroomID int) string {
	return fmt.Sprintf("chatrooms.%d.v2", chatroomID)
}

// PresenceChannel returns the presence counterpart of a chatroom channel.
func PresenceChannel(chatroomID int) string {
	return fmt.Sprintf("presence-chatrooms.%d.v2", chatroomID)
}

// subscribeFrame builds the outbound subscription request for one channel,
// carrying the auth token obtained during bootstrap.
func subscribeFrame(channel, auth string) ([]byte, error) {
	return json.Marshal(Frame{
		Event: EventSubscribe,
		Data:  mustMarshal(map[string]string{"auth": auth, "channel": channel}),
	})
}

// pongFrame answers a broker ping so the connection is not dropped as idle.
func pongFrame() []byte {
	b, _ := json.Marshal(Frame{Event: EventPong, Data: json.RawMessage(`{}`)})
	return b
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Message is one decoded chat message as handed to downstream consumers.
type Message struct {
	ID         string
	Content    string
	Sender     string
	ReceivedAt time.Time
}

// decodeChatMessage unwraps the string-encoded payload of a chat frame.
func decodeChatMessage(data json.RawMessage, receivedAt time.Time) (Message, error) {
	var nested string
	if err := json.Unmarshal(data, &nested); err != nil {
		return Message{}, fmt.Errorf("chat frame data is not a string: %w", err)
	}
	var payload struct {
		ID      string `json:"id"`
		Content string `json:"content"`
		Sender  struct {
			Username string `json:"username"`
		} `json:"sender"`
	}
	if err := json.Unmarshal([]byte(nested), &payload); err != nil {
		return Message{}, fmt.Errorf("decode chat payload: %w", err)
	}
	if payload.Content == "" && payload.ID == "" {
		return Message{}, fmt.Errorf("chat payload missing id and content")
	}
	return Message{
		ID:         payload.ID,
		Content:    payload.Content,
		Sender:     payload.Sender.Username,
		ReceivedAt: receivedAt,
	}, nil
}

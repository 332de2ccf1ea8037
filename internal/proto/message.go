package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeSubscribe   = "subscribe"
	InboundTypeUnsubscribe = "unsubscribe"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventMessage    = "message"
	EventSubscribed = "subscribed"
)

// SubscribeData requests a live feed for one room.
type SubscribeData struct {
	RoomID int64 `json:"room_id"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MessageData carries one chat message to the client.
type MessageData struct {
	ID           int64  `json:"id"`
	RoomID       int64  `json:"room_id"`
	UserID       int64  `json:"user_id"`
	Body         string `json:"body"`
	AuthorName   string `json:"author_name"`
	AuthorAvatar string `json:"author_avatar,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}

// SubscribedData confirms an active subscription, so the client can
// tell a quiet room apart from a dead feed.
type SubscribedData struct {
	RoomID int64 `json:"room_id"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

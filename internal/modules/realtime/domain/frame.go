package domain

import "encoding/json"

// MessageType is the "type" discriminator of a hub protocol message.
type MessageType int

const (
	MessageInvocation MessageType = 1
	MessageCompletion MessageType = 3
	MessagePing       MessageType = 6
	MessageClose      MessageType = 7
)

// Frame is a server-to-client invocation: the event name as target and the payload
// as the single argument. Browser clients register one handler per target.
type Frame struct {
	Type      MessageType `json:"type"`
	Target    Event       `json:"target"`
	Arguments []any       `json:"arguments"`
}

// NewFrame wraps payload for event. A nil payload still yields one (null) argument.
func NewFrame(event Event, payload any) Frame {
	return Frame{Type: MessageInvocation, Target: event, Arguments: []any{payload}}
}

// Delivery is one push addressed to a user rather than a connection. The relay ships
// these between instances; the payload is encoded once by the publisher.
type Delivery struct {
	UserID  int64           `json:"userId"`
	Event   Event           `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

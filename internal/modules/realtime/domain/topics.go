package domain

import "strings"

// Event names a push delivered to browser clients. The set is fixed: the front end
// registers one handler per name.
type Event string

const (
	EventReceiveMessage      Event = "ReceiveMessage"
	EventReceiveNotification Event = "ReceiveNotification"
	EventMessageSent         Event = "MessageSent"
	EventMessageRead         Event = "MessageRead"
	EventConversationDeleted Event = "ConversationDeleted"
)

var knownEvents = map[Event]struct{}{
	EventReceiveMessage:      {},
	EventReceiveNotification: {},
	EventMessageSent:         {},
	EventMessageRead:         {},
	EventConversationDeleted: {},
}

// Valid reports whether e belongs to the dispatchable vocabulary.
func (e Event) Valid() bool {
	_, ok := knownEvents[e]
	return ok
}

func (e Event) String() string { return string(e) }

// ParseEvent matches raw case-insensitively against the vocabulary.
func ParseEvent(raw string) (Event, bool) {
	trimmed := strings.TrimSpace(raw)
	for e := range knownEvents {
		if strings.EqualFold(string(e), trimmed) {
			return e, true
		}
	}
	return "", false
}

// Notification types carried in the "type" field of ReceiveNotification payloads.
const (
	NotificationTypeMessage          = "message"
	NotificationTypeItemMatch        = "itemmatch"
	NotificationTypeItemMatchDeleted = "itemmatch_deleted"
)

// Kinds of inbound domain events handed over by the CRUD API after it committed a change.
const (
	KindMessageSent         = "message.sent"
	KindMessageRead         = "message.read"
	KindConversationDeleted = "conversation.deleted"
	KindItemMatchCreated    = "itemmatch.created"
	KindItemMatchDeleted    = "itemmatch.deleted"
)

// NormalizeKind lowercases and trims an event kind so "Message.Sent " routes like "message.sent".
func NormalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

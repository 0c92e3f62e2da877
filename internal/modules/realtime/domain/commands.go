package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength bounds chat content, in characters.
const MaxMessageLength = 2000

var (
	ErrUnknownEventKind = errors.New("unknown event kind")
	ErrInvalidEvent     = errors.New("invalid event")
	ErrInvalidCommand   = errors.New("invalid command")
)

// DomainEvent is the envelope the CRUD API hands over (HTTP or Kafka) after committing
// a change. Which fields are required depends on Kind.
type DomainEvent struct {
	Kind         string               `json:"kind"`
	ActorID      int64                `json:"actorId,omitempty"`
	Message      *ChatMessage         `json:"message,omitempty"`
	Notification *MessageNotification `json:"notification,omitempty"`
	SenderID     int64                `json:"senderId,omitempty"`
	Receipt      *MessageReadReceipt  `json:"receipt,omitempty"`
	OtherUserID  int64                `json:"otherUserId,omitempty"`
	Match        *ItemMatch           `json:"match,omitempty"`
	Recipients   []int64              `json:"recipients,omitempty"`
}

// Validate normalizes Kind and checks the fields the kind needs.
func (e *DomainEvent) Validate() error {
	e.Kind = NormalizeKind(e.Kind)
	switch e.Kind {
	case KindMessageSent:
		if e.Message == nil {
			return fmt.Errorf("%w: %s requires message", ErrInvalidEvent, e.Kind)
		}
		if e.Message.SenderID <= 0 || e.Message.ReceiverID <= 0 {
			return fmt.Errorf("%w: %s requires sender and receiver", ErrInvalidEvent, e.Kind)
		}
		if e.Message.SenderID == e.Message.ReceiverID {
			return fmt.Errorf("%w: sender and receiver are the same user", ErrInvalidEvent)
		}
	case KindMessageRead:
		if e.SenderID <= 0 || e.Receipt == nil || e.Receipt.MessageID <= 0 {
			return fmt.Errorf("%w: %s requires senderId and receipt", ErrInvalidEvent, e.Kind)
		}
	case KindConversationDeleted:
		if e.ActorID <= 0 || e.OtherUserID <= 0 {
			return fmt.Errorf("%w: %s requires actorId and otherUserId", ErrInvalidEvent, e.Kind)
		}
	case KindItemMatchCreated, KindItemMatchDeleted:
		if e.ActorID <= 0 || e.Match == nil || e.Match.ID <= 0 {
			return fmt.Errorf("%w: %s requires actorId and match", ErrInvalidEvent, e.Kind)
		}
	case "":
		return fmt.Errorf("%w: missing kind", ErrUnknownEventKind)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventKind, e.Kind)
	}
	return nil
}

// SendPrivateMessageCommand is the payload of the socket command of the same name.
type SendPrivateMessageCommand struct {
	ReceiverID int64  `json:"receiverId"`
	Content    string `json:"content"`
}

// Validate checks the command on behalf of senderID.
func (c SendPrivateMessageCommand) Validate(senderID int64) error {
	if senderID <= 0 || c.ReceiverID <= 0 {
		return fmt.Errorf("%w: missing sender or receiver", ErrInvalidCommand)
	}
	if senderID == c.ReceiverID {
		return fmt.Errorf("%w: cannot send to yourself", ErrInvalidCommand)
	}
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidCommand)
	}
	if utf8.RuneCountInString(c.Content) > MaxMessageLength {
		return fmt.Errorf("%w: content exceeds %d characters", ErrInvalidCommand, MaxMessageLength)
	}
	return nil
}

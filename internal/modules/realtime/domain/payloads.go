package domain

import "time"

// ChatMessage is the body of ReceiveMessage and MessageSent for persisted messages.
type ChatMessage struct {
	ID         int64      `json:"id"`
	SenderID   int64      `json:"senderId"`
	ReceiverID int64      `json:"receiverId"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"createdAt"`
	IsRead     bool       `json:"isRead"`
	ReadAt     *time.Time `json:"readAt"`
}

// PrivateMessage is an ephemeral message sent over the socket itself; it has no id
// because nothing stores it.
type PrivateMessage struct {
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MessageReadReceipt is the body of MessageRead.
type MessageReadReceipt struct {
	MessageID int64     `json:"messageId"`
	ReadAt    time.Time `json:"readAt"`
}

// ConversationDeletedNotice is the body of ConversationDeleted. OtherUserID is the
// user who deleted the conversation, seen from the recipient's side.
type ConversationDeletedNotice struct {
	OtherUserID int64 `json:"otherUserId"`
}

// Notification is a ReceiveNotification body. WithSuppressAlert returns a copy so one
// value can be fanned out to several recipients with different flags.
type Notification interface {
	NotificationType() string
	WithSuppressAlert(suppress bool) Notification
}

// MessageNotification mirrors the durable notification row created for a new message.
type MessageNotification struct {
	Type          string    `json:"type"`
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	MetaJSON      *string   `json:"metaJson"`
	IsRead        bool      `json:"isRead"`
	CreatedAt     time.Time `json:"createdAt"`
	MessageID     int64     `json:"messageId,omitempty"`
	SuppressAlert bool      `json:"suppressAlert"`
}

func (n MessageNotification) NotificationType() string { return NotificationTypeMessage }

func (n MessageNotification) WithSuppressAlert(suppress bool) Notification {
	n.Type = NotificationTypeMessage
	n.SuppressAlert = suppress
	return n
}

// MatchNotification announces a suggested lost/found pairing.
type MatchNotification struct {
	Type          string `json:"type"`
	ItemMatchID   int64  `json:"itemMatchId"`
	LostItemID    int64  `json:"lostItemId"`
	FoundItemID   int64  `json:"foundItemId"`
	Score         int    `json:"score"`
	SuppressAlert bool   `json:"suppressAlert"`
}

func (n MatchNotification) NotificationType() string { return NotificationTypeItemMatch }

func (n MatchNotification) WithSuppressAlert(suppress bool) Notification {
	n.Type = NotificationTypeItemMatch
	n.SuppressAlert = suppress
	return n
}

// MatchRemovedNotification announces that a match was soft-deleted.
type MatchRemovedNotification struct {
	Type          string `json:"type"`
	ItemMatchID   int64  `json:"itemMatchId"`
	SuppressAlert bool   `json:"suppressAlert"`
}

func (n MatchRemovedNotification) NotificationType() string {
	return NotificationTypeItemMatchDeleted
}

func (n MatchRemovedNotification) WithSuppressAlert(suppress bool) Notification {
	n.Type = NotificationTypeItemMatchDeleted
	n.SuppressAlert = suppress
	return n
}

// ItemMatch carries the match fields the notifications need.
type ItemMatch struct {
	ID          int64 `json:"id"`
	LostItemID  int64 `json:"lostItemId"`
	FoundItemID int64 `json:"foundItemId"`
	Score       int   `json:"score"`
}

var (
	_ Notification = MessageNotification{}
	_ Notification = MatchNotification{}
	_ Notification = MatchRemovedNotification{}
)

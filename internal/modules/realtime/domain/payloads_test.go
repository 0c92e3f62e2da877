package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventVocabulary(t *testing.T) {
	for _, e := range []Event{EventReceiveMessage, EventReceiveNotification, EventMessageSent, EventMessageRead, EventConversationDeleted} {
		assert.True(t, e.Valid(), e)
	}
	assert.False(t, Event("Pong").Valid())
	assert.False(t, Event("Nope").Valid())

	got, ok := ParseEvent(" receivemessage ")
	require.True(t, ok)
	assert.Equal(t, EventReceiveMessage, got)

	_, ok = ParseEvent("pong")
	assert.False(t, ok)
}

func TestChatMessageWireFields(t *testing.T) {
	at := time.Date(2025, time.November, 16, 3, 28, 1, 0, time.UTC)
	raw, err := json.Marshal(ChatMessage{ID: 1, SenderID: 7, ReceiverID: 9, Content: "found your keys", CreatedAt: at})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"id", "senderId", "receiverId", "content", "createdAt", "isRead", "readAt"} {
		assert.Contains(t, fields, key)
	}
	assert.Nil(t, fields["readAt"])
	assert.Len(t, fields, 7)
}

func TestMatchNotificationWireFields(t *testing.T) {
	n := MatchNotification{ItemMatchID: 3, LostItemID: 10, FoundItemID: 11, Score: 0}.WithSuppressAlert(true)
	raw, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"itemmatch","itemMatchId":3,"lostItemId":10,"foundItemId":11,"score":0,"suppressAlert":true}`, string(raw))

	removed, err := json.Marshal(MatchRemovedNotification{ItemMatchID: 3}.WithSuppressAlert(false))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"itemmatch_deleted","itemMatchId":3,"suppressAlert":false}`, string(removed))
}

func TestWithSuppressAlertReturnsCopy(t *testing.T) {
	base := MatchNotification{ItemMatchID: 5}
	flagged := base.WithSuppressAlert(true).(MatchNotification)

	assert.True(t, flagged.SuppressAlert)
	assert.False(t, base.SuppressAlert)
	assert.Equal(t, NotificationTypeItemMatch, flagged.Type)
	assert.Empty(t, base.Type)
}

func TestMessageNotificationCarriesType(t *testing.T) {
	meta := `{"MessageId":4,"FromUserId":7}`
	n := MessageNotification{ID: 2, UserID: 9, Title: "New message", Body: "hi", MetaJSON: &meta, MessageID: 4}
	raw, err := json.Marshal(n.WithSuppressAlert(false))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "message", fields["type"])
	assert.Equal(t, meta, fields["metaJson"])
	assert.Equal(t, false, fields["suppressAlert"])
}

func TestNewFrame(t *testing.T) {
	raw, err := json.Marshal(NewFrame(EventMessageRead, MessageReadReceipt{MessageID: 4, ReadAt: time.Unix(0, 0).UTC()}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":1,"target":"MessageRead","arguments":[{"messageId":4,"readAt":"1970-01-01T00:00:00Z"}]}`, string(raw))

	raw, err = json.Marshal(NewFrame(EventConversationDeleted, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":1,"target":"ConversationDeleted","arguments":[null]}`, string(raw))
}

func TestDomainEventValidate(t *testing.T) {
	cases := map[string]struct {
		event DomainEvent
		want  error
	}{
		"message sent": {
			event: DomainEvent{Kind: " Message.Sent ", Message: &ChatMessage{SenderID: 7, ReceiverID: 9}},
		},
		"message to self": {
			event: DomainEvent{Kind: KindMessageSent, Message: &ChatMessage{SenderID: 7, ReceiverID: 7}},
			want:  ErrInvalidEvent,
		},
		"message missing body": {
			event: DomainEvent{Kind: KindMessageSent},
			want:  ErrInvalidEvent,
		},
		"read receipt": {
			event: DomainEvent{Kind: KindMessageRead, SenderID: 7, Receipt: &MessageReadReceipt{MessageID: 1}},
		},
		"read receipt without message": {
			event: DomainEvent{Kind: KindMessageRead, SenderID: 7},
			want:  ErrInvalidEvent,
		},
		"conversation deleted": {
			event: DomainEvent{Kind: KindConversationDeleted, ActorID: 7, OtherUserID: 9},
		},
		"match created without recipients": {
			event: DomainEvent{Kind: KindItemMatchCreated, ActorID: 7, Match: &ItemMatch{ID: 1}},
		},
		"match deleted without actor": {
			event: DomainEvent{Kind: KindItemMatchDeleted, Match: &ItemMatch{ID: 1}},
			want:  ErrInvalidEvent,
		},
		"empty kind": {
			event: DomainEvent{},
			want:  ErrUnknownEventKind,
		},
		"unknown kind": {
			event: DomainEvent{Kind: "item.created"},
			want:  ErrUnknownEventKind,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.event.Validate()
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDomainEventValidateNormalizesKind(t *testing.T) {
	ev := DomainEvent{Kind: " ItemMatch.Created", ActorID: 1, Match: &ItemMatch{ID: 2}}
	require.NoError(t, ev.Validate())
	assert.Equal(t, KindItemMatchCreated, ev.Kind)
}

func TestSendPrivateMessageCommandValidate(t *testing.T) {
	assert.NoError(t, SendPrivateMessageCommand{ReceiverID: 9, Content: "hello"}.Validate(7))
	assert.ErrorIs(t, SendPrivateMessageCommand{ReceiverID: 7, Content: "hello"}.Validate(7), ErrInvalidCommand)
	assert.ErrorIs(t, SendPrivateMessageCommand{ReceiverID: 9, Content: "   "}.Validate(7), ErrInvalidCommand)
	assert.ErrorIs(t, SendPrivateMessageCommand{ReceiverID: 0, Content: "x"}.Validate(7), ErrInvalidCommand)
	assert.ErrorIs(t, SendPrivateMessageCommand{ReceiverID: 9, Content: "x"}.Validate(0), ErrInvalidCommand)

	long := strings.Repeat("é", MaxMessageLength)
	assert.NoError(t, SendPrivateMessageCommand{ReceiverID: 9, Content: long}.Validate(7))
	assert.ErrorIs(t, SendPrivateMessageCommand{ReceiverID: 9, Content: long + "x"}.Validate(7), ErrInvalidCommand)
}

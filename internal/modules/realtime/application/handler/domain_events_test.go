package handler

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostFoundWs/internal/modules/realtime/application/port"
	"lostFoundWs/internal/modules/realtime/application/usecase"
	"lostFoundWs/internal/modules/realtime/domain"
)

type oneConnPerUser struct{}

func (oneConnPerUser) ConnectionsFor(userID int64) []string {
	return []string{"u" + strconv.FormatInt(userID, 10)}
}

type sent struct {
	connectionID string
	event        domain.Event
	payload      any
}

type capture struct {
	mu   sync.Mutex
	sent []sent
}

func (c *capture) Send(_ context.Context, connectionID string, event domain.Event, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sent{connectionID, event, payload})
	return nil
}

type itemOwners map[int64]int64

func (o itemOwners) ItemOwner(_ context.Context, itemID int64) (int64, error) {
	if owner, ok := o[itemID]; ok {
		return owner, nil
	}
	return 0, port.ErrItemNotFound
}

func newHandlers(t *testing.T) (map[string]func(context.Context, *domain.DomainEvent) error, *capture) {
	t.Helper()
	out := &capture{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := usecase.NewDispatcher(oneConnPerUser{}, out, logger)
	owners := usecase.NewOwnerResolver(itemOwners{20: 1, 21: 2}, time.Minute, logger)
	byKind := make(map[string]func(context.Context, *domain.DomainEvent) error)
	for _, h := range DomainEventHandlers(d, owners) {
		byKind[h.Kind()] = h.Handle
	}
	return byKind, out
}

func TestDomainEventHandlers_CoverEveryKind(t *testing.T) {
	handlers, _ := newHandlers(t)
	for _, kind := range []string{
		domain.KindMessageSent,
		domain.KindMessageRead,
		domain.KindConversationDeleted,
		domain.KindItemMatchCreated,
		domain.KindItemMatchDeleted,
	} {
		assert.Contains(t, handlers, kind)
	}
}

func TestMessageSentHandler(t *testing.T) {
	handlers, out := newHandlers(t)
	evt := &domain.DomainEvent{
		Kind:    domain.KindMessageSent,
		Message: &domain.ChatMessage{ID: 3, SenderID: 1, ReceiverID: 2, Content: "hi"},
	}
	require.NoError(t, handlers[domain.KindMessageSent](context.Background(), evt))

	require.Len(t, out.sent, 2)
	assert.Equal(t, sent{"u2", domain.EventReceiveMessage, *evt.Message}, out.sent[0])
	assert.Equal(t, sent{"u1", domain.EventMessageSent, *evt.Message}, out.sent[1])
}

func TestMessageReadAndConversationDeletedHandlers(t *testing.T) {
	handlers, out := newHandlers(t)
	receipt := domain.MessageReadReceipt{MessageID: 8, ReadAt: time.Date(2025, time.November, 16, 9, 30, 0, 0, time.UTC)}

	require.NoError(t, handlers[domain.KindMessageRead](context.Background(), &domain.DomainEvent{
		Kind: domain.KindMessageRead, SenderID: 4, Receipt: &receipt,
	}))
	require.NoError(t, handlers[domain.KindConversationDeleted](context.Background(), &domain.DomainEvent{
		Kind: domain.KindConversationDeleted, ActorID: 5, OtherUserID: 6,
	}))

	require.Len(t, out.sent, 2)
	assert.Equal(t, sent{"u4", domain.EventMessageRead, receipt}, out.sent[0])
	assert.Equal(t, sent{"u6", domain.EventConversationDeleted, domain.ConversationDeletedNotice{OtherUserID: 5}}, out.sent[1])
}

func TestMatchHandlers(t *testing.T) {
	handlers, out := newHandlers(t)
	match := &domain.ItemMatch{ID: 11, LostItemID: 20, FoundItemID: 21, Score: 87}

	require.NoError(t, handlers[domain.KindItemMatchCreated](context.Background(), &domain.DomainEvent{
		Kind: domain.KindItemMatchCreated, ActorID: 1, Match: match, Recipients: []int64{1, 2},
	}))
	require.NoError(t, handlers[domain.KindItemMatchDeleted](context.Background(), &domain.DomainEvent{
		Kind: domain.KindItemMatchDeleted, ActorID: 2, Match: match, Recipients: []int64{1, 2},
	}))

	require.Len(t, out.sent, 4)
	created := out.sent[0].payload.(domain.MatchNotification)
	assert.Equal(t, "u1", out.sent[0].connectionID)
	assert.True(t, created.SuppressAlert)
	assert.Equal(t, 87, created.Score)
	assert.False(t, out.sent[1].payload.(domain.MatchNotification).SuppressAlert)

	removed := out.sent[3].payload.(domain.MatchRemovedNotification)
	assert.Equal(t, "u2", out.sent[3].connectionID)
	assert.True(t, removed.SuppressAlert)
	assert.Equal(t, int64(11), removed.ItemMatchID)
}

func TestMatchCreatedHandler_ResolvesOwnersWhenRecipientsMissing(t *testing.T) {
	handlers, out := newHandlers(t)
	match := &domain.ItemMatch{ID: 12, LostItemID: 20, FoundItemID: 21, Score: 60}

	require.NoError(t, handlers[domain.KindItemMatchCreated](context.Background(), &domain.DomainEvent{
		Kind: domain.KindItemMatchCreated, ActorID: 2, Match: match,
	}))

	require.Len(t, out.sent, 2)
	assert.Equal(t, "u1", out.sent[0].connectionID)
	assert.False(t, out.sent[0].payload.(domain.MatchNotification).SuppressAlert)
	assert.Equal(t, "u2", out.sent[1].connectionID)
	assert.True(t, out.sent[1].payload.(domain.MatchNotification).SuppressAlert)
}

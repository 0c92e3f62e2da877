package handler

import (
	"context"

	"lostFoundWs/internal/modules/realtime/application/port"
	"lostFoundWs/internal/modules/realtime/application/usecase"
	"lostFoundWs/internal/modules/realtime/domain"
)

// MessageSentHandler pushes a committed chat message to both participants.
type MessageSentHandler struct {
	UseCase *usecase.Dispatcher
}

func (h *MessageSentHandler) Kind() string { return domain.KindMessageSent }

func (h *MessageSentHandler) Handle(ctx context.Context, evt *domain.DomainEvent) error {
	h.UseCase.MessageSent(ctx, *evt.Message, evt.Notification)
	return nil
}

// MessageReadHandler tells the sender that their message was read.
type MessageReadHandler struct {
	UseCase *usecase.Dispatcher
}

func (h *MessageReadHandler) Kind() string { return domain.KindMessageRead }

func (h *MessageReadHandler) Handle(ctx context.Context, evt *domain.DomainEvent) error {
	h.UseCase.MessageRead(ctx, evt.SenderID, *evt.Receipt)
	return nil
}

type ConversationDeletedHandler struct {
	UseCase *usecase.Dispatcher
}

func (h *ConversationDeletedHandler) Kind() string { return domain.KindConversationDeleted }

func (h *ConversationDeletedHandler) Handle(ctx context.Context, evt *domain.DomainEvent) error {
	h.UseCase.ConversationDeleted(ctx, evt.ActorID, evt.OtherUserID)
	return nil
}

// MatchCreatedHandler notifies the owners of both items. Owners is optional and
// only consulted when the event lists no recipients.
type MatchCreatedHandler struct {
	UseCase *usecase.Dispatcher
	Owners  *usecase.OwnerResolver
}

func (h *MatchCreatedHandler) Kind() string { return domain.KindItemMatchCreated }

func (h *MatchCreatedHandler) Handle(ctx context.Context, evt *domain.DomainEvent) error {
	recipients := h.Owners.MatchRecipients(ctx, *evt.Match, evt.Recipients)
	h.UseCase.MatchCreated(ctx, evt.ActorID, *evt.Match, recipients)
	return nil
}

type MatchDeletedHandler struct {
	UseCase *usecase.Dispatcher
	Owners  *usecase.OwnerResolver
}

func (h *MatchDeletedHandler) Kind() string { return domain.KindItemMatchDeleted }

func (h *MatchDeletedHandler) Handle(ctx context.Context, evt *domain.DomainEvent) error {
	recipients := h.Owners.MatchRecipients(ctx, *evt.Match, evt.Recipients)
	h.UseCase.MatchRemoved(ctx, evt.ActorID, evt.Match.ID, recipients)
	return nil
}

// DomainEventHandlers returns one handler per inbound event kind, all backed by d.
// owners may be nil.
func DomainEventHandlers(d *usecase.Dispatcher, owners *usecase.OwnerResolver) []port.EventHandler {
	return []port.EventHandler{
		&MessageSentHandler{UseCase: d},
		&MessageReadHandler{UseCase: d},
		&ConversationDeletedHandler{UseCase: d},
		&MatchCreatedHandler{UseCase: d, Owners: owners},
		&MatchDeletedHandler{UseCase: d, Owners: owners},
	}
}

var (
	_ port.EventHandler = (*MessageSentHandler)(nil)
	_ port.EventHandler = (*MessageReadHandler)(nil)
	_ port.EventHandler = (*ConversationDeletedHandler)(nil)
	_ port.EventHandler = (*MatchCreatedHandler)(nil)
	_ port.EventHandler = (*MatchDeletedHandler)(nil)
)

package usecase

import (
	"context"
	"log/slog"

	"lostFoundWs/internal/modules/realtime/domain"
)

// MessageSent pushes a persisted chat message: ReceiveMessage (and the durable
// notification, when given) to the receiver, MessageSent to the sender's own tabs.
func (d *Dispatcher) MessageSent(ctx context.Context, msg domain.ChatMessage, note *domain.MessageNotification) {
	d.route(ctx, msg.ReceiverID, domain.EventReceiveMessage, msg)
	if note != nil {
		if note.MessageID == 0 {
			note.MessageID = msg.ID
		}
		d.route(ctx, msg.ReceiverID, domain.EventReceiveNotification, note.WithSuppressAlert(false))
	}
	d.route(ctx, msg.SenderID, domain.EventMessageSent, msg)
	d.logger.Info("message pushed", slog.Int64("messageId", msg.ID), slog.Int64("senderId", msg.SenderID), slog.Int64("receiverId", msg.ReceiverID))
}

// PrivateMessage relays an ephemeral socket message. Anonymous senders and messages
// to oneself are dropped.
func (d *Dispatcher) PrivateMessage(ctx context.Context, pm domain.PrivateMessage) {
	if pm.SenderID <= 0 || pm.ReceiverID <= 0 || pm.SenderID == pm.ReceiverID {
		return
	}
	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = d.now().UTC()
	}
	d.route(ctx, pm.ReceiverID, domain.EventReceiveMessage, pm)
	d.route(ctx, pm.SenderID, domain.EventMessageSent, pm)
}

// MessageRead tells the original sender that the receiver read the message. A
// receipt without readAt is stamped now.
func (d *Dispatcher) MessageRead(ctx context.Context, senderID int64, receipt domain.MessageReadReceipt) {
	if receipt.ReadAt.IsZero() {
		receipt.ReadAt = d.now().UTC()
	}
	d.route(ctx, senderID, domain.EventMessageRead, receipt)
}

// ConversationDeleted tells otherUserID that actorID deleted their shared conversation.
func (d *Dispatcher) ConversationDeleted(ctx context.Context, actorID, otherUserID int64) {
	d.route(ctx, otherUserID, domain.EventConversationDeleted, domain.ConversationDeletedNotice{OtherUserID: actorID})
}

// MatchCreated notifies the owners of both matched items; creatorID gets the
// suppressed copy when it owns one of them.
func (d *Dispatcher) MatchCreated(ctx context.Context, creatorID int64, match domain.ItemMatch, ownerIDs []int64) {
	d.Notify(ctx, creatorID, ownerIDs, domain.MatchNotification{
		ItemMatchID: match.ID,
		LostItemID:  match.LostItemID,
		FoundItemID: match.FoundItemID,
		Score:       match.Score,
	})
}

// MatchRemoved notifies the owners of both items that a match was soft-deleted.
func (d *Dispatcher) MatchRemoved(ctx context.Context, deletedByID, matchID int64, ownerIDs []int64) {
	d.Notify(ctx, deletedByID, ownerIDs, domain.MatchRemovedNotification{ItemMatchID: matchID})
}

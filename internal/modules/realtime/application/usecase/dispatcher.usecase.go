package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"lostFoundWs/internal/modules/realtime/application/port"
	"lostFoundWs/internal/modules/realtime/domain"
)

// Dispatcher pushes domain events to the live connections of their recipients.
// Delivery is best effort: no retry, no persistence, errors are logged and dropped.
type Dispatcher struct {
	lookup port.ConnectionLookup
	sender port.EventSender
	relay  port.Relay
	logger *slog.Logger
	now    func() time.Time
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRelay routes every user-addressed push through relay instead of delivering
// locally, so connections held by other instances are reached too.
func WithRelay(relay port.Relay) DispatcherOption {
	return func(d *Dispatcher) { d.relay = relay }
}

// WithClock overrides the time source used to stamp ephemeral messages.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDispatcher(lookup port.ConnectionLookup, sender port.EventSender, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		lookup: lookup,
		sender: sender,
		logger: logger.With(slog.String("component", "dispatcher")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver sends event to every connection userID holds on this instance and returns
// how many sends the transport accepted. A failed send does not stop the others.
func (d *Dispatcher) Deliver(ctx context.Context, userID int64, event domain.Event, payload any) int {
	connections := d.lookup.ConnectionsFor(userID)
	delivered := 0
	for _, connectionID := range connections {
		if err := d.sender.Send(ctx, connectionID, event, payload); err != nil {
			d.logger.Debug("delivery dropped",
				slog.Int64("userId", userID),
				slog.String("connectionId", connectionID),
				slog.String("event", event.String()),
				slog.Any("error", err))
			continue
		}
		delivered++
	}
	return delivered
}

// DeliverRelayed is the relay subscriber's entry point.
func (d *Dispatcher) DeliverRelayed(ctx context.Context, delivery domain.Delivery) {
	d.Deliver(ctx, delivery.UserID, delivery.Event, delivery.Payload)
}

// Dispatch sends the same payload to each distinct recipient.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []int64, event domain.Event, payload any) {
	targets := distinctRecipients(recipients)
	for _, userID := range targets {
		d.route(ctx, userID, event, payload)
	}
	d.logger.Debug("event dispatched", slog.String("event", event.String()), slog.Int("recipients", len(targets)))
}

// Notify sends n as ReceiveNotification to each distinct recipient. The copy sent to
// actorID carries suppressAlert=true so the originating client can skip the echo;
// the actor's other tabs still receive it.
func (d *Dispatcher) Notify(ctx context.Context, actorID int64, recipients []int64, n domain.Notification) {
	if n == nil {
		return
	}
	targets := distinctRecipients(recipients)
	for _, userID := range targets {
		d.route(ctx, userID, domain.EventReceiveNotification, n.WithSuppressAlert(userID == actorID))
	}
	d.logger.Info("notification dispatched",
		slog.String("type", n.NotificationType()),
		slog.Int64("actorId", actorID),
		slog.Int("recipients", len(targets)))
}

func (d *Dispatcher) route(ctx context.Context, userID int64, event domain.Event, payload any) {
	if userID <= 0 {
		return
	}
	if d.relay == nil {
		d.Deliver(ctx, userID, event, payload)
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("payload encode failed", slog.String("event", event.String()), slog.Any("error", err))
		return
	}
	delivery := domain.Delivery{UserID: userID, Event: event, Payload: raw}
	if err := d.relay.Publish(context.WithoutCancel(ctx), delivery); err != nil {
		d.logger.Warn("relay publish failed, delivering locally",
			slog.Int64("userId", userID),
			slog.String("event", event.String()),
			slog.Any("error", err))
		d.Deliver(ctx, userID, event, json.RawMessage(raw))
	}
}

func distinctRecipients(recipients []int64) []int64 {
	out := make([]int64, 0, len(recipients))
	seen := make(map[int64]struct{}, len(recipients))
	for _, id := range recipients {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

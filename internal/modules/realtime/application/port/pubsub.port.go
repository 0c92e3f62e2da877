package port

import (
	"context"

	"lostFoundWs/internal/modules/realtime/domain"
)

// EventSender is the push transport: it delivers a named event to one live connection.
// Implementations must not block on slow connections.
type EventSender interface {
	Send(ctx context.Context, connectionID string, event domain.Event, payload any) error
}

// ConnectionLookup resolves the live connections of a user. The result is a copy.
type ConnectionLookup interface {
	ConnectionsFor(userID int64) []string
}

// Relay fans deliveries out to every instance, each of which delivers to its own
// connections.
type Relay interface {
	Publish(ctx context.Context, delivery domain.Delivery) error
}

// EventConsumer reads domain events from an external stream (Kafka).
type EventConsumer interface {
	Consume(ctx context.Context, handler func(context.Context, *domain.DomainEvent) error) error
}

// EventHandler reacts to one kind of domain event.
type EventHandler interface {
	Kind() string
	Handle(ctx context.Context, event *domain.DomainEvent) error
}

package infrastructure

import (
	"context"
	"fmt"
	"slices"

	"lostFoundWs/internal/modules/realtime/application/port"
	"lostFoundWs/internal/modules/realtime/domain"
)

// HandlerRegistry routes validated domain events to the handler for their kind.
type HandlerRegistry struct {
	handlers map[string]port.EventHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]port.EventHandler)}
}

func (r *HandlerRegistry) Register(h port.EventHandler) {
	r.handlers[domain.NormalizeKind(h.Kind())] = h
}

// Kinds lists the registered event kinds in sorted order.
func (r *HandlerRegistry) Kinds() []string {
	kinds := make([]string, 0, len(r.handlers))
	for kind := range r.handlers {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

// Dispatch validates evt and hands it to its handler.
func (r *HandlerRegistry) Dispatch(ctx context.Context, evt *domain.DomainEvent) error {
	if evt == nil {
		return domain.ErrInvalidEvent
	}
	if err := evt.Validate(); err != nil {
		return err
	}
	handler, ok := r.handlers[evt.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEventKind, evt.Kind)
	}
	return handler.Handle(ctx, evt)
}

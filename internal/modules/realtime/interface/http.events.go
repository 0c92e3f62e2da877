package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"lostFoundWs/internal/modules/realtime/domain"
	"lostFoundWs/internal/shared/httputil"
)

// EventRouter routes a validated domain event to its handler.
type EventRouter interface {
	Dispatch(ctx context.Context, evt *domain.DomainEvent) error
}

type EventAcceptedResponse struct {
	Accepted bool   `json:"accepted"`
	Kind     string `json:"kind"`
}

var eventErrors = httputil.NewErrorMapper().
	WithMapping(domain.ErrUnknownEventKind, http.StatusBadRequest, "unknown event kind").
	WithMapping(domain.ErrInvalidEvent, http.StatusBadRequest, "invalid event")

// NewDomainEventHTTPHandler accepts domain events from the CRUD API after it has
// committed the change they describe. Pushes are best effort, so a 202 says the event
// was routed, not that anyone received it.
func NewDomainEventHTTPHandler(router EventRouter) echo.HandlerFunc {
	return func(c echo.Context) error {
		var evt domain.DomainEvent
		if err := c.Bind(&evt); err != nil {
			slog.Warn("events http: invalid request body", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if err := router.Dispatch(c.Request().Context(), &evt); err != nil {
			slog.Warn("events http: event rejected", slog.String("kind", evt.Kind), slog.Any("error", err))
			return eventErrors.HTTPError(err)
		}
		slog.Debug("events http: event accepted", slog.String("kind", evt.Kind))
		return c.JSON(http.StatusAccepted, EventAcceptedResponse{Accepted: true, Kind: evt.Kind})
	}
}

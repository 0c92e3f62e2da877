package transport

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"lostFoundWs/internal/modules/realtime/infrastructure"
	"lostFoundWs/internal/shared/auth"
	"lostFoundWs/internal/shared/httputil"
)

// WebsocketOptions configures the socket endpoint.
type WebsocketOptions struct {
	Client infrastructure.ClientConfig
	// AllowedOrigins lists browser origins allowed to connect; "*" allows any.
	// Requests without an Origin header (non-browser clients) are always allowed.
	AllowedOrigins []string
}

var authErrors = httputil.NewErrorMapper().
	WithMapping(auth.ErrMissingToken, http.StatusUnauthorized, "missing token").
	WithMapping(auth.ErrInvalidToken, http.StatusUnauthorized, "invalid token").
	WithMapping(auth.ErrInvalidSubject, http.StatusUnauthorized, "invalid token")

func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = normalizeOrigin(origin); origin != "" {
			allowed[origin] = struct{}{}
		}
	}
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(allowed, r.Header.Get("Origin"))
		},
	}
}

func originAllowed(allowed map[string]struct{}, origin string) bool {
	origin = normalizeOrigin(origin)
	if origin == "" {
		return true
	}
	if _, ok := allowed["*"]; ok {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

func normalizeOrigin(origin string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
}

// NegotiateResponse tells a hub client which transports this endpoint offers. Only
// WebSockets with text frames is served.
type NegotiateResponse struct {
	NegotiateVersion    int                  `json:"negotiateVersion"`
	ConnectionID        string               `json:"connectionId"`
	ConnectionToken     string               `json:"connectionToken"`
	AvailableTransports []AvailableTransport `json:"availableTransports"`
}

type AvailableTransport struct {
	Transport       string   `json:"transport"`
	TransferFormats []string `json:"transferFormats"`
}

// authenticate resolves the user id of a socket or negotiate request.
func authenticate(c echo.Context, validator auth.TokenValidator) (int64, error) {
	claims, err := validator.Validate(auth.ExtractToken(c.Request()))
	if err != nil {
		slog.Warn("ws auth failed", slog.String("ip", c.RealIP()), slog.Any("error", err))
		return 0, authErrors.HTTPError(err)
	}
	userID, err := claims.UserID()
	if err != nil {
		slog.Warn("ws token without user id", slog.String("ip", c.RealIP()), slog.Any("error", err))
		return 0, authErrors.HTTPError(err)
	}
	return userID, nil
}

// NewNegotiateHandler answers the hub client's negotiate call that precedes the
// socket. The ids it hands out are informational: the socket gets its own.
func NewNegotiateHandler(validator auth.TokenValidator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := authenticate(c, validator); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, NegotiateResponse{
			NegotiateVersion: 1,
			ConnectionID:     uuid.NewString(),
			ConnectionToken:  uuid.NewString(),
			AvailableTransports: []AvailableTransport{
				{Transport: "WebSockets", TransferFormats: []string{"Text"}},
			},
		})
	}
}

// NewWebsocketHandler authenticates the request before upgrading it. The client is
// attached to hub under the token's user id once its hub handshake completes.
func NewWebsocketHandler(
	hub *infrastructure.Hub,
	commands *infrastructure.CommandProcessor,
	validator auth.TokenValidator,
	opts WebsocketOptions,
) echo.HandlerFunc {
	upgrader := newUpgrader(opts.AllowedOrigins)

	return func(c echo.Context) error {
		userID, err := authenticate(c, validator)
		if err != nil {
			return err
		}
		peerIP := c.RealIP()

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// the upgrader has already written the error response
			slog.Warn("ws handler upgrade failed", slog.Int64("userId", userID), slog.String("ip", peerIP), slog.Any("error", err))
			return nil
		}

		client := infrastructure.NewClient(hub, conn, uuid.NewString(), userID, opts.Client, commands)
		go client.Serve()

		slog.Info("ws connected",
			slog.Int64("userId", userID),
			slog.String("connectionId", client.ID()),
			slog.String("ip", peerIP),
			slog.String("reqID", c.Response().Header().Get(echo.HeaderXRequestID)))
		return nil
	}
}

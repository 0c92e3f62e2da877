package transport

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// InternalKeyHeader carries the shared secret of service-to-service calls.
const InternalKeyHeader = "X-Internal-Key"

// RequireInternalKey rejects requests whose X-Internal-Key does not match key. An
// empty key disables the check.
func RequireInternalKey(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if key == "" {
			return next
		}
		return func(c echo.Context) error {
			got := c.Request().Header.Get(InternalKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid internal key")
			}
			return next(c)
		}
	}
}

// ConnectionStats is what the stats endpoint reports on.
type ConnectionStats interface {
	UserCount() int
	ConnectionCount() int
}

type ConnectionStatsResponse struct {
	Users                int `json:"users"`
	Connections          int `json:"connections"`
	TransportConnections int `json:"transportConnections"`
}

// NewConnectionStatsHandler reports registry and transport counts. The two differ
// briefly while a connection is attaching or detaching.
func NewConnectionStatsHandler(registry ConnectionStats, transport interface{ ConnectionCount() int }) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, ConnectionStatsResponse{
			Users:                registry.UserCount(),
			Connections:          registry.ConnectionCount(),
			TransportConnections: transport.ConnectionCount(),
		})
	}
}

func healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

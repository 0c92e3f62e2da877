package transport

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DefaultInternalBodyLimit caps /internal request bodies when Routes leaves it unset.
const DefaultInternalBodyLimit = "256K"

// Routes groups the handlers mounted on the echo server.
type Routes struct {
	WSPath      string
	Websocket   echo.HandlerFunc
	Negotiate   echo.HandlerFunc
	Events      echo.HandlerFunc
	Stats       echo.HandlerFunc
	InternalKey string
	// BodyLimit uses echo's size notation ("256K", "1M").
	BodyLimit string
}

func RegisterRoutes(e *echo.Echo, r Routes) {
	e.GET("/healthz", healthHandler)
	path := r.WSPath
	if path == "" {
		path = "/hubs/messages"
	}
	if r.Websocket != nil {
		e.GET(path, r.Websocket)
	}
	if r.Negotiate != nil {
		e.POST(path+"/negotiate", r.Negotiate)
	}

	limit := r.BodyLimit
	if limit == "" {
		limit = DefaultInternalBodyLimit
	}
	internal := e.Group("/internal", middleware.BodyLimit(limit), RequireInternalKey(r.InternalKey))
	if r.Events != nil {
		internal.POST("/events", r.Events)
	}
	if r.Stats != nil {
		internal.GET("/connections", r.Stats)
	}
}

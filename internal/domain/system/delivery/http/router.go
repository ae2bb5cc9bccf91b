package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers system HTTP routes
type Router struct {
	handler *SystemHandler
	logger  zerolog.Logger
}

// NewRouter creates a new system router
func NewRouter(handler *SystemHandler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers system routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.GET("/health", r.handler.Health)
	rt.GET("/api/v1/system/status", r.handler.Status)

	r.logger.Info().Msg("system routes registered")
}

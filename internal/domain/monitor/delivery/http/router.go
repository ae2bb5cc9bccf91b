package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers monitoring control HTTP routes
type Router struct {
	handler *MonitorHandler
	logger  zerolog.Logger
}

// NewRouter creates a new monitoring router
func NewRouter(handler *MonitorHandler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers monitoring routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.POST("/api/v1/accounts/{account_id}/monitoring/start", r.handler.Start)
	rt.POST("/api/v1/accounts/{account_id}/monitoring/stop", r.handler.Stop)
	rt.GET("/api/v1/accounts/{account_id}/monitoring/status", r.handler.Status)

	r.logger.Info().Msg("monitoring routes registered")
}

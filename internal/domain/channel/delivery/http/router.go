package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers channel HTTP routes
type Router struct {
	handler *ChannelHandler
	logger  zerolog.Logger
}

// NewRouter creates a new channel router
func NewRouter(handler *ChannelHandler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers channel routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.POST("/api/v1/accounts/{account_id}/channels", r.handler.Join)
	rt.POST("/api/v1/accounts/{account_id}/channels/batch", r.handler.BatchJoin)
	rt.GET("/api/v1/accounts/{account_id}/channels", r.handler.List)

	rt.GET("/api/v1/channels/{channel_id}", r.handler.Get)
	rt.DELETE("/api/v1/channels/{channel_id}", r.handler.Delete)
	rt.POST("/api/v1/channels/{channel_id}/monitoring", r.handler.SetMonitoring)
	rt.GET("/api/v1/channels/{channel_id}/stats", r.handler.Stats)

	r.logger.Info().Msg("channel routes registered")
}

package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers message HTTP routes
type Router struct {
	handler *MessageHandler
	logger  zerolog.Logger
}

// NewRouter creates a new message router
func NewRouter(handler *MessageHandler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers message routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.GET("/api/v1/channels/{channel_id}/messages", r.handler.ListByChannel)
	rt.GET("/api/v1/accounts/{account_id}/messages", r.handler.ListByAccount)
	rt.GET("/api/v1/accounts/{account_id}/messages/stats", r.handler.Stats)
	rt.GET("/api/v1/messages/{message_id}", r.handler.Get)
	rt.DELETE("/api/v1/messages/{message_id}", r.handler.Delete)

	r.logger.Info().Msg("message routes registered")
}

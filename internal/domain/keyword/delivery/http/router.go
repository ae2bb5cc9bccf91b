package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers keyword HTTP routes
type Router struct {
	handler *KeywordHandler
	logger  zerolog.Logger
}

// NewRouter creates a new keyword router
func NewRouter(handler *KeywordHandler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers keyword routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.POST("/api/v1/channels/{channel_id}/keywords", r.handler.Add)
	rt.GET("/api/v1/channels/{channel_id}/keywords", r.handler.List)
	rt.DELETE("/api/v1/keywords/{keyword_id}", r.handler.Delete)
	rt.PATCH("/api/v1/keywords/{keyword_id}/toggle", r.handler.Toggle)

	r.logger.Info().Msg("keyword routes registered")
}

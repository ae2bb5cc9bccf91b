package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers account HTTP routes
type Router struct {
	handler *AccountHandler
	logger  zerolog.Logger
}

// NewRouter creates a new account router
func NewRouter(handler *AccountHandler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers account routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.POST("/api/v1/auth/code", r.handler.SendCode)
	rt.POST("/api/v1/auth/verify", r.handler.VerifyCode)
	rt.POST("/api/v1/auth/password", r.handler.SubmitPassword)
	rt.POST("/api/v1/auth/logout", r.handler.Logout)

	rt.GET("/api/v1/accounts", r.handler.List)
	rt.GET("/api/v1/accounts/{account_id}", r.handler.Get)
	rt.PATCH("/api/v1/accounts/{account_id}/active", r.handler.SetActive)

	r.logger.Info().Msg("account routes registered")
}

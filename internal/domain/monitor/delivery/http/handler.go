package http

import (
	"errors"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/supersunho/senseinfo/internal/domain"
	"github.com/supersunho/senseinfo/internal/domain/monitor/dto"
	monitorerrors "github.com/supersunho/senseinfo/internal/domain/monitor/errors"
	"github.com/supersunho/senseinfo/internal/domain/monitor/usecase/business"
	"github.com/supersunho/senseinfo/pkg/httputil"
)

// MonitorHandler handles monitoring control HTTP requests
type MonitorHandler struct {
	registry *business.Registry
	limiter  domain.RateLimiter
	logger   zerolog.Logger
}

// NewMonitorHandler creates a new monitoring control handler
func NewMonitorHandler(registry *business.Registry, limiter domain.RateLimiter, logger zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		registry: registry,
		limiter:  limiter,
		logger:   logger.With().Str("handler", "monitor").Logger(),
	}
}

// Start handles POST /api/v1/accounts/{account_id}/monitoring/start
func (h *MonitorHandler) Start(ctx *fasthttp.RequestCtx) {
	accountID, ok := parseAccountID(ctx)
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid account_id", fasthttp.StatusBadRequest)
		return
	}

	proc, err := h.registry.StartFor(ctx, accountID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.MonitoringControlResponse{
		AccountID: accountID,
		State:     string(proc.State()),
	})
}

// Stop handles POST /api/v1/accounts/{account_id}/monitoring/stop
func (h *MonitorHandler) Stop(ctx *fasthttp.RequestCtx) {
	accountID, ok := parseAccountID(ctx)
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid account_id", fasthttp.StatusBadRequest)
		return
	}

	if err := h.registry.StopFor(ctx, accountID); err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.MonitoringControlResponse{
		AccountID: accountID,
		State:     string(business.StateStopped),
	})
}

// Status handles GET /api/v1/accounts/{account_id}/monitoring/status
func (h *MonitorHandler) Status(ctx *fasthttp.RequestCtx) {
	accountID, ok := parseAccountID(ctx)
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid account_id", fasthttp.StatusBadRequest)
		return
	}

	resp := dto.MonitoringStatusResponse{
		AccountID:          accountID,
		State:              string(business.StateStopped),
		RateLimitRemaining: h.limiter.Remaining(accountID),
	}

	if proc := h.registry.Get(accountID); proc != nil {
		resp.State = string(proc.State())
		for _, w := range proc.Watches() {
			resp.Channels = append(resp.Channels, dto.ChannelWatchInfo{
				ChannelID:  w.ChannelID,
				Username:   w.Username,
				Inclusions: w.Inclusions,
				Exclusions: w.Exclusions,
			})
		}
	}

	httputil.WriteResponse(ctx, resp)
}

// handleError maps domain errors to HTTP status codes
func (h *MonitorHandler) handleError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		httputil.WriteErrorResponse(ctx, "account is not authenticated", fasthttp.StatusUnauthorized)
	case errors.Is(err, domain.ErrConnectionUnavailable), errors.Is(err, domain.ErrUpstreamThrottled):
		httputil.WriteErrorResponse(ctx, "platform unavailable", fasthttp.StatusServiceUnavailable)
	case errors.Is(err, monitorerrors.ErrStartInProgress):
		httputil.WriteErrorResponse(ctx, "processor transition already in progress", fasthttp.StatusConflict)
	default:
		h.logger.Error().Err(err).Msg("unexpected error")
		httputil.WriteErrorResponse(ctx, "internal server error", fasthttp.StatusInternalServerError)
	}
}

// parseAccountID extracts the account_id path parameter
func parseAccountID(ctx *fasthttp.RequestCtx) (uint, bool) {
	raw, ok := ctx.UserValue("account_id").(string)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

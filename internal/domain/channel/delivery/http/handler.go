package http

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/supersunho/senseinfo/internal/domain"
	"github.com/supersunho/senseinfo/internal/domain/channel/dto"
	channelerrors "github.com/supersunho/senseinfo/internal/domain/channel/errors"
	"github.com/supersunho/senseinfo/internal/domain/channel/usecase/business"
	pkgerrors "github.com/supersunho/senseinfo/pkg/errors"
	"github.com/supersunho/senseinfo/pkg/httputil"
)

// ChannelHandler handles monitored channel HTTP requests
type ChannelHandler struct {
	useCase *business.ChannelUseCase
	mapper  *pkgerrors.Mapper
	logger  zerolog.Logger
}

// NewChannelHandler creates a new channel handler
func NewChannelHandler(useCase *business.ChannelUseCase, mapper *pkgerrors.Mapper, logger zerolog.Logger) *ChannelHandler {
	return &ChannelHandler{
		useCase: useCase,
		mapper:  mapper,
		logger:  logger.With().Str("handler", "channel").Logger(),
	}
}

// Join handles POST /api/v1/accounts/{account_id}/channels
func (h *ChannelHandler) Join(ctx *fasthttp.RequestCtx) {
	accountID, ok := parsePathID(ctx, "account_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid account_id", fasthttp.StatusBadRequest)
		return
	}

	var req dto.JoinChannelRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		httputil.WriteErrorResponse(ctx, "invalid request body", fasthttp.StatusBadRequest)
		return
	}

	channel, err := h.useCase.Join(ctx, accountID, req.Username)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponseWithStatus(ctx, dto.ToChannelResponse(channel), fasthttp.StatusCreated)
}

// BatchJoin handles POST /api/v1/accounts/{account_id}/channels/batch
func (h *ChannelHandler) BatchJoin(ctx *fasthttp.RequestCtx) {
	accountID, ok := parsePathID(ctx, "account_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid account_id", fasthttp.StatusBadRequest)
		return
	}

	var req dto.BatchJoinRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || len(req.Usernames) == 0 {
		httputil.WriteErrorResponse(ctx, "usernames are required", fasthttp.StatusBadRequest)
		return
	}

	results := h.useCase.BatchJoin(ctx, accountID, req.Usernames)
	httputil.WriteResponse(ctx, results)
}

// List handles GET /api/v1/accounts/{account_id}/channels
func (h *ChannelHandler) List(ctx *fasthttp.RequestCtx) {
	accountID, ok := parsePathID(ctx, "account_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid account_id", fasthttp.StatusBadRequest)
		return
	}

	limit := queryInt(ctx, "limit", 20)
	offset := queryInt(ctx, "offset", 0)

	channels, total, err := h.useCase.List(ctx, accountID, limit, offset)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.ChannelListResponse{
		Channels: dto.ToChannelResponses(channels),
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// Get handles GET /api/v1/channels/{channel_id}
func (h *ChannelHandler) Get(ctx *fasthttp.RequestCtx) {
	channelID, ok := parsePathID(ctx, "channel_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid channel_id", fasthttp.StatusBadRequest)
		return
	}

	channel, err := h.useCase.Get(ctx, channelID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.ToChannelResponse(channel))
}

// Delete handles DELETE /api/v1/channels/{channel_id}
func (h *ChannelHandler) Delete(ctx *fasthttp.RequestCtx) {
	channelID, ok := parsePathID(ctx, "channel_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid channel_id", fasthttp.StatusBadRequest)
		return
	}

	if err := h.useCase.Delete(ctx, channelID); err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, map[string]interface{}{
		"channel_id": channelID,
		"deleted":    true,
	})
}

// SetMonitoring handles POST /api/v1/channels/{channel_id}/monitoring
func (h *ChannelHandler) SetMonitoring(ctx *fasthttp.RequestCtx) {
	channelID, ok := parsePathID(ctx, "channel_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid channel_id", fasthttp.StatusBadRequest)
		return
	}

	var req dto.SetMonitoringRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		httputil.WriteErrorResponse(ctx, "invalid request body", fasthttp.StatusBadRequest)
		return
	}

	channel, err := h.useCase.SetMonitoring(ctx, channelID, req.Enabled)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.ToChannelResponse(channel))
}

// Stats handles GET /api/v1/channels/{channel_id}/stats
func (h *ChannelHandler) Stats(ctx *fasthttp.RequestCtx) {
	channelID, ok := parsePathID(ctx, "channel_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid channel_id", fasthttp.StatusBadRequest)
		return
	}

	days := queryInt(ctx, "days", 7)

	stats, err := h.useCase.Stats(ctx, channelID, days)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, stats)
}

// handleError maps domain errors to HTTP status codes
func (h *ChannelHandler) handleError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, channelerrors.ErrChannelNotFound):
		httputil.WriteErrorResponse(ctx, "channel not found", fasthttp.StatusNotFound)
	case errors.Is(err, channelerrors.ErrChannelExists):
		httputil.WriteErrorResponse(ctx, "channel already monitored", fasthttp.StatusConflict)
	case errors.Is(err, channelerrors.ErrChannelLimitExceeded):
		httputil.WriteErrorResponse(ctx, "channel limit reached", fasthttp.StatusConflict)
	case errors.Is(err, channelerrors.ErrChannelInactive):
		httputil.WriteErrorResponse(ctx, "channel is deactivated", fasthttp.StatusConflict)
	case errors.Is(err, channelerrors.ErrUsernameInvalid):
		httputil.WriteErrorResponse(ctx, "channel username is invalid", fasthttp.StatusBadRequest)
	case errors.Is(err, domain.ErrChannelUnavailable):
		httputil.WriteErrorResponse(ctx, "channel not found or not joinable", fasthttp.StatusNotFound)
	case errors.Is(err, domain.ErrNotAuthenticated):
		httputil.WriteErrorResponse(ctx, "account is not authenticated", fasthttp.StatusUnauthorized)
	case errors.Is(err, domain.ErrConnectionUnavailable), errors.Is(err, domain.ErrUpstreamThrottled):
		httputil.WriteErrorResponse(ctx, "platform unavailable", fasthttp.StatusServiceUnavailable)
	default:
		status, message := h.mapper.MapErrorToHTTP(err)
		httputil.WriteErrorResponse(ctx, message, status)
	}
}

// parsePathID extracts a positive integer path parameter
func parsePathID(ctx *fasthttp.RequestCtx, name string) (uint, bool) {
	raw, ok := ctx.UserValue(name).(string)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// queryInt reads an integer query argument with a default
func queryInt(ctx *fasthttp.RequestCtx, name string, def int) int {
	raw := string(ctx.QueryArgs().Peek(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

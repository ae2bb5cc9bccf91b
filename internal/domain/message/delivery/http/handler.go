package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/supersunho/senseinfo/internal/domain/message/deps"
	"github.com/supersunho/senseinfo/internal/domain/message/dto"
	messageerrors "github.com/supersunho/senseinfo/internal/domain/message/errors"
	"github.com/supersunho/senseinfo/internal/domain/message/usecase/business"
	pkgerrors "github.com/supersunho/senseinfo/pkg/errors"
	"github.com/supersunho/senseinfo/pkg/httputil"
)

// MessageHandler handles captured message HTTP requests
type MessageHandler struct {
	useCase *business.MessageUseCase
	mapper  *pkgerrors.Mapper
	logger  zerolog.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(useCase *business.MessageUseCase, mapper *pkgerrors.Mapper, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		useCase: useCase,
		mapper:  mapper,
		logger:  logger.With().Str("handler", "message").Logger(),
	}
}

// ListByChannel handles GET /api/v1/channels/{channel_id}/messages
func (h *MessageHandler) ListByChannel(ctx *fasthttp.RequestCtx) {
	channelID, ok := parsePathID(ctx, "channel_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid channel_id", fasthttp.StatusBadRequest)
		return
	}

	filter, ok := parseListFilter(ctx)
	if !ok {
		return
	}
	filter.ChannelID = channelID

	h.list(ctx, filter)
}

// ListByAccount handles GET /api/v1/accounts/{account_id}/messages
func (h *MessageHandler) ListByAccount(ctx *fasthttp.RequestCtx) {
	accountID, ok := parsePathID(ctx, "account_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid account_id", fasthttp.StatusBadRequest)
		return
	}

	filter, ok := parseListFilter(ctx)
	if !ok {
		return
	}
	filter.AccountID = accountID

	h.list(ctx, filter)
}

func (h *MessageHandler) list(ctx *fasthttp.RequestCtx, filter deps.ListFilter) {
	messages, total, err := h.useCase.List(ctx, filter)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.MessageListResponse{
		Messages: dto.ToMessageResponses(messages),
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// Get handles GET /api/v1/messages/{message_id}
func (h *MessageHandler) Get(ctx *fasthttp.RequestCtx) {
	messageID, ok := parsePathID(ctx, "message_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid message_id", fasthttp.StatusBadRequest)
		return
	}

	message, err := h.useCase.Get(ctx, messageID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.ToMessageResponse(message))
}

// Delete handles DELETE /api/v1/messages/{message_id}
func (h *MessageHandler) Delete(ctx *fasthttp.RequestCtx) {
	messageID, ok := parsePathID(ctx, "message_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid message_id", fasthttp.StatusBadRequest)
		return
	}

	if err := h.useCase.Delete(ctx, messageID); err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, map[string]interface{}{
		"message_id": messageID,
		"deleted":    true,
	})
}

// Stats handles GET /api/v1/accounts/{account_id}/messages/stats
func (h *MessageHandler) Stats(ctx *fasthttp.RequestCtx) {
	accountID, ok := parsePathID(ctx, "account_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid account_id", fasthttp.StatusBadRequest)
		return
	}

	days := queryInt(ctx, "days", 0)

	days, stats, err := h.useCase.Stats(ctx, accountID, days)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.ToMessageStatsResponse(accountID, days, stats))
}

// handleError maps domain errors to HTTP status codes
func (h *MessageHandler) handleError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, messageerrors.ErrMessageNotFound):
		httputil.WriteErrorResponse(ctx, "message not found", fasthttp.StatusNotFound)
	case errors.Is(err, messageerrors.ErrChannelNotFound):
		httputil.WriteErrorResponse(ctx, "channel not found", fasthttp.StatusNotFound)
	case errors.Is(err, messageerrors.ErrAccountNotFound):
		httputil.WriteErrorResponse(ctx, "account not found", fasthttp.StatusNotFound)
	default:
		status, message := h.mapper.MapErrorToHTTP(err)
		httputil.WriteErrorResponse(ctx, message, status)
	}
}

// parseListFilter reads the shared listing query arguments. A false
// return means an error response was already written.
func parseListFilter(ctx *fasthttp.RequestCtx) (deps.ListFilter, bool) {
	filter := deps.ListFilter{
		Keyword: string(ctx.QueryArgs().Peek("keyword")),
		Limit:   queryInt(ctx, "limit", 0),
		Offset:  queryInt(ctx, "offset", 0),
	}

	for name, dst := range map[string]**time.Time{
		"from": &filter.From,
		"to":   &filter.To,
	} {
		raw := string(ctx.QueryArgs().Peek(name))
		if raw == "" {
			continue
		}
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteErrorResponse(ctx, "invalid "+name+" timestamp, expected RFC3339", fasthttp.StatusBadRequest)
			return deps.ListFilter{}, false
		}
		*dst = &at
	}

	if raw := string(ctx.QueryArgs().Peek("forwarded")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteErrorResponse(ctx, "invalid forwarded flag", fasthttp.StatusBadRequest)
			return deps.ListFilter{}, false
		}
		filter.Forwarded = &v
	}

	return filter, true
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

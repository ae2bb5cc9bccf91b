package http

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/supersunho/senseinfo/internal/domain/keyword/dto"
	keyworderrors "github.com/supersunho/senseinfo/internal/domain/keyword/errors"
	"github.com/supersunho/senseinfo/internal/domain/keyword/usecase/business"
	pkgerrors "github.com/supersunho/senseinfo/pkg/errors"
	"github.com/supersunho/senseinfo/pkg/httputil"
)

// KeywordHandler handles keyword rule HTTP requests
type KeywordHandler struct {
	useCase *business.KeywordUseCase
	mapper  *pkgerrors.Mapper
	logger  zerolog.Logger
}

// NewKeywordHandler creates a new keyword handler
func NewKeywordHandler(useCase *business.KeywordUseCase, mapper *pkgerrors.Mapper, logger zerolog.Logger) *KeywordHandler {
	return &KeywordHandler{
		useCase: useCase,
		mapper:  mapper,
		logger:  logger.With().Str("handler", "keyword").Logger(),
	}
}

// Add handles POST /api/v1/channels/{channel_id}/keywords
func (h *KeywordHandler) Add(ctx *fasthttp.RequestCtx) {
	channelID, ok := parsePathID(ctx, "channel_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid channel_id", fasthttp.StatusBadRequest)
		return
	}

	var req dto.AddKeywordRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		httputil.WriteErrorResponse(ctx, "invalid request body", fasthttp.StatusBadRequest)
		return
	}

	// Rules are inclusive unless stated otherwise.
	isInclusion := true
	if req.IsInclusion != nil {
		isInclusion = *req.IsInclusion
	}

	rule, err := h.useCase.Add(ctx, channelID, req.Word, isInclusion)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponseWithStatus(ctx, dto.ToKeywordResponse(rule), fasthttp.StatusCreated)
}

// List handles GET /api/v1/channels/{channel_id}/keywords
func (h *KeywordHandler) List(ctx *fasthttp.RequestCtx) {
	channelID, ok := parsePathID(ctx, "channel_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid channel_id", fasthttp.StatusBadRequest)
		return
	}

	rules, err := h.useCase.List(ctx, channelID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.ToKeywordResponses(rules))
}

// Delete handles DELETE /api/v1/keywords/{keyword_id}
func (h *KeywordHandler) Delete(ctx *fasthttp.RequestCtx) {
	keywordID, ok := parsePathID(ctx, "keyword_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid keyword_id", fasthttp.StatusBadRequest)
		return
	}

	if err := h.useCase.Delete(ctx, keywordID); err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, map[string]interface{}{
		"keyword_id": keywordID,
		"deleted":    true,
	})
}

// Toggle handles PATCH /api/v1/keywords/{keyword_id}/toggle
func (h *KeywordHandler) Toggle(ctx *fasthttp.RequestCtx) {
	keywordID, ok := parsePathID(ctx, "keyword_id")
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid keyword_id", fasthttp.StatusBadRequest)
		return
	}

	rule, err := h.useCase.Toggle(ctx, keywordID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.ToKeywordResponse(rule))
}

// handleError maps domain errors to HTTP status codes
func (h *KeywordHandler) handleError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, keyworderrors.ErrKeywordNotFound):
		httputil.WriteErrorResponse(ctx, "keyword not found", fasthttp.StatusNotFound)
	case errors.Is(err, keyworderrors.ErrChannelNotFound):
		httputil.WriteErrorResponse(ctx, "channel not found", fasthttp.StatusNotFound)
	case errors.Is(err, keyworderrors.ErrKeywordExists):
		httputil.WriteErrorResponse(ctx, "keyword already exists", fasthttp.StatusConflict)
	case errors.Is(err, keyworderrors.ErrKeywordLimitExceeded):
		httputil.WriteErrorResponse(ctx, "keyword limit reached", fasthttp.StatusConflict)
	case errors.Is(err, keyworderrors.ErrWordInvalid):
		httputil.WriteErrorResponse(ctx, "keyword is empty or too long", fasthttp.StatusBadRequest)
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

package http

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/supersunho/senseinfo/internal/domain/account/dto"
	accounterrors "github.com/supersunho/senseinfo/internal/domain/account/errors"
	"github.com/supersunho/senseinfo/internal/domain/account/usecase/business"
	pkgerrors "github.com/supersunho/senseinfo/pkg/errors"
	"github.com/supersunho/senseinfo/pkg/httputil"
)

// AccountHandler handles account and login HTTP requests
type AccountHandler struct {
	useCase *business.AccountUseCase
	mapper  *pkgerrors.Mapper
	logger  zerolog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(useCase *business.AccountUseCase, mapper *pkgerrors.Mapper, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		useCase: useCase,
		mapper:  mapper,
		logger:  logger.With().Str("handler", "account").Logger(),
	}
}

// SendCode handles POST /api/v1/auth/code
func (h *AccountHandler) SendCode(ctx *fasthttp.RequestCtx) {
	var req dto.SendCodeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		httputil.WriteErrorResponse(ctx, "invalid request body", fasthttp.StatusBadRequest)
		return
	}

	resp, err := h.useCase.StartLogin(ctx, req.Phone)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, resp)
}

// VerifyCode handles POST /api/v1/auth/verify
func (h *AccountHandler) VerifyCode(ctx *fasthttp.RequestCtx) {
	var req dto.VerifyCodeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		httputil.WriteErrorResponse(ctx, "invalid request body", fasthttp.StatusBadRequest)
		return
	}

	resp, err := h.useCase.VerifyCode(ctx, req.Phone, req.Code)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, resp)
}

// SubmitPassword handles POST /api/v1/auth/password
func (h *AccountHandler) SubmitPassword(ctx *fasthttp.RequestCtx) {
	var req dto.PasswordRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		httputil.WriteErrorResponse(ctx, "invalid request body", fasthttp.StatusBadRequest)
		return
	}

	resp, err := h.useCase.SubmitPassword(ctx, req.Phone, req.Password)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, resp)
}

// Logout handles POST /api/v1/auth/logout
func (h *AccountHandler) Logout(ctx *fasthttp.RequestCtx) {
	var req struct {
		AccountID uint `json:"account_id"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.AccountID == 0 {
		httputil.WriteErrorResponse(ctx, "account_id is required", fasthttp.StatusBadRequest)
		return
	}

	resp, err := h.useCase.Logout(ctx, req.AccountID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, resp)
}

// List handles GET /api/v1/accounts
func (h *AccountHandler) List(ctx *fasthttp.RequestCtx) {
	accounts, err := h.useCase.List(ctx)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.ToAccountResponses(accounts))
}

// Get handles GET /api/v1/accounts/{account_id}
func (h *AccountHandler) Get(ctx *fasthttp.RequestCtx) {
	accountID, ok := parseAccountID(ctx)
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid account_id", fasthttp.StatusBadRequest)
		return
	}

	account, err := h.useCase.Get(ctx, accountID)
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, dto.ToAccountResponse(account))
}

// SetActive handles PATCH /api/v1/accounts/{account_id}/active
func (h *AccountHandler) SetActive(ctx *fasthttp.RequestCtx) {
	accountID, ok := parseAccountID(ctx)
	if !ok {
		httputil.WriteErrorResponse(ctx, "invalid account_id", fasthttp.StatusBadRequest)
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		httputil.WriteErrorResponse(ctx, "invalid request body", fasthttp.StatusBadRequest)
		return
	}

	if err := h.useCase.SetActive(ctx, accountID, req.Active); err != nil {
		h.handleError(ctx, err)
		return
	}

	httputil.WriteResponse(ctx, map[string]interface{}{
		"account_id": accountID,
		"active":     req.Active,
	})
}

// handleError maps domain errors to HTTP status codes
func (h *AccountHandler) handleError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, accounterrors.ErrAccountNotFound):
		httputil.WriteErrorResponse(ctx, "account not found", fasthttp.StatusNotFound)
	case errors.Is(err, accounterrors.ErrPhoneInvalid):
		httputil.WriteErrorResponse(ctx, "phone number is invalid", fasthttp.StatusBadRequest)
	case errors.Is(err, accounterrors.ErrPhoneTaken):
		httputil.WriteErrorResponse(ctx, "phone number already registered", fasthttp.StatusConflict)
	case errors.Is(err, accounterrors.ErrAccountInactive):
		httputil.WriteErrorResponse(ctx, "account is deactivated", fasthttp.StatusForbidden)
	case errors.Is(err, accounterrors.ErrLoginNotFound):
		httputil.WriteErrorResponse(ctx, "no pending login for phone", fasthttp.StatusNotFound)
	case errors.Is(err, accounterrors.ErrLoginExpired):
		httputil.WriteErrorResponse(ctx, "pending login expired", fasthttp.StatusGone)
	case errors.Is(err, accounterrors.ErrLoginInProgress):
		httputil.WriteErrorResponse(ctx, "login already in progress", fasthttp.StatusConflict)
	case errors.Is(err, accounterrors.ErrCodeInvalid), errors.Is(err, accounterrors.ErrCodeExpired):
		httputil.WriteErrorResponse(ctx, "confirmation code rejected", fasthttp.StatusUnauthorized)
	case errors.Is(err, accounterrors.ErrPasswordRequired):
		httputil.WriteErrorResponse(ctx, "password is required", fasthttp.StatusBadRequest)
	case errors.Is(err, accounterrors.ErrPasswordInvalid):
		httputil.WriteErrorResponse(ctx, "invalid 2fa password", fasthttp.StatusUnauthorized)
	case errors.Is(err, accounterrors.ErrTelegramConnection):
		httputil.WriteErrorResponse(ctx, "telegram unavailable", fasthttp.StatusServiceUnavailable)
	default:
		status, message := h.mapper.MapErrorToHTTP(err)
		httputil.WriteErrorResponse(ctx, message, status)
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

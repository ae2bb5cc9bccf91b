package business

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/supersunho/senseinfo/internal/domain"
	"github.com/supersunho/senseinfo/internal/domain/account/deps"
	"github.com/supersunho/senseinfo/internal/domain/account/dto"
	"github.com/supersunho/senseinfo/internal/domain/account/entities"
	accounterrors "github.com/supersunho/senseinfo/internal/domain/account/errors"
	"github.com/supersunho/senseinfo/internal/infrastructure/logger"
)

// AccountUseCase implements account and login flow business logic
type AccountUseCase struct {
	repo      deps.AccountRepository
	loginFlow deps.LoginFlow
	conns     domain.ConnectionManager
	logger    zerolog.Logger
}

// NewAccountUseCase creates a new account use case
func NewAccountUseCase(
	repo deps.AccountRepository,
	loginFlow deps.LoginFlow,
	conns domain.ConnectionManager,
	log zerolog.Logger,
) *AccountUseCase {
	return &AccountUseCase{
		repo:      repo,
		loginFlow: loginFlow,
		conns:     conns,
		logger:    log.With().Str("usecase", "account").Logger(),
	}
}

// StartLogin begins a phone login: the account row is created on first
// contact and a confirmation code is sent to the device.
func (uc *AccountUseCase) StartLogin(ctx context.Context, phone string) (*dto.AuthStatusResponse, error) {
	phone, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	account, err := uc.repo.GetByPhone(ctx, phone)
	if errors.Is(err, accounterrors.ErrAccountNotFound) {
		account = &entities.Account{Phone: &phone}
		if err := uc.repo.Create(ctx, account); err != nil {
			return nil, err
		}
		uc.logger.Info().
			Uint("account_id", account.ID).
			Str("phone", logger.MaskPhone(phone)).
			Msg("account created")
	} else if err != nil {
		return nil, err
	}

	if !account.IsActive {
		return nil, accounterrors.ErrAccountInactive
	}

	if err := uc.loginFlow.SendCode(ctx, account.ID, phone); err != nil {
		uc.logger.Error().Err(err).
			Str("phone", logger.MaskPhone(phone)).
			Msg("failed to send confirmation code")
		return nil, err
	}

	uc.logger.Info().
		Str("phone", logger.MaskPhone(phone)).
		Msg("confirmation code sent")

	return &dto.AuthStatusResponse{Status: dto.StatusCodeSent, Phone: phone}, nil
}

// VerifyCode submits the confirmation code. When the account has 2FA
// enabled the flow pauses and reports password_required instead of
// completing.
func (uc *AccountUseCase) VerifyCode(ctx context.Context, phone, code string) (*dto.AuthStatusResponse, error) {
	phone, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, accounterrors.ErrCodeInvalid
	}

	identity, err := uc.loginFlow.VerifyCode(ctx, phone, code)
	if errors.Is(err, accounterrors.ErrPasswordRequired) {
		uc.logger.Info().
			Str("phone", logger.MaskPhone(phone)).
			Msg("2fa password required")
		return &dto.AuthStatusResponse{Status: dto.StatusPasswordRequired, Phone: phone}, nil
	}
	if err != nil {
		return nil, err
	}

	return uc.completeLogin(ctx, phone, identity)
}

// SubmitPassword finishes a login paused on two-factor auth.
func (uc *AccountUseCase) SubmitPassword(ctx context.Context, phone, password string) (*dto.AuthStatusResponse, error) {
	phone, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, accounterrors.ErrPasswordRequired
	}

	identity, err := uc.loginFlow.SubmitPassword(ctx, phone, password)
	if err != nil {
		return nil, err
	}

	return uc.completeLogin(ctx, phone, identity)
}

// Logout releases the account's connection and drops its credential.
func (uc *AccountUseCase) Logout(ctx context.Context, accountID uint) (*dto.AuthStatusResponse, error) {
	account, err := uc.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	uc.conns.Release(ctx, accountID)

	if err := uc.repo.ClearSession(ctx, accountID); err != nil {
		return nil, err
	}

	uc.logger.Info().Uint("account_id", accountID).Msg("account logged out")

	phone := ""
	if account.Phone != nil {
		phone = *account.Phone
	}
	return &dto.AuthStatusResponse{Status: dto.StatusLoggedOut, Phone: phone}, nil
}

// Get retrieves one account by ID
func (uc *AccountUseCase) Get(ctx context.Context, accountID uint) (*entities.Account, error) {
	return uc.repo.GetByID(ctx, accountID)
}

// List retrieves all accounts
func (uc *AccountUseCase) List(ctx context.Context) ([]entities.Account, error) {
	return uc.repo.List(ctx)
}

// SetActive toggles an account. Deactivating also releases its
// connection so monitoring stops promptly.
func (uc *AccountUseCase) SetActive(ctx context.Context, accountID uint, active bool) error {
	if err := uc.repo.SetActive(ctx, accountID, active); err != nil {
		return err
	}
	if !active {
		uc.conns.Release(ctx, accountID)
	}
	uc.logger.Info().
		Uint("account_id", accountID).
		Bool("active", active).
		Msg("account active flag changed")
	return nil
}

// completeLogin persists the platform identity onto the account row.
// The session blob itself is written by the connection's session
// storage during the sign-in exchange.
func (uc *AccountUseCase) completeLogin(ctx context.Context, phone string, identity *domain.Identity) (*dto.AuthStatusResponse, error) {
	account, err := uc.repo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	account.TelegramID = &identity.TelegramID
	account.Username = identity.Username
	account.FirstName = identity.FirstName
	account.LastName = identity.LastName
	account.IsAuthenticated = true
	account.LastAuthAt = &now

	if err := uc.repo.Update(ctx, account); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Uint("account_id", account.ID).
		Int64("telegram_id", identity.TelegramID).
		Str("phone", logger.MaskPhone(phone)).
		Msg("login completed")

	return &dto.AuthStatusResponse{
		Status:  dto.StatusAuthorized,
		Phone:   phone,
		Account: dto.ToAccountResponse(account),
	}, nil
}

// normalizePhone trims whitespace and validates the international
// +digits form.
func normalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !strings.HasPrefix(phone, "+") {
		return "", accounterrors.ErrPhoneInvalid
	}
	digits := phone[1:]
	if len(digits) < 7 || len(digits) > 15 {
		return "", accounterrors.ErrPhoneInvalid
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return "", accounterrors.ErrPhoneInvalid
		}
	}
	return phone, nil
}

package errors

import "errors"

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrPhoneInvalid       = errors.New("phone number is invalid")
	ErrPhoneTaken         = errors.New("phone number already registered")
	ErrNotAuthenticated   = errors.New("account is not authenticated")
	ErrLoginNotFound      = errors.New("no pending login for phone")
	ErrLoginExpired       = errors.New("pending login expired")
	ErrLoginInProgress    = errors.New("login already in progress for phone")
	ErrCodeInvalid        = errors.New("confirmation code invalid")
	ErrCodeExpired        = errors.New("confirmation code expired")
	ErrPasswordRequired   = errors.New("2fa password required")
	ErrPasswordInvalid    = errors.New("invalid 2fa password")
	ErrTelegramConnection = errors.New("failed to connect to telegram")
	ErrDatabaseOperation  = errors.New("database operation failed")
)

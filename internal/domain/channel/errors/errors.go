package errors

import "errors"

var (
	ErrChannelNotFound      = errors.New("channel not found")
	ErrChannelExists        = errors.New("channel already monitored")
	ErrChannelInactive      = errors.New("channel is deactivated")
	ErrChannelLimitExceeded = errors.New("channel limit reached for account")
	ErrUsernameInvalid      = errors.New("channel username is invalid")
	ErrAccountNotFound      = errors.New("account not found")
	ErrDatabaseOperation    = errors.New("database operation failed")
)

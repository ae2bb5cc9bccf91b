package errors

import "errors"

var (
	ErrMessageNotFound   = errors.New("message not found")
	ErrChannelNotFound   = errors.New("channel not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrDatabaseOperation = errors.New("database operation failed")
)

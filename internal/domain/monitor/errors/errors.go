package errors

import "errors"

var (
	ErrStartInProgress   = errors.New("processor start or stop already in progress")
	ErrChannelUnresolved = errors.New("channel has no platform identifier yet")
	ErrDatabaseOperation = errors.New("database operation failed")
)

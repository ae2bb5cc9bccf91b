package errors

import "errors"

var (
	ErrKeywordNotFound      = errors.New("keyword not found")
	ErrKeywordExists        = errors.New("keyword already exists for channel")
	ErrKeywordLimitExceeded = errors.New("keyword limit reached for channel")
	ErrWordInvalid          = errors.New("keyword is empty or too long")
	ErrChannelNotFound      = errors.New("channel not found")
	ErrDatabaseOperation    = errors.New("database operation failed")
)

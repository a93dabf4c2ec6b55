package repository

import "errors"

// Storage-level sentinel errors. Services map these onto the user-facing
// error taxonomy.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry indicates a unique-constraint violation.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

var (
	ErrWorldNotFound    = ErrNotFound
	ErrUserNotFound     = ErrNotFound
	ErrRoomNotFound     = ErrNotFound
	ErrChannelNotFound  = ErrNotFound
	ErrEventNotFound    = ErrNotFound
	ErrQuestionNotFound = ErrNotFound
	ErrPollNotFound     = ErrNotFound
)

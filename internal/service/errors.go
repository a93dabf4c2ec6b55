package service

import "errors"

// Connection-fatal authentication errors.
var (
	ErrAuthInvalidSignature = errors.New("auth: no configured secret verifies the signature")
	ErrAuthExpired          = errors.New("auth: token expired")
	ErrAuthMalformed        = errors.New("auth: malformed token")
)

// Recoverable command errors, reported as structured error frames while the
// connection stays open.
var (
	ErrModuleDisabled   = errors.New("module disabled for this world")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
)

// Infrastructure errors.
var (
	ErrPersistence       = errors.New("persistence failed")
	ErrBrokerUnavailable = errors.New("broker unavailable")
)

// ErrorCode maps a service error onto its wire code. Unknown errors are
// reported as server errors without leaking internals.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAuthInvalidSignature),
		errors.Is(err, ErrAuthExpired),
		errors.Is(err, ErrAuthMalformed):
		return "auth.denied"
	case errors.Is(err, ErrModuleDisabled):
		return "protocol.module_disabled"
	case errors.Is(err, ErrPermissionDenied):
		return "protocol.denied"
	case errors.Is(err, ErrInvalidInput):
		return "error.invalid_input"
	case errors.Is(err, ErrNotFound):
		return "error.not_found"
	case errors.Is(err, ErrBrokerUnavailable):
		return "error.broker_unavailable"
	default:
		return "error.server"
	}
}

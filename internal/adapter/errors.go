package adapter

import "errors"

// Sentinel errors returned by [ServerAdapter] implementations. HTTP statuses
// are mapped onto them by mapHTTPError; callers match with [errors.Is].
var (
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("client unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrTooManyRequests     = errors.New("too many requests")
	ErrInternalServerError = errors.New("internal server error")
	ErrUnavailable         = errors.New("server unavailable")

	// ErrTransient marks network failures: refused or reset connections,
	// timeouts, truncated responses. Such requests are retried before the
	// error reaches the caller.
	ErrTransient = errors.New("transient network error")

	// ErrInvalidResponse is returned when a 2xx body cannot be decoded.
	ErrInvalidResponse = errors.New("invalid server response")

	ErrInvalidAddress = errors.New("invalid server address")
)

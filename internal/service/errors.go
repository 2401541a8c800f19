package service

import "errors"

// The taxonomy every operation funnels its failures into. Handlers map
// these to HTTP status codes; anything else is a 500.
var (
	ErrValidation         = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrQuotaExceeded      = errors.New("peer quota exceeded")
)

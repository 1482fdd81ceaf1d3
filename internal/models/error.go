package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Device verification errors
	ErrInvalidPin      = errors.New("invalid device pin")
	ErrPinConsumed     = errors.New("device pin already used")
	ErrTooManyAttempts = errors.New("too many device pin attempts")
	ErrUnsupportedKey  = errors.New("unsupported user lookup column")
)

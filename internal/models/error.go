package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound         = errors.New("resource not found")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrBadRequest       = errors.New("bad request")
	ErrStoreUnavailable = errors.New("attempt store unavailable")
	ErrInternalServer   = errors.New("internal server error")
)

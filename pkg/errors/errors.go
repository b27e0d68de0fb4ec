package catalog_errors

import (
	"errors"
)

// Common errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limited")
	ErrPersistence        = errors.New("persistence error")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrDeliveryFailed     = errors.New("delivery failed")
)

// Reply codes sent to clients alongside the error reason.
const (
	CodeValidation         = "validation"
	CodePersistence        = "persistence"
	CodeStorageUnavailable = "storage_unavailable"
	CodeRateLimited        = "rate_limited"
)

// Code maps an error onto the client-visible reply code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return CodeValidation
	case errors.Is(err, ErrStorageUnavailable):
		return CodeStorageUnavailable
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	default:
		return CodePersistence
	}
}

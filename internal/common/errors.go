// Package common defines shared constants and sentinel errors used across
// Storekeeper layers. Callers should use errors.Is to match these values;
// the HTTP layer is the only place that turns them into status codes.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Caller errors.
	ErrBadRequest      = errors.New("bad request")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrRateLimited     = errors.New("too many requests")

	// Credential and gate errors.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrAlreadyInitialized = errors.New("secrets already initialized")
	ErrInvalidState       = errors.New("invalid or expired state")
	ErrInvalidToken       = errors.New("invalid token")

	// Server-side errors.
	ErrInternalConfig = errors.New("server misconfigured")
	ErrUpstream       = errors.New("upstream request failed")
)

// Package common defines shared constants and sentinel errors used across
// tabchat components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors, rejected before any I/O.
	ErrEmptyMessage  = errors.New("message has no text and no amount")
	ErrInvalidAmount = errors.New("amount must be a positive number")

	// Backend / transport errors.
	ErrorUnavailable  = errors.New("backend unavailable")
	ErrorUnauthorized = errors.New("unauthorized")

	// Session lifecycle.
	ErrSessionExpired = errors.New("session expired")
	ErrNotSignedIn    = errors.New("not signed in")

	// Replay policy.
	ErrReplayExhausted = errors.New("replay attempts exhausted")
)

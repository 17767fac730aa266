package domain

import "errors"

var (
	// ErrPayloadTooLarge signals that a client payload exceeds a configured cap.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrEmptyOutput signals that the converter exited cleanly but produced nothing.
	ErrEmptyOutput = errors.New("converter produced empty output")
	// ErrOutputMissing signals that the converter exited cleanly but the
	// declared output file does not exist.
	ErrOutputMissing = errors.New("converter output file not found")
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrTokenStoreNotReady signals that the token store has not been loaded yet.
	// This can happen during startup when the DB isn't ready.
	ErrTokenStoreNotReady = errors.New("token store not ready")
)

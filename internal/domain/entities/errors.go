package entities

import "errors"

// Domain errors
var (
	// Call errors
	ErrCallNotFound     = errors.New("call not found")
	ErrCallAlreadyEnded = errors.New("call already ended")
	ErrInvalidRating    = errors.New("rating out of range")
	ErrInvalidStatus    = errors.New("invalid call status")

	// Recording errors
	ErrRecordingNotFound = errors.New("recording not found")

	// Session errors
	ErrSessionExists   = errors.New("session already registered")
	ErrSessionNotFound = errors.New("session not found")

	// Generic errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid request")
)

package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyURL is returned when a podcast submission carries no URL.
	ErrEmptyURL = errors.New("podcast URL is required")

	// ErrInvalidOperation is returned for an operation other than
	// transcribe_only or transcribe_summarize.
	ErrInvalidOperation = errors.New("invalid operation type")
)

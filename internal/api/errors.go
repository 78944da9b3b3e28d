package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/podscribe/internal/api/shared"
	"github.com/phrazzld/podscribe/internal/domain"
	"github.com/phrazzld/podscribe/internal/history"
	"github.com/phrazzld/podscribe/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, task.ErrJobNotFound),
		errors.Is(err, history.ErrRecordNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, task.ErrInvalidSubmission),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// respondWithMappedError writes the error envelope for err with the
// status and message chosen by the mappings above.
func respondWithMappedError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, task.ErrJobNotFound):
		return "Task not found"

	case errors.Is(err, history.ErrRecordNotFound):
		return "History record not found"

	case errors.Is(err, domain.ErrEmptyURL):
		return "Podcast URL is required"

	case errors.Is(err, domain.ErrInvalidOperation):
		return "Invalid operation type"

	case errors.Is(err, task.ErrInvalidSubmission),
		errors.Is(err, domain.ErrValidation):
		return "Invalid submission"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'BatchRequest.URLs' Error:Field validation for 'URLs' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "url", "http_url":
		return "invalid URL"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

package search

import (
	"context"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to search errors.
const (
	TextCodeInvalidQuery = "INVALID_SEARCH_QUERY"
	TextCodeStoreFailure = "STORE_FAILURE"
)

// Rejection reasons returned to clients.
const (
	ReasonEmpty        = "Search query cannot be empty"
	ReasonTooLong      = "Search query too long (max 100 characters)"
	ReasonInvalidChars = "Invalid characters in search query"
	ReasonOnlyInvalid  = "Search query contains only invalid characters"
)

// Client facing messages for each error class.
const (
	MessageInvalidQuery = "Invalid search query"
	MessageStoreFailure = "Failed to fetch advocates"
)

// ValidationError builds the error returned when a search query is rejected.
// The reason is safe to show to the caller.
func ValidationError(reason string) *goerrors.Error {
	return goerrors.NewValidation(reason, goerrors.FieldError{
		Field:   "search",
		Message: reason,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeInvalidQuery)
}

// StoreError wraps a store or cache failure. The cause is kept for logging
// and never shown to the caller.
func StoreError(cause error) *goerrors.Error {
	e := goerrors.New(MessageStoreFailure, goerrors.CategoryExternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeStoreFailure)
	e.Source = cause
	if errors.Is(cause, context.DeadlineExceeded) {
		e = e.WithMetadata(map[string]any{"timeout": true})
	}
	return e
}

// Reason returns the client facing reason of a validation error, or "" when
// err is not one.
func Reason(err error) string {
	var e *goerrors.Error
	if !goerrors.As(err, &e) || e.Category != goerrors.CategoryValidation {
		return ""
	}
	return e.Message
}

// IsStoreError reports whether err is a StoreError.
func IsStoreError(err error) bool {
	var e *goerrors.Error
	return goerrors.As(err, &e) && e.TextCode == TextCodeStoreFailure
}

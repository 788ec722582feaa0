package entity

import (
	"errors"
	"strings"
)

var (
	// ErrValidation is wrapped by every ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a request id does not exist
	ErrNotFound = errors.New("procurement request not found")

	// ErrExtractionFailed is returned when a document could not be turned into a draft
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrClassificationFailed is returned when free text could not be mapped to a commodity group
	ErrClassificationFailed = errors.New("classification failed")

	// ErrNoDocument is returned when a request has no attached PDF
	ErrNoDocument = errors.New("no document attached")

	// ErrConcurrentModification is returned when a store gave up on an optimistic write
	ErrConcurrentModification = errors.New("request was modified concurrently")
)

// FieldError names one offending field, e.g. "order_lines[2].quantity"
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

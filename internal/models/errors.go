package models

import (
	"errors"
	"fmt"
)

// Workflow related errors
var (
	ErrAnalysisInProgress = errors.New("an analysis is already in progress")
	ErrNoImageSelected    = errors.New("no image selected")
)

// ValidationError is returned when a selected file cannot be analyzed.
type ValidationError struct {
	Issue string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("invalid file: %v", ve.Issue)
}

// NetworkError covers transport failures and non-2xx webhook replies.
type NetworkError struct {
	StatusCode int // zero for transport failures
	Body       string
	Cause      error
}

func (ne *NetworkError) Error() string {
	if ne.StatusCode != 0 {
		return fmt.Sprintf("API request failed: %d", ne.StatusCode)
	}
	if ne.Cause != nil {
		return fmt.Sprintf("API request failed: %v", ne.Cause)
	}
	return "API request failed"
}

func (ne *NetworkError) Unwrap() error {
	return ne.Cause
}

// ParseError is returned when the webhook body is not one of the recognized shapes.
type ParseError struct {
	Reason string
	Cause  error
}

func (pe *ParseError) Error() string {
	if pe.Cause != nil {
		return fmt.Sprintf("invalid response format: %s: %v", pe.Reason, pe.Cause)
	}
	return fmt.Sprintf("invalid response format: %s", pe.Reason)
}

func (pe *ParseError) Unwrap() error {
	return pe.Cause
}

// EmptyResultError is returned when the webhook explicitly reports a non-success status.
type EmptyResultError struct {
	Status string
}

func (ee *EmptyResultError) Error() string {
	if ee.Status == "" {
		return "analysis returned no result"
	}
	return fmt.Sprintf("analysis returned status %q", ee.Status)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

package analyzer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

var (
	// ErrClientNotConfigured is returned by every call when no API key was
	// supplied at construction.
	ErrClientNotConfigured = errors.New("gemini client not configured")

	// ErrInvalidCredential means the backend rejected the API key.
	ErrInvalidCredential = errors.New("gemini API key not valid")

	// ErrQuotaExceeded means the project ran out of quota.
	ErrQuotaExceeded = errors.New("gemini API quota exceeded")

	// ErrCommunication covers every other backend or transport failure.
	ErrCommunication = errors.New("gemini request failed")
)

// Error pairs a classified failure with the backend error that caused it.
// Both are reachable through errors.Is/As.
type Error struct {
	Kind  error
	Cause error
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

// classify maps a GenerateContent failure to one of the analyzer's error kinds.
// Structured API errors are inspected first; the message substrings are a
// fallback for errors that carry no status.
func classify(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: classifyKind(err), Cause: err}
}

func classifyKind(err error) error {
	if code, status, msg, ok := apiErrorFields(err); ok {
		switch {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return ErrInvalidCredential
		case code == http.StatusBadRequest && strings.Contains(msg, "API key"):
			return ErrInvalidCredential
		case code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED":
			return ErrQuotaExceeded
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrCommunication
	}

	// Errors without a status, such as transport failures, are matched on text.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "API key not valid"):
		return ErrInvalidCredential
	case strings.Contains(msg, "quota"):
		return ErrQuotaExceeded
	}
	return ErrCommunication
}

// apiErrorFields extracts code, status and message from a genai.APIError,
// whether it was returned by value or by pointer.
func apiErrorFields(err error) (code int, status, message string, ok bool) {
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, ptr.Status, ptr.Message, true
	}
	var val genai.APIError
	if errors.As(err, &val) {
		return val.Code, val.Status, val.Message, true
	}
	return 0, "", "", false
}

package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - Logged with full technical details and the request id
//   - Mapped through core.MapError to a message, a suggested action and a code
//   - Rendered as JSON, an HTML fragment or plain text depending on the caller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/sheetchat/internal/analyzer"
	"github.com/JonMunkholm/sheetchat/internal/core"
	"github.com/JonMunkholm/sheetchat/internal/logging"
	"github.com/JonMunkholm/sheetchat/internal/sheets"
	"github.com/JonMunkholm/sheetchat/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error from the service.
func statusFor(err error) int {
	var fetchErr *sheets.FetchError
	switch {
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrEmptyURL),
		errors.Is(err, core.ErrEmptyQuestion),
		errors.Is(err, sheets.ErrInvalidReference):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoSheetLoaded):
		return http.StatusNotFound
	case errors.Is(err, core.ErrActionInFlight),
		errors.Is(err, core.ErrLoadSuperseded):
		return http.StatusConflict
	case errors.Is(err, sheets.ErrMissingCredential),
		errors.Is(err, analyzer.ErrClientNotConfigured),
		errors.Is(err, core.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message in the format
// the caller asked for.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	level := slog.LevelError
	if core.IsUserFacing(err) {
		level = slog.LevelWarn
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	switch {
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, statusCode)
	case isPartial(r):
		renderErrorPartial(w, userMsg, statusCode)
	default:
		http.Error(w, core.FormatUserError(err), statusCode)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// renderErrorPartial renders an error fragment for fetch-driven forms.
func renderErrorPartial(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(context.Background(), w); err != nil {
		slog.Error("render error fragment failed", "error", err)
	}
}

// isPartial reports whether the request came from the page script, which
// swaps the returned HTML into the workspace.
func isPartial(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	if isPartial(r) || acceptsHTML(r) {
		return false
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// acceptsHTML is true for plain browser navigation and form posts.
func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

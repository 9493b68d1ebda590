package core

// # Error Codes Reference
//
// User-facing messages carry a code so a user can quote it when asking for
// help. Codes are grouped by category:
//
// # Sheet Errors (SHEET001-SHEET099)
//
//	SHEET001 - No URL: Please enter a Google Sheet URL.
//	SHEET002 - Invalid URL: the spreadsheet id could not be found in the link
//	SHEET003 - Missing key: GOOGLE_SHEETS_API_KEY is not configured
//	SHEET004 - Metadata fetch: the spreadsheet could not be read (upstream status shown)
//	SHEET005 - Value fetch: the range could not be read (upstream status shown)
//	SHEET006 - No sheet loaded: an export was requested before a load
//
// # AI Errors (AI001-AI099)
//
//	AI001 - Not configured: GEMINI_API_KEY is not configured
//	AI002 - Invalid key: Gemini rejected the API key
//	AI003 - Quota: the Gemini project ran out of quota
//	AI004 - Busy: every model call slot was taken for the whole wait time
//	AI005 - Communication: any other Gemini failure
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Empty question
//	REQ002 - Action in flight: the same action is already running for this session
//	REQ003 - Cancelled: the client went away
//	REQ004 - Timeout: the request deadline passed
//	REQ005 - Rate limited
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check the server log for the request id
//
// # Matching
//
// Known error values are matched first with errors.Is, so wrapping with %w
// keeps the mapping. Errors that only carry text fall back to
// case-insensitive substring patterns. The first match wins in both tables.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetchat/internal/analyzer"
	"github.com/JonMunkholm/sheetchat/internal/sheets"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorRule maps a known error value to its user message.
type errorRule struct {
	target error
	msg    UserMessage
}

// errorRules is checked in order with errors.Is. Analyzer kinds come before
// the context errors because a classified timeout wraps both.
var errorRules = []errorRule{
	// =========================================================================
	// Sheet Errors (SHEET001-SHEET006)
	// =========================================================================
	{
		target: ErrEmptyURL,
		msg: UserMessage{
			Message: "Please enter a Google Sheet URL.",
			Action:  "Paste the link of the sheet you want to ask about",
			Code:    "SHEET001",
		},
	},
	{
		target: sheets.ErrInvalidReference,
		msg: UserMessage{
			Message: "Invalid Google Sheet URL. Could not extract Spreadsheet ID.",
			Action:  "Use a link like https://docs.google.com/spreadsheets/d/<id>/edit",
			Code:    "SHEET002",
		},
	},
	{
		target: sheets.ErrMissingCredential,
		msg: UserMessage{
			Message: "Cannot load sheet: GOOGLE_SHEETS_API_KEY is missing.",
			Action:  "Set GOOGLE_SHEETS_API_KEY in the server environment",
			Code:    "SHEET003",
		},
	},
	{
		target: ErrNoSheetLoaded,
		msg: UserMessage{
			Message: "No sheet data loaded.",
			Action:  "Load a Google Sheet first",
			Code:    "SHEET006",
		},
	},

	// =========================================================================
	// AI Errors (AI001-AI005)
	// =========================================================================
	{
		target: analyzer.ErrClientNotConfigured,
		msg: UserMessage{
			Message: "Cannot process request: Gemini API_KEY is missing.",
			Action:  "Set GEMINI_API_KEY in the server environment",
			Code:    "AI001",
		},
	},
	{
		target: analyzer.ErrInvalidCredential,
		msg: UserMessage{
			Message: "Invalid API Key. Please check your API_KEY environment variable.",
			Action:  "Check GEMINI_API_KEY in the server environment",
			Code:    "AI002",
		},
	},
	{
		target: analyzer.ErrQuotaExceeded,
		msg: UserMessage{
			Message: "API quota exceeded. Please check your Google Cloud project quotas for the Gemini API.",
			Action:  "Wait for the quota to reset or raise it in Google Cloud",
			Code:    "AI003",
		},
	},
	{
		target: ErrTooManyRequests,
		msg: UserMessage{
			Message: "The assistant is busy answering other questions.",
			Action:  "Please wait a moment and try again",
			Code:    "AI004",
		},
	},
	{
		target: analyzer.ErrCommunication,
		msg: UserMessage{
			Message: "An error occurred while communicating with the AI. Please try again later.",
			Action:  "Please try again",
			Code:    "AI005",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ004)
	// =========================================================================
	{
		target: ErrEmptyQuestion,
		msg: UserMessage{
			Message: "Please enter a question.",
			Action:  "Type a question about the loaded sheet",
			Code:    "REQ001",
		},
	},
	{
		target: ErrActionInFlight,
		msg: UserMessage{
			Message: "A request is already in progress.",
			Action:  "Wait for the current answer before sending another question",
			Code:    "REQ002",
		},
	},
	{
		target: context.Canceled,
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ003",
		},
	},
	{
		target: context.DeadlineExceeded,
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller range or try again later",
			Code:    "REQ004",
		},
	},
}

// errorPattern maps a substring of an error message to a user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is the fallback for errors that only carry text. Patterns
// are matched case-insensitively with strings.Contains.
var errorPatterns = []errorPattern{
	{
		pattern: "api key not valid",
		msg:     ruleMessage(analyzer.ErrInvalidCredential),
	},
	{
		pattern: "quota",
		msg:     ruleMessage(analyzer.ErrQuotaExceeded),
	},
	{
		pattern: "context deadline exceeded",
		msg:     ruleMessage(context.DeadlineExceeded),
	},
	{
		pattern: "timeout",
		msg:     ruleMessage(context.DeadlineExceeded),
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "REQ005",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

func ruleMessage(target error) UserMessage {
	for _, r := range errorRules {
		if r.target == target {
			return r.msg
		}
	}
	return defaultMessage
}

// MapError converts a technical error to a user-friendly message.
//
// Sheets API failures keep the upstream status and message, since that is
// usually what tells the user the sheet is not shared:
//
//	msg := MapError(err)
//	// msg.Code == "SHEET004"
//	// msg.Message == "Failed to fetch sheet metadata: 403 Forbidden. The caller does not have permission"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var fetchErr *sheets.FetchError
	if errors.As(err, &fetchErr) {
		code := "SHEET004"
		if fetchErr.Kind == sheets.ValueFetch {
			code = "SHEET005"
		}
		return UserMessage{
			Message: upperFirst(fetchErr.Error()),
			Action:  "Ensure the sheet is either public or accessible with your Google Sheets API Key.",
			Code:    code,
		}
	}

	for _, r := range errorRules {
		if errors.Is(err, r.target) {
			return r.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", strings.TrimSuffix(msg.Message, "."), msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Package audit records sheet loads and questions in PostgreSQL.
//
// The activity log is optional. Only metadata is stored: which spreadsheet
// and range were loaded, how large the result was, how long a question was
// and which error code a failure mapped to. Sheet contents, question text
// and answers never reach the database.
package audit

import (
	"context"
	"time"
)

// Action represents the type of activity being recorded.
type Action string

const (
	ActionSheetLoad       Action = "sheet_load"
	ActionSheetLoadFailed Action = "sheet_load_failed"
	ActionQuestion        Action = "question"
	ActionQuestionFailed  Action = "question_failed"
)

// Severity represents how interesting an event is to an operator.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Event is a single activity log entry.
type Event struct {
	ID             string    `json:"id"`
	Action         Action    `json:"action"`
	Severity       Severity  `json:"severity"`
	SessionID      string    `json:"sessionId"`
	SpreadsheetID  string    `json:"spreadsheetId,omitempty"`
	Range          string    `json:"range,omitempty"`
	Rows           int       `json:"rows,omitempty"`
	Cols           int       `json:"cols,omitempty"`
	QuestionLength int       `json:"questionLength,omitempty"`
	ErrorCode      string    `json:"errorCode,omitempty"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	DurationMS     int64     `json:"durationMs"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Recorder stores activity events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Reader lists recent activity events, newest first.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// determineSeverity returns the severity for an action. Credential and quota
// failures show up as ErrorCode on a failed action and are ranked higher.
func determineSeverity(action Action, errorCode string) Severity {
	switch action {
	case ActionSheetLoadFailed, ActionQuestionFailed:
		switch errorCode {
		case "SHEET003", "AI001", "AI002", "AI003":
			return SeverityHigh
		}
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Nop discards every event. It is used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

func (Nop) Recent(context.Context, int) ([]Event, error) { return nil, nil }

// Package templates holds the server-rendered page components. The markup
// lives in page.templ; run `templ generate` after editing it.
package templates

import (
	"strings"
	"time"

	"github.com/JonMunkholm/sheetchat/internal/core"
)

// PageData is everything the chat page renders.
type PageData struct {
	Snapshot core.Snapshot
	Model    string
}

type bubbleKind int

const (
	kindAI bubbleKind = iota
	kindUser
	kindError
)

func messageKind(msg core.ChatMessage) bubbleKind {
	switch {
	case msg.Sender == core.SenderUser:
		return kindUser
	case strings.HasSuffix(msg.ID, "-error"):
		return kindError
	default:
		return kindAI
	}
}

// clockTime formats an RFC 3339 timestamp as HH:MM.
func clockTime(timestamp string) (string, bool) {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return "", false
	}
	return t.Format("15:04"), true
}

func sheetURL(snap core.Snapshot) string {
	if snap.Sheet == nil {
		return ""
	}
	return snap.Sheet.URL
}

func sheetRange(snap core.Snapshot) string {
	if snap.Sheet == nil {
		return ""
	}
	return snap.Sheet.Range
}

func sheetInputOff(snap core.Snapshot) bool {
	return !snap.SheetsEnabled || snap.Load.Status == core.StatusInFlight
}

func chatInputOff(snap core.Snapshot) bool {
	return !snap.ChatEnabled || snap.Ask.Status == core.StatusInFlight
}

func questionPlaceholder(snap core.Snapshot) string {
	if snap.ChatEnabled {
		return "Ask a question about the sheet data..."
	}
	return "Chat disabled until a sheet is loaded and the Gemini API key is set"
}

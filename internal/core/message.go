package core

import (
	"fmt"
	"time"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser Sender = "USER"
	SenderAI   Sender = "AI"
)

// Message id suffixes, appended to the millisecond timestamp.
const (
	suffixUser    = "user"
	suffixAI      = "ai"
	suffixAIError = "ai-error"
)

// geminiKeyMessageID is the fixed id of the seeded missing-key message.
const geminiKeyMessageID = "gemini-api-key-error"

// ChatMessage is one entry in a conversation. Messages are never modified
// after they are appended.
type ChatMessage struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Sender    Sender `json:"sender"`
	Timestamp string `json:"timestamp"`
}

// timestampLayout matches the millisecond ISO-8601 form browsers produce.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// idSource hands out strictly increasing millisecond stamps, so two messages
// created in the same millisecond still get distinct, ordered ids.
type idSource struct {
	now  func() time.Time
	last int64
}

func (s *idSource) next() time.Time {
	ms := s.now().UnixMilli()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms
	return time.UnixMilli(ms).UTC()
}

func (s *idSource) message(sender Sender, text, suffix string) ChatMessage {
	t := s.next()
	return ChatMessage{
		ID:        fmt.Sprintf("%d-%s", t.UnixMilli(), suffix),
		Text:      text,
		Sender:    sender,
		Timestamp: t.Format(timestampLayout),
	}
}

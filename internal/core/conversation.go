package core

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// SheetInfo summarizes the loaded sheet for the status region.
type SheetInfo struct {
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	Rows          int       `json:"rows"`
	Cols          int       `json:"cols"`
	SpreadsheetID string    `json:"spreadsheetId"`
	Range         string    `json:"range,omitempty"`
	LoadedAt      time.Time `json:"loadedAt"`
}

// StatusText is the one-line summary shown after a successful load.
func (s SheetInfo) StatusText() string {
	return fmt.Sprintf("Successfully loaded: %q (%d rows, %d cols).", s.Name, s.Rows, s.Cols)
}

// Conversation is the state of one browser session: the message history,
// the loaded sheet and the two action state machines.
type Conversation struct {
	id string

	mu       sync.Mutex
	messages []ChatMessage
	sheetCSV string
	sheet    *SheetInfo
	load     ActionState[SheetInfo]
	ask      ActionState[ChatMessage]
	ids      idSource

	lastActive atomic.Int64 // unix nanoseconds
}

func newConversation(id string, now func() time.Time) *Conversation {
	c := &Conversation{
		id:  id,
		ids: idSource{now: now},
	}
	c.touch(now())
	return c
}

// ID returns the session id the conversation belongs to.
func (c *Conversation) ID() string { return c.id }

func (c *Conversation) touch(t time.Time) {
	c.lastActive.Store(t.UnixNano())
}

// LastActive returns when the conversation was last used.
func (c *Conversation) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

// appendMessage adds a message to the history. The caller holds c.mu.
func (c *Conversation) appendMessage(sender Sender, text, suffix string) ChatMessage {
	msg := c.ids.message(sender, text, suffix)
	c.messages = append(c.messages, msg)
	return msg
}

// seed adds a fixed-id message to an empty history.
func (c *Conversation) seed(id string, sender Sender, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.ids.next()
	c.messages = append(c.messages, ChatMessage{
		ID:        id,
		Text:      text,
		Sender:    sender,
		Timestamp: t.Format(timestampLayout),
	})
}

// busy reports whether either action has a request outstanding.
func (c *Conversation) busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load.InFlight() || c.ask.InFlight()
}

// SheetCSV returns the loaded CSV text and its summary. ok is false when no
// sheet is loaded.
func (c *Conversation) SheetCSV() (csv string, info SheetInfo, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheet == nil {
		return "", SheetInfo{}, false
	}
	return c.sheetCSV, *c.sheet, true
}

// Snapshot is a point-in-time copy of a conversation for rendering.
type Snapshot struct {
	SessionID string        `json:"sessionId"`
	Messages  []ChatMessage `json:"messages"`
	Sheet     *SheetInfo    `json:"sheet,omitempty"`
	Status    string        `json:"status,omitempty"`
	Load      ActionView    `json:"load"`
	Ask       ActionView    `json:"ask"`
	Banners   []string      `json:"banners,omitempty"`

	SheetsEnabled bool `json:"sheetsEnabled"`
	ChatEnabled   bool `json:"chatEnabled"` // a model is configured and the loaded sheet has data
}

func (c *Conversation) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		SessionID: c.id,
		Messages:  make([]ChatMessage, len(c.messages)),
		Load:      c.load.View(),
		Ask:       c.ask.View(),
	}
	copy(snap.Messages, c.messages)
	if c.sheet != nil {
		info := *c.sheet
		snap.Sheet = &info
		snap.Status = info.StatusText()
	}
	snap.ChatEnabled = strings.TrimSpace(c.sheetCSV) != ""
	return snap
}

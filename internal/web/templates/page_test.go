package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/sheetchat/internal/core"
)

func render(t *testing.T, d PageData, full bool) string {
	t.Helper()
	var buf bytes.Buffer
	c := Workspace(d)
	if full {
		c = Page(d)
	}
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestPage_LoadedSheet(t *testing.T) {
	d := PageData{
		Model: "gemini-2.5-flash",
		Snapshot: core.Snapshot{
			Messages: []core.ChatMessage{
				{ID: "1-user", Text: "<b>total?</b>", Sender: core.SenderUser, Timestamp: "2025-01-15T09:30:00.000Z"},
				{ID: "2-ai", Text: "It is 13.5", Sender: core.SenderAI, Timestamp: "2025-01-15T09:30:01.000Z"},
			},
			Sheet:         &core.SheetInfo{Name: "Sales", Rows: 3, Cols: 2, URL: "https://docs.google.com/spreadsheets/d/abc/edit"},
			Status:        `Successfully loaded: "Sales" (3 rows, 2 cols).`,
			Load:          core.ActionView{Status: core.StatusSucceeded},
			Ask:           core.ActionView{Status: core.StatusSucceeded},
			SheetsEnabled: true,
			ChatEnabled:   true,
		},
	}

	out := render(t, d, true)

	for _, want := range []string{
		"<!DOCTYPE html>",
		`<main id="workspace">`,
		"Successfully loaded: &#34;Sales&#34; (3 rows, 2 cols).",
		"&lt;b&gt;total?&lt;/b&gt;",
		`class="message message-user"`,
		`class="message message-ai"`,
		`<time datetime="2025-01-15T09:30:00.000Z">09:30</time>`,
		`href="/api/sheet.xlsx"`,
		`value="https://docs.google.com/spreadsheets/d/abc/edit"`,
		"Ask a question about the sheet data...",
		"gemini-2.5-flash",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(out, "<b>total?</b>") {
		t.Error("message text was not escaped")
	}
	if strings.Contains(out, `name="question" autocomplete="off" required placeholder="Ask a question about the sheet data..." disabled`) {
		t.Error("question input disabled with chat enabled")
	}
}

func TestWorkspace_Disabled(t *testing.T) {
	d := PageData{Snapshot: core.Snapshot{
		Messages: []core.ChatMessage{
			{ID: "gemini-api-key-error", Text: core.GeminiKeyMissingMessage, Sender: core.SenderAI, Timestamp: "2025-01-15T09:30:00.000Z"},
			{ID: "3-ai-error", Text: core.NoSheetMessage, Sender: core.SenderAI, Timestamp: "2025-01-15T09:30:00.000Z"},
		},
		Banners: []string{core.GeminiKeyMissingBanner, core.SheetsKeyMissingBanner},
		Load:    core.ActionView{Status: core.StatusIdle},
		Ask:     core.ActionView{Status: core.StatusIdle},
	}}

	out := render(t, d, false)

	if strings.Contains(out, "<!DOCTYPE html>") {
		t.Error("workspace rendered the full document")
	}
	if strings.Count(out, `class="banner"`) != 2 {
		t.Errorf("want 2 banners in %s", out)
	}
	if !strings.Contains(out, "Sheet input disabled. Check API key configuration.") {
		t.Error("missing disabled sheet notice")
	}
	if !strings.Contains(out, `class="message message-ai message-error"`) {
		t.Error("error reply not styled as error")
	}
	if !strings.Contains(out, "Chat disabled") {
		t.Error("missing disabled chat placeholder")
	}
	if strings.Contains(out, "/api/sheet.csv") {
		t.Error("download links shown without a sheet")
	}
}

func TestWorkspace_LoadError(t *testing.T) {
	d := PageData{Snapshot: core.Snapshot{
		SheetsEnabled: true,
		Load: core.ActionView{
			Status: core.StatusFailed,
			Error:  &core.UserMessage{Message: "Please enter a Google Sheet URL.", Code: "SHEET001"},
		},
	}}

	out := render(t, d, false)

	if !strings.Contains(out, "Error: Please enter a Google Sheet URL.") {
		t.Errorf("missing load error in %s", out)
	}
	if !strings.Contains(out, "(Code: SHEET001)") {
		t.Error("missing error code")
	}
}

func TestErrorAlert(t *testing.T) {
	var buf bytes.Buffer
	if err := ErrorAlert("Request timed out", "Please try again", "REQ004").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := `<div class="notice error" role="alert"><strong>Request timed out</strong><span class="action">Please try again</span><span class="code">(Code: REQ004)</span></div>`
	if buf.String() != want {
		t.Errorf("ErrorAlert() = %s\nwant %s", buf.String(), want)
	}
}

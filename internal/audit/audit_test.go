package audit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestDetermineSeverity(t *testing.T) {
	tests := []struct {
		action Action
		code   string
		want   Severity
	}{
		{ActionSheetLoad, "", SeverityLow},
		{ActionQuestion, "", SeverityLow},
		{ActionSheetLoadFailed, "SHEET004", SeverityMedium},
		{ActionSheetLoadFailed, "SHEET003", SeverityHigh},
		{ActionQuestionFailed, "AI005", SeverityMedium},
		{ActionQuestionFailed, "AI003", SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+tt.code, func(t *testing.T) {
			if got := determineSeverity(tt.action, tt.code); got != tt.want {
				t.Errorf("determineSeverity(%q, %q) = %q, want %q", tt.action, tt.code, got, tt.want)
			}
		})
	}
}

func TestNop(t *testing.T) {
	var n Nop
	if err := n.Record(context.Background(), Event{Action: ActionQuestion}); err != nil {
		t.Errorf("Record() error = %v", err)
	}
	events, err := n.Recent(context.Background(), 10)
	if err != nil || len(events) != 0 {
		t.Errorf("Recent() = %v, %v; want empty", events, err)
	}
}

func TestToPgText(t *testing.T) {
	if v := toPgText(""); v.Valid {
		t.Error("empty string should be NULL")
	}
	if v := toPgText("abc"); !v.Valid || v.String != "abc" {
		t.Errorf("toPgText(abc) = %+v", v)
	}
}

// testStore connects to TEST_DATABASE_URL or skips the test.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	store := NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	sessionID := "test-" + time.Now().Format("150405.000000")
	base := time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond)

	first := Event{
		Action:        ActionSheetLoad,
		SessionID:     sessionID,
		SpreadsheetID: "abc123",
		Range:         "Sales",
		Rows:          10,
		Cols:          3,
		CreatedAt:     base,
	}
	second := Event{
		Action:         ActionQuestionFailed,
		SessionID:      sessionID,
		QuestionLength: 42,
		ErrorCode:      "AI003",
		CreatedAt:      base.Add(time.Second),
	}
	for _, e := range []Event{first, second} {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	events, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Recent() returned %d events, want 2", len(events))
	}

	if events[0].Action != ActionQuestionFailed || events[0].Severity != SeverityHigh {
		t.Errorf("newest event = %+v, want question_failed/high", events[0])
	}
	if events[0].SpreadsheetID != "" {
		t.Errorf("SpreadsheetID = %q, want empty from NULL", events[0].SpreadsheetID)
	}
	if events[1].Rows != 10 || events[1].Cols != 3 || events[1].Range != "Sales" {
		t.Errorf("older event = %+v", events[1])
	}
	if events[1].ID == "" {
		t.Error("ID should be generated")
	}
}

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sheetchat/internal/config"
)

// DefaultRecentLimit caps Recent when the caller passes a non-positive limit.
const DefaultRecentLimit = 50

const schemaSQL = `
CREATE TABLE IF NOT EXISTS activity_log (
	id              UUID PRIMARY KEY,
	action          TEXT NOT NULL,
	severity        TEXT NOT NULL,
	session_id      TEXT NOT NULL,
	spreadsheet_id  TEXT,
	sheet_range     TEXT,
	row_count       INTEGER NOT NULL DEFAULT 0,
	col_count       INTEGER NOT NULL DEFAULT 0,
	question_length INTEGER NOT NULL DEFAULT 0,
	error_code      TEXT,
	ip_address      TEXT,
	user_agent      TEXT,
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS activity_log_created_at_idx ON activity_log (created_at DESC);
`

const insertSQL = `
INSERT INTO activity_log (
	id, action, severity, session_id, spreadsheet_id, sheet_range,
	row_count, col_count, question_length, error_code, ip_address, user_agent,
	duration_ms, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const recentSQL = `
SELECT id, action, severity, session_id, spreadsheet_id, sheet_range,
	row_count, col_count, question_length, error_code, ip_address, user_agent,
	duration_ms, created_at
FROM activity_log
ORDER BY created_at DESC
LIMIT $1`

// Store writes events to the activity_log table.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStore creates a Store on an open pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Connect opens and pings a pool sized from cfg.
func Connect(ctx context.Context, cfg config.AuditConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the activity_log table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create activity_log: %w", err)
	}
	return nil
}

// Record inserts e, filling in ID, Severity and CreatedAt when unset.
func (s *Store) Record(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Severity == "" {
		e.Severity = determineSeverity(e.Action, e.ErrorCode)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	_, err := s.pool.Exec(ctx, insertSQL,
		e.ID,
		string(e.Action),
		string(e.Severity),
		e.SessionID,
		toPgText(e.SpreadsheetID),
		toPgText(e.Range),
		int32(e.Rows),
		int32(e.Cols),
		int32(e.QuestionLength),
		toPgText(e.ErrorCode),
		toPgText(e.IPAddress),
		toPgText(e.UserAgent),
		e.DurationMS,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.pool.Query(ctx, recentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity log: %w", err)
	}

	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("scan activity log: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.CollectableRow) (Event, error) {
	var e Event
	var action, severity string
	var spreadsheetID, sheetRange, code, ip, ua pgtype.Text
	var rowCount, colCount, questionLength int32
	err := row.Scan(
		&e.ID, &action, &severity, &e.SessionID, &spreadsheetID, &sheetRange,
		&rowCount, &colCount, &questionLength, &code, &ip, &ua,
		&e.DurationMS, &e.CreatedAt,
	)
	if err != nil {
		return Event{}, err
	}

	e.Action = Action(action)
	e.Severity = Severity(severity)
	e.SpreadsheetID = spreadsheetID.String
	e.Range = sheetRange.String
	e.Rows = int(rowCount)
	e.Cols = int(colCount)
	e.QuestionLength = int(questionLength)
	e.ErrorCode = code.String
	e.IPAddress = ip.String
	e.UserAgent = ua.String
	return e, nil
}

// toPgText converts a string to pgtype.Text, storing NULL for empty strings.
func toPgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

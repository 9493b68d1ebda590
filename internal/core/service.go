package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetchat/internal/analyzer"
	"github.com/JonMunkholm/sheetchat/internal/audit"
	"github.com/JonMunkholm/sheetchat/internal/config"
	"github.com/JonMunkholm/sheetchat/internal/logging"
	"github.com/JonMunkholm/sheetchat/internal/sheets"
)

// Errors returned by Service operations.
var (
	ErrEmptyURL       = errors.New("sheet URL is required")
	ErrEmptyQuestion  = errors.New("question is required")
	ErrActionInFlight = errors.New("a request is already in progress for this session")
	ErrNoSheetLoaded  = errors.New("no sheet loaded")

	// ErrLoadSuperseded is returned to a sheet load whose result was dropped
	// because a newer load started for the same session.
	ErrLoadSuperseded = errors.New("sheet load superseded by a newer request")
)

// Fixed texts shown to the user.
const (
	GeminiKeyMissingMessage = "Critical Error: The Gemini API_KEY is not configured. AI features will not function. Please contact support or check your environment setup."
	NoSheetMessage          = "No sheet data loaded. Please use the 'Sheet Data Input' panel to load your Google Sheet."
	GeminiKeyMissingBanner  = "Gemini API Key is missing. AI chat functionality is disabled."
	SheetsKeyMissingBanner  = "Google Sheets API Key is missing. Sheet loading functionality is disabled."

	analysisErrorPrefix = "Sorry, I encountered an error analyzing the data: "
)

// auditTimeout bounds one activity log write.
const auditTimeout = 5 * time.Second

// SheetLoader fetches a sheet as CSV. *sheets.Fetcher implements it.
type SheetLoader interface {
	LoadSheet(ctx context.Context, sheetURL, apiKey, rangeSpec string) (*sheets.FetchedSheet, error)
}

// QuestionAnalyzer answers a question about CSV text. *analyzer.Analyzer
// implements it.
type QuestionAnalyzer interface {
	Configured() bool
	Analyze(ctx context.Context, csvText, question string) (string, error)
}

// Service sequences sheet loads and questions for every browser session.
type Service struct {
	loader   SheetLoader
	analyzer QuestionAnalyzer
	recorder audit.Recorder
	limiter  *CallLimiter
	sessions *SessionStore

	sheetsAPIKey string
	model        string
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sends activity events to r instead of discarding them.
func WithRecorder(r audit.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service. The Sheets key and the model call limits are
// read from cfg.
func NewService(loader SheetLoader, an QuestionAnalyzer, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		loader:       loader,
		analyzer:     an,
		recorder:     audit.Nop{},
		limiter:      NewCallLimiter(cfg.Gemini.MaxConcurrent, cfg.Gemini.MaxWaitTime),
		sheetsAPIKey: cfg.Sheets.APIKey,
		model:        cfg.Gemini.Model,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = NewSessionStore(s.now, s.seedConversation)
	return s
}

// seedConversation adds the startup warning to a new conversation when
// the model cannot be reached.
func (s *Service) seedConversation(c *Conversation) {
	if !s.analyzer.Configured() {
		c.seed(geminiKeyMessageID, SenderAI, GeminiKeyMissingMessage)
	}
}

// LoadSheet fetches a sheet into the session's conversation, replacing any
// sheet loaded before. Failures leave no sheet loaded and are visible through
// the load state; no chat message is appended either way.
func (s *Service) LoadSheet(ctx context.Context, sessionID, sheetURL, rangeSpec string) (SheetInfo, error) {
	conv := s.sessions.GetOrCreate(sessionID)
	sheetURL = strings.TrimSpace(sheetURL)
	rangeSpec = strings.TrimSpace(rangeSpec)

	conv.mu.Lock()
	if sheetURL == "" {
		conv.load.Reject(ErrEmptyURL)
		conv.mu.Unlock()
		return SheetInfo{}, ErrEmptyURL
	}
	if s.sheetsAPIKey == "" {
		conv.load.Reject(sheets.ErrMissingCredential)
		conv.mu.Unlock()
		s.record(ctx, audit.Event{
			Action:    audit.ActionSheetLoadFailed,
			SessionID: sessionID,
			Range:     rangeSpec,
			ErrorCode: MapError(sheets.ErrMissingCredential).Code,
		})
		return SheetInfo{}, sheets.ErrMissingCredential
	}
	gen := conv.load.Begin()
	conv.sheetCSV = ""
	conv.sheet = nil
	conv.mu.Unlock()

	logger := logging.WithFields(ctx, "session_id", sessionID, "generation", gen)
	start := s.now()

	fetched, err := s.loader.LoadSheet(ctx, sheetURL, s.sheetsAPIKey, rangeSpec)
	duration := s.now().Sub(start)

	var spreadsheetID string
	if ref, refErr := sheets.ParseURL(sheetURL, rangeSpec); refErr == nil {
		spreadsheetID = ref.SpreadsheetID
	}
	event := audit.Event{
		SessionID:     sessionID,
		SpreadsheetID: spreadsheetID,
		Range:         rangeSpec,
		DurationMS:    duration.Milliseconds(),
	}

	if err != nil {
		conv.mu.Lock()
		applied := conv.load.Fail(gen, err)
		conv.mu.Unlock()
		if !applied {
			logger.Info("dropped superseded sheet load", "error", err)
			return SheetInfo{}, ErrLoadSuperseded
		}

		logger.Warn("sheet load failed", "error", err, "duration_ms", duration.Milliseconds())
		event.Action = audit.ActionSheetLoadFailed
		event.ErrorCode = MapError(err).Code
		s.record(ctx, event)
		return SheetInfo{}, err
	}

	info := SheetInfo{
		Name:          fetched.Title,
		URL:           sheetURL,
		Rows:          fetched.RowCount,
		Cols:          fetched.ColCount,
		SpreadsheetID: spreadsheetID,
		Range:         rangeSpec,
		LoadedAt:      s.now(),
	}

	conv.mu.Lock()
	applied := conv.load.Succeed(gen, info)
	if applied {
		conv.sheetCSV = fetched.CSV
		conv.sheet = &info
	}
	conv.mu.Unlock()
	if !applied {
		logger.Info("dropped superseded sheet load", "sheet", info.Name)
		return SheetInfo{}, ErrLoadSuperseded
	}

	logger.Info("sheet loaded",
		"sheet", info.Name,
		"rows", info.Rows,
		"cols", info.Cols,
		"duration_ms", duration.Milliseconds(),
	)
	event.Action = audit.ActionSheetLoad
	event.Rows = info.Rows
	event.Cols = info.Cols
	s.record(ctx, event)
	return info, nil
}

// Ask appends the question and exactly one AI reply to the session's
// conversation and returns the reply. The reply carries the answer, or the
// reason no answer could be given. A returned error means the question was
// rejected and nothing was appended.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return ChatMessage{}, ErrEmptyQuestion
	}

	conv := s.sessions.GetOrCreate(sessionID)
	event := audit.Event{
		Action:         audit.ActionQuestionFailed,
		SessionID:      sessionID,
		QuestionLength: len(question),
	}

	conv.mu.Lock()
	if conv.ask.InFlight() {
		conv.mu.Unlock()
		return ChatMessage{}, ErrActionInFlight
	}
	conv.appendMessage(SenderUser, question, suffixUser)

	if !s.analyzer.Configured() {
		conv.ask.Reject(analyzer.ErrClientNotConfigured)
		reply := conv.appendMessage(SenderAI, MapError(analyzer.ErrClientNotConfigured).Message, suffixAIError)
		conv.mu.Unlock()
		event.ErrorCode = MapError(analyzer.ErrClientNotConfigured).Code
		s.record(ctx, event)
		return reply, nil
	}

	csvText := conv.sheetCSV
	if strings.TrimSpace(csvText) == "" {
		conv.ask.Reject(ErrNoSheetLoaded)
		reply := conv.appendMessage(SenderAI, NoSheetMessage, suffixAIError)
		conv.mu.Unlock()
		event.ErrorCode = MapError(ErrNoSheetLoaded).Code
		s.record(ctx, event)
		return reply, nil
	}
	if conv.sheet != nil {
		event.SpreadsheetID = conv.sheet.SpreadsheetID
		event.Range = conv.sheet.Range
	}
	gen := conv.ask.Begin()
	conv.mu.Unlock()

	logger := logging.WithFields(ctx, "session_id", sessionID, "model", s.model)
	start := s.now()

	answer, err := s.analyze(ctx, csvText, question)
	duration := s.now().Sub(start)
	event.DurationMS = duration.Milliseconds()

	conv.mu.Lock()
	var reply ChatMessage
	if err != nil {
		reply = conv.appendMessage(SenderAI, analysisErrorPrefix+MapError(err).Message, suffixAIError)
		conv.ask.Fail(gen, err)
	} else {
		reply = conv.appendMessage(SenderAI, answer, suffixAI)
		conv.ask.Succeed(gen, reply)
	}
	conv.mu.Unlock()

	if err != nil {
		logger.Warn("question failed", "error", err, "duration_ms", duration.Milliseconds())
		event.ErrorCode = MapError(err).Code
	} else {
		logger.Info("question answered",
			"question_length", len(question),
			"answer_length", len(answer),
			"duration_ms", duration.Milliseconds(),
		)
		event.Action = audit.ActionQuestion
	}
	s.record(ctx, event)
	return reply, nil
}

// analyze runs one model call inside a limiter slot.
func (s *Service) analyze(ctx context.Context, csvText, question string) (string, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}
	defer s.limiter.Release()

	return s.analyzer.Analyze(ctx, csvText, question)
}

// record writes an activity event. Failures are logged, never returned.
func (s *Service) record(ctx context.Context, e audit.Event) {
	client := ClientFromContext(ctx)
	e.IPAddress = client.IPAddress
	e.UserAgent = client.UserAgent
	e.CreatedAt = s.now()

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := s.recorder.Record(recordCtx, e); err != nil {
		logging.FromContext(ctx).Error("failed to record activity",
			"action", e.Action,
			"error", err,
		)
	}
}

// Snapshot returns the session's conversation for rendering, creating the
// conversation on first use.
func (s *Service) Snapshot(sessionID string) Snapshot {
	conv := s.sessions.GetOrCreate(sessionID)
	snap := conv.snapshot()
	snap.Banners = s.Banners()
	snap.SheetsEnabled = s.sheetsAPIKey != ""
	snap.ChatEnabled = snap.ChatEnabled && s.analyzer.Configured()
	return snap
}

// Banners returns one warning per missing upstream credential.
func (s *Service) Banners() []string {
	var banners []string
	if !s.analyzer.Configured() {
		banners = append(banners, GeminiKeyMissingBanner)
	}
	if s.sheetsAPIKey == "" {
		banners = append(banners, SheetsKeyMissingBanner)
	}
	return banners
}

// Reset drops the session's conversation. The next request starts fresh.
func (s *Service) Reset(sessionID string) bool {
	return s.sessions.Delete(sessionID)
}

// LoadedSheet returns the CSV text of the session's loaded sheet.
func (s *Service) LoadedSheet(sessionID string) (string, SheetInfo, error) {
	conv, ok := s.sessions.Get(sessionID)
	if !ok {
		return "", SheetInfo{}, ErrNoSheetLoaded
	}
	csvText, info, ok := conv.SheetCSV()
	if !ok {
		return "", SheetInfo{}, ErrNoSheetLoaded
	}
	return csvText, info, nil
}

// Activity returns recent activity events, newest first. It returns nil when
// the recorder cannot list events.
func (s *Service) Activity(ctx context.Context, limit int) ([]audit.Event, error) {
	reader, ok := s.recorder.(audit.Reader)
	if !ok {
		return nil, nil
	}
	return reader.Recent(ctx, limit)
}

// ServiceStatus is reported by the status endpoint.
type ServiceStatus struct {
	SheetsConfigured bool              `json:"sheetsConfigured"`
	GeminiConfigured bool              `json:"geminiConfigured"`
	Model            string            `json:"model"`
	Sessions         int               `json:"sessions"`
	Limiter          CallLimiterStatus `json:"limiter"`
}

// Status returns credential presence, session count and limiter state.
func (s *Service) Status() ServiceStatus {
	return ServiceStatus{
		SheetsConfigured: s.sheetsAPIKey != "",
		GeminiConfigured: s.analyzer.Configured(),
		Model:            s.model,
		Sessions:         s.sessions.Len(),
		Limiter:          s.limiter.Status(),
	}
}

// WaitForCalls blocks until no model calls are in flight or ctx is done.
func (s *Service) WaitForCalls(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

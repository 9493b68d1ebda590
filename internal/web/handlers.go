package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetchat/internal/audit"
	"github.com/JonMunkholm/sheetchat/internal/core"
	"github.com/JonMunkholm/sheetchat/internal/export"
	"github.com/JonMunkholm/sheetchat/internal/logging"
	"github.com/JonMunkholm/sheetchat/internal/web/templates"
)

// MaxFormSize bounds the body of a sheet load or question request (64KB).
const MaxFormSize = 64 << 10

// loadRequest is the JSON body accepted by POST /api/sheet.
type loadRequest struct {
	URL   string `json:"url"`
	Range string `json:"range"`
}

// askRequest is the JSON body accepted by POST /api/ask.
type askRequest struct {
	Question string `json:"question"`
}

// handleIndex renders the chat page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Page(s.pageData(r)).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page failed", "error", err)
	}
}

// handleConversation returns the session's conversation as JSON.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Snapshot(sessionID(r)))
}

// handleLoadSheet fetches the sheet named by the form or JSON body.
func (s *Server) handleLoadSheet(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := decodeRequest(w, r, &req, func() {
		req.URL = r.PostFormValue("url")
		req.Range = r.PostFormValue("range")
	}); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	info, err := s.service.LoadSheet(r.Context(), sessionID(r), req.URL, req.Range)

	switch {
	case wantsJSON(r):
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sheet":  info,
			"status": info.StatusText(),
		})
	case isPartial(r):
		// A failed load is part of the conversation state and renders
		// in the sheet panel.
		s.renderWorkspace(w, r, statusOrOK(err), nil)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// handleAsk sends the question to the model and appends the exchange.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeRequest(w, r, &req, func() {
		req.Question = r.PostFormValue("question")
	}); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	reply, err := s.service.Ask(r.Context(), sessionID(r), req.Question)

	switch {
	case wantsJSON(r):
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": reply})
	case isPartial(r):
		// Rejected questions leave no trace in the conversation, so the
		// reason is shown above the workspace.
		var alert *core.UserMessage
		if err != nil {
			msg := core.MapError(err)
			alert = &msg
		}
		s.renderWorkspace(w, r, statusOrOK(err), alert)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// handleReset starts a new conversation for the session.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.service.Reset(sessionID(r))

	switch {
	case wantsJSON(r):
		w.WriteHeader(http.StatusNoContent)
	case isPartial(r):
		s.renderWorkspace(w, r, http.StatusOK, nil)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// handleSheetCSV downloads the loaded sheet as CSV.
func (s *Server) handleSheetCSV(w http.ResponseWriter, r *http.Request) {
	csvText, info, err := s.service.LoadedSheet(sessionID(r))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(info, "csv"))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := w.Write([]byte(csvText)); err != nil {
		logging.FromContext(r.Context()).Warn("csv download interrupted", "error", err)
	}
}

// handleSheetXLSX downloads the loaded sheet as an Excel workbook.
func (s *Server) handleSheetXLSX(w http.ResponseWriter, r *http.Request) {
	csvText, info, err := s.service.LoadedSheet(sessionID(r))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	// Built in memory so a conversion failure can still return an error page.
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, info.Name, csvText); err != nil {
		respondError(w, r, fmt.Errorf("build workbook: %w", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", attachment(info, "xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("xlsx download interrupted", "error", err)
	}
}

// statusResponse is returned by GET /api/status.
type statusResponse struct {
	core.ServiceStatus
	AuditEnabled bool `json:"auditEnabled"`
}

// handleStatus reports credential presence and load for operators.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		ServiceStatus: s.service.Status(),
		AuditEnabled:  s.cfg.Audit.Enabled(),
	})
}

// handleActivity lists recent sheet loads and questions, newest first.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := min(parseIntParam(r, "limit", s.cfg.Audit.RecentLimit), s.cfg.Audit.RecentLimit)

	events, err := s.service.Activity(r.Context(), limit)
	if err != nil {
		respondError(w, r, fmt.Errorf("list activity: %w", err), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) pageData(r *http.Request) templates.PageData {
	return templates.PageData{
		Snapshot: s.service.Snapshot(sessionID(r)),
		Model:    s.cfg.Gemini.Model,
	}
}

// renderWorkspace answers a partial request with the re-rendered workspace,
// preceded by alert when one is given.
func (s *Server) renderWorkspace(w http.ResponseWriter, r *http.Request, status int, alert *core.UserMessage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	ctx := r.Context()
	if alert != nil {
		if err := templates.ErrorAlert(alert.Message, alert.Action, alert.Code).Render(ctx, w); err != nil {
			logging.FromContext(ctx).Error("render alert failed", "error", err)
			return
		}
	}
	if err := templates.Workspace(s.pageData(r)).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render workspace failed", "error", err)
	}
}

// decodeRequest fills v from a JSON body, or calls fromForm for form posts.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any, fromForm func()) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFormSize)

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form: %w", err)
	}
	fromForm()
	return nil
}

func statusOrOK(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return statusFor(err)
}

// attachment builds a Content-Disposition value named after the sheet.
func attachment(info core.SheetInfo, ext string) string {
	filename := fmt.Sprintf("%s_%s.%s",
		export.SheetName(info.Name), info.LoadedAt.Format("20060102_150405"), ext)
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/sheetchat/internal/core"
)

type contextKey string

const ctxKeySession contextKey = "session_id"

// withSession attaches the session id and the client details used by the
// activity log.
func withSession(ctx context.Context, r *http.Request, sessionID string) context.Context {
	ctx = context.WithValue(ctx, ctxKeySession, sessionID)
	return core.ContextWithClient(ctx, core.ClientInfo{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
}

// sessionID returns the id set by sessionMiddleware.
func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeySession).(string)
	return id
}

package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "client_info"

// ClientInfo identifies the browser behind a request for the activity log.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// ContextWithClient attaches client details to ctx.
func ContextWithClient(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, ctxKeyClient, info)
}

// ClientFromContext returns the client details attached by ContextWithClient,
// or the zero value.
func ClientFromContext(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(ctxKeyClient).(ClientInfo)
	return info
}

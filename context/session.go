package context

import (
	"context"
)

type contextkey string

const (
	sessionKey contextkey = "session"
)

// WithSessionID binds the browser session id to ctx.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionID retrieves the session id from request context.
// Returns "" if no session middleware ran.
func SessionID(ctx context.Context) string {
	val := ctx.Value(sessionKey)
	id, ok := val.(string)
	if !ok {
		return ""
	}
	return id
}

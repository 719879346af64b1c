package rest

import (
	"context"

	"quiz-attempt-service/internal/app"
)

type sessionKey struct{}

// WithSession stamps the call context with the session the credential lookup
// should use.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionFromContext returns the session ID carried by the context, if any.
func SessionFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sessionKey{}).(string)
	return sid
}

// SessionCredentials resolves bearer tokens through the session store using
// the session ID carried in the call context. Calls without a session, or
// whose session holds no token, fail fast as unauthenticated.
type SessionCredentials struct {
	Store app.SessionStore
}

func (s SessionCredentials) Token(ctx context.Context) (string, error) {
	sid := SessionFromContext(ctx)
	if sid == "" {
		return "", nil
	}
	return s.Store.Token(ctx, sid)
}

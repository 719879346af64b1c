package app

import "context"

// SessionStore is the session-context accessor for bearer credentials:
// explicit set/read/clear with a defined lifecycle — stored when the UI
// connects, cleared when the attempt session ends. The scoring client reads
// through this seam instead of any ambient global.
type SessionStore interface {
	SetToken(ctx context.Context, sessionID, token string) error
	Token(ctx context.Context, sessionID string) (string, error)
	Clear(ctx context.Context, sessionID string) error
}

package auth

import "context"

// SessionChecker verifies that a token's session id is still live. The
// dashboard owns session storage, so the API treats this as optional: a nil
// checker means tokens are trusted on signature and expiry alone.
type SessionChecker interface {
	HasSession(ctx context.Context, sessionID string) (bool, error)
}

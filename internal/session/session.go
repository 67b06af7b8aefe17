package session

import (
	"context"
	"strings"
)

// Session carries the authenticated caller identity. Workflows take it as an
// explicit argument; there is no ambient current-user state anywhere in the
// service, so substituting a session in tests is trivial.
type Session struct {
	Principal string
}

func (s Session) Valid() bool {
	return strings.TrimSpace(s.Principal) != ""
}

type ctxKey int

const sessionCtxKey ctxKey = 1

func WithSession(ctx context.Context, s Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionCtxKey, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(sessionCtxKey).(Session)
	if !ok || !s.Valid() {
		return Session{}, false
	}
	return s, true
}

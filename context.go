package goSession

import "context"

type sessionContextKey struct{}

// WithSession attaches s to ctx for request-scoped access.
//
//	Docs: middleware.WithSession
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext returns the session attached by [WithSession].
func FromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(sessionContextKey{}).(*Session)
	return s, ok && s != nil
}

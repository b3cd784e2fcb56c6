package remote

import "context"

type requestIDContextKey struct{}

// WithRequestID attaches a request identifier to ctx. [HTTPCaller] sends it
// as X-Request-ID instead of generating a fresh one.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the identifier set by [WithRequestID].
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id, id != ""
}

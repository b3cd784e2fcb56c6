package remote

import (
	"context"
	"net/http"
)

// Response is the raw result of one backend call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// ClientError reports whether the backend rejected the request (4xx).
func (r *Response) ClientError() bool {
	return r != nil && r.Status >= 400 && r.Status < 500
}

// Caller performs a single backend call. body is JSON-encoded when non-nil;
// token, when non-empty, is sent as a bearer credential.
//
// Implementations return a non-nil error only when no HTTP response was
// obtained (DNS, connect, timeout, cancellation). Non-2xx statuses are
// returned as a Response.
type Caller interface {
	Call(ctx context.Context, method, path string, body any, token string) (*Response, error)
}

// CallerFunc adapts a function to [Caller].
type CallerFunc func(ctx context.Context, method, path string, body any, token string) (*Response, error)

// Call implements [Caller].
func (f CallerFunc) Call(ctx context.Context, method, path string, body any, token string) (*Response, error) {
	return f(ctx, method, path, body, token)
}

package logger

import "context"

// requestIDKey is unexported so only this package can write the value;
// an empty struct key cannot collide with keys from other packages.
type requestIDKey struct{}

// WithRequestID attaches the request ID that correlates log lines,
// response headers, and traces for a single HTTP request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID from ctx, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

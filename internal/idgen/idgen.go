// Package idgen mints per-connection and per-request correlation IDs
// and threads them through context.Context, the idiomatic Go
// replacement for a pooled Context struct's request-scoped id fields
// (the pattern bolt/core.Context uses for per-request storage, here
// reduced to the one piece of request-scoped state the engine core
// itself needs: an identifier for logs and error responses to key on).
package idgen

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const (
	connectionIDKey ctxKey = iota
	requestIDKey
)

// NewConnectionID mints a fresh UUID for an accepted connection.
func NewConnectionID() string {
	return uuid.NewString()
}

// NewRequestID mints a fresh UUID for one request on a connection.
func NewRequestID() string {
	return uuid.NewString()
}

// WithConnectionID returns a context carrying id, retrievable later
// via ConnectionID.
func WithConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connectionIDKey, id)
}

// ConnectionID returns the connection ID stored in ctx, or "" if none.
func ConnectionID(ctx context.Context) string {
	id, _ := ctx.Value(connectionIDKey).(string)
	return id
}

// WithRequestID returns a context carrying id, retrievable later via
// RequestID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID stored in ctx, or "" if none.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Package logging correlates the log lines of one provider call across
// its retries and refreshes.
package logging

import (
	"context"

	"github.com/google/uuid"
)

type callIDKey struct{}

// NewCallID returns a short random tag for one provider call.
func NewCallID() string {
	return uuid.NewString()[:8]
}

// WithCallID attaches a call ID to the context.
func WithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey{}, id)
}

// CallID returns the context's call ID, or "" when none is attached.
func CallID(ctx context.Context) string {
	id, _ := ctx.Value(callIDKey{}).(string)
	return id
}

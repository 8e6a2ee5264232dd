// Package requestcontext carries request-scoped metadata (request id, client
// address, request time) through a context without depending on net/http.
//
// Middleware writes the values; services and stores only read them, so the
// record rules can take "today" from the request instead of the wall clock.
package requestcontext

import (
	"context"
	"time"
)

type metadataKey struct{}

// metadata is copied on every write so a derived context never mutates
// the values seen by its parent.
type metadata struct {
	requestID string
	clientIP  string
	userAgent string
	at        time.Time
}

func from(ctx context.Context) metadata {
	m, _ := ctx.Value(metadataKey{}).(metadata)
	return m
}

func with(ctx context.Context, update func(*metadata)) context.Context {
	m := from(ctx)
	update(&m)
	return context.WithValue(ctx, metadataKey{}, m)
}

func RequestID(ctx context.Context) string { return from(ctx).requestID }
func ClientIP(ctx context.Context) string  { return from(ctx).clientIP }
func UserAgent(ctx context.Context) string { return from(ctx).userAgent }

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return with(ctx, func(m *metadata) { m.requestID = requestID })
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return with(ctx, func(m *metadata) {
		m.clientIP = clientIP
		m.userAgent = userAgent
	})
}

// Now returns the time the request was received, or time.Now when the
// context did not come from a request.
func Now(ctx context.Context) time.Time {
	if at := from(ctx).at; !at.IsZero() {
		return at
	}
	return time.Now()
}

// WithTime pins the request time.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return with(ctx, func(m *metadata) { m.at = t })
}

// Package testutil provides request-context helpers for handler and service
// tests. They simulate what the middleware chain would have populated before
// a request reaches the handler.
package testutil

import (
	"context"
	"net/http"
	"time"

	"museion/pkg/domain"
	"museion/pkg/requestcontext"
)

// WithCaller stamps the authenticated caller address on the request context,
// as RequireAuth would. Invalid addresses are silently ignored.
func WithCaller(req *http.Request, addr string) *http.Request {
	parsed, err := domain.ParseAddress(addr)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), parsed))
}

// WithRequestID stamps a request ID, as the RequestID middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithTime pins the request-scoped clock, as the RequestTime middleware
// would. Tests use it to drive expiry decisions deterministically.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// Context returns a context with caller and request time set, for calling
// services directly.
func Context(caller domain.Address, now time.Time) context.Context {
	ctx := requestcontext.WithCaller(context.Background(), caller)
	return requestcontext.WithTime(ctx, now)
}

// Package httpserver builds the ledger's HTTP server with timeouts suited to
// small JSON request bodies.
package httpserver

import (
	"net/http"
	"time"
)

// New wraps handler in an http.Server. Read timeouts are short: every API
// request body is a small JSON document, and settlement work happens after
// the body is fully read.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

package middleware

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/mssola/useragent"

	"museion/pkg/requestcontext"
)

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Logger emits one structured line per request with caller metadata. The
// parsed user agent keeps operator dashboards readable without raw UA
// strings; client IP and UA also land in the context for services that log
// deeper in the stack.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := clientIPFrom(r)
			rawUA := r.Header.Get("User-Agent")
			ctx := requestcontext.WithClientMetadata(r.Context(), clientIP, rawUA)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			ua := useragent.New(rawUA)
			browser, version := ua.Browser()
			logger.InfoContext(ctx, "http request",
				"request_id", requestcontext.RequestID(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"client_ip", clientIP,
				"ua_browser", browser,
				"ua_version", version,
				"ua_os", ua.OS(),
				"ua_bot", ua.Bot(),
			)
		})
	}
}

func clientIPFrom(r *http.Request) string {
	// The host gateway terminates TLS and sets X-Forwarded-For.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

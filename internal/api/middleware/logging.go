package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// wrapResponseWriter wraps http.ResponseWriter to capture the status code
// and the response size.
type wrapResponseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func newWrapResponseWriter(w http.ResponseWriter) *wrapResponseWriter {
	return &wrapResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *wrapResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *wrapResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// StructuredLogger returns middleware that logs each request using
// log/slog: request ID (set by chi's RequestID middleware), HTTP method,
// path, response status and size, and duration. Webhook requests are
// additionally tagged with the provider's correlation SID so one call or
// message can be traced across its webhook and sync appearances.
func StructuredLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := newWrapResponseWriter(w)

		next.ServeHTTP(wrapped, r)

		attrs := []any{
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"bytes", wrapped.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		if sid := webhookSID(r); sid != "" {
			attrs = append(attrs, "sid", sid)
		}

		slog.Info("http request", attrs...)
	})
}

// webhookSID returns the provider correlation id of a webhook request,
// or "" for other traffic. It only reads a form the handler has already
// parsed; the request body is never consumed here.
func webhookSID(r *http.Request) string {
	if r.PostForm == nil {
		return ""
	}
	if sid := r.PostForm.Get("CallSid"); sid != "" {
		return sid
	}
	return r.PostForm.Get("MessageSid")
}

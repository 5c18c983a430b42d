package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/vidharvest/idgen"
	"github.com/hazyhaar/vidharvest/kit"
)

var traceIDs = idgen.NanoID(8)

// TraceID generates a trace ID for each request and injects it into the
// context, response headers, and a per-request structured logger. The trace
// ID is stored under kit.TraceIDKey and the logger under LoggerKey.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := traceIDs()
		ip := ExtractIP(r, false)

		ctx := kit.WithTraceID(r.Context(), traceID)
		ctx = kit.WithRemoteAddr(ctx, ip)
		w.Header().Set("X-Trace-ID", traceID)

		logger := slog.Default().With(
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", ip,
		)
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			logger = logger.With("forwarded_for", xff)
		}
		ctx = context.WithValue(ctx, LoggerKey, logger)
		logger.Info("request")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

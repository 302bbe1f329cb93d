package middleware

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/phrazzld/scry-vault/internal/api/shared"
	"github.com/phrazzld/scry-vault/internal/platform/logger"
)

// TraceHeader carries the trace ID in requests and responses.
const TraceHeader = "X-Trace-ID"

var validTraceID = regexp.MustCompile(`^[A-Za-z0-9-]{8,64}$`)

// NewTraceMiddleware adds a trace ID to the request context and a logger
// tagged with it. A well-formed inbound X-Trace-ID is reused so callers can
// correlate across services; anything else is replaced.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if inbound := r.Header.Get(TraceHeader); validTraceID.MatchString(inbound) {
				ctx = shared.WithTraceID(ctx, inbound)
			} else {
				ctx = shared.SetTraceID(ctx)
			}
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			w.Header().Set(TraceHeader, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

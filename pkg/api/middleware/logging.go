package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Dreamer0iQ/0x40-cloud/internal/logger"
	"github.com/Dreamer0iQ/0x40-cloud/internal/telemetry"
)

// RequestLogger logs one line per request and seeds the logger context so
// downstream log lines carry the request id, client address and owner.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logCtx := logger.NewLogContext(r.RemoteAddr)
		logCtx.RequestID = chimiddleware.GetReqID(r.Context())
		ctx := logger.WithContext(r.Context(), logCtx)
		r = r.WithContext(ctx)

		defer func() {
			fields := []any{
				"method", r.Method,
				logger.KeyPath, r.URL.Path,
				logger.KeyStatus, ww.Status(),
				"bytes", ww.BytesWritten(),
				logger.KeyDurationMs, logger.Duration(start),
			}
			if traceID := telemetry.TraceID(ctx); traceID != "" {
				fields = append(fields, logger.KeyTraceID, traceID)
			}
			logger.InfoCtx(ctx, "http request", fields...)
		}()

		next.ServeHTTP(ww, r)
	})
}

package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/infra/logging"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// instrument wraps the route tree with per-request trace ids, structured
// access logging, panic recovery, and a hard deadline. Webhook handlers run
// the whole pipeline inline, so the deadline also bounds action execution.
func instrument(next http.Handler, logger *zerolog.Logger, deadline time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), deadline)
		defer cancel()
		ctx = logging.WithTraceID(ctx, uuid.NewString())

		l := logging.With(ctx, logger)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		defer func() {
			if rec := recover(); rec != nil {
				l.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("panic recovered")
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("duration", time.Since(start)).
				Msg("http_request")
		}()

		next.ServeHTTP(sw, r.WithContext(ctx))
	})
}

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recovery turns a panicking handler into a plain 500 and counts it.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	panics, _ := otel.Meter("github.com/mark-c-hall/whatmovies/internal/middleware").Int64Counter(
		"http.server.panics",
		metric.WithDescription("Handler panics recovered by method"),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				if panics != nil {
					panics.Add(r.Context(), 1, metric.WithAttributes(attribute.String("method", r.Method)))
				}
				logger.ErrorContext(r.Context(), "handler panic",
					"panic", rec,
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
					"visitor", VisitorFromContext(r.Context()),
					"request_id", RequestID(r.Context()),
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

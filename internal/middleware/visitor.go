package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	VisitorKey contextKey = "visitor"

	VisitorCookie = "wm_visitor"
	visitorMaxAge = 365 * 24 * time.Hour
)

// Visitor identifies the browser through a long-lived cookie so favorites can
// be scoped to it. Missing or malformed cookies are replaced with a new id.
func Visitor(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(VisitorCookie); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}

			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     VisitorCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(visitorMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), VisitorKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func VisitorFromContext(ctx context.Context) string {
	id, _ := ctx.Value(VisitorKey).(string)
	return id
}

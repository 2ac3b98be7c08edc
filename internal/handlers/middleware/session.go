package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/dailybrief/internal/handlers/render"
	"github.com/nkiryanov/dailybrief/internal/handlers/userctx"
)

const SessionCookieName = "dailybrief_session"

type SessionManager interface {
	Issue(userID uuid.UUID) (token string, expiresAt time.Time, err error)
	Parse(token string) (uuid.UUID, error)
}

// SessionMiddleware puts user id from session cookie into request context
// Browser without valid session gets a new user id and a fresh cookie
func SessionMiddleware(sm SessionManager, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				if userID, err := sm.Parse(cookie.Value); err == nil {
					next.ServeHTTP(w, r.WithContext(userctx.New(r.Context(), userID)))
					return
				}
			}

			userID := uuid.New()
			token, expiresAt, err := sm.Issue(userID)
			if err != nil {
				render.ServiceError(w, "Failed to start session", http.StatusInternalServerError)
				return
			}

			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    token,
				Path:     "/",
				Expires:  expiresAt,
				MaxAge:   int(time.Until(expiresAt).Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})

			next.ServeHTTP(w, r.WithContext(userctx.New(r.Context(), userID)))
		})
	}
}

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/dailybrief/internal/handlers/userctx"
	"github.com/nkiryanov/dailybrief/internal/service/session"
)

type failingIssuer struct{}

func (failingIssuer) Issue(uuid.UUID) (string, time.Time, error) {
	return "", time.Time{}, errors.New("signing failed")
}

func (failingIssuer) Parse(string) (uuid.UUID, error) {
	return uuid.Nil, errors.New("invalid")
}

func TestSessionMiddleware(t *testing.T) {
	t.Parallel()

	sm, err := session.New(session.Config{SecretKey: "test-secret", TTL: time.Hour})
	require.NoError(t, err)

	var seen uuid.UUID
	h := SessionMiddleware(sm, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userctx.FromContext(r.Context())
		require.True(t, ok, "user id must be in context")
		seen = userID
	}))

	t.Run("new session", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		cookie := cookies[0]
		assert.Equal(t, SessionCookieName, cookie.Name)
		assert.True(t, cookie.HttpOnly, "session cookie should be HttpOnly")
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite, "Lax is needed to survive provider redirect")
		assert.Equal(t, "/", cookie.Path)
		assert.InDelta(t, time.Hour.Seconds(), cookie.MaxAge, 1)

		userID, err := sm.Parse(cookie.Value)
		require.NoError(t, err)
		assert.Equal(t, seen, userID)
	})

	t.Run("existing session kept", func(t *testing.T) {
		userID := uuid.New()
		token, _, err := sm.Issue(userID)
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		require.Equal(t, userID, seen)
		require.Empty(t, w.Result().Cookies(), "no new cookie for valid session")
	})

	t.Run("invalid cookie replaced", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		require.Len(t, w.Result().Cookies(), 1)
		require.NotEqual(t, uuid.Nil, seen)
	})

	t.Run("issue failure", func(t *testing.T) {
		called := false
		h := SessionMiddleware(failingIssuer{}, false)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		}))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.False(t, called)
	})
}

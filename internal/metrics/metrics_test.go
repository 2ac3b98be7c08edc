package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	t.Run("observe", func(t *testing.T) {
		m := New()

		m.ObserveStage("news", time.Second, nil)
		m.ObserveStage("news", time.Second, errors.New("boom"))
		m.ObserveRefresh(nil)
		m.ObserveAuthorization(errors.New("mismatch"))
		m.ObserveSummarizerAttempt(503)
		m.ObserveSummarizerAttempt(503)

		assert.InDelta(t, 1, testutil.ToFloat64(m.stageTotal.WithLabelValues("news", StatusOK)), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.stageTotal.WithLabelValues("news", StatusError)), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.refreshTotal.WithLabelValues(StatusOK)), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(m.authorizationTotal.WithLabelValues(StatusError)), 0)
		assert.InDelta(t, 2, testutil.ToFloat64(m.summarizerAttempts.WithLabelValues("503")), 0)
	})

	t.Run("nil metrics noop", func(t *testing.T) {
		var m *Metrics

		require.NotPanics(t, func() {
			m.ObserveStage("news", time.Second, nil)
			m.ObserveRefresh(nil)
			m.ObserveAuthorization(nil)
			m.ObserveSummarizerAttempt(200)
		})
	})

	t.Run("handler", func(t *testing.T) {
		m := New()
		m.ObserveRefresh(nil)

		w := httptest.NewRecorder()
		m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, w.Code)
		body, err := io.ReadAll(w.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `dailybrief_token_refresh_total{status="ok"} 1`)
	})
}

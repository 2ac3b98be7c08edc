package weather

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, status int, body string) *Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
}

func TestClient_Current(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		city   string
		status int
		body   string
		want   string
		wantOK bool
	}{
		{
			name:   "ok",
			city:   "London",
			status: http.StatusOK,
			body:   `{"name":"London","weather":[{"description":"light rain"}],"main":{"temp":12.46,"humidity":81},"wind":{"speed":3.6},"cod":200}`,
			want:   "London: light rain, 12.5°C, humidity 81%, wind 3.6 m/s",
			wantOK: true,
		},
		{
			name:   "negative temperature without condition",
			city:   "Oslo",
			status: http.StatusOK,
			body:   `{"name":"Oslo","weather":[],"main":{"temp":-3.04,"humidity":90},"wind":{"speed":1}}`,
			want:   "Oslo: unknown, -3°C, humidity 90%, wind 1 m/s",
			wantOK: true,
		},
		{
			name:   "city not found",
			city:   "Atlantis",
			status: http.StatusNotFound,
			body:   `{"cod":"404","message":"city not found"}`,
			want:   "Weather unavailable for Atlantis: city not found",
		},
		{
			name:   "server error without message",
			city:   "London",
			status: http.StatusBadGateway,
			body:   `oops`,
			want:   "Weather unavailable for London: status 502",
		},
		{
			name:   "garbage with 200",
			city:   "London",
			status: http.StatusOK,
			body:   `oops`,
			want:   "Weather unavailable for London: unexpected response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.status, tt.body)

			got := c.Current(t.Context(), tt.city)

			assert.Equal(t, tt.want, got.Line)
			assert.Equal(t, tt.wantOK, got.OK)
		})
	}

	t.Run("api key missing", func(t *testing.T) {
		c := NewClient(Config{}, nil)

		got := c.Current(t.Context(), "London")

		require.False(t, got.OK)
		require.Equal(t, "Weather unavailable for London: api key is not configured", got.Line)
	})

	t.Run("provider unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c := NewClient(Config{APIKey: "key", BaseURL: srv.URL}, nil)

		got := c.Current(t.Context(), "London")

		require.False(t, got.OK)
		require.Equal(t, "Weather unavailable for London: provider is not reachable", got.Line)
	})
}

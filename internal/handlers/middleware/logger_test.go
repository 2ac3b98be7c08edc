package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type logCall struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	calls []logCall
}

func (l *recordingLogger) Info(msg string, v ...any) {
	l.calls = append(l.calls, logCall{level: "info", msg: msg, args: v})
}

func (l *recordingLogger) Warn(msg string, v ...any) {
	l.calls = append(l.calls, logCall{level: "warn", msg: msg, args: v})
}

func TestLoggerMiddleware(t *testing.T) {
	t.Parallel()

	serve := func(t *testing.T, status int) (*recordingLogger, *http.Response, string) {
		logger := &recordingLogger{}
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, err := w.Write([]byte("hi"))
			require.NoError(t, err, "should write response")
		})

		srv := httptest.NewServer(LoggerMiddleware(logger)(h))
		t.Cleanup(srv.Close)

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		return logger, resp, string(body)
	}

	t.Run("info", func(t *testing.T) {
		logger, resp, body := serve(t, http.StatusTeapot)

		require.Equalf(t, http.StatusTeapot, resp.StatusCode, "should return status Teapot. Resp: %s", body)
		require.Equal(t, "hi", body, "should return 'hi' in response")

		require.Len(t, logger.calls, 1, "logger should be called once")
		call := logger.calls[0]
		require.Equal(t, "info", call.level)
		require.Equal(t, "got HTTP request", call.msg, "logger should log 'got HTTP request'")
		args := call.args
		require.Len(t, args, 10, "logger should log 10 fields")
		require.Equal(t, "method", args[0])
		require.Equal(t, "GET", args[1])
		require.Equal(t, "uri", args[2])
		require.Equal(t, "/test", args[3])
		require.Equal(t, "duration", args[4])
		require.NotEmpty(t, args[5], "duration should not be empty")
		require.Equal(t, "status", args[6])
		require.Equal(t, http.StatusTeapot, args[7])
		require.Equal(t, "size", args[8])
		require.Equal(t, 2, args[9], "size should be 2 (length of 'hi')")
	})

	t.Run("server error logged as warning", func(t *testing.T) {
		logger, _, _ := serve(t, http.StatusBadGateway)

		require.Len(t, logger.calls, 1)
		require.Equal(t, "warn", logger.calls[0].level)
		require.Equal(t, http.StatusBadGateway, logger.calls[0].args[7])
	})
}

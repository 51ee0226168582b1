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

type recordLogger struct {
	calls []logCall
}

func (l *recordLogger) Info(msg string, v ...any)  { l.calls = append(l.calls, logCall{"info", msg, v}) }
func (l *recordLogger) Warn(msg string, v ...any)  { l.calls = append(l.calls, logCall{"warn", msg, v}) }
func (l *recordLogger) Error(msg string, v ...any) { l.calls = append(l.calls, logCall{"error", msg, v}) }

func TestLoggerMiddleware(t *testing.T) {
	serve := func(t *testing.T, status int) *recordLogger {
		l := &recordLogger{}

		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, err := w.Write([]byte("hi"))
			require.NoError(t, err, "should write response")
		})

		srv := httptest.NewServer(LoggerMiddleware(l)(h))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test?secret=1")
		require.NoError(t, err, "should make request to test server")
		defer resp.Body.Close() // nolint:errcheck
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")

		require.Equal(t, status, resp.StatusCode)
		require.Equal(t, "hi", string(body), "should return 'hi' in response")
		return l
	}

	t.Run("fields", func(t *testing.T) {
		l := serve(t, http.StatusTeapot)

		require.Len(t, l.calls, 1, "logger should be called once")
		call := l.calls[0]
		require.Equal(t, "got HTTP request", call.msg)
		args := call.args
		require.Len(t, args, 12, "logger should log 12 fields")
		require.Equal(t, "method", args[0])
		require.Equal(t, "GET", args[1])
		require.Equal(t, "path", args[2])
		require.Equal(t, "/test", args[3], "query must not be logged")
		require.Equal(t, "duration", args[4])
		require.NotEmpty(t, args[5], "duration should not be empty")
		require.Equal(t, "status", args[6])
		require.Equal(t, http.StatusTeapot, args[7])
		require.Equal(t, "size", args[8])
		require.Equal(t, 2, args[9], "size should be 2 (length of 'hi')")
		require.Equal(t, "request_id", args[10])
		require.Empty(t, args[11], "no request id without RequestID middleware")
	})

	t.Run("level by status", func(t *testing.T) {
		cases := map[int]string{
			http.StatusOK:                  "info",
			http.StatusCreated:             "info",
			http.StatusUnauthorized:        "warn",
			http.StatusInternalServerError: "error",
		}

		for status, level := range cases {
			l := serve(t, status)
			require.Len(t, l.calls, 1)
			require.Equal(t, level, l.calls[0].level, "status %d", status)
		}
	})
}

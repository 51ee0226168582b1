package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("panic rendered as 500", func(t *testing.T) {
		l := &recordLogger{}
		h := RecoveryMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.JSONEq(t, `{
			"statusCode": 500,
			"success": false,
			"message": "Internal server error",
			"data": null,
			"error": {"type": "service_error", "message": "Internal server error"}
		}`, rec.Body.String())

		require.Len(t, l.calls, 1)
		assert.Equal(t, "error", l.calls[0].level)
		assert.Equal(t, "panic recovered", l.calls[0].msg)
		assert.Contains(t, l.calls[0].args, "boom")
	})

	t.Run("no panic untouched", func(t *testing.T) {
		l := &recordLogger{}
		h := RecoveryMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, l.calls)
	})

	t.Run("abort handler passes through", func(t *testing.T) {
		h := RecoveryMiddleware(&recordLogger{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := chimw.RequestID(LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/games/x/state", nil))

	require.Len(t, hook.Entries, 1)
	e := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, e.Level)
	assert.Equal(t, http.StatusTeapot, e.Data["status"])
	assert.Equal(t, 15, e.Data["bytes"])
	assert.Equal(t, "/api/games/x/state", e.Data["path"])
	assert.NotEmpty(t, e.Data["request_id"])
}

func TestLogMiddlewareWarnsOnServerError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := LogMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestWebSocketLogHelpers(t *testing.T) {
	logger, hook := test.NewNullLogger()
	fields := logrus.Fields{"game": "g1", "player": "p1"}

	LogWebSocketConnect(logger, "10.0.0.1:5000", fields)
	assert.Equal(t, "WebSocket connected", hook.LastEntry().Message)
	assert.Equal(t, "g1", hook.LastEntry().Data["game"])

	LogWebSocketDisconnect(logger, "10.0.0.1:5000", fields, errors.New("read: EOF"))
	e := hook.LastEntry()
	assert.Equal(t, "WebSocket disconnected", e.Message)
	assert.Contains(t, e.Data, logrus.ErrorKey)
	assert.Equal(t, "10.0.0.1:5000", e.Data["remote"])
}

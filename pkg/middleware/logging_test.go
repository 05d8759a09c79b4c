package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func serve(t *testing.T, logger *zap.Logger, path string) {
	t.Helper()
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	req := httptest.NewRequest(http.MethodGet, path, nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRequestLoggerRecordsStatusAndSize(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	serve(t, zap.New(core), "/api/chat")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, int64(len("short and stout")), fields["bytes"])
	assert.Equal(t, "/api/chat", fields["path"])
}

func TestRequestLoggerQuietForProbes(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	serve(t, zap.New(core), "/health")

	assert.Zero(t, logs.Len(), "probe requests log at debug only")
}

func TestRequestLoggerNilLoggerPassesThrough(t *testing.T) {
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gosuda/voxroom/internal/server/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP_FirstRequestPasses(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.RateLimitByIP(ctx, 10, 5)(okHandler())

	rec := doRequest(t, handler, "10.0.0.1:1234")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitByIP_BurstExceededReturns429(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Effectively no refill during the test window.
	handler := middleware.RateLimitByIP(ctx, 0.001, 2)(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(t, handler, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, doRequest(t, handler, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, handler, "10.0.0.1:1234").Code)
}

func TestRateLimitByIP_IndependentPerIP(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.RateLimitByIP(ctx, 0.001, 1)(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(t, handler, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, handler, "10.0.0.1:1234").Code)

	// A different client is not throttled by the first one's burst.
	assert.Equal(t, http.StatusOK, doRequest(t, handler, "10.0.0.2:1234").Code)
}

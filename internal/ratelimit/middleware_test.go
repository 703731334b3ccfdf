package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestMiddlewareEnforcesLimit(t *testing.T) {
	l, err := New("1-M", memory.NewStore())
	require.NoError(t, err)
	h := Handler{Limiter: l, Scope: "cart_check"}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/check", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rr1 := httptest.NewRecorder()
	h.ServeHTTP(rr1, req)
	require.Equal(t, http.StatusOK, rr1.Code)
	require.Equal(t, "1", rr1.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rr1.Header().Get("X-RateLimit-Remaining"))

	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req)
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &body))
	require.Equal(t, "rate_limited", body["default_code"])

	other := httptest.NewRequest(http.MethodPost, "/api/v1/cart/check", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rr3 := httptest.NewRecorder()
	h.ServeHTTP(rr3, other)
	require.Equal(t, http.StatusOK, rr3.Code)
}

func TestMiddlewareWithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client)
	require.NoError(t, err)
	l, err := New("2-H", store)
	require.NoError(t, err)
	h := Handler{Limiter: l, Key: func(*http.Request) string { return "static" }}.Middleware(okHandler())

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("store down")
}

func (brokenStore) Peek(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("store down")
}

func (brokenStore) Reset(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("store down")
}

func (brokenStore) Increment(context.Context, string, int64, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("store down")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	l := limiter.New(brokenStore{}, limiter.Rate{Period: time.Minute, Limit: 1})
	called := false
	h := Handler{Limiter: l, OnError: func(*http.Request, error) { called = true }}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}

func TestNewRejectsBadRate(t *testing.T) {
	_, err := New("lots", memory.NewStore())
	require.Error(t, err)
}

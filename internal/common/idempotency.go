package common

import (
	"context"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Idem provides an Idempotency-Key middleware backed by Redis. A key is held for
// TTL after the first request; replays inside that window are rejected.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

// IdempotencyHeader is the request header carrying the client supplied key.
const IdempotencyHeader = "Idempotency-Key"

func idemKey(scope, key string) string {
	return "idem:" + scope + ":" + Sha256Hex(key)
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		key := idemKey(r.URL.Path, header)
		ok, err := i.R.SetNX(r.Context(), key, "locked", ttl).Result()
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("idempotency key store unavailable")
			WriteError(w, err)
			return
		}
		if !ok {
			WriteError(w, ErrIdempotentReplay)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= http.StatusBadRequest {
			// failed attempts may be retried with the same key
			_ = i.R.Del(context.WithoutCancel(r.Context()), key).Err()
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

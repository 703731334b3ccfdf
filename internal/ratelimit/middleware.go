package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/toko-storefront/internal/common"
)

// Handler enforces a limiter.Limiter before delegating to the next handler.
// Store failures fail open and are reported through OnError.
type Handler struct {
	Limiter *limiter.Limiter
	// Key derives the bucket for a request. Defaults to the client IP.
	Key     func(*http.Request) string
	Scope   string
	OnError func(*http.Request, error)
}

// New builds a limiter from a formatted rate such as "60-M" on the given store.
func New(rate string, store limiter.Store) (*limiter.Limiter, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	return limiter.New(store, parsed), nil
}

// ClientIP keys requests by remote address. chi's RealIP middleware runs earlier
// so RemoteAddr already carries the forwarded address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		keyFn := h.Key
		if keyFn == nil {
			keyFn = ClientIP
		}
		key := keyFn(r)
		if h.Scope != "" {
			key = h.Scope + ":" + key
		}
		lctx, err := h.Limiter.Get(r.Context(), key)
		if err != nil {
			if h.OnError != nil {
				h.OnError(r, err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			retryAfter := time.Until(time.Unix(lctx.Reset, 0)).Seconds()
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(int(retryAfter)))
			common.WriteError(w, common.ErrRateLimited)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/toko-storefront/internal/common"
)

// DefaultMaxBody bounds cart and checkout payloads.
const DefaultMaxBody = 64 << 10

// BodyLimit enforces a maximum request payload size.
type BodyLimit struct {
	Max int64
}

// Middleware rejects requests exceeding the configured limit with a
// payload_too_large error.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.WriteError(w, common.ErrPayloadTooLarge.With("max_bytes", b.Max))
			return
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, b.Max+1))
		if err != nil && !errors.Is(err, io.EOF) {
			common.WriteError(w, common.ErrInvalidPayload.Wrap(err))
			return
		}
		_ = r.Body.Close()
		if int64(len(buf)) > b.Max {
			common.WriteError(w, common.ErrPayloadTooLarge.With("max_bytes", b.Max))
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

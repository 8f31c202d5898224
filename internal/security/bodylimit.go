package security

import (
	"net/http"

	"github.com/noah-isme/paystack-checkout/internal/common"
)

// BodyLimit caps request payloads. Declared oversize bodies are refused up
// front; undeclared ones surface *http.MaxBytesError to the handler's reader.
type BodyLimit struct {
	Max int64
}

// Middleware applies the limit to every request with a body.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.Fail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}

package payment

import (
	"crypto/sha512"
	"strings"

	"github.com/noah-isme/paystack-checkout/internal/common"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "x-paystack-signature"

// Sign returns hex(HMAC-SHA512(secret, body)), the value Paystack sends in SignatureHeader.
func Sign(secret string, body []byte) string {
	return common.HMACHex(sha512.New, secret, body)
}

// ValidSignature reports whether provided matches the signature of body under
// secret. The comparison is constant time.
func ValidSignature(secret string, body []byte, provided string) bool {
	if secret == "" {
		return false
	}
	return common.EqualHex(Sign(secret, body), strings.ToLower(strings.TrimSpace(provided)))
}

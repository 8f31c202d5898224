package common

import (
	"crypto/hmac"
	"encoding/hex"
	"hash"
)

// HMACHex returns the hex-encoded HMAC of body under key using the supplied hash constructor.
func HMACHex(newHash func() hash.Hash, key string, body []byte) string {
	mac := hmac.New(newHash, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// EqualHex compares two hex digests in constant time.
func EqualHex(expected, provided string) bool {
	if expected == "" || provided == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(provided))
}

// Package signature authenticates webhook bodies with an HMAC-SHA256 shared secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Header carries the lowercase hex digest of the raw request body.
const Header = "X-Signature"

// Sign returns the lowercase hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether provided is the signature of body under secret.
// The digests are compared in constant time. An empty secret or signature never verifies.
func Verify(secret, body []byte, provided string) bool {
	if len(secret) == 0 || provided == "" {
		return false
	}
	expected := Sign(secret, body)
	return hmac.Equal([]byte(provided), []byte(expected))
}

// Package webhook implements the outbound delivery pipeline: signed
// payload construction, HTTP transmission with bounded retries and
// exponential backoff, per-URL rate limiting, and concurrent event
// fan-out to matching subscriptions.
package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 of payload under secret.
// It returns "" when no secret is configured; the registry auto-generates
// secrets so this should not occur for persisted subscriptions.
func Sign(payload []byte, secret string) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the valid HMAC-SHA256 of payload
// under secret, using a constant-time comparison. It is the subscriber-side
// counterpart of Sign and is exposed for test symmetry. An empty signature
// or secret never verifies.
func Verify(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GenerateSecret returns a freshly generated 32-byte secret, hex encoded
// (64 characters), suitable as an HMAC signing key.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Wire contract headers. Receivers validate by recomputing the HMAC over the
// raw request body before parsing it.
const (
	HeaderSignature = "X-Signature"
	HeaderWebhookID = "X-Webhook-Id"
)

// Sign computes base64(HMAC-SHA256(secret, body)) over the exact bytes that
// go on the wire.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches body under secret.
// Intended for receivers and tests; comparison is constant-time.
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

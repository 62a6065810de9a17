// Package signature computes and checks the HMAC-SHA256 signatures the
// payment gateway attaches to checkouts and webhooks.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the lowercase hex HMAC-SHA256 of payload keyed by secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time.
func Verify(secret string, payload []byte, sig string) bool {
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// PaymentPayload is the string checkout signatures are computed over.
func PaymentPayload(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}

func SignPayment(secret, orderID, paymentID string) string {
	return Sign(secret, PaymentPayload(orderID, paymentID))
}

func VerifyPayment(secret, orderID, paymentID, sig string) bool {
	return Verify(secret, PaymentPayload(orderID, paymentID), sig)
}

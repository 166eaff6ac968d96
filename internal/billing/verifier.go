// Package billing handles inbound webhooks from the payment provider.
//
// The provider signs every delivery with hex-encoded HMAC-SHA256 over the
// raw request body, presented in the X-Signature header. Nothing in the
// payload may be parsed, logged, or acted on until Verify has accepted it —
// the signature IS the trust boundary.
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/sakif/codecraft/internal/apperror"
)

// Verifier checks billing webhook signatures against a shared secret.
//
// The secret is fixed at construction — it comes from config, loaded once
// at startup, never read from the environment at call time. That makes the
// verifier a pure function over its inputs and trivially testable with a
// fake secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given shared secret.
// An empty secret is a configuration error: a verifier that can't verify
// must not exist, rather than silently accepting or rejecting everything.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("billing: webhook secret must not be empty")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify checks that signature is the hex HMAC-SHA256 of payload under the
// shared secret. Returns apperror.ErrVerification on mismatch.
//
// hmac.Equal compares in constant time. A naive == comparison leaks, byte
// by byte, how much of a guessed signature was correct — enough signal to
// forge a signature by timing alone.
func (v *Verifier) Verify(payload []byte, signature string) error {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return apperror.Verification("invalid webhook signature")
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 of payload. Used by tests to build
// valid deliveries; the server itself never signs billing payloads.
func (v *Verifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

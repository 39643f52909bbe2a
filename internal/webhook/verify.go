package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"commerce-chat-bot/internal/domain"
)

// SignatureHeader carries the provider's HMAC-SHA256 of the raw body,
// hex-encoded with a "sha256=" prefix.
const SignatureHeader = "X-Hub-Signature-256"

const DefaultMaxBytes = 1 << 20 // 1 MiB

// Verifier checks payload size and authenticity before anything else
// touches the body.
type Verifier struct {
	secret   []byte
	maxBytes int64
}

func NewVerifier(secret string, maxBytes int64) *Verifier {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Verifier{secret: []byte(secret), maxBytes: maxBytes}
}

// ReadAndVerify consumes the request body. Order matters: the size ceiling
// is enforced before any signature work so oversized payloads are cheap to
// reject, and an unsigned oversized request reports ErrPayloadTooLarge.
func (v *Verifier) ReadAndVerify(r *http.Request) ([]byte, error) {
	if r.ContentLength > v.maxBytes {
		return nil, fmt.Errorf("content length %d: %w", r.ContentLength, domain.ErrPayloadTooLarge)
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, v.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > v.maxBytes {
		return nil, fmt.Errorf("body exceeds %d bytes: %w", v.maxBytes, domain.ErrPayloadTooLarge)
	}

	if err := v.Verify(body, r.Header.Get(SignatureHeader)); err != nil {
		return nil, err
	}
	return body, nil
}

// Verify checks the signature over body. Comparison is constant time.
func (v *Verifier) Verify(body []byte, header string) error {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return fmt.Errorf("missing sha256 prefix: %w", domain.ErrInvalidSignature)
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("decode signature: %w", domain.ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), want) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Sign produces the header value for body. Used by tests and the demo
// sender.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

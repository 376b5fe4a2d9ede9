package protocol

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// HMACKeyLen is the required key length in bytes.
const HMACKeyLen = 32

// signatureMaxAge is how far a signed message's timestamp may drift from the
// server clock in either direction.
const signatureMaxAge = 30 * time.Second

// Signed-envelope verification failures. All of them cost the client its
// connection after a single Error frame.
var (
	ErrMessageExpired = errors.New("Message expired")
	ErrDuplicateNonce = errors.New("Duplicate nonce")
	ErrBadSignature   = errors.New("Invalid signature")
)

// HMACKey authenticates signed frames with HMAC-SHA256.
type HMACKey struct {
	key [HMACKeyLen]byte
}

// NewHMACKey generates a random key.
func NewHMACKey() (*HMACKey, error) {
	k := &HMACKey{}
	if _, err := rand.Read(k.key[:]); err != nil {
		return nil, fmt.Errorf("generating hmac key: %w", err)
	}
	return k, nil
}

// HMACKeyFromBytes builds a key from raw bytes, which must be at least
// HMACKeyLen long; extra bytes are ignored.
func HMACKeyFromBytes(b []byte) (*HMACKey, error) {
	if len(b) < HMACKeyLen {
		return nil, fmt.Errorf("hmac key requires %d bytes, got %d", HMACKeyLen, len(b))
	}
	k := &HMACKey{}
	copy(k.key[:], b[:HMACKeyLen])
	return k, nil
}

// HMACKeyFromHex builds a key from a hex string, as supplied by the
// POKER_HMAC_KEY environment variable.
func HMACKeyFromHex(s string) (*HMACKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding hmac key: %w", err)
	}
	return HMACKeyFromBytes(b)
}

// Fingerprint returns a short identifier for the key, safe to log.
func (k *HMACKey) Fingerprint() string {
	sum := sha256.Sum256(k.key[:])
	return hex.EncodeToString(sum[:4])
}

// Sign computes the HMAC-SHA256 tag of message.
func (k *HMACKey) Sign(message string) []byte {
	mac := hmac.New(sha256.New, k.key[:])
	mac.Write([]byte(message))
	return mac.Sum(nil)
}

// Verify reports whether sig is a valid tag for message. Comparison is
// constant time.
func (k *HMACKey) Verify(message string, sig []byte) bool {
	if len(sig) != sha256.Size {
		return false
	}
	return hmac.Equal(k.Sign(message), sig)
}

// SignedMessage wraps a client frame with an HMAC tag, a millisecond
// timestamp and a nonce for replay protection. The tag covers the decimal
// timestamp, the decimal nonce and the payload, concatenated in that order.
type SignedMessage struct {
	Message   string `json:"message"`
	Signature []byte `json:"signature"`
	Timestamp uint64 `json:"timestamp"`
	Nonce     uint64 `json:"nonce"`
}

// SignMessage wraps payload in a signed envelope stamped at now.
func SignMessage(key *HMACKey, payload []byte, nonce uint64, now time.Time) *SignedMessage {
	ts := uint64(now.UnixMilli())
	return &SignedMessage{
		Message:   string(payload),
		Signature: key.Sign(signingString(ts, nonce, string(payload))),
		Timestamp: ts,
		Nonce:     nonce,
	}
}

func signingString(timestamp, nonce uint64, message string) string {
	return fmt.Sprintf("%d%d%s", timestamp, nonce, message)
}

// Verifier checks signed envelopes for freshness, replay and authenticity,
// in that order, then decodes the inner client message.
type Verifier struct {
	key   *HMACKey
	cache *NonceCache
}

// NewVerifier builds a verifier around key. The nonce cache provides the
// replay window.
func NewVerifier(key *HMACKey, cache *NonceCache) *Verifier {
	return &Verifier{key: key, cache: cache}
}

// Verify unpacks a signed frame and returns the inner client message. now is
// the server's current time.
func (v *Verifier) Verify(data []byte, now time.Time) (*ClientMessage, error) {
	var env SignedMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}

	sent := time.UnixMilli(int64(env.Timestamp))
	drift := now.Sub(sent)
	if drift < 0 {
		drift = -drift
	}
	if drift > signatureMaxAge {
		return nil, ErrMessageExpired
	}

	if v.cache.IsDuplicate(env.Nonce) {
		return nil, ErrDuplicateNonce
	}

	if !v.key.Verify(signingString(env.Timestamp, env.Nonce, env.Message), env.Signature) {
		return nil, ErrBadSignature
	}

	return ParseClientMessage([]byte(env.Message))
}

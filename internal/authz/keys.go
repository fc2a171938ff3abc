// ABOUTME: SSH public key parsing and signed-request verification
// ABOUTME: Signatures cover "timestamp|nonce" with replay protection

package authz

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	// SignatureMaxAge is the maximum age of a signature timestamp.
	SignatureMaxAge = 5 * time.Minute

	// NonceCacheSize bounds the replay cache.
	NonceCacheSize = 10000

	// Signed-request HTTP headers.
	PubkeyHeader    = "X-Pdguard-Pubkey"
	SignatureHeader = "X-Pdguard-Signature"
	TimestampHeader = "X-Pdguard-Timestamp"
	NonceHeader     = "X-Pdguard-Nonce"
)

// SignedRequest carries the material a management application sends to
// prove possession of a registered key.
type SignedRequest struct {
	Pubkey    string // full public key line, e.g. "ssh-ed25519 AAAA..."
	Signature string // base64 SSH signature over "timestamp|nonce"
	Timestamp int64  // unix seconds
	Nonce     string
}

// KeyVerifier verifies signed requests against their embedded public key.
type KeyVerifier struct {
	maxAge time.Duration
	nonces *nonceCache
}

// NewKeyVerifier creates a verifier with replay protection.
func NewKeyVerifier() *KeyVerifier {
	return &KeyVerifier{
		maxAge: SignatureMaxAge,
		nonces: newNonceCache(SignatureMaxAge, NonceCacheSize),
	}
}

// Close releases the replay cache.
func (v *KeyVerifier) Close() {
	if v.nonces != nil {
		v.nonces.close()
	}
}

// Verify checks the signature and returns the key's fingerprint. The
// signed message is "timestamp|nonce"; each nonce is single use within
// the timestamp window.
func (v *KeyVerifier) Verify(req *SignedRequest) (fingerprint string, err error) {
	pubkey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(req.Pubkey))
	if err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}

	signedAt := time.Unix(req.Timestamp, 0)
	age := time.Since(signedAt)
	if age < 0 {
		// small clock skew is tolerated
		if age < -time.Minute {
			return "", errors.New("timestamp is in the future")
		}
	} else if age > v.maxAge {
		return "", fmt.Errorf("signature expired (age: %v, max: %v)", age, v.maxAge)
	}

	message := fmt.Sprintf("%d|%s", req.Timestamp, req.Nonce)

	sigBytes, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		return "", fmt.Errorf("invalid signature encoding: %w", err)
	}
	sig := new(ssh.Signature)
	if err := ssh.Unmarshal(sigBytes, sig); err != nil {
		return "", fmt.Errorf("invalid signature format: %w", err)
	}
	if err := pubkey.Verify([]byte(message), sig); err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}

	// nonce key includes the fingerprint so one key's nonce cannot burn
	// another's
	fp := Fingerprint(pubkey)
	nonceKey := fmt.Sprintf("%s:%d:%s", fp, req.Timestamp, req.Nonce)
	if v.nonces.checkAndMark(nonceKey) {
		return "", errors.New("nonce already used")
	}
	return fp, nil
}

// Fingerprint computes the SHA256 fingerprint of a public key as lowercase
// hex without colons.
func Fingerprint(pubkey ssh.PublicKey) string {
	hash := sha256.Sum256(pubkey.Marshal())
	return hex.EncodeToString(hash[:])
}

// FingerprintFromKey parses a public key line and returns its fingerprint.
// Used when registering management applications.
func FingerprintFromKey(pubkeyStr string) (string, error) {
	pubkey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(pubkeyStr))
	if err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}
	return Fingerprint(pubkey), nil
}

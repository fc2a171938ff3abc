// ABOUTME: Tests for signed-request verification and replay protection
// ABOUTME: Generates a real ed25519 key pair per test

package authz

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func newSignedRequest(t *testing.T, ts int64, nonce string) (*SignedRequest, string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)

	message := fmt.Sprintf("%d|%s", ts, nonce)
	sig, err := signer.Sign(rand.Reader, []byte(message))
	require.NoError(t, err)

	req := &SignedRequest{
		Pubkey:    string(ssh.MarshalAuthorizedKey(sshPub)),
		Signature: base64.StdEncoding.EncodeToString(ssh.Marshal(sig)),
		Timestamp: ts,
		Nonce:     nonce,
	}
	return req, Fingerprint(sshPub)
}

func TestVerifySignedRequest(t *testing.T) {
	v := NewKeyVerifier()
	defer v.Close()

	req, wantFP := newSignedRequest(t, time.Now().Unix(), "nonce-1")
	fp, err := v.Verify(req)
	require.NoError(t, err)
	assert.Equal(t, wantFP, fp)
	assert.Len(t, fp, 64) // sha256 hex
}

func TestVerifyRejectsReplay(t *testing.T) {
	v := NewKeyVerifier()
	defer v.Close()

	req, _ := newSignedRequest(t, time.Now().Unix(), "nonce-replay")
	_, err := v.Verify(req)
	require.NoError(t, err)

	_, err = v.Verify(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonce")
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	v := NewKeyVerifier()
	defer v.Close()

	req, _ := newSignedRequest(t, time.Now().Add(-time.Hour).Unix(), "nonce-old")
	_, err := v.Verify(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestVerifyRejectsFutureTimestamp(t *testing.T) {
	v := NewKeyVerifier()
	defer v.Close()

	req, _ := newSignedRequest(t, time.Now().Add(time.Hour).Unix(), "nonce-future")
	_, err := v.Verify(req)
	require.Error(t, err)
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	v := NewKeyVerifier()
	defer v.Close()

	req, _ := newSignedRequest(t, time.Now().Unix(), "nonce-a")
	req.Nonce = "nonce-b"
	_, err := v.Verify(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification failed")
}

func TestVerifyRejectsBadKey(t *testing.T) {
	v := NewKeyVerifier()
	defer v.Close()

	_, err := v.Verify(&SignedRequest{
		Pubkey:    "garbage",
		Timestamp: time.Now().Unix(),
		Nonce:     "n",
	})
	require.Error(t, err)
}

func TestFingerprintFromKey(t *testing.T) {
	req, wantFP := newSignedRequest(t, time.Now().Unix(), "n")
	fp, err := FingerprintFromKey(req.Pubkey)
	require.NoError(t, err)
	assert.Equal(t, wantFP, fp)

	_, err = FingerprintFromKey("not a key")
	assert.Error(t, err)
}

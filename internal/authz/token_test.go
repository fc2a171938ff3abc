// ABOUTME: Tests for JWT capability token generation and verification
// ABOUTME: Covers claims round-trip, expiry, and tampering

package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))

	tok, err := v.Generate("com.example.manager", 10042,
		[]string{CapReadSettings, CapWriteSettings}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "com.example.manager", id.PackageName)
	assert.Equal(t, 10042, id.UID)
	assert.True(t, id.HasCapability(CapReadSettings))
	assert.True(t, id.HasCapability(CapWriteSettings))
	assert.False(t, id.HasCapability(CapManageApps))
	assert.False(t, id.IsSystem())
}

func TestTokenExpired(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))
	tok, err := v.Generate("com.example", 1, nil, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenWrongSecret(t *testing.T) {
	v := NewJWTVerifier([]byte("secret-a"))
	tok, err := v.Generate("com.example", 1, nil, time.Hour)
	require.NoError(t, err)

	other := NewJWTVerifier([]byte("secret-b"))
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenGarbage(t *testing.T) {
	v := NewJWTVerifier([]byte("test-secret"))
	_, err := v.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSystemIdentity(t *testing.T) {
	id := &Identity{UID: SystemUID}
	assert.True(t, id.IsSystem())
}

// ABOUTME: JWT capability tokens for authenticating API callers
// ABOUTME: HS256 with sub, uid, and caps claims

package authz

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pdguard/pdguard/internal/settings"
)

// Capabilities carried in token caps claims.
const (
	CapReadSettings  = "read-settings"
	CapWriteSettings = "write-settings"
	CapManageApps    = "manage-apps"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// TokenVerifier turns a bearer token into a caller identity.
type TokenVerifier interface {
	Verify(tokenString string) (*Identity, error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier with the given signing secret.
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify validates the token and builds the caller identity from its
// sub (package name), uid, and caps claims.
func (v *JWTVerifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	id := &Identity{
		UID:         settings.UnknownUID,
		PackageName: sub,
	}
	if uid, ok := claims["uid"].(float64); ok {
		id.UID = int(uid)
	}
	if sig, ok := claims["sig"].(string); ok {
		id.SignatureDigest = sig
	}
	if raw, ok := claims["caps"].([]interface{}); ok {
		for _, c := range raw {
			if s, ok := c.(string); ok {
				id.Capabilities = append(id.Capabilities, s)
			}
		}
	}
	return id, nil
}

// Generate creates a token for the given caller.
func (v *JWTVerifier) Generate(packageName string, uid int, caps []string, expiresIn time.Duration) (string, error) {
	return v.GenerateWithSignature(packageName, uid, caps, "", expiresIn)
}

// GenerateWithSignature creates a token that also binds the caller's
// signing-certificate digest.
func (v *JWTVerifier) GenerateWithSignature(packageName string, uid int, caps []string, sigDigest string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  packageName,
		"uid":  uid,
		"caps": caps,
		"iat":  now.Unix(),
		"exp":  now.Add(expiresIn).Unix(),
	}
	if sigDigest != "" {
		claims["sig"] = sigDigest
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

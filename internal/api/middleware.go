// ABOUTME: HTTP middleware extracting the caller identity from bearer tokens
// ABOUTME: Signed-request headers ride along for the write gate

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pdguard/pdguard/internal/authz"
)

// extractBearerToken pulls a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// signedRequestFromHeaders assembles the optional signature material.
// Returns nil when the headers are absent.
func signedRequestFromHeaders(r *http.Request) *authz.SignedRequest {
	pubkey := r.Header.Get(authz.PubkeyHeader)
	if pubkey == "" {
		return nil
	}
	ts, err := strconv.ParseInt(r.Header.Get(authz.TimestampHeader), 10, 64)
	if err != nil {
		return nil
	}
	return &authz.SignedRequest{
		Pubkey:    pubkey,
		Signature: r.Header.Get(authz.SignatureHeader),
		Timestamp: ts,
		Nonce:     r.Header.Get(authz.NonceHeader),
	}
}

// authMiddleware validates the bearer token and attaches the caller
// identity to the request context.
func authMiddleware(verifier authz.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				writeError(w, http.StatusUnauthorized, errMsg)
				return
			}

			id, err := verifier.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			id.SignedRequest = signedRequestFromHeaders(r)

			next.ServeHTTP(w, r.WithContext(authz.WithIdentity(r.Context(), id)))
		})
	}
}

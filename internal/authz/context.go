// ABOUTME: Caller identity propagation through request contexts
// ABOUTME: Populated by the API middleware, read by the authorization gate

package authz

import "context"

// SystemUID is the privileged platform identity. Callers with this UID
// bypass every authorization check.
const SystemUID = 1000

// Identity is the authenticated caller of one request.
type Identity struct {
	// UID is the caller's numeric identity, or settings.UnknownUID when
	// the transport could not resolve one.
	UID int

	// PackageName is the caller's package, empty when unknown.
	PackageName string

	// Capabilities come from the verified token's caps claim.
	Capabilities []string

	// SignatureDigest is the caller's signing-certificate digest, when the
	// transport supplied one. Checked against signature-kind registry rows.
	SignatureDigest string

	// SignedRequest carries the optional signature material for
	// registry-backed write verification.
	SignedRequest *SignedRequest
}

// IsSystem reports whether the caller is the privileged platform identity.
func (id *Identity) IsSystem() bool {
	return id.UID == SystemUID
}

// HasCapability reports whether the caller's token carries cap.
func (id *Identity) HasCapability(cap string) bool {
	for _, c := range id.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity attaches the caller identity to a context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext retrieves the caller identity, nil when absent.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

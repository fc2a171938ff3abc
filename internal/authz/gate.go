// ABOUTME: The authorization gate for settings mutations and registry changes
// ABOUTME: System UID bypasses; everyone else needs capability plus registry row

package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAuthorizationDenied marks a refused mutation. It is distinct from any
// data result: denial never masquerades as emptiness.
var ErrAuthorizationDenied = errors.New("authorization denied")

// Registry is the slice of the store the gate consults for management
// application credentials.
type Registry interface {
	IsAppAuthorized(ctx context.Context, packageName, kind, fingerprint string) (bool, error)
}

// Registry credential kinds, mirrored from the store to avoid the import.
const (
	kindKey       = "key"
	kindSignature = "signature"
)

// Gate decides whether a caller may mutate settings or the registry.
type Gate struct {
	registry Registry
	keys     *KeyVerifier
	logger   *slog.Logger
}

// NewGate creates a gate backed by the credential registry. keys may be nil
// to disable signed-request verification (system-only deployments).
func NewGate(registry Registry, keys *KeyVerifier, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		registry: registry,
		keys:     keys,
		logger:   logger.With("component", "authz"),
	}
}

// AuthorizeRead permits settings reads: the system, or any caller whose
// token carries the read capability.
func (g *Gate) AuthorizeRead(ctx context.Context, id *Identity) error {
	if id == nil {
		return fmt.Errorf("no caller identity: %w", ErrAuthorizationDenied)
	}
	if id.IsSystem() {
		return nil
	}
	if !id.HasCapability(CapReadSettings) {
		g.logger.Warn("read denied, missing capability",
			"package", id.PackageName, "uid", id.UID)
		return fmt.Errorf("caller %s lacks %s: %w",
			id.PackageName, CapReadSettings, ErrAuthorizationDenied)
	}
	return nil
}

// AuthorizeWrite permits settings mutations. Non-system callers need the
// write capability and a registered credential: either a signed request
// whose key fingerprint is in the registry, or a bare fingerprint row of
// the signature kind for their package.
func (g *Gate) AuthorizeWrite(ctx context.Context, id *Identity) error {
	if id == nil {
		return fmt.Errorf("no caller identity: %w", ErrAuthorizationDenied)
	}
	if id.IsSystem() {
		return nil
	}
	if !id.HasCapability(CapWriteSettings) {
		g.logger.Warn("write denied, missing capability",
			"package", id.PackageName, "uid", id.UID)
		return fmt.Errorf("caller %s lacks %s: %w",
			id.PackageName, CapWriteSettings, ErrAuthorizationDenied)
	}

	if id.SignedRequest != nil && g.keys != nil {
		fp, err := g.keys.Verify(id.SignedRequest)
		if err != nil {
			g.logger.Warn("write denied, bad signature",
				"package", id.PackageName, "error", err)
			return fmt.Errorf("verifying signed request: %w: %v", ErrAuthorizationDenied, err)
		}
		ok, err := g.registry.IsAppAuthorized(ctx, id.PackageName, kindKey, fp)
		if err != nil {
			return fmt.Errorf("checking key registry: %w", err)
		}
		if !ok {
			g.logger.Warn("write denied, key not registered",
				"package", id.PackageName, "fingerprint", fp)
			return fmt.Errorf("key %s not registered for %s: %w",
				fp, id.PackageName, ErrAuthorizationDenied)
		}
		return nil
	}

	// no key material: fall back to the signing-certificate digest
	// registered for the package
	if id.SignatureDigest == "" {
		g.logger.Warn("write denied, no credential presented",
			"package", id.PackageName)
		return fmt.Errorf("caller %s presented no credential: %w",
			id.PackageName, ErrAuthorizationDenied)
	}
	ok, err := g.registry.IsAppAuthorized(ctx, id.PackageName, kindSignature, id.SignatureDigest)
	if err != nil {
		return fmt.Errorf("checking signature registry: %w", err)
	}
	if !ok {
		g.logger.Warn("write denied, signature not registered",
			"package", id.PackageName)
		return fmt.Errorf("signature for %s not registered: %w",
			id.PackageName, ErrAuthorizationDenied)
	}
	return nil
}

// AuthorizeManage permits registry mutations: the system, or a caller with
// the manage capability.
func (g *Gate) AuthorizeManage(ctx context.Context, id *Identity) error {
	if id == nil {
		return fmt.Errorf("no caller identity: %w", ErrAuthorizationDenied)
	}
	if id.IsSystem() {
		return nil
	}
	if !id.HasCapability(CapManageApps) {
		g.logger.Warn("manage denied, missing capability",
			"package", id.PackageName, "uid", id.UID)
		return fmt.Errorf("caller %s lacks %s: %w",
			id.PackageName, CapManageApps, ErrAuthorizationDenied)
	}
	return nil
}

// ABOUTME: Authorized-app registry and access-log operations
// ABOUTME: Keys and signature digests grant write access to settings

package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdguard/pdguard/internal/store"
)

// ListAuthorizedApps returns every registered credential.
func (c *Client) ListAuthorizedApps(ctx context.Context) ([]store.AuthorizedApp, error) {
	var apps []store.AuthorizedApp
	if err := c.do(ctx, http.MethodGet, "/v1/authorized-apps", nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// AuthorizeKey registers a public key for a management package.
func (c *Client) AuthorizeKey(ctx context.Context, pkg, pubkey string) error {
	body := map[string]string{"pubkey": pubkey}
	return c.do(ctx, http.MethodPost,
		"/v1/authorized-apps/"+url.PathEscape(pkg)+"/keys", body, nil)
}

// DeauthorizeKeys removes every key registered for a package.
func (c *Client) DeauthorizeKeys(ctx context.Context, pkg string) error {
	return c.do(ctx, http.MethodDelete,
		"/v1/authorized-apps/"+url.PathEscape(pkg)+"/keys", nil, nil)
}

// AuthorizeSignature registers a signing-certificate digest.
func (c *Client) AuthorizeSignature(ctx context.Context, pkg, digest string) error {
	body := map[string]string{"digest": digest}
	return c.do(ctx, http.MethodPost,
		"/v1/authorized-apps/"+url.PathEscape(pkg)+"/signatures", body, nil)
}

// DeauthorizeSignatures removes every signature digest for a package.
func (c *Client) DeauthorizeSignatures(ctx context.Context, pkg string) error {
	return c.do(ctx, http.MethodDelete,
		"/v1/authorized-apps/"+url.PathEscape(pkg)+"/signatures", nil, nil)
}

// RecentAccess returns the newest audit entries, most recent first.
// limit <= 0 uses the service default.
func (c *Client) RecentAccess(ctx context.Context, limit int) ([]store.AccessEntry, error) {
	path := "/v1/access-log"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var entries []store.AccessEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

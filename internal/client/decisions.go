// ABOUTME: Decision and notification operations
// ABOUTME: Decide asks the service to arbitrate one data access

package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pdguard/pdguard/internal/settings"
)

// Decision is the service's verdict on one data access.
type Decision struct {
	Package  string `json:"package"`
	UID      int    `json:"uid"`
	Category string `json:"category"`
	Mode     string `json:"mode"`
	Output   string `json:"output"`
	Allowed  bool   `json:"allowed"`
	Error    string `json:"error,omitempty"`
}

// Decide arbitrates an access by the given package to the given data
// category and returns the substitute output the caller should surface.
func (c *Client) Decide(ctx context.Context, pkg string, category settings.Category) (*Decision, error) {
	var d Decision
	path := "/v1/decisions/" + url.PathEscape(pkg) + "/" + url.PathEscape(string(category))
	if err := c.do(ctx, http.MethodGet, path, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Notify reports an access that was arbitrated locally so the service can
// audit it and fan it out to subscribers.
func (c *Client) Notify(ctx context.Context, pkg string, uid int, mode settings.Mode, category settings.Category, output string) error {
	body := map[string]any{
		"package_name": pkg,
		"uid":          uid,
		"mode":         byte(mode),
		"category":     string(category),
		"output":       output,
	}
	return c.do(ctx, http.MethodPost, "/v1/notifications", body, nil)
}

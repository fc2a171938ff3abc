// ABOUTME: Global flag and named-value operations
// ABOUTME: Covers enabled, notifications, boot-completed, and /v1/values

package client

import (
	"context"
	"net/http"
	"net/url"
)

type flagBody struct {
	Enabled bool `json:"enabled"`
}

// Enabled reports whether arbitration is globally active.
func (c *Client) Enabled(ctx context.Context) (bool, error) {
	var resp flagBody
	if err := c.do(ctx, http.MethodGet, "/v1/flags/enabled", nil, &resp); err != nil {
		return false, err
	}
	return resp.Enabled, nil
}

// SetEnabled turns global arbitration on or off.
func (c *Client) SetEnabled(ctx context.Context, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/v1/flags/enabled", flagBody{Enabled: enabled}, nil)
}

// NotificationsEnabled reports whether access events fan out.
func (c *Client) NotificationsEnabled(ctx context.Context) (bool, error) {
	var resp flagBody
	if err := c.do(ctx, http.MethodGet, "/v1/flags/notifications", nil, &resp); err != nil {
		return false, err
	}
	return resp.Enabled, nil
}

// SetNotificationsEnabled turns event fan-out on or off.
func (c *Client) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/v1/flags/notifications", flagBody{Enabled: enabled}, nil)
}

// SetBootCompleted releases the startup latch that holds back event
// delivery until the host system is fully up.
func (c *Client) SetBootCompleted(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/flags/boot-completed", nil, nil)
}

// GetValue reads a named value from the service's key-value map.
func (c *Client) GetValue(ctx context.Context, name string) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	err := c.do(ctx, http.MethodGet, "/v1/values/"+url.PathEscape(name), nil, &resp)
	if err != nil {
		return "", err
	}
	return resp.Value, nil
}

// SetValue writes a named value.
func (c *Client) SetValue(ctx context.Context, name, value string) error {
	body := map[string]string{"value": value}
	return c.do(ctx, http.MethodPut, "/v1/values/"+url.PathEscape(name), body, nil)
}

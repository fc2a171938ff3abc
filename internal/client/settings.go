// ABOUTME: Settings CRUD operations against the /v1/settings routes
// ABOUTME: Absent records come back as nil, matching the service contract

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdguard/pdguard/internal/settings"
	"github.com/pdguard/pdguard/internal/store"
)

// GetSettings fetches one package's record. Returns nil when none exists.
func (c *Client) GetSettings(ctx context.Context, pkg string) (*settings.Record, error) {
	var rec settings.Record
	err := c.do(ctx, http.MethodGet, "/v1/settings/"+url.PathEscape(pkg), nil, &rec)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetSettingsAll fetches every stored record.
func (c *Client) GetSettingsAll(ctx context.Context) ([]*settings.Record, error) {
	var recs []*settings.Record
	if err := c.do(ctx, http.MethodGet, "/v1/settings", nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// GetSettingsMany fetches records for the given packages. The returned
// slice is positional; missing packages yield nil entries.
func (c *Client) GetSettingsMany(ctx context.Context, pkgs []string) ([]*settings.Record, error) {
	var recs []*settings.Record
	body := map[string][]string{"packages": pkgs}
	if err := c.do(ctx, http.MethodPost, "/v1/settings/query", body, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// GetSettingsByUID fetches all records sharing a kernel UID.
func (c *Client) GetSettingsByUID(ctx context.Context, uid int) ([]*settings.Record, error) {
	var recs []*settings.Record
	err := c.do(ctx, http.MethodGet, "/v1/settings/uid/"+strconv.Itoa(uid), nil, &recs)
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// SaveSettings creates or replaces one package's record.
func (c *Client) SaveSettings(ctx context.Context, rec *settings.Record) error {
	if rec == nil || rec.PackageName == "" {
		return fmt.Errorf("%w: record needs a package name", store.ErrMalformedInput)
	}
	return c.do(ctx, http.MethodPut,
		"/v1/settings/"+url.PathEscape(rec.PackageName), rec, rec)
}

// BatchResult reports the per-record outcome of SaveSettingsMany.
type BatchResult struct {
	Saved   int      `json:"saved"`
	Failed  int      `json:"failed"`
	Results []string `json:"results"`
}

// SaveSettingsMany saves a batch. Individual failures do not abort the
// rest; the result lists one verdict per input record.
func (c *Client) SaveSettingsMany(ctx context.Context, recs []*settings.Record) (*BatchResult, error) {
	var res BatchResult
	body := map[string]any{"records": recs}
	if err := c.do(ctx, http.MethodPost, "/v1/settings/batch", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteSettings removes one package's record. Returns false when there
// was nothing to delete.
func (c *Client) DeleteSettings(ctx context.Context, pkg string) (bool, error) {
	err := c.do(ctx, http.MethodDelete, "/v1/settings/"+url.PathEscape(pkg), nil, nil)
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteSettingsMany removes a set of records.
func (c *Client) DeleteSettingsMany(ctx context.Context, pkgs []string) (*store.DeleteResult, error) {
	var res store.DeleteResult
	body := map[string][]string{"packages": pkgs}
	if err := c.do(ctx, http.MethodPost, "/v1/settings/delete", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteSettingsAll wipes every record. Returns the count removed.
func (c *Client) DeleteSettingsAll(ctx context.Context) (int, error) {
	var res struct {
		Deleted int `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/v1/settings", nil, &res); err != nil {
		return 0, err
	}
	return res.Deleted, nil
}

// Purge asks the service to reconcile stored records against the
// installed-package list.
func (c *Client) Purge(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/purge", nil, nil)
}
